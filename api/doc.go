// Package api provides the serialization DTOs for the LearnFlow cache
// management API.
//
// # API Overview
//
// LearnFlow exposes a small RESTful management surface for its analytics
// cache:
//   - Cache statistics and counter reset
//   - Key and pattern invalidation
//   - Full cache clear (L2, optionally L1)
//   - On-demand warming by query type or per-user dashboard
//   - Cache health probes across both tiers
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// # Generating Documentation
//
// To regenerate Swagger documentation using swag:
//
//	swag init -g cmd/learnflow-cache/main.go -o api --parseDependency --parseInternal
package api
