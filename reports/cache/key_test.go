package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 🧪 键编解码测试
// =============================================================================

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name       string
		namespace  string
		entity     string
		ids        []string
		qualifiers map[string]string
		want       Key
		wantErr    bool
	}{
		{
			name:      "namespace and entity only",
			namespace: "analytics",
			entity:    "student",
			want:      "analytics:student",
		},
		{
			name:      "with identifiers",
			namespace: "analytics",
			entity:    "assignment",
			ids:       []string{"42", "overall"},
			want:      "analytics:assignment:42:overall",
		},
		{
			name:       "qualifiers sorted by name",
			namespace:  "analytics",
			entity:     "student",
			ids:        []string{"7"},
			qualifiers: map[string]string{"period": "week", "metric": "mean"},
			want:       "analytics:student:7:metric=mean:period=week",
		},
		{
			name:      "empty namespace rejected",
			namespace: "",
			entity:    "student",
			wantErr:   true,
		},
		{
			name:      "empty entity rejected",
			namespace: "analytics",
			entity:    "",
			wantErr:   true,
		},
		{
			name:      "empty identifier rejected",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{""},
			wantErr:   true,
		},
		{
			name:      "wildcard in key rejected",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{"*"},
			wantErr:   true,
		},
		{
			name:      "delimiter in segment rejected",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{"1:2"},
			wantErr:   true,
		},
		{
			name:      "unknown entity type accepted",
			namespace: "analytics",
			entity:    "cohort",
			ids:       []string{"9"},
			want:      "analytics:cohort:9",
		},
		{
			name:      "glob brackets in segment rejected",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{"v[1]"},
			wantErr:   true,
		},
		{
			name:      "glob question mark in segment rejected",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{"v?"},
			wantErr:   true,
		},
		{
			name:       "backslash in qualifier rejected",
			namespace:  "analytics",
			entity:     "student",
			ids:        []string{"7"},
			qualifiers: map[string]string{"period": `a\b`},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildKey(tt.namespace, tt.entity, tt.ids, tt.qualifiers)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildKey_QualifierOrderIrrelevant(t *testing.T) {
	// 语义相同的请求无论调用方如何排列限定符都必须落到同一个键
	a, err := BuildKey("analytics", "engagement", []string{"3"},
		map[string]string{"from": "2025-01-01", "to": "2025-02-01", "granularity": "day"})
	require.NoError(t, err)

	b, err := BuildKey("analytics", "engagement", []string{"3"},
		map[string]string{"to": "2025-02-01", "granularity": "day", "from": "2025-01-01"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBuildPattern(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		entity    string
		ids       []string
		want      Pattern
		wantErr   bool
	}{
		{
			name:      "trailing wildcard",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{"1", "*"},
			want:      "analytics:student:1:*",
		},
		{
			name:      "entity level wildcard",
			namespace: "analytics",
			entity:    "assignment",
			ids:       []string{"*"},
			want:      "analytics:assignment:*",
		},
		{
			name:      "literal after wildcard rejected",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{"*", "overall"},
			wantErr:   true,
		},
		{
			name:      "wildcard namespace rejected",
			namespace: "*",
			entity:    "student",
			wantErr:   true,
		},
		{
			name:      "empty namespace rejected",
			namespace: "",
			entity:    "student",
			wantErr:   true,
		},
		{
			name:      "glob brackets in id rejected",
			namespace: "analytics",
			entity:    "student",
			ids:       []string{"v[1]", "*"},
			wantErr:   true,
		},
		{
			name:      "glob question mark in entity rejected",
			namespace: "analytics",
			entity:    "s?udent",
			ids:       []string{"*"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPattern(tt.namespace, tt.entity, tt.ids...)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Pattern
		wantErr bool
	}{
		{name: "trailing wildcard", raw: "analytics:student:1:*", want: "analytics:student:1:*"},
		{name: "entity wildcard", raw: "analytics:assignment:*", want: "analytics:assignment:*"},
		{name: "exact pattern", raw: "analytics:student:1", want: "analytics:student:1"},
		{name: "single segment rejected", raw: "analytics", wantErr: true},
		{name: "partial wildcard rejected", raw: "analytics:stu*:1", wantErr: true},
		{name: "literal after wildcard rejected", raw: "analytics:student:*:overall", wantErr: true},
		{name: "wildcard namespace rejected", raw: "*:student:1", wantErr: true},
		{name: "empty segment rejected", raw: "analytics:student::1", wantErr: true},
		{name: "glob brackets rejected", raw: "analytics:student:v[1]:*", wantErr: true},
		{name: "glob question mark rejected", raw: "analytics:student:v?:*", wantErr: true},
		{name: "backslash rejected", raw: `analytics:student:v\1:*`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePattern(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		key     Key
		want    bool
	}{
		{"prefix match", "analytics:student:1:*", "analytics:student:1:overall", true},
		{"no match other id", "analytics:student:1:*", "analytics:student:2:overall", false},
		{"segment boundary respected", "analytics:student:1:*", "analytics:student:10:overall", false},
		{"exact pattern equals key", "analytics:student:1", "analytics:student:1", true},
		{"exact pattern no prefix match", "analytics:student:1", "analytics:student:1:overall", false},
		{"entity wildcard", "analytics:assignment:*", "analytics:assignment:42:overall", true},
		{"different namespace", "reports:student:1:*", "analytics:student:1:overall", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.pattern, tt.key))
		})
	}
}

func TestParseKey(t *testing.T) {
	parsed, err := ParseKey("analytics:student:7:metric=mean")
	require.NoError(t, err)
	assert.Equal(t, "analytics", parsed.Namespace)
	assert.Equal(t, "student", parsed.Entity)
	assert.Equal(t, []string{"7", "metric=mean"}, parsed.Segments)

	_, err = ParseKey("loneword")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestBuildKey_RoundTripsThroughParse(t *testing.T) {
	key, err := BuildKey("analytics", "dashboard", []string{"user-9"}, nil)
	require.NoError(t, err)

	parsed, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, "analytics", parsed.Namespace)
	assert.Equal(t, "dashboard", parsed.Entity)
	assert.Equal(t, []string{"user-9"}, parsed.Segments)
}
