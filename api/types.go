package api

import "time"

// =============================================================================
// 缓存统计类型
// =============================================================================

// StatsResponse 表示缓存统计快照。
// @Description 缓存统计响应结构
type StatsResponse struct {
	// 总请求数
	Requests int64 `json:"requests" example:"1024"`
	// 命中数（L1+L2）
	Hits int64 `json:"hits" example:"768"`
	// 未命中数
	Misses int64 `json:"misses" example:"256"`
	// 回源计算次数
	Computes int64 `json:"computes" example:"256"`
	// 命中率百分比（0-100）
	HitRate float64 `json:"hit_rate" example:"75.0"`
	// L1 内存层统计
	L1 TierStats `json:"l1"`
	// L2 Redis 层统计
	L2 TierStats `json:"l2"`
}

// TierStats 表示单层缓存统计。
// @Description 单层缓存统计结构
type TierStats struct {
	// 命中数
	Hits int64 `json:"hits" example:"512"`
	// 未命中数
	Misses int64 `json:"misses" example:"512"`
	// 写入数
	Sets int64 `json:"sets" example:"256"`
	// 删除数
	Deletes int64 `json:"deletes" example:"16"`
}

// =============================================================================
// 失效类型
// =============================================================================

// InvalidateRequest 表示缓存失效请求。
// 提供 key 做单键失效，或提供 pattern 做模式失效，二选一。
// @Description 缓存失效请求结构
type InvalidateRequest struct {
	// 要失效的精确键
	Key string `json:"key,omitempty" example:"analytics:student:42:overall"`
	// 要失效的键模式（仅支持尾部通配）
	Pattern string `json:"pattern,omitempty" example:"analytics:student:42:*"`
}

// InvalidateResponse 表示缓存失效结果。
// @Description 缓存失效响应结构
type InvalidateResponse struct {
	// 从 L1 移除的条目数
	Invalidated int `json:"invalidated" example:"3"`
}

// EventRequest 表示领域事件上报请求。
// 事件按类型映射为一组失效模式并立即执行。
// @Description 领域事件请求结构
type EventRequest struct {
	// 事件类型（grade_update、material_view、user_progress、report_generation）
	Type string `json:"type" example:"grade_update"`
	// 作业 ID（grade_update）
	AssignmentID string `json:"assignment_id,omitempty" example:"hw-7"`
	// 学生 ID（grade_update、material_view）
	StudentID string `json:"student_id,omitempty" example:"stu-42"`
	// 资料 ID（material_view）
	MaterialID string `json:"material_id,omitempty" example:"mat-3"`
	// 用户 ID（user_progress）
	UserID string `json:"user_id,omitempty" example:"user-42"`
	// 课程模块（user_progress，可选）
	Module string `json:"module,omitempty" example:"algebra"`
	// 报表类型（report_generation）
	ReportType string `json:"report_type,omitempty" example:"engagement"`
}

// ClearRequest 表示全量清空请求。
// @Description 全量清空请求结构
type ClearRequest struct {
	// 是否同时清空 L1 内存层
	IncludeMemory bool `json:"include_memory" example:"true"`
}

// =============================================================================
// 预热类型
// =============================================================================

// WarmRequest 表示缓存预热请求。
// 指定 user_id 时只预热该用户的仪表盘，否则按查询类型批量预热。
// @Description 缓存预热请求结构
type WarmRequest struct {
	// 要预热的查询类型，空则使用默认目录
	QueryTypes []string `json:"query_types,omitempty"`
	// 仅预热该用户的仪表盘
	UserID string `json:"user_id,omitempty" example:"user-42"`
}

// WarmResponse 表示缓存预热结果。
// @Description 缓存预热响应结构
type WarmResponse struct {
	// 成功预热的目标数
	Warmed int `json:"warmed" example:"12"`
	// 失败的目标数
	Failed int `json:"failed" example:"1"`
	// 跳过的目标数
	Skipped int `json:"skipped" example:"0"`
}

// =============================================================================
// 健康检查类型
// =============================================================================

// CacheHealthResponse 表示缓存健康检查结果（HTTP API 序列化 DTO）。
// 注意：这是 API 层的响应类型，Elapsed 为 string 格式。
// 引擎内部的健康报告请使用 cache.HealthReport。
// @Description 缓存健康响应结构
type CacheHealthResponse struct {
	// 总体状态（healthy、degraded、unhealthy）
	Status string `json:"status" example:"healthy"`
	// L1 内存层探测结果
	L1 TierHealth `json:"l1"`
	// L2 Redis 层探测结果
	L2 TierHealth `json:"l2"`
	// 探测总耗时
	Elapsed string `json:"elapsed" example:"2ms"`
	// 检查时间戳
	CheckedAt time.Time `json:"checked_at"`
}

// TierHealth 表示单层探测结果。
// @Description 单层健康结构
type TierHealth struct {
	// 探测是否通过
	OK bool `json:"ok" example:"true"`
	// 探测耗时
	Elapsed string `json:"elapsed" example:"1ms"`
	// 失败原因
	Error string `json:"error,omitempty"`
}
