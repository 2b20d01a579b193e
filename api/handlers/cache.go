package handlers

import (
	"net/http"
	"time"

	"github.com/BaSui01/learnflow/api"
	"github.com/BaSui01/learnflow/reports/cache"
	"github.com/BaSui01/learnflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 缓存管理 Handler
// =============================================================================

// CacheHandler 缓存管理处理器：统计、失效、清空、预热、事件上报与健康探测。
type CacheHandler struct {
	engine  *cache.MultiLevelCache
	warmer  *cache.Warmer
	trigger *cache.Trigger
	logger  *zap.Logger
}

// NewCacheHandler 创建缓存管理处理器
func NewCacheHandler(engine *cache.MultiLevelCache, warmer *cache.Warmer, trigger *cache.Trigger, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{
		engine:  engine,
		warmer:  warmer,
		trigger: trigger,
		logger:  logger,
	}
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleStats 处理 GET /v1/cache/stats
// @Summary 缓存统计
// @Description 返回请求/命中/未命中/回源计数与命中率
// @Tags 缓存
// @Produce json
// @Success 200 {object} Response{data=api.StatsResponse} "统计快照"
// @Router /v1/cache/stats [get]
func (h *CacheHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetStats()
	WriteSuccess(w, toStatsResponse(snap))
}

// HandleResetStats 处理 POST /v1/cache/stats/reset
// @Summary 重置缓存统计
// @Description 将所有统计计数器清零，缓存内容不受影响
// @Tags 缓存
// @Produce json
// @Success 200 {object} Response "已重置"
// @Router /v1/cache/stats/reset [post]
func (h *CacheHandler) HandleResetStats(w http.ResponseWriter, r *http.Request) {
	h.engine.ResetStats()
	h.logger.Info("cache stats reset via API")
	WriteSuccess(w, map[string]string{"message": "stats reset"})
}

// HandleInvalidate 处理 POST /v1/cache/invalidate
// @Summary 缓存失效
// @Description 按精确键或尾部通配模式使缓存条目失效
// @Tags 缓存
// @Accept json
// @Produce json
// @Param request body api.InvalidateRequest true "失效请求"
// @Success 200 {object} Response{data=api.InvalidateResponse} "失效结果"
// @Failure 400 {object} Response "请求无效"
// @Router /v1/cache/invalidate [post]
func (h *CacheHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req api.InvalidateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	switch {
	case req.Key != "" && req.Pattern != "":
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"provide either key or pattern, not both", h.logger)

	case req.Key != "":
		if _, err := cache.ParseKey(cache.Key(req.Key)); err != nil {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidKey, err.Error(), h.logger)
			return
		}
		h.engine.Invalidate(r.Context(), cache.Key(req.Key))
		WriteSuccess(w, api.InvalidateResponse{Invalidated: 1})

	case req.Pattern != "":
		pattern, err := cache.ParsePattern(req.Pattern)
		if err != nil {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidPattern, err.Error(), h.logger)
			return
		}
		count := h.engine.InvalidatePattern(r.Context(), pattern)
		WriteSuccess(w, api.InvalidateResponse{Invalidated: count})

	default:
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"key or pattern is required", h.logger)
	}
}

// HandleClear 处理 POST /v1/cache/clear
// @Summary 全量清空
// @Description 清空 L2 命名空间下全部条目，可选同时清空 L1
// @Tags 缓存
// @Accept json
// @Produce json
// @Param request body api.ClearRequest true "清空请求"
// @Success 200 {object} Response "已清空"
// @Router /v1/cache/clear [post]
func (h *CacheHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	var req api.ClearRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	h.engine.ClearAll(r.Context(), req.IncludeMemory)
	WriteSuccess(w, map[string]any{
		"message":        "cache cleared",
		"include_memory": req.IncludeMemory,
	})
}

// HandleEvent 处理 POST /v1/cache/events
// @Summary 领域事件上报
// @Description 按事件类型映射为失效模式集合并执行失效
// @Tags 缓存
// @Accept json
// @Produce json
// @Param request body api.EventRequest true "领域事件"
// @Success 200 {object} Response{data=api.InvalidateResponse} "失效结果"
// @Failure 400 {object} Response "事件类型无效"
// @Router /v1/cache/events [post]
func (h *CacheHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var req api.EventRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	evtType, err := cache.ParseEventType(req.Type)
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, err.Error(), h.logger)
		return
	}

	count := h.trigger.Fire(r.Context(), cache.Event{
		Type:         evtType,
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		MaterialID:   req.MaterialID,
		UserID:       req.UserID,
		Module:       req.Module,
		ReportType:   req.ReportType,
	})

	WriteSuccess(w, api.InvalidateResponse{Invalidated: count})
}

// HandleWarm 处理 POST /v1/cache/warm
// @Summary 缓存预热
// @Description 按查询类型批量预热，或只预热指定用户的仪表盘
// @Tags 缓存
// @Accept json
// @Produce json
// @Param request body api.WarmRequest true "预热请求"
// @Success 200 {object} Response{data=api.WarmResponse} "预热结果"
// @Router /v1/cache/warm [post]
func (h *CacheHandler) HandleWarm(w http.ResponseWriter, r *http.Request) {
	var req api.WarmRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	var result cache.WarmResult
	if req.UserID != "" {
		result = h.warmer.WarmUserDashboard(r.Context(), req.UserID)
	} else {
		result = h.warmer.WarmAnalytics(r.Context(), req.QueryTypes)
	}

	WriteSuccess(w, api.WarmResponse{
		Warmed:  result.Warmed,
		Failed:  result.Failed,
		Skipped: result.Skipped,
	})
}

// HandleCacheHealth 处理 GET /v1/cache/health
// @Summary 缓存健康探测
// @Description 对 L1/L2 各做一轮 set/get/delete 探测
// @Tags 缓存
// @Produce json
// @Success 200 {object} Response{data=api.CacheHealthResponse} "探测报告"
// @Failure 503 {object} Response{data=api.CacheHealthResponse} "缓存不健康"
// @Router /v1/cache/health [get]
func (h *CacheHandler) HandleCacheHealth(w http.ResponseWriter, r *http.Request) {
	report := h.engine.HealthCheck(r.Context())
	resp := toCacheHealthResponse(report)

	status := http.StatusOK
	if report.Status == cache.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	WriteJSON(w, status, Response{
		Success:   report.Status != cache.StatusUnhealthy,
		Data:      resp,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// 🔄 DTO 转换
// =============================================================================

func toStatsResponse(s cache.Snapshot) api.StatsResponse {
	return api.StatsResponse{
		Requests: s.Requests,
		Hits:     s.Hits,
		Misses:   s.Misses,
		Computes: s.Computes,
		HitRate:  s.HitRate,
		L1:       toTierStats(s.L1),
		L2:       toTierStats(s.L2),
	}
}

func toTierStats(s cache.TierSnapshot) api.TierStats {
	return api.TierStats{
		Hits:    s.Hits,
		Misses:  s.Misses,
		Sets:    s.Sets,
		Deletes: s.Deletes,
	}
}

func toCacheHealthResponse(r cache.HealthReport) api.CacheHealthResponse {
	return api.CacheHealthResponse{
		Status:    r.Status,
		L1:        toTierHealth(r.L1),
		L2:        toTierHealth(r.L2),
		Elapsed:   r.Elapsed.String(),
		CheckedAt: time.Now(),
	}
}

func toTierHealth(t cache.TierHealth) api.TierHealth {
	return api.TierHealth{
		OK:      t.OK,
		Elapsed: t.Elapsed.String(),
		Error:   t.Error,
	}
}
