package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// 📣 领域事件驱动的失效
// =============================================================================

// EventType 领域事件种类。封闭枚举：事件到失效模式的映射在
// patternsFor 的 switch 里穷举，新增事件时编译器会指向这里。
type EventType int

const (
	// EventGradeUpdate 成绩变更
	EventGradeUpdate EventType = iota
	// EventMaterialView 学习资料浏览
	EventMaterialView
	// EventUserProgress 学习进度更新
	EventUserProgress
	// EventReportGeneration 报表生成
	EventReportGeneration
)

func (e EventType) String() string {
	switch e {
	case EventGradeUpdate:
		return "grade_update"
	case EventMaterialView:
		return "material_view"
	case EventUserProgress:
		return "user_progress"
	case EventReportGeneration:
		return "report_generation"
	default:
		return "unknown"
	}
}

// ParseEventType 解析事件类型名（String 的逆操作），未知名返回错误。
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "grade_update":
		return EventGradeUpdate, nil
	case "material_view":
		return EventMaterialView, nil
	case "user_progress":
		return EventUserProgress, nil
	case "report_generation":
		return EventReportGeneration, nil
	default:
		return 0, fmt.Errorf("unknown event type: %q", s)
	}
}

// Event 领域事件负载。按事件种类取对应字段，未用字段留空。
type Event struct {
	Type EventType

	AssignmentID string
	StudentID    string
	MaterialID   string
	UserID       string
	Module       string
	ReportType   string
}

// Trigger 把领域事件映射到失效模式集合并执行失效。
// 领域侧应在写入提交后同步调用；与领域事务不耦合，
// 写入与失效之间崩溃留下的陈旧条目由 TTL 过期兜底
//（接受的最终一致窗口，不是正确性缺陷）。
type Trigger struct {
	cache  *MultiLevelCache
	logger *zap.Logger
}

// NewTrigger 创建失效触发器
func NewTrigger(c *MultiLevelCache, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		cache:  c,
		logger: logger.With(zap.String("component", "invalidation_trigger")),
	}
}

// patternsFor 事件 → 失效模式集合。规则编译期固定，不做运行时数据驱动。
func patternsFor(evt Event) []Pattern {
	ns := "analytics"
	var patterns []Pattern

	add := func(entity string, ids ...string) {
		ids = append(ids, Wildcard)
		p, err := BuildPattern(ns, entity, ids...)
		if err != nil {
			return
		}
		patterns = append(patterns, p)
	}

	switch evt.Type {
	case EventGradeUpdate:
		if evt.AssignmentID != "" {
			add("assignment", evt.AssignmentID)
		}
		if evt.StudentID != "" {
			add("student", evt.StudentID)
		}

	case EventMaterialView:
		if evt.MaterialID != "" {
			add("engagement", evt.MaterialID)
		}
		if evt.StudentID != "" {
			add("progress", evt.StudentID)
		}

	case EventUserProgress:
		if evt.UserID != "" {
			if evt.Module != "" {
				add("progress", evt.UserID, evt.Module)
			} else {
				add("progress", evt.UserID)
			}
			add("dashboard", evt.UserID)
		}

	case EventReportGeneration:
		if evt.ReportType != "" {
			add(evt.ReportType)
		}
	}

	return patterns
}

// Fire 执行事件对应的全部模式失效，返回 L1 聚合删除数。
// 失效失败不向上抛——永远不能阻断触发它的领域写入。
func (t *Trigger) Fire(ctx context.Context, evt Event) int {
	patterns := patternsFor(evt)
	total := 0
	for _, p := range patterns {
		total += t.cache.InvalidatePattern(ctx, p)
	}

	t.logger.Debug("domain event invalidation",
		zap.String("event", evt.Type.String()),
		zap.Int("patterns", len(patterns)),
		zap.Int("l1_count", total))
	return total
}

// OnGradeUpdate 成绩变更：失效该作业的全部分析，
// 给出 studentID 时连带失效该学生的分析。
func (t *Trigger) OnGradeUpdate(ctx context.Context, assignmentID, studentID string) int {
	return t.Fire(ctx, Event{
		Type:         EventGradeUpdate,
		AssignmentID: assignmentID,
		StudentID:    studentID,
	})
}

// OnMaterialView 资料浏览：失效参与度与进度分析。
func (t *Trigger) OnMaterialView(ctx context.Context, materialID, studentID string) int {
	return t.Fire(ctx, Event{
		Type:       EventMaterialView,
		MaterialID: materialID,
		StudentID:  studentID,
	})
}

// OnUserProgressChange 进度更新：失效该用户的进度与仪表盘分析，
// 给出 module 时进度失效收窄到该模块。
func (t *Trigger) OnUserProgressChange(ctx context.Context, userID, module string) int {
	return t.Fire(ctx, Event{
		Type:   EventUserProgress,
		UserID: userID,
		Module: module,
	})
}

// OnReportGeneration 报表生成：失效该报表类型下的全部条目。
func (t *Trigger) OnReportGeneration(ctx context.Context, reportType string) int {
	return t.Fire(ctx, Event{
		Type:       EventReportGeneration,
		ReportType: reportType,
	})
}
