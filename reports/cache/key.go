package cache

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// 🔑 缓存键编解码
// =============================================================================

// Key 缓存键。对外不透明，但始终可由 ParseKey 还原出各段用于日志与匹配。
type Key string

// Pattern 失效模式。通配符只允许出现在尾部连续段，匹配退化为前缀比较。
// Pattern 仅用于失效，从不用于读取。
type Pattern string

const (
	// Delimiter 段分隔符
	Delimiter = ":"

	// Wildcard 通配符标记
	Wildcard = "*"

	// reservedSegmentChars 段内保留字符：分隔符、通配符，
	// 以及 Redis SCAN MATCH 的 glob 元字符。模式会原样下发给
	// SCAN MATCH，放行这些字符会让 L1 前缀匹配与 L2 glob 匹配
	// 对同一模式产生分歧。
	reservedSegmentChars = Delimiter + Wildcard + `?[]\`
)

// ErrInvalidKey 非法键/模式构造错误
var ErrInvalidKey = errors.New("invalid cache key")

// BuildKey 构造缓存键：namespace:entity:id...[:k=v...]。
// 相同入参总是产生相同的键：限定符按名称排序后拼接，
// 与调用方传入顺序无关；不含任何随机或时间成分。
// namespace/entity 为空或任一段为空/含通配符时返回 ErrInvalidKey。
// entity 不做白名单校验，未知实体类型向前兼容。
func BuildKey(namespace, entity string, ids []string, qualifiers map[string]string) (Key, error) {
	if namespace == "" {
		return "", fmt.Errorf("%w: empty namespace", ErrInvalidKey)
	}
	if entity == "" {
		return "", fmt.Errorf("%w: empty entity", ErrInvalidKey)
	}

	segments := make([]string, 0, 2+len(ids)+len(qualifiers))
	segments = append(segments, namespace, entity)

	for _, id := range ids {
		if id == "" {
			return "", fmt.Errorf("%w: empty identifier segment", ErrInvalidKey)
		}
		segments = append(segments, id)
	}

	if len(qualifiers) > 0 {
		names := make([]string, 0, len(qualifiers))
		for name := range qualifiers {
			if name == "" {
				return "", fmt.Errorf("%w: empty qualifier name", ErrInvalidKey)
			}
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			segments = append(segments, name+"="+qualifiers[name])
		}
	}

	for _, seg := range segments {
		if strings.ContainsAny(seg, reservedSegmentChars) {
			return "", fmt.Errorf("%w: reserved character in key segment %q", ErrInvalidKey, seg)
		}
	}

	return Key(strings.Join(segments, Delimiter)), nil
}

// BuildPattern 构造失效模式。identifier 段可为 Wildcard，
// 但通配符只能是尾部连续段：出现在字面段之前即返回 ErrInvalidKey。
// namespace 必须为字面值，不存在全通配的全局模式
//（全量清空走 MultiLevelCache.ClearAll）。
func BuildPattern(namespace, entity string, ids ...string) (Pattern, error) {
	if namespace == "" || strings.ContainsAny(namespace, reservedSegmentChars) {
		return "", fmt.Errorf("%w: pattern namespace must be literal", ErrInvalidKey)
	}
	if entity == "" {
		return "", fmt.Errorf("%w: empty entity", ErrInvalidKey)
	}
	sawWildcard := entity == Wildcard
	if !sawWildcard && strings.ContainsAny(entity, reservedSegmentChars) {
		return "", fmt.Errorf("%w: invalid pattern segment %q", ErrInvalidKey, entity)
	}

	segments := make([]string, 0, 2+len(ids))
	segments = append(segments, namespace, entity)
	for _, id := range ids {
		if id == "" {
			return "", fmt.Errorf("%w: empty identifier segment", ErrInvalidKey)
		}
		if id == Wildcard {
			sawWildcard = true
			segments = append(segments, id)
			continue
		}
		if sawWildcard {
			return "", fmt.Errorf("%w: literal segment %q after wildcard", ErrInvalidKey, id)
		}
		if strings.ContainsAny(id, reservedSegmentChars) {
			return "", fmt.Errorf("%w: invalid pattern segment %q", ErrInvalidKey, id)
		}
		segments = append(segments, id)
	}

	return Pattern(strings.Join(segments, Delimiter)), nil
}

// ParsePattern 校验外部输入的模式字符串（管理 API 等），
// 规则与 BuildPattern 一致：至少命名空间+实体两段，通配符只允许尾部连续段。
func ParsePattern(s string) (Pattern, error) {
	parts := strings.Split(s, Delimiter)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: pattern %q needs namespace and entity", ErrInvalidKey, s)
	}
	return BuildPattern(parts[0], parts[1], parts[2:]...)
}

// Matches 判断键是否落在模式内。
// 模式无通配符时要求完全相等；有通配符时比较字面前缀，
// 前缀带尾分隔符以保证段边界对齐（"...:1:*" 不会误匹配 "...:10:x"）。
func Matches(pattern Pattern, key Key) bool {
	prefix, wild := literalPrefix(pattern)
	if !wild {
		return string(key) == prefix
	}
	return strings.HasPrefix(string(key), prefix)
}

// literalPrefix 返回模式的字面前缀与是否含通配符。
// 含通配符时前缀保留尾部分隔符。
func literalPrefix(pattern Pattern) (string, bool) {
	s := string(pattern)
	idx := strings.Index(s, Wildcard)
	if idx < 0 {
		return s, false
	}
	return s[:idx], true
}

// redisMatch 返回交给 Redis SCAN MATCH 使用的 glob。
// 段校验已拒绝 ? [ ] \ 等 glob 元字符，模式中唯一的元字符就是
// 尾部通配符，可原样下发；无通配符的模式退化为精确键。
func redisMatch(pattern Pattern) string {
	return string(pattern)
}

// ParsedKey 键的分解结果，用于日志与调试。
type ParsedKey struct {
	Namespace string
	Entity    string
	Segments  []string
}

// ParseKey 将键还原为命名空间/实体/其余段。
// 段数不足时返回 ErrInvalidKey。
func ParseKey(key Key) (ParsedKey, error) {
	parts := strings.Split(string(key), Delimiter)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ParsedKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return ParsedKey{
		Namespace: parts[0],
		Entity:    parts[1],
		Segments:  parts[2:],
	}, nil
}
