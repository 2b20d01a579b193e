package cache

import "time"

// Clock 时钟抽象。L1 的惰性过期依赖当前时间比较，
// 注入时钟使测试可以确定性地推进时间而无需真实 sleep。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 返回系统时钟
func SystemClock() Clock { return systemClock{} }
