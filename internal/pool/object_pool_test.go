package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_GetPut(t *testing.T) {
	p := NewPool(
		func() *bytes.Buffer { return &bytes.Buffer{} },
		func(b **bytes.Buffer) { (*b).Reset() },
	)

	buf := p.Get()
	buf.WriteString("hello")
	p.Put(buf)

	// 复用的对象必须已被 reset
	buf2 := p.Get()
	assert.Equal(t, 0, buf2.Len())

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.Gets)
	assert.Equal(t, int64(1), stats.Puts)
	assert.Equal(t, int64(1), stats.Resets)
}

func TestPool_NoResetFunc(t *testing.T) {
	p := NewPool(func() []byte { return make([]byte, 8) }, nil)

	b := p.Get()
	assert.Len(t, b, 8)
	p.Put(b)

	assert.Equal(t, int64(0), p.Stats().Resets)
}

func TestPoolStats_HitRate(t *testing.T) {
	assert.Equal(t, 0.0, PoolStats{}.HitRate())
	assert.Equal(t, 0.5, PoolStats{Gets: 4, News: 2}.HitRate())
}

func TestByteBufferPool(t *testing.T) {
	buf := ByteBufferPool.Get()
	buf.WriteString("entry")
	ByteBufferPool.Put(buf)

	buf2 := ByteBufferPool.Get()
	defer ByteBufferPool.Put(buf2)
	assert.Equal(t, 0, buf2.Len())
}
