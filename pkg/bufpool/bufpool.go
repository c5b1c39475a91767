// Package bufpool recycles the byte slices used for frame reads and file
// chunks so that busy connections do not allocate a fresh 64 KiB buffer
// per transfer.
//
// Usage:
//
//	buf := bufpool.Get(size)
//	defer bufpool.Put(buf)
package bufpool

import (
	"sync"
)

const (
	// DefaultSmallSize covers a single frame-reader fill.
	DefaultSmallSize = 4 << 10

	// DefaultChunkSize matches one binary transfer chunk.
	DefaultChunkSize = 64 << 10
)

// Pool hands out buffers from two size classes. Requests above the chunk
// class are allocated directly and never pooled.
type Pool struct {
	small     sync.Pool
	chunk     sync.Pool
	smallSize int
	chunkSize int
}

// Config overrides the size classes. Zero fields take the defaults.
type Config struct {
	SmallSize int
	ChunkSize int
}

// NewPool creates a pool. A nil config uses the defaults.
func NewPool(cfg *Config) *Pool {
	p := &Pool{smallSize: DefaultSmallSize, chunkSize: DefaultChunkSize}
	if cfg != nil {
		if cfg.SmallSize > 0 {
			p.smallSize = cfg.SmallSize
		}
		if cfg.ChunkSize > 0 {
			p.chunkSize = cfg.ChunkSize
		}
	}
	if p.chunkSize < p.smallSize {
		p.chunkSize = p.smallSize
	}

	p.small.New = func() any {
		buf := make([]byte, p.smallSize)
		return &buf
	}
	p.chunk.New = func() any {
		buf := make([]byte, p.chunkSize)
		return &buf
	}
	return p
}

// Get returns a slice of length size. Its capacity may be larger.
// Callers must hand it back with Put once done.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte
	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.chunkSize:
		bufPtr = p.chunk.Get().(*[]byte)
	default:
		return make([]byte, size)
	}
	return (*bufPtr)[:size]
}

// Put returns buf to the class matching its capacity. Buffers of any
// other capacity are left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	full := buf[:cap(buf)]
	switch cap(buf) {
	case p.smallSize:
		p.small.Put(&full)
	case p.chunkSize:
		p.chunk.Put(&full)
	}
}

var globalPool = NewPool(nil)

// Get takes a buffer from the shared pool.
func Get(size int) []byte {
	return globalPool.Get(size)
}

// Put returns a buffer to the shared pool.
func Put(buf []byte) {
	globalPool.Put(buf)
}
