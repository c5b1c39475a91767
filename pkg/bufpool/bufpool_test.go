package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClasses(t *testing.T) {
	t.Run("SmallRequest", func(t *testing.T) {
		buf := Get(100)
		defer Put(buf)

		assert.Len(t, buf, 100)
		assert.Equal(t, DefaultSmallSize, cap(buf))
	})

	t.Run("ChunkRequest", func(t *testing.T) {
		buf := Get(DefaultChunkSize)
		defer Put(buf)

		assert.Len(t, buf, DefaultChunkSize)
		assert.Equal(t, DefaultChunkSize, cap(buf))
	})

	t.Run("OversizedRequest", func(t *testing.T) {
		buf := Get(DefaultChunkSize + 1)
		defer Put(buf)

		assert.Len(t, buf, DefaultChunkSize+1)
		assert.Equal(t, len(buf), cap(buf))
	})

	t.Run("ZeroRequest", func(t *testing.T) {
		buf := Get(0)
		defer Put(buf)

		assert.NotNil(t, buf)
		assert.Empty(t, buf)
	})
}

func TestPutRestoresFullLength(t *testing.T) {
	p := NewPool(&Config{SmallSize: 16, ChunkSize: 64})

	buf := p.Get(3)
	assert.Equal(t, 16, cap(buf))
	p.Put(buf)

	// Whatever comes back, the slice must honour the requested length.
	again := p.Get(10)
	assert.Len(t, again, 10)
	assert.Equal(t, 16, cap(again))
}

func TestForeignBuffersAreIgnored(t *testing.T) {
	p := NewPool(&Config{SmallSize: 16, ChunkSize: 64})

	p.Put(nil)
	p.Put(make([]byte, 33))

	assert.Equal(t, 64, cap(p.Get(40)))
}

func TestNewPoolDefaults(t *testing.T) {
	p := NewPool(&Config{SmallSize: 128, ChunkSize: 32})
	// The chunk class never falls below the small class.
	assert.Equal(t, 128, cap(p.Get(100)))

	p = NewPool(nil)
	assert.Equal(t, DefaultChunkSize, cap(p.Get(DefaultSmallSize+1)))
}

func TestConcurrentUse(t *testing.T) {
	const goroutines = 10
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				buf := Get((id*977 + j*131) % (DefaultChunkSize + 1))
				for k := range buf {
					buf[k] = byte(id)
				}
				Put(buf)
			}
		}(i)
	}
	wg.Wait()
}
