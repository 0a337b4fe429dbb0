// Package bytespool hands out scratch buffers for reads whose result is
// thrown away or copied out right after, such as draining a socket.
package bytespool

import "sync"

// Buffers come from numPools size classes. The smallest class is MinPoolSize
// bytes and each following class is sizeMulti times larger. Requests above
// the largest class are allocated directly and never pooled.
const (
	numPools    = 6
	sizeMulti   = 4
	MinPoolSize = 256
)

var (
	pools     [numPools]sync.Pool
	poolSizes [numPools]int
)

func init() {
	size := MinPoolSize
	for i := range numPools {
		n := size
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, n)
				return &b
			},
		}
		poolSizes[i] = size
		size *= sizeMulti
	}
}

func class(size int) int {
	for i, ps := range poolSizes {
		if size <= ps {
			return i
		}
	}
	return -1
}

// Alloc returns a slice of exactly size bytes. Its contents are undefined.
func Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	idx := class(size)
	if idx < 0 {
		return make([]byte, size)
	}
	b := *pools[idx].Get().(*[]byte)
	return b[:size]
}

// Free returns b to its pool. Slices that did not come from Alloc are
// accepted and dropped when they fit no class.
func Free(b []byte) {
	c := cap(b)
	for i := numPools - 1; i >= 0; i-- {
		if c == poolSizes[i] {
			b = b[:c]
			pools[i].Put(&b)
			return
		}
	}
}
