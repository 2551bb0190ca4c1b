package preprocess

import "github.com/svfront/driver/internal/base"

// Arena is a bump-style slice allocator: each Grab returns a zero-length
// slice backed by a recycled buffer instead of letting every `define
// body scan allocate its own backing array. Grounded on
// the Recycler[T] pool (internal/base/recycler.go, itself adapted from
// Recycler.go's TransientPage idiom), scaled down from byte pages to
// token pages since the preprocessor deals in tokens, not raw bytes.
type Arena[T any] struct {
	pool   base.Recycler[[]T]
	stride int
	live   [][]T
}

func NewArena[T any](stride int) *Arena[T] {
	if stride <= 0 {
		stride = 256
	}
	a := &Arena[T]{stride: stride}
	a.pool = base.NewRecycler(
		func() []T { return make([]T, 0, stride) },
		func([]T) {},
	)
	return a
}

// Grab returns a slice with capacity for at least n items, recycled from
// the arena's pool when large enough, freshly allocated otherwise. The
// caller need not release it explicitly — Release returns every
// outstanding slice to the pool at once, matching the preprocessor's
// per-run lifetime (one arena per preprocess invocation).
func (a *Arena[T]) Grab(n int) []T {
	buf := a.pool.Allocate()
	if cap(buf) < n {
		buf = make([]T, 0, n)
	} else {
		buf = buf[:0]
	}
	a.live = append(a.live, buf)
	return buf
}

// Release returns every slice this arena handed out back to the pool.
func (a *Arena[T]) Release() {
	for _, buf := range a.live {
		a.pool.Release(buf)
	}
	a.live = a.live[:0]
}
