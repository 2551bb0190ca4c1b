package base

import (
	"runtime"
	"sync"
)

var LogWorkerPool = NewLogCategory("workerpool")

// TaskFunc is queued work; ThreadId identifies the worker executing it so
// callers can index into per-worker scratch state without locking.
type TaskFunc func(threadId int)

// ThreadPool is a bounded fixed-size worker pool, adapted from
// fixedSizeThreadPool (same channel-of-tasks + barrier-task Join idiom):
// the only concurrency primitive the driver needs, confined to the
// source loader's parallel parse fan-out.
type ThreadPool struct {
	give    chan TaskFunc
	workers int
}

func NewThreadPool(workers int) *ThreadPool {
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
	}
	if workers < 1 {
		workers = 1
	}
	pool := &ThreadPool{
		give:    make(chan TaskFunc, 4096),
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		go pool.loop(i)
	}
	return pool
}

func (p *ThreadPool) Arity() int { return p.workers }

func (p *ThreadPool) Queue(task TaskFunc) {
	p.give <- task
}

// Join blocks until every previously queued task has completed, by racing
// one barrier task per worker through the same channel (no task can jump
// ahead of the barrier since the channel is FIFO). Each barrier holds its
// worker until all barriers have been picked up, so every worker takes
// exactly one and none is still inside an earlier task when Join returns.
func (p *ThreadPool) Join() {
	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		p.Queue(func(int) { wg.Done(); wg.Wait() })
	}
	wg.Wait()
}

func (p *ThreadPool) loop(id int) {
	for task := range p.give {
		if task == nil {
			return
		}
		task(id)
	}
}
