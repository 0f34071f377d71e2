package stage

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/shaiso/Hestia/internal/telemetry"
)

// DefaultPoolWidth — ширина общего пула sub-task'ов.
const DefaultPoolWidth = 6

// Pool — ограниченный пул для sub-task'ов фаз. Один экземпляр
// разделяется всеми активными runs: при насыщении Do блокируется,
// сглаживая нагрузку на внешние API.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool создаёт пул шириной width. При width <= 0 используется
// DefaultPoolWidth.
func NewPool(width int) *Pool {
	if width <= 0 {
		width = DefaultPoolWidth
	}
	return &Pool{sem: semaphore.NewWeighted(int64(width))}
}

// Do выполняет fn, заняв один слот пула. Блокируется до освобождения
// слота либо до отмены ctx.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	telemetry.PoolInFlight.Inc()
	defer func() {
		telemetry.PoolInFlight.Dec()
		p.sem.Release(1)
	}()
	return fn()
}
