package sync

import (
	"context"
	stdsync "sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs a refresh function immediately and then on every tick until
// stopped. Trigger requests an extra run without waiting for the next tick.
type Poller struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
	logger   *zap.Logger

	mu      stdsync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(name string, interval time.Duration, run func(ctx context.Context) error, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		name:     name,
		interval: interval,
		run:      run,
		logger:   logger.With(zap.String("poller", name)),
	}
}

// Start launches the loop. It is a no-op if the poller is already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.trigger = make(chan struct{}, 1)
	go p.loop(ctx, p.done, p.trigger)
}

// Stop cancels the loop and any run in flight. It does not wait; use Wait for
// that. Stop may be called from inside the run function.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.trigger = nil
}

// Wait blocks until the most recently started loop has exited.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// exited reports whether the last started loop has returned, or none was
// ever started.
func (p *Poller) exited() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// Running reports whether the loop is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Trigger asks for a run as soon as the current one (if any) is finished.
// Extra triggers while one is pending are coalesced.
func (p *Poller) Trigger() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.trigger == nil {
		return
	}
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Poller) loop(ctx context.Context, done chan struct{}, trigger <-chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.once(ctx)
	for {
		select {
		case <-ticker.C:
			p.once(ctx)
		case <-trigger:
			p.once(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) once(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.run(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("poll failed", zap.Error(err))
	}
}
