// Package search debounces user search queries against the remote directory.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/state"
)

// Controller turns keystrokes into at most one search call per quiet period.
// Every keystroke starts a new generation; only the newest generation's result
// reaches the store.
type Controller struct {
	svc      remote.Service
	store    *state.Store
	logger   *zap.Logger
	debounce time.Duration
	minLen   int

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a search controller. Queries shorter than minLen runes
// after trimming are never sent.
func NewController(svc remote.Service, st *state.Store, debounce time.Duration, minLen int, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		svc:      svc,
		store:    st,
		logger:   logger,
		debounce: debounce,
		minLen:   minLen,
	}
}

// Type records the current text of the search box.
func (c *Controller) Type(text string) {
	if _, ok := c.store.Identity(); !ok {
		return
	}
	epoch := c.store.Epoch()

	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.supersedeLocked()

	q := strings.TrimSpace(text)
	if utf8.RuneCountInString(q) < c.minLen {
		c.store.SetSearch(epoch, chat.SearchState{Query: text, Status: chat.SearchIdle})
		return
	}

	st := c.store.Search()
	st.Query = text
	st.Status = chat.SearchDebouncing
	st.Err = nil
	c.store.SetSearch(epoch, st)

	c.wg.Add(1)
	c.timer = time.AfterFunc(c.debounce, func() {
		defer c.wg.Done()
		c.run(gen, epoch, text, q)
	})
}

// Reset drops the query, any pending call and the results.
func (c *Controller) Reset() {
	epoch := c.store.Epoch()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked()
	c.store.SetSearch(epoch, chat.SearchState{Status: chat.SearchIdle})
}

// Close cancels pending work and waits for it to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	c.supersedeLocked()
	c.mu.Unlock()
	c.wg.Wait()
}

// supersedeLocked starts a new generation, stopping the pending timer and
// cancelling the call in flight. Callers hold c.mu.
func (c *Controller) supersedeLocked() uint64 {
	c.gen++
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return c.gen
}

func (c *Controller) run(gen, epoch uint64, text, q string) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	st := c.store.Search()
	st.Status = chat.SearchLoading
	c.store.SetSearch(epoch, st)
	c.mu.Unlock()
	defer cancel()

	users, err := c.svc.SearchUsers(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding superseded search", zap.String("query", q))
		return
	}
	c.cancel = nil
	if err != nil {
		c.logger.Warn("search failed", zap.String("query", q), zap.Error(err))
		c.store.SetSearch(epoch, chat.SearchState{Query: text, Status: chat.SearchFailed, Err: err})
		return
	}
	c.store.SetSearch(epoch, chat.SearchState{Query: text, Results: users, Status: chat.SearchDone})
}
