package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/bus"
	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/remote"
	"github.com/matheus3301/msgr/internal/state"
)

// Messages keeps the history of the active conversation fresh. It follows the
// selection: every move cancels the poller of the previous conversation and,
// while started, begins a new cycle with an immediate fetch for the new one.
type Messages struct {
	svc      remote.Service
	store    *state.Store
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	policy   state.MergePolicy
	now      func() time.Time

	mu      stdsync.Mutex
	base    context.Context
	poller  *Poller
	retired []*Poller // stopped but maybe still exiting
	target  string
	issued  map[string]uint64
	applied map[string]uint64
}

// NewMessages creates a message synchronizer and subscribes it to the store's
// selection.
func NewMessages(svc remote.Service, st *state.Store, b *bus.Bus, interval time.Duration, policy state.MergePolicy, logger *zap.Logger) *Messages {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Messages{
		svc:      svc,
		store:    st,
		bus:      b,
		logger:   logger,
		interval: interval,
		policy:   policy,
		now:      time.Now,
		issued:   make(map[string]uint64),
		applied:  make(map[string]uint64),
	}
	st.Selection().OnChange(m.selectionChanged)
	return m
}

// Start enables polling. If a conversation is already active its cycle begins
// right away.
func (m *Messages) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = ctx
	if active := m.store.Selection().Active(); active != "" {
		m.followLocked(active)
	}
}

// Stop cancels the current cycle and disables polling.
func (m *Messages) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = nil
	m.followLocked("")
}

// Wait blocks until every cycle started so far has exited, including the
// ones replaced by selection changes.
func (m *Messages) Wait() {
	m.mu.Lock()
	pollers := m.retired
	m.retired = nil
	if m.poller != nil {
		pollers = append(pollers, m.poller)
	}
	m.mu.Unlock()
	for _, p := range pollers {
		p.Wait()
	}
}

// Polling returns the conversation currently being polled, or "".
func (m *Messages) Polling() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poller == nil || !m.poller.Running() {
		return ""
	}
	return m.target
}

// Trigger asks the current cycle for an immediate fetch.
func (m *Messages) Trigger() {
	m.mu.Lock()
	p := m.poller
	m.mu.Unlock()
	if p != nil {
		p.Trigger()
	}
}

func (m *Messages) selectionChanged(change state.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followLocked(change.To)
}

// followLocked stops the running cycle and starts one for id when polling is
// enabled and id is not empty. Callers hold m.mu.
func (m *Messages) followLocked(id string) {
	if m.poller != nil {
		m.poller.Stop()
		m.retired = slices.DeleteFunc(m.retired, (*Poller).exited)
		m.retired = append(m.retired, m.poller)
		m.poller = nil
	}
	m.target = id
	if m.base == nil || id == "" {
		return
	}
	m.poller = NewPoller("messages", m.interval, func(ctx context.Context) error {
		return m.Refresh(ctx, id)
	}, m.logger.With(zap.String("conversation_id", id)))
	m.poller.Start(m.base)
}

// Refresh fetches the history of conversationID and merges it into the store,
// provided the conversation is still active when the response arrives and no
// newer fetch for it has been applied in the meantime.
func (m *Messages) Refresh(ctx context.Context, conversationID string) error {
	if _, ok := m.store.Identity(); !ok {
		return chat.ErrNotAuthenticated
	}
	if m.store.Selection().Active() != conversationID {
		return nil
	}
	epoch := m.store.Epoch()

	m.mu.Lock()
	m.issued[conversationID]++
	seq := m.issued[conversationID]
	m.mu.Unlock()

	msgs, err := m.svc.GetMessages(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.bus.Emit(bus.SyncFailed, err)
		}
		return fmt.Errorf("refresh messages of %s: %w", conversationID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq <= m.applied[conversationID] {
		m.logger.Debug("discarding out-of-order messages",
			zap.String("conversation_id", conversationID), zap.Uint64("seq", seq))
		return nil
	}
	if !m.store.ApplyMessages(epoch, conversationID, msgs, m.now(), m.policy) {
		m.logger.Debug("discarding messages of inactive conversation",
			zap.String("conversation_id", conversationID))
		return nil
	}
	m.applied[conversationID] = seq
	return nil
}
