package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/diaguide/diaguide/internal/platform/apperr"
)

type mockRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*Notification
	failing bool
	clock   time.Time
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Notification), clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("database unavailable")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m.clock = m.clock.Add(time.Minute)
	n.Timestamp = m.clock
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *mockRepo) ListByRecipient(_ context.Context, recipientID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			cp := *n
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) MarkRead(_ context.Context, recipientID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok || n.RecipientID != recipientID {
		return apperr.NotFound("notification not found")
	}
	n.IsRead = true
	return nil
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type mockPush struct {
	mu      sync.Mutex
	sent    []*Notification
	failing bool
}

func (p *mockPush) Push(_ context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return errors.New("fcm unavailable")
	}
	cp := *n
	p.sent = append(p.sent, &cp)
	return nil
}

func (p *mockPush) calls() []*Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Notification, len(p.sent))
	copy(out, p.sent)
	return out
}

// blockingRepo parks Create until release is closed.
type blockingRepo struct {
	*mockRepo
	release chan struct{}
}

func (b *blockingRepo) Create(ctx context.Context, n *Notification) error {
	<-b.release
	return b.mockRepo.Create(ctx, n)
}

type mockLive struct {
	mu        sync.Mutex
	published []uuid.UUID
}

func (l *mockLive) Publish(n *Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published = append(l.published, n.ID)
}

func (l *mockLive) ids() []uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uuid.UUID(nil), l.published...)
}
