package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher persists and pushes notifications off the request path. Emit
// never blocks and never fails: a full queue drops the message, and store
// or push errors are logged.
type Dispatcher struct {
	repo      Repository
	push      PushSender
	live      LivePublisher
	templates *TemplateEngine
	logger    zerolog.Logger

	queue chan Message
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type DispatcherConfig struct {
	Workers int
	Buffer  int
	// Live, when set, receives every stored notification.
	Live LivePublisher
}

// LivePublisher fans a stored notification out to the recipient's open
// connections.
type LivePublisher interface {
	Publish(n *Notification)
}

// NewDispatcher starts cfg.Workers goroutines. push may be nil, in which
// case notifications are only stored.
func NewDispatcher(repo Repository, push PushSender, templates *TemplateEngine, logger zerolog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = 1
	}
	d := &Dispatcher{
		repo:      repo,
		push:      push,
		live:      cfg.Live,
		templates: templates,
		logger:    logger.With().Str("component", "notifier").Logger(),
		queue:     make(chan Message, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) Emit(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn().Str("template", msg.Template).Str("recipient_id", msg.RecipientID.String()).
			Msg("notifier closed, dropping notification")
		return
	}
	select {
	case d.queue <- msg:
	default:
		d.logger.Error().Str("template", msg.Template).Str("recipient_id", msg.RecipientID.String()).
			Msg("notification queue full, dropping notification")
	}
}

// Close stops accepting messages and waits for queued ones to be delivered
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	log := d.logger.With().Str("template", msg.Template).Str("recipient_id", msg.RecipientID.String()).Logger()

	title, body, err := d.templates.Render(msg.Template, msg.Data)
	if err != nil {
		log.Error().Err(err).Msg("render notification")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	n := &Notification{
		ID:          uuid.New(),
		RecipientID: msg.RecipientID,
		Title:       title,
		Message:     body,
		Kind:        msg.Template,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		log.Error().Err(err).Msg("store notification")
		return
	}
	if d.live != nil {
		d.live.Publish(n)
	}

	if d.push != nil {
		if err := d.push.Push(ctx, n); err != nil {
			log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("push notification")
			return
		}
	}
	log.Debug().Str("notification_id", n.ID.String()).Msg("notification delivered")
}
