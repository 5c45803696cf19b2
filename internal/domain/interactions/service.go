package interactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/db"
	"github.com/diaguide/diaguide/internal/platform/notification"
)

// Registry is the part of the identity service the workflow needs.
type Registry interface {
	GetMedecin(ctx context.Context, id uuid.UUID) (*identity.Medecin, error)
	BindDoctor(ctx context.Context, patientID, medecinID uuid.UUID) error
}

// Notifier accepts messages without blocking; delivery failures stay inside
// the notifier.
type Notifier interface {
	Emit(msg notification.Message)
}

type Service struct {
	assignments  AssignmentRepository
	appointments AppointmentRepository
	registry     Registry
	tx           db.TxRunner
	notifier     Notifier

	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Service)

// WithLocation sets the zone for dates sent without an offset and for the
// dates rendered into notifications. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(assignments AssignmentRepository, appointments AppointmentRepository, registry Registry,
	tx db.TxRunner, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		assignments:  assignments,
		appointments: appointments,
		registry:     registry,
		tx:           tx,
		notifier:     notifier,
		loc:          time.UTC,
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outbox collects messages inside a transaction; they are emitted only after
// it commits.
type outbox []notification.Message

func (o *outbox) add(recipient uuid.UUID, template string, data map[string]string) {
	*o = append(*o, notification.Message{RecipientID: recipient, Template: template, Data: data})
}

func (s *Service) flush(o outbox) {
	for _, msg := range o {
		s.notifier.Emit(msg)
	}
}

// formatDate renders t for humans in the service zone.
func (s *Service) formatDate(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02 15:04")
}
