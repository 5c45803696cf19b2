package interactions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/diaguide/diaguide/internal/platform/notification"
)

// reminderBatch bounds one sweep; the next run picks up the rest.
const reminderBatch = 200

// RemindDue notifies patients of confirmed appointments starting within
// lead and stamps them so each is reminded once. It returns how many
// reminders were queued.
func (s *Service) RemindDue(ctx context.Context, lead time.Duration) (int, error) {
	now := s.now()
	var out outbox
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		due, err := s.appointments.DueForReminder(ctx, now, now.Add(lead), reminderBatch)
		if err != nil {
			return err
		}
		for _, appt := range due {
			if err := s.appointments.MarkReminded(ctx, appt.ID, now); err != nil {
				return err
			}
			out.add(appt.PatientUserID, notification.TplAppointmentReminder, map[string]string{
				"doctor_name": appt.MedecinName(),
				"date":        s.formatDate(appt.Date),
			})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("remind due appointments: %w", err)
	}
	s.flush(out)
	return len(out), nil
}

// Reminder runs RemindDue on a gocron schedule.
type Reminder struct {
	svc      *Service
	interval time.Duration
	lead     time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	scheduler *gocron.Scheduler
}

func NewReminder(svc *Service, interval, lead time.Duration, logger zerolog.Logger) *Reminder {
	return &Reminder{
		svc:      svc,
		interval: interval,
		lead:     lead,
		timeout:  time.Minute,
		logger:   logger.With().Str("job", "appointment-reminder").Logger(),
	}
}

// Start schedules the sweep, running it once immediately. Overlapping runs
// are skipped.
func (r *Reminder) Start() error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Every(r.interval).Do(r.Run); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}
	scheduler.StartAsync()
	r.scheduler = scheduler
	r.logger.Info().Dur("interval", r.interval).Dur("lead", r.lead).Msg("reminder job started")
	return nil
}

// Stop waits for a running sweep to finish.
func (r *Reminder) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

// Run performs one sweep and logs its outcome.
func (r *Reminder) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.svc.RemindDue(ctx, r.lead)
	if err != nil {
		r.logger.Error().Err(err).Msg("reminder sweep failed")
		return
	}
	if n > 0 {
		r.logger.Info().Int("reminded", n).Msg("reminder sweep done")
	}
}
