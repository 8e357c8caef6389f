package notify

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/bychung/snusv-angel-club-sub002/internal/logging"
)

// Scheduler runs the due-assembly sweep on a cron spec.
type Scheduler struct {
	cron *cron.Cron
	log  *logging.Logger
}

// NewScheduler wires the sweep into a cron entry. The spec uses the standard
// five-field syntax, e.g. "0 9 * * *" for 09:00 daily.
func NewScheduler(service *Service, spec string, log *logging.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		notified, err := service.RunDueSweep(context.Background())
		if err != nil {
			if log != nil {
				log.Error("assembly notice sweep failed", "error", err)
			}
			return
		}
		if log != nil {
			log.Info("assembly notice sweep finished", "notified", notified)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, log: log}, nil
}

// Start begins running scheduled sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels future sweeps and waits for a running one to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
