package backup

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs Manager.Create on a cron expression such as "@every 24h".
type Scheduler struct {
	cron    *cron.Cron
	manager *Manager
	log     *slog.Logger
}

func NewScheduler(manager *Manager, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(),
		manager: manager,
		log:     logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule backups %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	if _, err := s.manager.Create(); err != nil {
		s.log.Error("scheduled backup failed", "error", err)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
