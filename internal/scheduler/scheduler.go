// Package scheduler runs the nightly daily-report job.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"smartsahuji/internal/config"
	"smartsahuji/internal/repository"
	"smartsahuji/internal/repository/mongodb"
	"smartsahuji/internal/service"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 5 * time.Minute

// Scheduler builds a DailyReport for every owner on a cron schedule,
// archives it when a report store is configured and warns connected clients
// about low stock.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	loc      *time.Location
	insights service.InsightsService
	invRepo  repository.InventoryRepository
	reports  mongodb.ReportRepository
	events   service.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// New returns a scheduler for cfg. reports and events may be nil.
func New(cfg config.SchedulerConfig, loc *time.Location, insights service.InsightsService, invRepo repository.InventoryRepository,
	reports mongodb.ReportRepository, events service.EventPublisher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     cfg.CronSchedule,
		loc:      loc,
		insights: insights,
		invRepo:  invRepo,
		reports:  reports,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.spec, err)
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.spec), zap.String("timezone", s.loc.String()))
	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("daily report job failed", zap.Error(err))
	}
}

// RunOnce reports on the current day for every owner with inventory. A
// failure for one owner is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	owners, err := s.invRepo.Owners(ctx)
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	day := s.now().In(s.loc)
	var done int
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.reportOwner(ctx, owner, day); err != nil {
			s.logger.Error("daily report failed", zap.Stringer("owner_id", owner), zap.Error(err))
			continue
		}
		done++
	}

	s.logger.Info("daily reports generated", zap.Int("owners", len(owners)), zap.Int("succeeded", done))
	return nil
}

func (s *Scheduler) reportOwner(ctx context.Context, owner uuid.UUID, day time.Time) error {
	report, err := s.insights.DailyReport(ctx, owner, day)
	if err != nil {
		return err
	}

	if s.reports != nil {
		if err := s.reports.SaveDailyReport(ctx, *report); err != nil {
			return err
		}
	}

	if s.events != nil {
		for _, item := range report.LowStock {
			s.events.Publish(owner.String(), service.EventStockLow, item)
		}
	}
	return nil
}
