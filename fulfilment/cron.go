package fulfilment

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/processor"
)

// Maintenance runs the scheduled sweeps: expiring produced files, terminating
// orders whose files are long gone and purging old failed orders.
type Maintenance struct {
	DAO        dao.DAO
	Conf       config.FulfilmentConfiguration
	Processors *processor.Registry
	Logger     *zap.Logger

	cron *cron.Cron
}

// NewMaintenance constructs a Maintenance scheduler.
func NewMaintenance(d dao.DAO, conf config.FulfilmentConfiguration, registry *processor.Registry, logger *zap.Logger) *Maintenance {
	return &Maintenance{
		DAO:        d,
		Conf:       conf,
		Processors: registry,
		Logger:     logger.With(zap.String("component", "maintenance")),
	}
}

// Start schedules the sweeps and starts the scheduler.
func (m *Maintenance) Start() error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.Conf.ExpirySchedule, m.SweepExpired); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc(m.Conf.PurgeSchedule, m.PurgeFailed); err != nil {
		return err
	}
	m.cron.Start()
	m.Logger.Info("maintenance scheduled",
		zap.String("expiry", m.Conf.ExpirySchedule),
		zap.String("purge", m.Conf.PurgeSchedule),
	)
	return nil
}

// Stop stops the scheduler. Running jobs finish.
func (m *Maintenance) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// SweepExpired marks files past their expiry unavailable, removes them from
// disk and terminates orders whose files have all been gone long enough.
func (m *Maintenance) SweepExpired() {
	now := time.Now().UTC()
	expired, err := m.DAO.ExpireFiles(now)
	if err != nil {
		m.Logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if len(expired) > 0 {
		urls := make([]string, 0, len(expired))
		for _, f := range expired {
			urls = append(urls, f.URL)
		}
		// Every configured processor gets a chance to clean; removing a file
		// another processor produced is a no-op.
		for _, name := range m.Processors.Names() {
			proc, err := m.Processors.Get(name)
			if err != nil {
				continue
			}
			if err := proc.CleanFiles(urls); err != nil {
				m.Logger.Warn("file cleanup failed", zap.String("processor", name), zap.Error(err))
			}
		}
		m.Logger.Info("files expired", zap.Int("count", len(expired)))
	}

	cutoff := now.Add(-time.Duration(m.Conf.UnavailableTerminationDays) * 24 * time.Hour)
	terminated, err := m.DAO.TerminateUnavailableOrders(cutoff)
	if err != nil {
		m.Logger.Error("termination sweep failed", zap.Error(err))
		return
	}
	if terminated > 0 {
		m.Logger.Info("orders terminated", zap.Int64("count", terminated))
	}
}

// PurgeFailed deletes failed orders older than the configured maximum age.
func (m *Maintenance) PurgeFailed() {
	cutoff := time.Now().UTC().Add(-time.Duration(m.Conf.FailedOrderMaxAgeDays) * 24 * time.Hour)
	purged, err := m.DAO.PurgeFailedOrders(cutoff)
	if err != nil {
		m.Logger.Error("purge sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		m.Logger.Info("failed orders purged", zap.Int64("count", purged))
	}
}
