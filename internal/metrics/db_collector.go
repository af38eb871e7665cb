package metrics

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// DBStatsCollector copies sql.DB pool statistics into the db gauges on a
// fixed interval.
type DBStatsCollector struct {
	db     *sql.DB
	logger *slog.Logger
	stopCh chan struct{}
	once   sync.Once
}

func NewDBStatsCollector(db *sql.DB, logger *slog.Logger) *DBStatsCollector {
	return &DBStatsCollector{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting in a background goroutine. Call Stop to end it.
func (c *DBStatsCollector) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()

	c.logger.Debug("database stats collector started", slog.Duration("interval", interval))
}

// Stop is safe to call more than once.
func (c *DBStatsCollector) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

func (c *DBStatsCollector) collect() {
	stats := c.db.Stats()
	DBConnectionsOpen.Set(float64(stats.OpenConnections))
	DBConnectionsInUse.Set(float64(stats.InUse))
	DBConnectionsIdle.Set(float64(stats.Idle))
}
