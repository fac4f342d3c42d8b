package cron

import (
	"fmt"
	"time"

	"github.com/aparaitech/lms-api/model"
)

// stalePurchaseAge is how long a pending purchase may sit before the
// checkout is considered abandoned.
const stalePurchaseAge = 24 * time.Hour

// cronLogRetention is how long cron run history is kept.
const cronLogRetention = 30 * 24 * time.Hour

// PurgeStalePurchases deletes pending purchases whose checkout was never
// verified. Completed purchases are never touched.
func (m *CronManager) PurgeStalePurchases() {
	jobName := "purge_stale_purchases"

	cutoff := time.Now().Add(-stalePurchaseAge)

	result := m.db.
		Where("status = ? AND created_at < ?", model.PurchasePending, cutoff).
		Delete(&model.Purchase{})
	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("purged %d stale pending purchases", result.RowsAffected))
}

// CleanupCronLogs trims old entries from the cron log table
func (m *CronManager) CleanupCronLogs() {
	jobName := "cleanup_cron_logs"

	cutoff := time.Now().Add(-cronLogRetention)

	result := m.db.
		Where("started_at < ? AND status <> ?", cutoff, "running").
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("removed %d old cron log entries", result.RowsAffected))
}
