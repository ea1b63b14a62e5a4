package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup pre-computes the standard statements into the cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskReportsCacheBump invalidates every cached statement.
	TaskReportsCacheBump = "reports:cache_bump"

	dateLayout = "2006-01-02"
)

// ReportsWarmupPayload scopes a warmup run. Empty OrgIDs means every
// organisation; empty AsOf means today.
type ReportsWarmupPayload struct {
	OrgIDs []uuid.UUID `json:"org_ids,omitempty"`
	AsOf   string      `json:"as_of,omitempty"`
}

func (p ReportsWarmupPayload) asOf(today time.Time) (time.Time, error) {
	if p.AsOf == "" {
		return today, nil
	}
	return time.Parse(dateLayout, p.AsOf)
}

// CacheBumpPayload records why the cache was invalidated.
type CacheBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewReportsWarmupTask constructs a warmup task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}

// NewCacheBumpTask constructs a cache invalidation task.
func NewCacheBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheBumpPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsCacheBump, data), nil
}
