package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/ledgerbooks/internal/jobs"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportBuilder is the subset of the analytics service warmed by the job.
type ReportBuilder interface {
	BuildProfitLoss(ctx context.Context, orgID uuid.UUID, start, end time.Time) (reports.Result, error)
	BuildBalanceSheet(ctx context.Context, orgID uuid.UUID, asOf time.Time) (reports.Result, error)
	BuildCashFlow(ctx context.Context, orgID uuid.UUID, start, end time.Time) (reports.Result, error)
	BuildAgedReceivables(ctx context.Context, orgID uuid.UUID, reference *time.Time) (reports.Result, error)
	BuildAgedPayables(ctx context.Context, orgID uuid.UUID, reference *time.Time) (reports.Result, error)
}

// OrganizationLister discovers the organisations to warm.
type OrganizationLister interface {
	ListOrganizations(ctx context.Context) ([]uuid.UUID, error)
}

// ReportsWarmupJob pre-populates the report cache for every organisation:
// month-to-date profit & loss and cash flow, plus the balance sheet and
// both aging reports as of today.
type ReportsWarmupJob struct {
	Reports    ReportBuilder
	Orgs       OrganizationLister
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	OrgTimeout time.Duration
	clock      func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(builder ReportBuilder, orgs OrganizationLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports:    builder,
		Orgs:       orgs,
		Logger:     logger,
		Metrics:    metrics,
		OrgTimeout: 20 * time.Second,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes warmup tasks. A failing organisation is logged and the
// run continues; the joined error is returned so asynq retries the task.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("reports warmup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf, err := payload.asOf(reports.Day(j.now()))
	if err != nil {
		return fmt.Errorf("reports warmup: as_of: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("as_of", asOf.Format(dateLayout)))
	logger.Info("starting reports warmup")
	started := time.Now()

	orgs := payload.OrgIDs
	if len(orgs) == 0 {
		if j.Orgs == nil {
			resultErr = errors.New("reports warmup: organisation lister not configured")
			return resultErr
		}
		orgs, err = j.Orgs.ListOrganizations(ctx)
		if err != nil {
			resultErr = err
			logger.Error("load warmup organisations", slog.Any("error", err))
			return resultErr
		}
	}
	if len(orgs) == 0 {
		logger.Info("no organisations discovered for warmup")
		return resultErr
	}

	var errs []error
	warmed := 0
	for _, orgID := range orgs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := j.warmOrg(ctx, orgID, asOf); err != nil {
			logger.Error("warm organisation", slog.String("org_id", orgID.String()), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("org %s: %w", orgID, err))
			continue
		}
		warmed++
	}
	resultErr = errors.Join(errs...)

	logger.Info("completed reports warmup", slog.Int("organisations", warmed), slog.Int("failed", len(errs)), slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *ReportsWarmupJob) warmOrg(ctx context.Context, orgID uuid.UUID, asOf time.Time) error {
	if j.OrgTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.OrgTimeout)
		defer cancel()
	}
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	m := j.metrics()

	if _, err := j.Reports.BuildProfitLoss(ctx, orgID, monthStart, asOf); err != nil {
		return err
	}
	m.AddWarmed(string(reports.KindProfitLoss), 1)
	if _, err := j.Reports.BuildCashFlow(ctx, orgID, monthStart, asOf); err != nil {
		return err
	}
	m.AddWarmed(string(reports.KindCashFlow), 1)
	if _, err := j.Reports.BuildBalanceSheet(ctx, orgID, asOf); err != nil {
		return err
	}
	m.AddWarmed(string(reports.KindBalanceSheet), 1)
	if _, err := j.Reports.BuildAgedReceivables(ctx, orgID, &asOf); err != nil {
		return err
	}
	m.AddWarmed(string(reports.KindAgedReceivables), 1)
	if _, err := j.Reports.BuildAgedPayables(ctx, orgID, &asOf); err != nil {
		return err
	}
	m.AddWarmed(string(reports.KindAgedPayables), 1)
	return nil
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
