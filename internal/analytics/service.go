package analytics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/ledgerbooks/internal/customreport"
	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

const tracerName = "github.com/odyssey-erp/ledgerbooks/internal/analytics"

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	Registry   *customreport.Registry
	Chart      reports.Chart
	Classifier reports.Classifier
	Metrics    *Metrics
	Logger     *slog.Logger
	Now        func() time.Time

	// BuildTimeout bounds a shared build. Defaults to DefaultBuildTimeout.
	BuildTimeout time.Duration
}

// DefaultBuildTimeout bounds a shared build when Options leaves it unset.
const DefaultBuildTimeout = time.Minute

// Service validates report requests, reads ledger data and runs the pure
// builders. Identical concurrent requests share one build.
type Service struct {
	source     ledger.Source
	registry   *customreport.Registry
	cache      *Cache
	chart      reports.Chart
	classifier reports.Classifier
	metrics    *Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	timeout    time.Duration
	group      singleflight.Group
}

// NewService wires a ledger source with an optional cache.
func NewService(source ledger.Source, cache *Cache, opts Options) *Service {
	svc := &Service{
		source:     source,
		registry:   opts.Registry,
		cache:      cache,
		chart:      opts.Chart,
		classifier: opts.Classifier,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		tracer:     otel.Tracer(tracerName),
		now:        opts.Now,
		timeout:    opts.BuildTimeout,
	}
	if svc.timeout <= 0 {
		svc.timeout = DefaultBuildTimeout
	}
	if svc.registry == nil {
		svc.registry = customreport.LedgerRegistry(source)
	}
	if svc.classifier == nil {
		svc.classifier = reports.DefaultKeywordClassifier()
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc
}

// Cache exposes the cache helper, nil when caching is disabled.
func (s *Service) Cache() *Cache { return s.cache }

// CustomSources lists the sources custom reports can read.
func (s *Service) CustomSources() []string { return s.registry.Sources() }

func (s *Service) today() time.Time {
	return reports.Day(s.now())
}

// BuildProfitLoss returns the profit and loss statement for [start, end].
func (s *Service) BuildProfitLoss(ctx context.Context, orgID uuid.UUID, start, end time.Time) (reports.Result, error) {
	if err := validatePeriod(orgID, start, end); err != nil {
		return reports.Result{}, err
	}
	start, end = reports.Day(start), reports.Day(end)
	key := keyPeriod(reports.KindProfitLoss, orgID, start, end)
	return s.build(ctx, reports.KindProfitLoss, key, func(ctx context.Context) (reports.Result, error) {
		filter := ledger.Between(start, end)
		filter.ExcludeDraft = true

		var (
			accounts        []ledger.Account
			invoices, bills []ledger.DocumentLine
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			accounts, err = s.source.ListAccounts(gctx, orgID, ledger.Filter{})
			return dataAccess("accounts", err)
		})
		g.Go(func() error {
			var err error
			invoices, err = s.source.ListInvoiceLines(gctx, orgID, filter)
			return dataAccess("invoice lines", err)
		})
		g.Go(func() error {
			var err error
			bills, err = s.source.ListBillLines(gctx, orgID, filter)
			return dataAccess("bill lines", err)
		})
		if err := g.Wait(); err != nil {
			return reports.Result{}, err
		}

		lines := append(ledger.LineRows(invoices), ledger.LineRows(bills)...)
		return reports.BuildProfitLoss(accounts, lines, reports.PeriodParams{OrgID: orgID, Start: start, End: end}), nil
	})
}

// BuildBalanceSheet returns balances as of asOf.
func (s *Service) BuildBalanceSheet(ctx context.Context, orgID uuid.UUID, asOf time.Time) (reports.Result, error) {
	if err := validateOrg(orgID); err != nil {
		return reports.Result{}, err
	}
	if asOf.IsZero() {
		return reports.Result{}, invalid("as_of", "date is required")
	}
	asOf = reports.Day(asOf)
	key := keyAsOf(reports.KindBalanceSheet, orgID, asOf)
	return s.build(ctx, reports.KindBalanceSheet, key, func(ctx context.Context) (reports.Result, error) {
		docFilter := ledger.Until(asOf)
		docFilter.Statuses = ledger.OutstandingStatuses
		docFilter.ExcludeDraft = true

		var (
			accounts        []ledger.Account
			invoices, bills []ledger.DocumentLine
			txns            []ledger.BankTransaction
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			accounts, err = s.source.ListAccounts(gctx, orgID, ledger.Filter{ActiveOnly: true})
			return dataAccess("accounts", err)
		})
		g.Go(func() error {
			var err error
			invoices, err = s.source.ListInvoiceLines(gctx, orgID, docFilter)
			return dataAccess("invoice lines", err)
		})
		g.Go(func() error {
			var err error
			bills, err = s.source.ListBillLines(gctx, orgID, docFilter)
			return dataAccess("bill lines", err)
		})
		g.Go(func() error {
			var err error
			txns, err = s.source.ListBankTransactions(gctx, orgID, ledger.Until(asOf))
			return dataAccess("bank transactions", err)
		})
		if err := g.Wait(); err != nil {
			return reports.Result{}, err
		}

		return reports.BuildBalanceSheet(accounts, ledger.LineRows(invoices), ledger.LineRows(bills), ledger.BankRows(txns), reports.BalanceSheetParams{
			OrgID: orgID,
			AsOf:  asOf,
			Chart: s.chart,
		}), nil
	})
}

// BuildCashFlow returns classified bank movements for [start, end].
func (s *Service) BuildCashFlow(ctx context.Context, orgID uuid.UUID, start, end time.Time) (reports.Result, error) {
	if err := validatePeriod(orgID, start, end); err != nil {
		return reports.Result{}, err
	}
	start, end = reports.Day(start), reports.Day(end)
	key := keyPeriod(reports.KindCashFlow, orgID, start, end)
	return s.build(ctx, reports.KindCashFlow, key, func(ctx context.Context) (reports.Result, error) {
		txns, err := s.source.ListBankTransactions(ctx, orgID, ledger.Between(start, end))
		if err != nil {
			return reports.Result{}, dataAccess("bank transactions", err)
		}
		return reports.BuildCashFlow(ledger.BankRows(txns), reports.CashFlowParams{
			OrgID:      orgID,
			Start:      start,
			End:        end,
			Classifier: s.classifier,
		}), nil
	})
}

// BuildAgedReceivables ages open invoices. A nil reference date means today.
func (s *Service) BuildAgedReceivables(ctx context.Context, orgID uuid.UUID, reference *time.Time) (reports.Result, error) {
	return s.buildAging(ctx, reports.KindAgedReceivables, orgID, reference, "invoice lines", s.source.ListInvoiceLines)
}

// BuildAgedPayables ages open bills. A nil reference date means today.
func (s *Service) BuildAgedPayables(ctx context.Context, orgID uuid.UUID, reference *time.Time) (reports.Result, error) {
	return s.buildAging(ctx, reports.KindAgedPayables, orgID, reference, "bill lines", s.source.ListBillLines)
}

type lineLister func(ctx context.Context, orgID uuid.UUID, filter ledger.Filter) ([]ledger.DocumentLine, error)

func (s *Service) buildAging(ctx context.Context, kind reports.Kind, orgID uuid.UUID, reference *time.Time, op string, list lineLister) (reports.Result, error) {
	if err := validateOrg(orgID); err != nil {
		return reports.Result{}, err
	}
	ref := s.today()
	if reference != nil {
		if reference.IsZero() {
			return reports.Result{}, invalid("reference_date", "date is malformed")
		}
		ref = reports.Day(*reference)
	}
	key := keyAsOf(kind, orgID, ref)
	return s.build(ctx, kind, key, func(ctx context.Context) (reports.Result, error) {
		lines, err := list(ctx, orgID, ledger.Filter{Statuses: ledger.OutstandingStatuses, ExcludeDraft: true})
		if err != nil {
			return reports.Result{}, dataAccess(op, err)
		}
		return reports.BuildAging(kind, ledger.LineRows(lines), reports.AgingParams{OrgID: orgID, ReferenceDate: ref}), nil
	})
}

// RunCustomReport compiles cfg, reads its source and returns the projected
// rows. Relative date filters are evaluated against the service clock.
func (s *Service) RunCustomReport(ctx context.Context, orgID uuid.UUID, cfg customreport.Config) (customreport.Result, error) {
	if err := validateOrg(orgID); err != nil {
		return customreport.Result{}, err
	}
	report, err := s.registry.Compile(cfg)
	if err != nil {
		return customreport.Result{}, &ParamError{Field: "config", Reason: err.Error(), Err: err}
	}

	now := s.now()
	key := keyCustom(orgID, report.Digest(), reports.Day(now))
	ctx, span := s.tracer.Start(ctx, "reports.custom", trace.WithAttributes(
		attribute.String("report.source", report.Source()),
		attribute.String("report.key", key),
	))
	defer span.End()

	started := time.Now()
	val, err, shared := singleflightBuild(ctx, &s.group, key, s.timeout, func(ctx context.Context) (interface{}, error) {
		rows, err := s.registry.Fetch(ctx, orgID, report.Source())
		if err != nil {
			return nil, dataAccess(report.Source(), err)
		}
		return report.Run(rows, now), nil
	})
	s.metrics.observeBuild("custom", time.Since(started), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return customreport.Result{}, err
	}
	result := val.(customreport.Result)
	if shared {
		s.metrics.recordShared("custom")
		result = result.Clone()
	}
	return result, nil
}

type loaderFunc func(ctx context.Context) (reports.Result, error)

func (s *Service) build(ctx context.Context, kind reports.Kind, key string, loader loaderFunc) (reports.Result, error) {
	ctx, span := s.tracer.Start(ctx, "reports."+string(kind), trace.WithAttributes(
		attribute.String("report.kind", string(kind)),
		attribute.String("report.key", key),
	))
	defer span.End()

	started := time.Now()
	val, err, shared := singleflightBuild(ctx, &s.group, key, s.timeout, func(ctx context.Context) (interface{}, error) {
		return s.cached(ctx, string(kind), key, loader)
	})
	s.metrics.observeBuild(string(kind), time.Since(started), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return reports.Result{}, err
	}
	result := val.(reports.Result)
	if shared {
		s.metrics.recordShared(string(kind))
		result = result.Clone()
	}
	return result, nil
}

// cached serves from Redis when configured. Cache failures degrade to a
// direct build; loader failures propagate.
func (s *Service) cached(ctx context.Context, report, key string, loader loaderFunc) (reports.Result, error) {
	if s.cache == nil {
		return loader(ctx)
	}
	cacheKey, err := s.cache.BuildKey(ctx, key)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.String("key", key), slog.Any("error", err))
		return loader(ctx)
	}

	var (
		cachedResult reports.Result
		fresh        reports.Result
		loaded       bool
	)
	err = s.cache.FetchJSON(ctx, cacheKey, &cachedResult, func(ctx context.Context) (interface{}, error) {
		result, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		fresh, loaded = result, true
		return result, nil
	})
	var cerr *cacheError
	switch {
	case err == nil:
		s.metrics.recordCache(report, !loaded)
		if loaded {
			return fresh, nil
		}
		return cachedResult, nil
	case errors.As(err, &cerr):
		s.logger.Warn("report cache unavailable", slog.String("key", cacheKey), slog.Any("error", err))
		if loaded {
			return fresh, nil
		}
		return loader(ctx)
	default:
		return reports.Result{}, err
	}
}

func validateOrg(orgID uuid.UUID) error {
	if orgID == uuid.Nil {
		return invalid("org_id", "organisation is required")
	}
	return nil
}

func validatePeriod(orgID uuid.UUID, start, end time.Time) error {
	if err := validateOrg(orgID); err != nil {
		return err
	}
	if start.IsZero() {
		return invalid("start_date", "date is required")
	}
	if end.IsZero() {
		return invalid("end_date", "date is required")
	}
	if reports.Day(start).After(reports.Day(end)) {
		return invalid("date_range", "start date is after end date")
	}
	return nil
}
