package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/ledgerbooks/internal/analytics"
	"github.com/odyssey-erp/ledgerbooks/internal/analytics/export"
	"github.com/odyssey-erp/ledgerbooks/internal/customreport"
	"github.com/odyssey-erp/ledgerbooks/internal/platform/httpx"
	"github.com/odyssey-erp/ledgerbooks/internal/reports"
)

const (
	dateLayout         = "2006-01-02"
	defaultTimeout     = 30 * time.Second
	maxConfigBodyBytes = 1 << 20

	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"
	formatPDF  = "pdf"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// ReportService is the reporting contract used by the handler.
type ReportService interface {
	BuildProfitLoss(ctx context.Context, orgID uuid.UUID, start, end time.Time) (reports.Result, error)
	BuildBalanceSheet(ctx context.Context, orgID uuid.UUID, asOf time.Time) (reports.Result, error)
	BuildCashFlow(ctx context.Context, orgID uuid.UUID, start, end time.Time) (reports.Result, error)
	BuildAgedReceivables(ctx context.Context, orgID uuid.UUID, reference *time.Time) (reports.Result, error)
	BuildAgedPayables(ctx context.Context, orgID uuid.UUID, reference *time.Time) (reports.Result, error)
	RunCustomReport(ctx context.Context, orgID uuid.UUID, cfg customreport.Config) (customreport.Result, error)
	CustomSources() []string
}

// PDFService renders results to PDF bytes.
type PDFService interface {
	RenderResult(ctx context.Context, result reports.Result) ([]byte, error)
	RenderCustom(ctx context.Context, title string, result customreport.Result) ([]byte, error)
}

// Handler serves statements, custom reports and their downloads.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	store    customreport.Store
	pdf      PDFService
	validate *validator.Validate
	bufPool  sync.Pool
	timeout  time.Duration
	now      func() time.Time
}

// NewHandler constructs the reports HTTP handler. pdf may be nil, in which
// case PDF downloads answer 503.
func NewHandler(logger *slog.Logger, service ReportService, store customreport.Store, pdf PDFService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = customreport.NewMemoryStore()
	}
	h := &Handler{
		logger:   logger,
		service:  service,
		store:    store,
		pdf:      pdf,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  defaultTimeout,
		now:      time.Now,
	}
	h.bufPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithTimeout bounds each report build.
func (h *Handler) WithTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

type periodQuery struct {
	Start  string `validate:"required,datetime=2006-01-02"`
	End    string `validate:"required,datetime=2006-01-02"`
	Format string `validate:"omitempty,oneof=json csv xlsx pdf"`
}

type asOfQuery struct {
	AsOf   string `validate:"omitempty,datetime=2006-01-02"`
	Format string `validate:"omitempty,oneof=json csv xlsx pdf"`
}

type balanceSheetQuery struct {
	AsOf   string `validate:"required,datetime=2006-01-02"`
	Format string `validate:"omitempty,oneof=json csv xlsx pdf"`
}

func (h *Handler) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	h.servePeriod(w, r, h.service.BuildProfitLoss)
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	h.servePeriod(w, r, h.service.BuildCashFlow)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	query := balanceSheetQuery{
		AsOf:   strings.TrimSpace(q.Get("as_of")),
		Format: strings.ToLower(strings.TrimSpace(q.Get("format"))),
	}
	if err := h.validate.Struct(query); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	asOf, _ := time.Parse(dateLayout, query.AsOf)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	result, err := h.service.BuildBalanceSheet(ctx, orgID, asOf)
	h.respondResult(ctx, w, query.Format, result, err)
}

func (h *Handler) handleAgedReceivables(w http.ResponseWriter, r *http.Request) {
	h.serveAging(w, r, h.service.BuildAgedReceivables)
}

func (h *Handler) handleAgedPayables(w http.ResponseWriter, r *http.Request) {
	h.serveAging(w, r, h.service.BuildAgedPayables)
}

type periodBuilder func(ctx context.Context, orgID uuid.UUID, start, end time.Time) (reports.Result, error)

type agingBuilder func(ctx context.Context, orgID uuid.UUID, reference *time.Time) (reports.Result, error)

func (h *Handler) servePeriod(w http.ResponseWriter, r *http.Request, build periodBuilder) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	query := periodQuery{
		Start:  strings.TrimSpace(q.Get("start")),
		End:    strings.TrimSpace(q.Get("end")),
		Format: strings.ToLower(strings.TrimSpace(q.Get("format"))),
	}
	if err := h.validate.Struct(query); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	start, _ := time.Parse(dateLayout, query.Start)
	end, _ := time.Parse(dateLayout, query.End)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	result, err := build(ctx, orgID, start, end)
	h.respondResult(ctx, w, query.Format, result, err)
}

func (h *Handler) serveAging(w http.ResponseWriter, r *http.Request, build agingBuilder) {
	orgID, query, reference, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	result, err := build(ctx, orgID, reference)
	h.respondResult(ctx, w, query.Format, result, err)
}

func (h *Handler) parseAsOf(w http.ResponseWriter, r *http.Request) (uuid.UUID, asOfQuery, *time.Time, bool) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return uuid.Nil, asOfQuery{}, nil, false
	}
	q := r.URL.Query()
	query := asOfQuery{
		AsOf:   strings.TrimSpace(q.Get("as_of")),
		Format: strings.ToLower(strings.TrimSpace(q.Get("format"))),
	}
	if err := h.validate.Struct(query); err != nil {
		httpx.RespondError(w, validationError(err))
		return uuid.Nil, asOfQuery{}, nil, false
	}
	if query.AsOf == "" {
		return orgID, query, nil, true
	}
	asOf, _ := time.Parse(dateLayout, query.AsOf)
	return orgID, query, &asOf, true
}

func (h *Handler) orgID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil || orgID == uuid.Nil {
		httpx.RespondError(w, fmt.Errorf("%w: organisation id must be a UUID", httpx.ErrValidation))
		return uuid.Nil, false
	}
	return orgID, true
}

func (h *Handler) respondResult(ctx context.Context, w http.ResponseWriter, format string, result reports.Result, err error) {
	if err != nil {
		h.respondError(w, "build report", err)
		return
	}
	switch format {
	case "", formatJSON:
		httpx.JSON(w, http.StatusOK, result)
	case formatCSV:
		h.download(w, contentTypeCSV, export.Filename(result, formatCSV), func(buf *bytes.Buffer) error {
			return export.WriteResultCSV(buf, result)
		})
	case formatXLSX:
		h.download(w, contentTypeXLSX, export.Filename(result, formatXLSX), func(buf *bytes.Buffer) error {
			return export.WriteResultXLSX(buf, result)
		})
	case formatPDF:
		if h.pdf == nil {
			httpx.RespondError(w, httpx.ErrUnavailable)
			return
		}
		data, err := h.pdf.RenderResult(ctx, result)
		if err != nil {
			h.respondError(w, "render pdf", err)
			return
		}
		if err := httpx.Attachment(w, contentTypePDF, export.Filename(result, formatPDF), data); err != nil {
			h.logError("stream pdf", err)
		}
	}
}

func (h *Handler) download(w http.ResponseWriter, contentType, filename string, write func(*bytes.Buffer) error) {
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.bufPool.Put(buf)
	}()
	if err := write(buf); err != nil {
		h.respondError(w, "write "+filename, err)
		return
	}
	if err := httpx.Attachment(w, contentType, filename, buf.Bytes()); err != nil {
		h.logError("stream "+filename, err)
	}
}

func (h *Handler) handleRunCustom(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	var cfg customreport.Config
	if err := httpx.DecodeJSON(r, &cfg, maxConfigBodyBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed report config: %v", httpx.ErrValidation, err))
		return
	}
	// Downloads are selected by query only so the export limiter sees them.
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if err := h.validate.Var(format, "omitempty,oneof=json csv xlsx pdf"); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if len(cfg.Fields) == 0 && cfg.ID != uuid.Nil {
		saved, err := h.findConfig(ctx, orgID, cfg.ID)
		if err != nil {
			h.respondError(w, "load custom report", err)
			return
		}
		cfg = saved
	}

	result, err := h.service.RunCustomReport(ctx, orgID, cfg)
	if err != nil {
		h.respondError(w, "run custom report", err)
		return
	}
	filename := customFilename(cfg.Name, h.now())
	switch format {
	case "", formatJSON:
		httpx.JSON(w, http.StatusOK, result)
	case formatCSV:
		h.download(w, contentTypeCSV, filename+".csv", func(buf *bytes.Buffer) error {
			return export.WriteCustomCSV(buf, result)
		})
	case formatXLSX:
		h.download(w, contentTypeXLSX, filename+".xlsx", func(buf *bytes.Buffer) error {
			return export.WriteCustomXLSX(buf, cfg.Name, result)
		})
	case formatPDF:
		if h.pdf == nil {
			httpx.RespondError(w, httpx.ErrUnavailable)
			return
		}
		data, err := h.pdf.RenderCustom(ctx, cfg.Name, result)
		if err != nil {
			h.respondError(w, "render pdf", err)
			return
		}
		if err := httpx.Attachment(w, contentTypePDF, filename+".pdf", data); err != nil {
			h.logError("stream pdf", err)
		}
	}
}

func (h *Handler) findConfig(ctx context.Context, orgID, id uuid.UUID) (customreport.Config, error) {
	configs, err := h.store.Load(ctx, orgID)
	if err != nil {
		return customreport.Config{}, err
	}
	for _, cfg := range configs {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return customreport.Config{}, fmt.Errorf("%w: custom report %s", httpx.ErrNotFound, id)
}

func (h *Handler) handleListCustom(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	configs, err := h.store.Load(r.Context(), orgID)
	if err != nil {
		h.respondError(w, "load custom reports", err)
		return
	}
	if configs == nil {
		configs = []customreport.Config{}
	}
	httpx.JSON(w, http.StatusOK, configs)
}

// handleSaveCustom replaces the organisation's saved configs. Configs
// without an id are assigned one.
func (h *Handler) handleSaveCustom(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.orgID(w, r)
	if !ok {
		return
	}
	var configs []customreport.Config
	if err := httpx.DecodeJSON(r, &configs, maxConfigBodyBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed report configs: %v", httpx.ErrValidation, err))
		return
	}
	for i := range configs {
		if configs[i].ID == uuid.Nil {
			configs[i].ID = uuid.New()
		}
		if err := customreport.Validate(configs[i]); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: config %d: %w", httpx.ErrValidation, i, err))
			return
		}
		if !h.knownSource(configs[i].Source) {
			httpx.RespondError(w, fmt.Errorf("%w: config %d: unknown source %q", httpx.ErrValidation, i, configs[i].Source))
			return
		}
	}
	if err := h.store.Save(r.Context(), orgID, configs); err != nil {
		h.respondError(w, "save custom reports", err)
		return
	}
	if configs == nil {
		configs = []customreport.Config{}
	}
	httpx.JSON(w, http.StatusOK, configs)
}

func (h *Handler) knownSource(source string) bool {
	for _, s := range h.service.CustomSources() {
		if s == source {
			return true
		}
	}
	return false
}

type sourceInfo struct {
	Source string                   `json:"source"`
	Fields []customreport.FieldSpec `json:"fields,omitempty"`
}

func (h *Handler) handleSources(w http.ResponseWriter, r *http.Request) {
	sources := h.service.CustomSources()
	out := make([]sourceInfo, 0, len(sources))
	for _, source := range sources {
		fields, _ := customreport.Catalog(source)
		out = append(out, sourceInfo{Source: source, Fields: fields})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidParameters):
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
	case errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	case errors.Is(err, analytics.ErrDataAccess):
		h.logError(op, err)
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUpstream, err))
	case errors.Is(err, export.ErrRendererMissing):
		httpx.RespondError(w, httpx.ErrUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		h.logError(op, err)
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrTimeout, err))
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field()))
		}
		return fmt.Errorf("%w: invalid %s", httpx.ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}

func customFilename(name string, now time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "custom-report"
	}
	return slug + "-" + now.UTC().Format(dateLayout)
}
