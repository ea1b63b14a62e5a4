package analytichttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/ledgerbooks/internal/platform/httpx"
)

// ExportLimit caps downloads per organisation and client per minute.
const ExportLimit = 10

// MountRoutes registers report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(ExportLimit, time.Minute,
		httprate.WithKeyFuncs(orgKey, httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry later")
		}),
	)

	r.Route("/orgs/{orgID}", func(r chi.Router) {
		r.Use(exportsOnly(limiter))
		r.Get("/reports/profit-loss", h.handleProfitLoss)
		r.Get("/reports/balance-sheet", h.handleBalanceSheet)
		r.Get("/reports/cash-flow", h.handleCashFlow)
		r.Get("/reports/aged-receivables", h.handleAgedReceivables)
		r.Get("/reports/aged-payables", h.handleAgedPayables)

		r.Get("/custom-reports", h.handleListCustom)
		r.Put("/custom-reports", h.handleSaveCustom)
		r.Get("/custom-reports/sources", h.handleSources)
		r.Post("/custom-reports/run", h.handleRunCustom)
	})
}

// exportsOnly applies limiter to download requests; JSON reads pass through.
func exportsOnly(limiter func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
			if format != "" && format != formatJSON {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func orgKey(r *http.Request) (string, error) {
	return "org:" + chi.URLParam(r, "orgID"), nil
}
