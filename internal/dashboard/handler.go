package dashboard

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Wuchinator/scan-analytics/internal/analytics"
	"github.com/Wuchinator/scan-analytics/internal/httpapi"
	"github.com/Wuchinator/scan-analytics/internal/scan"
	"github.com/Wuchinator/scan-analytics/pkg/logger"
)

type Reader interface {
	Summary(ctx context.Context, userID string) (*analytics.Summary, error)
	Categories(ctx context.Context, userID string, dim analytics.Dimension) (map[string]analytics.CategoryBucket, error)
	TimeSeries(ctx context.Context, userID string, days int) ([]analytics.DayBucket, error)
	Recent(ctx context.Context, userID string, limit int) ([]*scan.Event, error)
	Overview(ctx context.Context, userID string, days int) (*Overview, error)
}

type HandlerConfig struct {
	DefaultWindowDays  int
	MaxWindowDays      int
	RecentDefaultLimit int
	RecentMaxLimit     int
}

type Handler struct {
	service Reader
	cfg     HandlerConfig
	logger  *zap.Logger
}

func NewHandler(service Reader, cfg HandlerConfig, logger *zap.Logger) *Handler {
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = 30
	}
	if cfg.MaxWindowDays <= 0 {
		cfg.MaxWindowDays = 365
	}
	if cfg.RecentDefaultLimit <= 0 {
		cfg.RecentDefaultLimit = 20
	}
	if cfg.RecentMaxLimit <= 0 {
		cfg.RecentMaxLimit = 1000
	}
	return &Handler{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// RegisterRoutes mounts the dashboard routes. Callers wrap r with
// httpapi.RequireUser.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.GetSummary)
	r.Get("/by-type", h.GetByType)
	r.Get("/timeseries", h.GetTimeSeries)
	r.Get("/recent", h.GetRecent)
	r.Get("/overview", h.GetOverview)
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, "summary", userID, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, summary)
}

type ByTypeResponse struct {
	Dimension analytics.Dimension                 `json:"dimension"`
	ByType    map[string]analytics.CategoryBucket `json:"byType"`
}

// GetByType defaults to grouping by scan type; ?dimension=threat_type
// groups by threat type instead.
func (h *Handler) GetByType(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	dim := analytics.DimensionScanType
	if raw := r.URL.Query().Get("dimension"); raw != "" {
		parsed, ok := analytics.ParseDimension(raw)
		if !ok {
			httpapi.WriteError(w, http.StatusBadRequest, "validation_error", "dimension must be scan_type or threat_type")
			return
		}
		dim = parsed
	}

	groups, err := h.service.Categories(r.Context(), userID, dim)
	if err != nil {
		h.fail(w, "by-type", userID, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, ByTypeResponse{Dimension: dim, ByType: groups})
}

type TimeSeriesResponse struct {
	Days   int                   `json:"days"`
	Points []analytics.DayBucket `json:"points"`
}

func (h *Handler) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	days := h.windowDays(r)
	points, err := h.service.TimeSeries(r.Context(), userID, days)
	if err != nil {
		h.fail(w, "timeseries", userID, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, TimeSeriesResponse{Days: days, Points: points})
}

type RecentResponse struct {
	Items []scan.EventView `json:"items"`
}

func (h *Handler) GetRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	limit := h.cfg.RecentDefaultLimit
	if n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit"))); err == nil && n > 0 {
		limit = min(n, h.cfg.RecentMaxLimit)
	}

	events, err := h.service.Recent(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "recent", userID, err)
		return
	}

	items := make([]scan.EventView, 0, len(events))
	for _, event := range events {
		items = append(items, event.View())
	}

	httpapi.WriteJSON(w, http.StatusOK, RecentResponse{Items: items})
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.user(w, r)
	if !ok {
		return
	}

	overview, err := h.service.Overview(r.Context(), userID, h.windowDays(r))
	if err != nil {
		h.fail(w, "overview", userID, err)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, overview)
}

// windowDays reads ?days=. Absent means the default window; anything that
// is not a positive number is clamped to one day, and large values to the
// maximum window.
func (h *Handler) windowDays(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return analytics.ClampWindow(h.cfg.DefaultWindowDays, h.cfg.MaxWindowDays)
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return analytics.ClampWindow(days, h.cfg.MaxWindowDays)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := httpapi.UserID(r.Context())
	if !ok {
		scan.WriteServiceError(w, scan.ErrNotAuthenticated)
		return "", false
	}
	return userID, true
}

func (h *Handler) fail(w http.ResponseWriter, view, userID string, err error) {
	logger.WithUser(h.logger, userID).Error("Dashboard request failed",
		zap.String("view", view),
		zap.Error(err),
	)
	scan.WriteServiceError(w, err)
}
