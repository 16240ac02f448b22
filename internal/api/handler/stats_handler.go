package handler

import (
	"log/slog"
	"net/http"

	"cashflow-crm/internal/api/handler/dto"
	"cashflow-crm/internal/domain/stats"
)

type StatsHandler struct {
	service *stats.Service
	logger  *slog.Logger
}

func NewStatsHandler(s *stats.Service, l *slog.Logger) *StatsHandler {
	if s == nil {
		panic("stats service cannot be nil")
	}
	return &StatsHandler{
		service: s,
		logger:  l.With("component", "StatsHandler"),
	}
}

// GetPortfolioSummary handles GET /stats.
func (h *StatsHandler) GetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.PortfolioSummary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to compute summary", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewStatsResponse(summary))
}
