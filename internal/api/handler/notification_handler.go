package handler

import (
	"log/slog"
	"net/http"

	"cashflow-crm/internal/api/handler/dto"
	"cashflow-crm/internal/domain/loan"
)

type NotificationHandler struct {
	engine *loan.Engine
	logger *slog.Logger
}

func NewNotificationHandler(engine *loan.Engine, l *slog.Logger) *NotificationHandler {
	if engine == nil {
		panic("status engine cannot be nil")
	}
	return &NotificationHandler{
		engine: engine,
		logger: l.With("component", "NotificationHandler"),
	}
}

// ListNotifications handles GET /notifications, returning the engine's
// bounded buffer oldest first.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications := h.engine.Notifications()

	resp := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, dto.NewNotificationResponse(n))
	}
	respondJSON(w, http.StatusOK, resp)
}

// ClearNotifications handles DELETE /notifications.
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearNotifications()
	h.logger.InfoContext(r.Context(), "Notification buffer cleared")
	w.WriteHeader(http.StatusNoContent)
}
