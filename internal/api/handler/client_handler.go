package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cashflow-crm/internal/api/handler/dto"
	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/pkg/apperrors"
)

type ClientHandler struct {
	service client.ClientService
	logger  *slog.Logger
	now     func() time.Time
}

func NewClientHandler(s client.ClientService, l *slog.Logger) *ClientHandler {
	if s == nil {
		panic("client service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ClientHandler{
		service: s,
		logger:  l.With("component", "ClientHandler"),
		now:     time.Now,
	}
}

// CreateClient handles POST /clients. New clients always start in the
// lead stage regardless of what the payload claims.
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	h.logger.DebugContext(r.Context(), "Received create client request")

	var req dto.CreateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Request validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.CreateClient(r.Context(), req.ToInput())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to create client", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := dto.NewClientResponse(created, h.now())
	h.logger.InfoContext(r.Context(), "Client created successfully", slog.String("clientID", resp.ClientID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetClient handles GET /clients/{clientID}.
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get client ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	found, err := h.service.GetClient(r.Context(), clientID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, client.ErrNotFound) && !errors.Is(err, apperrors.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to get client", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewClientResponse(found, h.now()))
}

// ListClients handles GET /clients. Archived records are included only
// when ?includeArchived=true.
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	clients, err := h.service.ListClients(r.Context(), includeArchived)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list clients", slog.Any("error", err))
		respondError(w, err)
		return
	}

	now := h.now()
	resp := make([]dto.ClientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, dto.NewClientResponse(c, now))
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListPaymentsDue handles GET /clients/payments-due, the projection the
// reminder mailer works from.
func (h *ClientHandler) ListPaymentsDue(w http.ResponseWriter, r *http.Request) {
	due, err := h.service.ClientsWithPaymentsDue(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list clients with payments due", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.DueClientResponse, 0, len(due))
	for _, d := range due {
		resp = append(resp, dto.NewDueClientResponse(d))
	}
	respondJSON(w, http.StatusOK, resp)
}

// ApproveClient handles POST /clients/{clientID}/approve, moving a lead
// into active servicing.
func (h *ClientHandler) ApproveClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	approved, err := h.service.ApproveClient(r.Context(), clientID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Service failed to approve client", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Client approved", slog.String("clientID", clientID.String()))
	respondJSON(w, http.StatusOK, dto.NewClientResponse(approved, h.now()))
}

// DeclineClient handles POST /clients/{clientID}/decline. Only leads can
// be declined; declining archives the record.
func (h *ClientHandler) DeclineClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeclineClient(r.Context(), clientID); err != nil {
		h.logger.WarnContext(r.Context(), "Service failed to decline client", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Client declined", slog.String("clientID", clientID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveClient handles DELETE /clients/{clientID}. Records are soft
// deleted, never removed.
func (h *ClientHandler) ArchiveClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.ArchiveClient(r.Context(), clientID); err != nil {
		h.logger.WarnContext(r.Context(), "Service failed to archive client", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Client archived", slog.String("clientID", clientID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance handles GET /clients/{clientID}/balance.
func (h *ClientHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	found, err := h.service.GetClient(r.Context(), clientID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewBalanceResponse(found, h.now()))
}

// ExtendDueDate handles PUT /clients/{clientID}/due-date. The new date
// may only push the deadline out, never pull it in.
func (h *ClientHandler) ExtendDueDate(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ExtendDueDateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	newDate, _ := time.Parse("2006-01-02", req.DueDate)
	updated, err := h.service.ExtendDueDate(r.Context(), clientID, newDate)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Service failed to extend due date", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Due date extended",
		slog.String("clientID", clientID.String()),
		slog.String("dueDate", req.DueDate))
	respondJSON(w, http.StatusOK, dto.NewClientResponse(updated, h.now()))
}
