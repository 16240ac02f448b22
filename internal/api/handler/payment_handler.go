package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cashflow-crm/internal/api/handler/dto"
	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/pkg/apperrors"
)

type PaymentHandler struct {
	service client.ClientService
	logger  *slog.Logger
	now     func() time.Time
}

func NewPaymentHandler(s client.ClientService, l *slog.Logger) *PaymentHandler {
	if s == nil {
		panic("client service cannot be nil")
	}
	return &PaymentHandler{
		service: s,
		logger:  l.With("component", "PaymentHandler"),
		now:     time.Now,
	}
}

// RecordPayment handles POST /clients/{clientID}/payments. The response
// carries the client's recalculated balance and status.
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode payment request", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidPaymentAmount, err))
		return
	}

	updated, err := h.service.RecordPayment(r.Context(), clientID, req.Amount, req.Method, req.Notes)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Service failed to record payment",
			slog.String("clientID", clientID.String()),
			slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Payment recorded",
		slog.String("clientID", clientID.String()),
		slog.Float64("amount", req.Amount))
	respondJSON(w, http.StatusCreated, dto.NewClientResponse(updated, h.now()))
}

// ListPayments handles GET /clients/{clientID}/payments, newest first.
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	clientID, err := getClientIDFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), clientID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list payments", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, dto.NewPaymentResponse(p))
	}
	respondJSON(w, http.StatusOK, resp)
}
