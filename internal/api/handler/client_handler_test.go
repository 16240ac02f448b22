package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cashflow-crm/internal/api/handler"
	"cashflow-crm/internal/api/handler/dto"
	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
	"cashflow-crm/internal/pkg/apperrors"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) CreateClient(ctx context.Context, input client.NewClientInput) (*client.Client, error) {
	ret := m.Called(ctx, input)
	var c *client.Client
	if ret.Get(0) != nil {
		c = ret.Get(0).(*client.Client)
	}
	return c, ret.Error(1)
}

func (m *MockClientService) GetClient(ctx context.Context, clientID uuid.UUID) (*client.Client, error) {
	ret := m.Called(ctx, clientID)
	var c *client.Client
	if ret.Get(0) != nil {
		c = ret.Get(0).(*client.Client)
	}
	return c, ret.Error(1)
}

func (m *MockClientService) ListClients(ctx context.Context, includeArchived bool) ([]*client.Client, error) {
	ret := m.Called(ctx, includeArchived)
	var clients []*client.Client
	if ret.Get(0) != nil {
		clients = ret.Get(0).([]*client.Client)
	}
	return clients, ret.Error(1)
}

func (m *MockClientService) ApproveClient(ctx context.Context, clientID uuid.UUID) (*client.Client, error) {
	ret := m.Called(ctx, clientID)
	var c *client.Client
	if ret.Get(0) != nil {
		c = ret.Get(0).(*client.Client)
	}
	return c, ret.Error(1)
}

func (m *MockClientService) DeclineClient(ctx context.Context, clientID uuid.UUID) error {
	return m.Called(ctx, clientID).Error(0)
}

func (m *MockClientService) ArchiveClient(ctx context.Context, clientID uuid.UUID) error {
	return m.Called(ctx, clientID).Error(0)
}

func (m *MockClientService) RecordPayment(ctx context.Context, clientID uuid.UUID, amount loan.Money, method, notes string) (*client.Client, error) {
	ret := m.Called(ctx, clientID, amount, method, notes)
	var c *client.Client
	if ret.Get(0) != nil {
		c = ret.Get(0).(*client.Client)
	}
	return c, ret.Error(1)
}

func (m *MockClientService) ListPayments(ctx context.Context, clientID uuid.UUID) ([]client.Payment, error) {
	ret := m.Called(ctx, clientID)
	var payments []client.Payment
	if ret.Get(0) != nil {
		payments = ret.Get(0).([]client.Payment)
	}
	return payments, ret.Error(1)
}

func (m *MockClientService) ExtendDueDate(ctx context.Context, clientID uuid.UUID, newDate time.Time) (*client.Client, error) {
	ret := m.Called(ctx, clientID, newDate)
	var c *client.Client
	if ret.Get(0) != nil {
		c = ret.Get(0).(*client.Client)
	}
	return c, ret.Error(1)
}

func (m *MockClientService) ApplyStatusChange(ctx context.Context, clientID uuid.UUID, from, to loan.Status, amountDue loan.Money, message string) error {
	return m.Called(ctx, clientID, from, to, amountDue, message).Error(0)
}

func (m *MockClientService) ClientsWithPaymentsDue(ctx context.Context) ([]client.DueClient, error) {
	ret := m.Called(ctx)
	var due []client.DueClient
	if ret.Get(0) != nil {
		due = ret.Get(0).([]client.DueClient)
	}
	return due, ret.Error(1)
}

func handlerTestClient() *client.Client {
	return &client.Client{
		ID:             uuid.New(),
		Name:           "Maria Santos",
		LoanType:       "Secured Loan",
		LoanAmount:     10000,
		InterestRate:   50,
		MonthlyPayment: 15000,
		StartDate:      time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		DueDate:        time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		Status:         loan.StatusNewLead,
	}
}

func requestWithClientID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("clientID", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateClient(t *testing.T) {
	t.Run("success with snake_case payload", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		created := handlerTestClient()
		mockSvc.On("CreateClient", mock.Anything, mock.MatchedBy(func(input client.NewClientInput) bool {
			return input.Name == "Maria Santos" && input.Amount == 10000
		})).Return(created, nil)

		body := []byte(`{"name": "Maria Santos", "loan_amount": 10000, "due_date": "2025-02-28"}`)
		req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		h.CreateClient(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.ClientResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, created.ID.String(), resp.ClientID)
		assert.Equal(t, "new-lead", resp.Status)
		assert.Equal(t, "10000.00", resp.LoanAmount)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid payload returns 400", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		req := httptest.NewRequest(http.MethodPost, "/clients", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()

		h.CreateClient(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockSvc.AssertNotCalled(t, "CreateClient")
	})
}

func TestGetClient(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		c := handlerTestClient()
		mockSvc.On("GetClient", mock.Anything, c.ID).Return(c, nil)

		req := httptest.NewRequest(http.MethodGet, "/clients/"+c.ID.String(), nil)
		rec := httptest.NewRecorder()
		h.GetClient(rec, requestWithClientID(req, c.ID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		req := httptest.NewRequest(http.MethodGet, "/clients/abc", nil)
		rec := httptest.NewRecorder()
		h.GetClient(rec, requestWithClientID(req, "abc"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockSvc.AssertNotCalled(t, "GetClient")
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		id := uuid.New()
		mockSvc.On("GetClient", mock.Anything, id).Return(nil, client.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/clients/"+id.String(), nil)
		rec := httptest.NewRecorder()
		h.GetClient(rec, requestWithClientID(req, id.String()))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestApproveClient(t *testing.T) {
	mockSvc := new(MockClientService)
	h := handler.NewClientHandler(mockSvc, testLogger)

	c := handlerTestClient()
	c.Status = loan.StatusActive
	mockSvc.On("ApproveClient", mock.Anything, c.ID).Return(c, nil)

	req := httptest.NewRequest(http.MethodPost, "/clients/"+c.ID.String()+"/approve", nil)
	rec := httptest.NewRecorder()
	h.ApproveClient(rec, requestWithClientID(req, c.ID.String()))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ClientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "active", resp.Status)
}

func TestDeclineClient(t *testing.T) {
	t.Run("success returns 204", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		id := uuid.New()
		mockSvc.On("DeclineClient", mock.Anything, id).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/clients/"+id.String()+"/decline", nil)
		rec := httptest.NewRecorder()
		h.DeclineClient(rec, requestWithClientID(req, id.String()))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("non lead returns 409", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		id := uuid.New()
		mockSvc.On("DeclineClient", mock.Anything, id).Return(apperrors.ErrInvalidStatusTransition)

		req := httptest.NewRequest(http.MethodPost, "/clients/"+id.String()+"/decline", nil)
		rec := httptest.NewRecorder()
		h.DeclineClient(rec, requestWithClientID(req, id.String()))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestListPaymentsDue(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		due := []client.DueClient{{
			ClientID:   uuid.New(),
			Name:       "Thabo Mokoena",
			LoanAmount: loan.Money(10000),
			AmountPaid: loan.Money(2500),
			AmountDue:  loan.Money(12500),
			DueDate:    time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
			Status:     loan.StatusActive,
		}}
		mockSvc.On("ClientsWithPaymentsDue", mock.Anything).Return(due, nil)

		req := httptest.NewRequest(http.MethodGet, "/clients/payments-due", nil)
		rec := httptest.NewRecorder()
		h.ListPaymentsDue(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"amountDue":"12500.00"`)
		assert.Contains(t, rec.Body.String(), `"dueDate":"2025-03-31"`)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service failure returns 500", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		mockSvc.On("ClientsWithPaymentsDue", mock.Anything).Return(nil, apperrors.ErrDatabase)

		req := httptest.NewRequest(http.MethodGet, "/clients/payments-due", nil)
		rec := httptest.NewRecorder()
		h.ListPaymentsDue(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestExtendDueDate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		c := handlerTestClient()
		newDate := time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC)
		c.DueDate = newDate
		mockSvc.On("ExtendDueDate", mock.Anything, c.ID, newDate).Return(c, nil)

		body := []byte(`{"due_date": "2025-04-30"}`)
		req := httptest.NewRequest(http.MethodPut, "/clients/"+c.ID.String()+"/due-date", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.ExtendDueDate(rec, requestWithClientID(req, c.ID.String()))

		assert.Equal(t, http.StatusOK, rec.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("bad date returns 400", func(t *testing.T) {
		mockSvc := new(MockClientService)
		h := handler.NewClientHandler(mockSvc, testLogger)

		id := uuid.New()
		body := []byte(`{"dueDate": "30-04-2025"}`)
		req := httptest.NewRequest(http.MethodPut, "/clients/"+id.String()+"/due-date", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.ExtendDueDate(rec, requestWithClientID(req, id.String()))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockSvc.AssertNotCalled(t, "ExtendDueDate")
	})
}
