package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, c *client.Client) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, clientID uuid.UUID) (*client.Client, error) {
	ret := m.Called(ctx, clientID)
	var c *client.Client
	if ret.Get(0) != nil {
		c = ret.Get(0).(*client.Client)
	}
	return c, ret.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context, includeArchived bool) ([]*client.Client, error) {
	ret := m.Called(ctx, includeArchived)
	var clients []*client.Client
	if ret.Get(0) != nil {
		clients = ret.Get(0).([]*client.Client)
	}
	return clients, ret.Error(1)
}

func (m *MockRepository) FindActive(ctx context.Context) ([]*client.Client, error) {
	ret := m.Called(ctx)
	var clients []*client.Client
	if ret.Get(0) != nil {
		clients = ret.Get(0).([]*client.Client)
	}
	return clients, ret.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, clientID uuid.UUID, status loan.Status, risk *loan.RiskAssessment, updatedAt time.Time) error {
	return m.Called(ctx, clientID, status, risk, updatedAt).Error(0)
}

func (m *MockRepository) SetArchived(ctx context.Context, clientID uuid.UUID, archived bool) error {
	return m.Called(ctx, clientID, archived).Error(0)
}

func (m *MockRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, clientID uuid.UUID) (*client.Client, error) {
	ret := m.Called(ctx, tx, clientID)
	var c *client.Client
	if ret.Get(0) != nil {
		c = ret.Get(0).(*client.Client)
	}
	return c, ret.Error(1)
}

func (m *MockRepository) SaveInTx(ctx context.Context, tx pgx.Tx, c *client.Client) error {
	return m.Called(ctx, tx, c).Error(0)
}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	ret := m.Called(ctx)
	var tx pgx.Tx
	if ret.Get(0) != nil {
		tx = ret.Get(0).(pgx.Tx)
	}
	return tx, ret.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

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

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPaymentsDueSummary(ctx context.Context, clients []client.DueClient) error {
	return m.Called(ctx, clients).Error(0)
}
