package interfaces

import (
	"context"

	"github.com/sebuszqo/CardVault/internal/payment/domain"
)

type MockPaymentService struct {
	Session *domain.SetupSession
	Saved   *domain.PaymentMethod
	Methods []domain.PaymentMethodView
	Err     error

	LastUserID       string
	LastConfirm      domain.ConfirmRequest
	LastInstrumentID string
}

func NewMockPaymentService(err error) *MockPaymentService {
	return &MockPaymentService{Err: err}
}

func (m *MockPaymentService) BeginOnboarding(_ context.Context, userID string) (*domain.SetupSession, error) {
	m.LastUserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

func (m *MockPaymentService) ConfirmSetup(_ context.Context, userID string, req domain.ConfirmRequest) (*domain.PaymentMethod, error) {
	m.LastUserID = userID
	m.LastConfirm = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Saved, nil
}

func (m *MockPaymentService) ListPaymentMethods(_ context.Context, userID string) ([]domain.PaymentMethodView, error) {
	m.LastUserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Methods, nil
}

func (m *MockPaymentService) RemovePaymentMethod(_ context.Context, userID, instrumentID string) error {
	m.LastUserID = userID
	m.LastInstrumentID = instrumentID
	return m.Err
}
