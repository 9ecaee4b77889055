package application

import (
	"context"
	"sync"

	"github.com/sebuszqo/CardVault/internal/payment/domain"
	paymentErrors "github.com/sebuszqo/CardVault/internal/payment/errors"
)

// MockLedger is an in-memory domain.Ledger that keeps insertion order.
type MockLedger struct {
	mu        sync.Mutex
	Records   []domain.PaymentMethod
	FindErr   error
	InsertErr error
	DeleteErr error
}

func (m *MockLedger) FindByUser(_ context.Context, userID string) ([]domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	var out []domain.PaymentMethod
	for _, r := range m.Records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockLedger) FindByInstrument(_ context.Context, instrumentID string) (*domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, r := range m.Records {
		if r.StripePaymentMethodID == instrumentID {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MockLedger) FindByUserAndInstrument(_ context.Context, userID, instrumentID string) (*domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, r := range m.Records {
		if r.UserID == userID && r.StripePaymentMethodID == instrumentID {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MockLedger) Insert(_ context.Context, method *domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	for _, r := range m.Records {
		if r.StripePaymentMethodID == method.StripePaymentMethodID {
			return paymentErrors.ErrAlreadyExists
		}
	}
	m.Records = append(m.Records, *method)
	return nil
}

func (m *MockLedger) Delete(_ context.Context, method *domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	for i, r := range m.Records {
		if r.ID == method.ID && r.UserID == method.UserID {
			m.Records = append(m.Records[:i], m.Records[i+1:]...)
			return nil
		}
	}
	return nil
}
