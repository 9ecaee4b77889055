package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sebuszqo/CardVault/internal/payment/domain"
	paymentErrors "github.com/sebuszqo/CardVault/internal/payment/errors"
)

var errNoSuchObject = errors.New("No such object")

// MockProcessor is an in-memory domain.Processor. Failures can be injected per
// operation, and per instrument for lookups and detaches.
type MockProcessor struct {
	mu sync.Mutex

	Credentials map[string]*domain.SetupCredential
	Instruments map[string]*domain.Instrument

	CreateCustomerErr   error
	CreateSetupErr      error
	GetInstrumentErrs   map[string]error
	DetachErrs          map[string]error
	CreatedCustomers    []string
	CustomerEmails      map[string]string
	CustomerMetadata    map[string]map[string]string
	SetupRequests       []MockSetupRequest
	DetachedInstruments []string
}

type MockSetupRequest struct {
	CustomerID string
	Kinds      []domain.InstrumentKind
	Usage      domain.UsageMode
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{
		Credentials:       make(map[string]*domain.SetupCredential),
		Instruments:       make(map[string]*domain.Instrument),
		GetInstrumentErrs: make(map[string]error),
		DetachErrs:        make(map[string]error),
		CustomerEmails:    make(map[string]string),
		CustomerMetadata:  make(map[string]map[string]string),
	}
}

func (m *MockProcessor) CreateCustomer(_ context.Context, email string, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCustomerErr != nil {
		return "", paymentErrors.NewProcessorError("create customer", m.CreateCustomerErr)
	}
	id := fmt.Sprintf("cus_%d", len(m.CreatedCustomers)+1)
	m.CreatedCustomers = append(m.CreatedCustomers, id)
	m.CustomerEmails[id] = email
	m.CustomerMetadata[id] = metadata
	return id, nil
}

func (m *MockProcessor) CreateSetupCredential(_ context.Context, customerID string, allowedKinds []domain.InstrumentKind, usage domain.UsageMode) (*domain.SetupCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateSetupErr != nil {
		return nil, paymentErrors.NewProcessorError("create setup intent", m.CreateSetupErr)
	}
	m.SetupRequests = append(m.SetupRequests, MockSetupRequest{CustomerID: customerID, Kinds: allowedKinds, Usage: usage})
	id := fmt.Sprintf("seti_%d", len(m.SetupRequests))
	credential := &domain.SetupCredential{
		ID:           id,
		ClientSecret: id + "_secret",
		CustomerID:   customerID,
		Status:       domain.SetupStatusRequiresPaymentMethod,
	}
	m.Credentials[id] = credential
	return credential, nil
}

// CompleteSetup simulates the client confirming setup credential id with a
// new card instrument under the credential's customer.
func (m *MockProcessor) CompleteSetup(credentialID, instrumentID string, card domain.CardDetails) {
	m.mu.Lock()
	defer m.mu.Unlock()
	credential := m.Credentials[credentialID]
	credential.Status = domain.SetupStatusSucceeded
	m.Instruments[instrumentID] = &domain.Instrument{
		ID:         instrumentID,
		CustomerID: credential.CustomerID,
		Kind:       domain.InstrumentKindCard,
		Card:       &card,
	}
}

func (m *MockProcessor) GetSetupCredential(_ context.Context, id string) (*domain.SetupCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	credential, ok := m.Credentials[id]
	if !ok {
		return nil, paymentErrors.NewProcessorError("get setup intent", errNoSuchObject)
	}
	copied := *credential
	return &copied, nil
}

func (m *MockProcessor) GetInstrument(_ context.Context, id string) (*domain.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.GetInstrumentErrs[id]; err != nil {
		return nil, paymentErrors.NewProcessorError("get payment method", err)
	}
	instrument, ok := m.Instruments[id]
	if !ok {
		return nil, paymentErrors.NewProcessorError("get payment method", errNoSuchObject)
	}
	copied := *instrument
	return &copied, nil
}

func (m *MockProcessor) DetachInstrument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.DetachErrs[id]; err != nil {
		return paymentErrors.NewProcessorError("detach payment method", err)
	}
	instrument, ok := m.Instruments[id]
	if !ok {
		return paymentErrors.NewProcessorError("detach payment method", errNoSuchObject)
	}
	instrument.CustomerID = ""
	m.DetachedInstruments = append(m.DetachedInstruments, id)
	return nil
}

// MockUserDirectory maps user ids to emails.
type MockUserDirectory map[string]string

func (m MockUserDirectory) EmailForUser(_ context.Context, userID string) (string, error) {
	email, ok := m[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return email, nil
}
