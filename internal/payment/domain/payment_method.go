package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the local ledger row for one confirmed instrument.
// Card details are never stored here; they are read live from the processor.
type PaymentMethod struct {
	ID                    uuid.UUID
	UserID                string
	StripeCustomerID      string
	StripePaymentMethodID string
	IsDefault             bool
	CreatedAt             time.Time
}

type SetupStatus string

const (
	SetupStatusSucceeded             SetupStatus = "succeeded"
	SetupStatusProcessing            SetupStatus = "processing"
	SetupStatusRequiresAction        SetupStatus = "requires_action"
	SetupStatusRequiresConfirmation  SetupStatus = "requires_confirmation"
	SetupStatusRequiresPaymentMethod SetupStatus = "requires_payment_method"
	SetupStatusCanceled              SetupStatus = "canceled"
)

// SetupCredential is the processor-side setup intent a client completes out of band.
type SetupCredential struct {
	ID           string
	ClientSecret string
	CustomerID   string
	Status       SetupStatus
}

type InstrumentKind string

// InstrumentKindCard is the only kind this service onboards.
const InstrumentKindCard InstrumentKind = "card"

type UsageMode string

const UsageOffSession UsageMode = "off_session"

type CardDetails struct {
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// Instrument is a tokenized payment method as reported by the processor.
// Card is set only when Kind is InstrumentKindCard and the processor returned card details.
type Instrument struct {
	ID         string
	CustomerID string
	Kind       InstrumentKind
	Card       *CardDetails
}

// CardDetails reports the card display fields when the instrument is card-shaped.
func (i Instrument) CardDetails() (CardDetails, bool) {
	if i.Kind != InstrumentKindCard || i.Card == nil {
		return CardDetails{}, false
	}
	return *i.Card, true
}

// PaymentMethodView is a ledger record joined with its live card details.
type PaymentMethodView struct {
	ID                    uuid.UUID `json:"id"`
	StripePaymentMethodID string    `json:"stripe_payment_method_id"`
	Last4                 string    `json:"last4"`
	Brand                 string    `json:"brand"`
	ExpMonth              int       `json:"exp_month"`
	ExpYear               int       `json:"exp_year"`
	IsDefault             bool      `json:"is_default"`
}

// SetupSession is what the client needs to collect a card with the processor SDK.
type SetupSession struct {
	ClientSecret string `json:"client_secret"`
	CustomerID   string `json:"customer_id"`
}

type ConfirmRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
	SetupIntentID   string `json:"setup_intent_id"`
}

// Ledger persists payment method records. Every lookup that a caller can
// reach with a user-supplied id must be scoped by user id.
type Ledger interface {
	FindByUser(ctx context.Context, userID string) ([]PaymentMethod, error)
	FindByInstrument(ctx context.Context, instrumentID string) (*PaymentMethod, error)
	FindByUserAndInstrument(ctx context.Context, userID, instrumentID string) (*PaymentMethod, error)
	Insert(ctx context.Context, method *PaymentMethod) error
	Delete(ctx context.Context, method *PaymentMethod) error
}

// Processor is the synchronous gateway to the external payment processor.
type Processor interface {
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreateSetupCredential(ctx context.Context, customerID string, allowedKinds []InstrumentKind, usage UsageMode) (*SetupCredential, error)
	GetSetupCredential(ctx context.Context, id string) (*SetupCredential, error)
	GetInstrument(ctx context.Context, id string) (*Instrument, error)
	DetachInstrument(ctx context.Context, id string) error
}
