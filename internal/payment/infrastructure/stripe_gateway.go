package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sebuszqo/CardVault/internal/payment/domain"
	paymentErrors "github.com/sebuszqo/CardVault/internal/payment/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
	// APIURL overrides the Stripe API base URL, e.g. for stripe-mock.
	APIURL string
}

// NewStripeClient builds a Stripe API handle from explicit configuration.
// Retries are disabled; the global stripe.Key is never touched.
func NewStripeClient(cfg StripeConfig) *client.API {
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg.backendConfig(cfg.APIURL)),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg.backendConfig("")),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg.backendConfig("")),
	}
	return client.New(cfg.SecretKey, backends)
}

// backendConfig returns a fresh config per backend, GetBackendWithConfig fills in the URL.
func (cfg StripeConfig) backendConfig(url string) *stripe.BackendConfig {
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     log.StandardLogger(),
	}
	if url != "" {
		backendConfig.URL = stripe.String(url)
	}
	return backendConfig
}

type stripeCustomerAPI interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
}

type stripeSetupIntentAPI interface {
	New(params *stripe.SetupIntentParams) (*stripe.SetupIntent, error)
	Get(id string, params *stripe.SetupIntentParams) (*stripe.SetupIntent, error)
}

type stripePaymentMethodAPI interface {
	Get(id string, params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
	Detach(id string, params *stripe.PaymentMethodDetachParams) (*stripe.PaymentMethod, error)
}

// StripeGateway implements domain.Processor on top of an injected Stripe client.
type StripeGateway struct {
	customers      stripeCustomerAPI
	setupIntents   stripeSetupIntentAPI
	paymentMethods stripePaymentMethodAPI
}

func NewStripeGateway(sc *client.API) *StripeGateway {
	if sc == nil {
		panic("Stripe client must not be nil")
	}
	return &StripeGateway{
		customers:      sc.Customers,
		setupIntents:   sc.SetupIntents,
		paymentMethods: sc.PaymentMethods,
	}
}

func processorError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return &paymentErrors.ProcessorError{Op: op, Msg: stripeErr.Msg, Err: err}
	}
	return paymentErrors.NewProcessorError(op, err)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	customer, err := g.customers.New(params)
	if err != nil {
		return "", processorError("create customer", err)
	}
	return customer.ID, nil
}

func (g *StripeGateway) CreateSetupCredential(ctx context.Context, customerID string, allowedKinds []domain.InstrumentKind, usage domain.UsageMode) (*domain.SetupCredential, error) {
	kinds := make([]string, len(allowedKinds))
	for i, kind := range allowedKinds {
		kinds[i] = string(kind)
	}

	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice(kinds),
		Usage:              stripe.String(string(usage)),
	}
	params.Context = ctx

	intent, err := g.setupIntents.New(params)
	if err != nil {
		return nil, processorError("create setup intent", err)
	}
	return toSetupCredential(intent), nil
}

func (g *StripeGateway) GetSetupCredential(ctx context.Context, id string) (*domain.SetupCredential, error) {
	params := &stripe.SetupIntentParams{}
	params.Context = ctx

	intent, err := g.setupIntents.Get(strings.TrimSpace(id), params)
	if err != nil {
		return nil, processorError("retrieve setup intent", err)
	}
	return toSetupCredential(intent), nil
}

func (g *StripeGateway) GetInstrument(ctx context.Context, id string) (*domain.Instrument, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := g.paymentMethods.Get(strings.TrimSpace(id), params)
	if err != nil {
		return nil, processorError("retrieve payment method", err)
	}
	return toInstrument(pm), nil
}

func (g *StripeGateway) DetachInstrument(ctx context.Context, id string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx

	if _, err := g.paymentMethods.Detach(strings.TrimSpace(id), params); err != nil {
		return processorError("detach payment method", err)
	}
	return nil
}

func toSetupCredential(intent *stripe.SetupIntent) *domain.SetupCredential {
	credential := &domain.SetupCredential{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       domain.SetupStatus(intent.Status),
	}
	if intent.Customer != nil {
		credential.CustomerID = intent.Customer.ID
	}
	return credential
}

func toInstrument(pm *stripe.PaymentMethod) *domain.Instrument {
	instrument := &domain.Instrument{
		ID:   pm.ID,
		Kind: domain.InstrumentKind(pm.Type),
	}
	if pm.Customer != nil {
		instrument.CustomerID = pm.Customer.ID
	}
	if pm.Type == stripe.PaymentMethodTypeCard && pm.Card != nil {
		instrument.Card = &domain.CardDetails{
			Brand:    string(pm.Card.Brand),
			Last4:    pm.Card.Last4,
			ExpMonth: int(pm.Card.ExpMonth),
			ExpYear:  int(pm.Card.ExpYear),
		}
	}
	return instrument
}
