package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/CardVault/internal/payment/domain"
	paymentErrors "github.com/sebuszqo/CardVault/internal/payment/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultListConcurrency = 8

// UserDirectory resolves the email a new processor customer is registered with.
type UserDirectory interface {
	EmailForUser(ctx context.Context, userID string) (string, error)
}

type OnboardingService struct {
	ledger          domain.Ledger
	processor       domain.Processor
	users           UserDirectory
	listConcurrency int
	now             func() time.Time
	newID           func() uuid.UUID
}

func NewOnboardingService(ledger domain.Ledger, processor domain.Processor, users UserDirectory) *OnboardingService {
	if ledger == nil || processor == nil || users == nil {
		panic("Ledger, processor and user directory must not be nil")
	}
	return &OnboardingService{
		ledger:          ledger,
		processor:       processor,
		users:           users,
		listConcurrency: defaultListConcurrency,
		now:             time.Now,
		newID:           uuid.New,
	}
}

// BeginOnboarding returns a setup session for the user, creating the
// processor customer on the user's first onboarding only.
func (s *OnboardingService) BeginOnboarding(ctx context.Context, userID string) (*domain.SetupSession, error) {
	customerID, err := s.customerForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	credential, err := s.processor.CreateSetupCredential(ctx, customerID, []domain.InstrumentKind{domain.InstrumentKindCard}, domain.UsageOffSession)
	if err != nil {
		return nil, err
	}

	return &domain.SetupSession{
		ClientSecret: credential.ClientSecret,
		CustomerID:   customerID,
	}, nil
}

func (s *OnboardingService) customerForUser(ctx context.Context, userID string) (string, error) {
	existing, err := s.ledger.FindByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("could not load payment methods: %w", err)
	}
	if len(existing) > 0 {
		return existing[0].StripeCustomerID, nil
	}

	email, err := s.users.EmailForUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("could not resolve user email: %w", err)
	}

	customerID, err := s.processor.CreateCustomer(ctx, email, map[string]string{"user_id": userID})
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"user_id": userID, "customer_id": customerID}).Info("Created processor customer")
	return customerID, nil
}

// ConfirmSetup verifies a client-completed setup with the processor and
// records the resulting instrument. Steps run strictly in order and the ledger
// is written only after every check has passed.
func (s *OnboardingService) ConfirmSetup(ctx context.Context, userID string, req domain.ConfirmRequest) (*domain.PaymentMethod, error) {
	credential, err := s.processor.GetSetupCredential(ctx, req.SetupIntentID)
	if err != nil {
		return nil, err
	}
	if credential.Status != domain.SetupStatusSucceeded {
		return nil, paymentErrors.ErrSetupNotComplete
	}

	instrument, err := s.processor.GetInstrument(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if instrument.CustomerID == "" || instrument.CustomerID != credential.CustomerID {
		return nil, paymentErrors.ErrCustomerMismatch
	}

	duplicate, err := s.ledger.FindByInstrument(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("could not check existing payment method: %w", err)
	}
	if duplicate != nil {
		return nil, paymentErrors.ErrAlreadyExists
	}

	// Not atomic with the insert below: concurrent confirms for one user may both become default.
	existing, err := s.ledger.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("could not load payment methods: %w", err)
	}

	method := &domain.PaymentMethod{
		ID:                    s.newID(),
		UserID:                userID,
		StripeCustomerID:      credential.CustomerID,
		StripePaymentMethodID: req.PaymentMethodID,
		IsDefault:             len(existing) == 0,
		CreatedAt:             s.now().UTC(),
	}
	if err := s.ledger.Insert(ctx, method); err != nil {
		if errors.Is(err, paymentErrors.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("could not save payment method: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":           userID,
		"customer_id":       method.StripeCustomerID,
		"payment_method_id": method.StripePaymentMethodID,
		"is_default":        method.IsDefault,
	}).Info("Saved payment method")
	return method, nil
}

// ListPaymentMethods joins the user's records with live card details.
// Records whose instrument cannot be fetched, or is not a card, are left out.
func (s *OnboardingService) ListPaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethodView, error) {
	records, err := s.ledger.FindByUser(ctx, userID)
	if err != nil {
		log.Printf("Error loading payment methods for user %s: %v", userID, err)
		return nil, paymentErrors.ErrListFailed
	}

	views := make([]*domain.PaymentMethodView, len(records))
	var g errgroup.Group
	g.SetLimit(s.listConcurrency)
	for i, record := range records {
		g.Go(func() error {
			instrument, err := s.processor.GetInstrument(ctx, record.StripePaymentMethodID)
			if err != nil {
				log.WithFields(log.Fields{
					"user_id":           userID,
					"payment_method_id": record.StripePaymentMethodID,
				}).Warnf("Skipping payment method: %v", err)
				return nil
			}
			card, ok := instrument.CardDetails()
			if !ok {
				return nil
			}
			views[i] = &domain.PaymentMethodView{
				ID:                    record.ID,
				StripePaymentMethodID: record.StripePaymentMethodID,
				Last4:                 card.Last4,
				Brand:                 card.Brand,
				ExpMonth:              card.ExpMonth,
				ExpYear:               card.ExpYear,
				IsDefault:             record.IsDefault,
			}
			return nil
		})
	}
	g.Wait()

	result := make([]domain.PaymentMethodView, 0, len(views))
	for _, view := range views {
		if view != nil {
			result = append(result, *view)
		}
	}
	return result, nil
}

// RemovePaymentMethod detaches the user's instrument at the processor and
// then deletes the local record. Nothing is deleted if detaching fails.
func (s *OnboardingService) RemovePaymentMethod(ctx context.Context, userID, instrumentID string) error {
	method, err := s.ledger.FindByUserAndInstrument(ctx, userID, instrumentID)
	if err != nil {
		return fmt.Errorf("could not load payment method: %w", err)
	}
	if method == nil {
		return paymentErrors.ErrNotFound
	}

	if err := s.processor.DetachInstrument(ctx, instrumentID); err != nil {
		return err
	}

	if err := s.ledger.Delete(ctx, method); err != nil {
		return fmt.Errorf("could not delete payment method: %w", err)
	}

	// The default flag is not moved to another record.
	log.WithFields(log.Fields{
		"user_id":           userID,
		"payment_method_id": instrumentID,
		"was_default":       method.IsDefault,
	}).Info("Removed payment method")
	return nil
}
