package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sebuszqo/CardVault/internal/payment/domain"
	paymentErrors "github.com/sebuszqo/CardVault/internal/payment/errors"
	log "github.com/sirupsen/logrus"
)

type PaymentServiceInterface interface {
	BeginOnboarding(ctx context.Context, userID string) (*domain.SetupSession, error)
	ConfirmSetup(ctx context.Context, userID string, req domain.ConfirmRequest) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, userID string) ([]domain.PaymentMethodView, error)
	RemovePaymentMethod(ctx context.Context, userID, instrumentID string) error
}

type PaymentHandler struct {
	service        PaymentServiceInterface
	publishableKey string
	userIDFrom     func(r *http.Request) (string, bool)
	respondJSON    func(w http.ResponseWriter, status int, payload interface{})
	respondError   func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewPaymentHandler(
	service PaymentServiceInterface,
	publishableKey string,
	userIDFrom func(r *http.Request) (string, bool),
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *PaymentHandler {
	if service == nil || userIDFrom == nil || respondJSON == nil || respondError == nil {
		panic("Service, user id extractor and response functions must not be nil")
	}
	return &PaymentHandler{
		service:        service,
		publishableKey: publishableKey,
		userIDFrom:     userIDFrom,
		respondJSON:    respondJSON,
		respondError:   respondError,
	}
}

// ValidatePathParamsMiddleware rejects requests whose named path values are blank.
func (h *PaymentHandler) ValidatePathParamsMiddleware(next http.Handler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, param := range params {
			if strings.TrimSpace(r.PathValue(param)) == "" {
				log.Printf("[Payment_Middleware] %s is empty", param)
				h.respondError(w, http.StatusBadRequest, capitalizeFirstLetter(param)+" is required")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func capitalizeFirstLetter(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (h *PaymentHandler) handleServiceError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, paymentErrors.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case paymentErrors.IsDomainError(err):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case paymentErrors.IsProcessorError(err):
		log.WithField("user_id", userID).Warnf("Processor call failed: %v", err)
		h.respondError(w, http.StatusBadRequest, "Stripe error: "+paymentErrors.ProcessorMessage(err))
	case errors.Is(err, paymentErrors.ErrListFailed):
		h.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		log.WithField("user_id", userID).Errorf("Payment request failed: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *PaymentHandler) CreateSetupIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFrom(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	session, err := h.service.BeginOnboarding(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, userID, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Setup intent created successfully.",
		"data":    session,
	})
}

func (h *PaymentHandler) SavePaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFrom(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req domain.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.PaymentMethodID = strings.TrimSpace(req.PaymentMethodID)
	req.SetupIntentID = strings.TrimSpace(req.SetupIntentID)
	var validationErrors []string
	if req.PaymentMethodID == "" {
		validationErrors = append(validationErrors, "payment_method_id is required")
	}
	if req.SetupIntentID == "" {
		validationErrors = append(validationErrors, "setup_intent_id is required")
	}
	if len(validationErrors) > 0 {
		h.respondError(w, http.StatusBadRequest, "Validation failed", validationErrors)
		return
	}

	method, err := h.service.ConfirmSetup(r.Context(), userID, req)
	if err != nil {
		h.handleServiceError(w, userID, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Payment method saved successfully.",
		"data": map[string]interface{}{
			"id":                       method.ID,
			"stripe_payment_method_id": method.StripePaymentMethodID,
			"is_default":               method.IsDefault,
		},
	})
}

func (h *PaymentHandler) GetPaymentMethods(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFrom(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	methods, err := h.service.ListPaymentMethods(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, userID, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"message":         "Methods retrieved successfully.",
		"payment_methods": methods,
	})
}

func (h *PaymentHandler) RemovePaymentMethod(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFrom(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	instrumentID := strings.TrimSpace(r.PathValue("paymentMethodID"))
	if err := h.service.RemovePaymentMethod(r.Context(), userID, instrumentID); err != nil {
		h.handleServiceError(w, userID, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Payment method removed successfully.",
	})
}

// GetConfig exposes the publishable key the client SDK needs to confirm setups.
func (h *PaymentHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	if h.publishableKey == "" {
		h.respondError(w, http.StatusServiceUnavailable, "Stripe publishable key is not configured")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"publishable_key": h.publishableKey,
	})
}
