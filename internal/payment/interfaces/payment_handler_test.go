package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sebuszqo/CardVault/internal/payment/domain"
	paymentErrors "github.com/sebuszqo/CardVault/internal/payment/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "9b2f6c1e-8d5a-4f0e-9c3b-2a7d1e4f5a6b"

func authenticated(_ *http.Request) (string, bool) {
	return testUserID, true
}

func anonymous(_ *http.Request) (string, bool) {
	return "", false
}

func newTestHandler(service PaymentServiceInterface) *PaymentHandler {
	return NewPaymentHandler(service, "pk_test_123", authenticated, RespondJSON, RespondError)
}

func decodeBody(t *testing.T, res *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestNewPaymentHandler_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { NewPaymentHandler(nil, "", authenticated, RespondJSON, RespondError) })
	assert.Panics(t, func() { NewPaymentHandler(NewMockPaymentService(nil), "", nil, RespondJSON, RespondError) })
	assert.Panics(t, func() { NewPaymentHandler(NewMockPaymentService(nil), "", authenticated, nil, RespondError) })
}

func TestCreateSetupIntent_Success(t *testing.T) {
	service := NewMockPaymentService(nil)
	service.Session = &domain.SetupSession{ClientSecret: "seti_1_secret_x", CustomerID: "cus_1"}
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/setup-intent", nil)
	w := httptest.NewRecorder()
	handler.CreateSetupIntent(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, testUserID, service.LastUserID)

	body := decodeBody(t, res)
	assert.Equal(t, "success", body["status"])
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "Expected 'data' to be an object")
	assert.Equal(t, "seti_1_secret_x", data["client_secret"])
	assert.Equal(t, "cus_1", data["customer_id"])
}

func TestCreateSetupIntent_Unauthorized(t *testing.T) {
	handler := NewPaymentHandler(NewMockPaymentService(nil), "", anonymous, RespondJSON, RespondError)

	w := httptest.NewRecorder()
	handler.CreateSetupIntent(w, httptest.NewRequest(http.MethodPost, "/api/stripe/setup-intent", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSetupIntent_ProcessorError(t *testing.T) {
	processorErr := &paymentErrors.ProcessorError{Op: "create customer", Msg: "Invalid API Key provided"}
	handler := newTestHandler(NewMockPaymentService(processorErr))

	w := httptest.NewRecorder()
	handler.CreateSetupIntent(w, httptest.NewRequest(http.MethodPost, "/api/stripe/setup-intent", nil))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	body := decodeBody(t, res)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Stripe error: Invalid API Key provided", body["message"])
}

func TestSavePaymentMethod_Success(t *testing.T) {
	service := NewMockPaymentService(nil)
	recordID := uuid.New()
	service.Saved = &domain.PaymentMethod{ID: recordID, StripePaymentMethodID: "pm_1", IsDefault: true}
	handler := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/save-payment-method",
		strings.NewReader(`{"payment_method_id":" pm_1 ","setup_intent_id":"seti_1"}`))
	w := httptest.NewRecorder()
	handler.SavePaymentMethod(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, domain.ConfirmRequest{PaymentMethodID: "pm_1", SetupIntentID: "seti_1"}, service.LastConfirm)

	body := decodeBody(t, res)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, recordID.String(), data["id"])
	assert.Equal(t, true, data["is_default"])
}

func TestSavePaymentMethod_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []interface{}
	}{
		{
			name:     "both ids missing",
			body:     `{}`,
			expected: []interface{}{"payment_method_id is required", "setup_intent_id is required"},
		},
		{
			name:     "blank setup intent",
			body:     `{"payment_method_id":"pm_1","setup_intent_id":"   "}`,
			expected: []interface{}{"setup_intent_id is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewMockPaymentService(nil)
			handler := newTestHandler(service)

			w := httptest.NewRecorder()
			handler.SavePaymentMethod(w, httptest.NewRequest(http.MethodPost, "/api/stripe/save-payment-method", strings.NewReader(tt.body)))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			body := decodeBody(t, res)
			assert.Equal(t, "Validation failed", body["message"])
			assert.Equal(t, tt.expected, body["errors"])
			assert.Empty(t, service.LastUserID, "service must not be called")
		})
	}
}

func TestSavePaymentMethod_InvalidJSON(t *testing.T) {
	handler := newTestHandler(NewMockPaymentService(nil))

	w := httptest.NewRecorder()
	handler.SavePaymentMethod(w, httptest.NewRequest(http.MethodPost, "/api/stripe/save-payment-method", strings.NewReader(`{`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSavePaymentMethod_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"setup not complete", paymentErrors.ErrSetupNotComplete, http.StatusBadRequest, "Setup Intent not succeeded"},
		{"customer mismatch", paymentErrors.ErrCustomerMismatch, http.StatusBadRequest, "Payment method customer mismatch"},
		{"already exists", paymentErrors.ErrAlreadyExists, http.StatusBadRequest, "Payment method already exists"},
		{"processor", &paymentErrors.ProcessorError{Msg: "No such setupintent: 'seti_x'"}, http.StatusBadRequest, "Stripe error: No such setupintent: 'seti_x'"},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(NewMockPaymentService(tt.err))

			w := httptest.NewRecorder()
			handler.SavePaymentMethod(w, httptest.NewRequest(http.MethodPost, "/api/stripe/save-payment-method",
				strings.NewReader(`{"payment_method_id":"pm_1","setup_intent_id":"seti_1"}`)))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.message, decodeBody(t, res)["message"])
		})
	}
}

func TestGetPaymentMethods_Success(t *testing.T) {
	service := NewMockPaymentService(nil)
	service.Methods = []domain.PaymentMethodView{
		{ID: uuid.New(), StripePaymentMethodID: "pm_1", Last4: "4242", Brand: "visa", ExpMonth: 12, ExpYear: 2030, IsDefault: true},
		{ID: uuid.New(), StripePaymentMethodID: "pm_2", Last4: "0005", Brand: "amex", ExpMonth: 1, ExpYear: 2031},
	}
	handler := newTestHandler(service)

	w := httptest.NewRecorder()
	handler.GetPaymentMethods(w, httptest.NewRequest(http.MethodGet, "/api/stripe/payment-methods", nil))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody(t, res)
	methods, ok := body["payment_methods"].([]interface{})
	require.True(t, ok, "Expected 'payment_methods' to be an array in the response")
	require.Len(t, methods, 2)

	first := methods[0].(map[string]interface{})
	assert.Equal(t, "pm_1", first["stripe_payment_method_id"])
	assert.Equal(t, "4242", first["last4"])
	assert.Equal(t, float64(12), first["exp_month"])
	assert.Equal(t, true, first["is_default"])
}

func TestGetPaymentMethods_EmptyIsArray(t *testing.T) {
	service := NewMockPaymentService(nil)
	service.Methods = []domain.PaymentMethodView{}
	handler := newTestHandler(service)

	w := httptest.NewRecorder()
	handler.GetPaymentMethods(w, httptest.NewRequest(http.MethodGet, "/api/stripe/payment-methods", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_methods":[]`)
}

func TestGetPaymentMethods_Error(t *testing.T) {
	handler := newTestHandler(NewMockPaymentService(paymentErrors.ErrListFailed))

	w := httptest.NewRecorder()
	handler.GetPaymentMethods(w, httptest.NewRequest(http.MethodGet, "/api/stripe/payment-methods", nil))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	body := decodeBody(t, res)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Error fetching payment methods", body["message"])
}

func TestRemovePaymentMethod(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"removed", nil, http.StatusOK},
		{"not owned", paymentErrors.ErrNotFound, http.StatusNotFound},
		{"detach failed", &paymentErrors.ProcessorError{Msg: "boom"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewMockPaymentService(tt.err)
			handler := newTestHandler(service)

			mux := http.NewServeMux()
			mux.Handle("DELETE /api/stripe/payment-methods/{paymentMethodID}",
				handler.ValidatePathParamsMiddleware(http.HandlerFunc(handler.RemovePaymentMethod), "paymentMethodID"))

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/stripe/payment-methods/pm_42", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "pm_42", service.LastInstrumentID)
			assert.Equal(t, testUserID, service.LastUserID)
		})
	}
}

func TestValidatePathParamsMiddleware_RejectsBlank(t *testing.T) {
	service := NewMockPaymentService(nil)
	handler := newTestHandler(service)

	mux := http.NewServeMux()
	mux.Handle("DELETE /api/stripe/payment-methods/{paymentMethodID}",
		handler.ValidatePathParamsMiddleware(http.HandlerFunc(handler.RemovePaymentMethod), "paymentMethodID"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/stripe/payment-methods/%20", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "PaymentMethodID is required")
	assert.Empty(t, service.LastInstrumentID)
}

func TestGetConfig(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHandler(NewMockPaymentService(nil)).GetConfig(w, httptest.NewRequest(http.MethodGet, "/api/stripe/config", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"publishable_key":"pk_test_123"`)

	w = httptest.NewRecorder()
	NewPaymentHandler(NewMockPaymentService(nil), "", authenticated, RespondJSON, RespondError).
		GetConfig(w, httptest.NewRequest(http.MethodGet, "/api/stripe/config", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
