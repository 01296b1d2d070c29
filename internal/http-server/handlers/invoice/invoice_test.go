package invoice

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vatbill/entity"
	"vatbill/impl/invoices"
	"vatbill/lib/api/cont"
	"vatbill/lib/api/response"
)

type MockCore struct {
	mock.Mock
}

func (m *MockCore) InvoiceCreate(ctx context.Context, user *entity.User, draft *entity.InvoiceDraft) (*entity.Invoice, error) {
	args := m.Called(ctx, user, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Invoice), args.Error(1)
}

func (m *MockCore) InvoiceList(ctx context.Context, user *entity.User, status string) ([]*entity.Invoice, error) {
	args := m.Called(ctx, user, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Invoice), args.Error(1)
}

func (m *MockCore) InvoiceMarkPaid(ctx context.Context, user *entity.User, invoiceId string) (*entity.Invoice, error) {
	args := m.Called(ctx, user, invoiceId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Invoice), args.Error(1)
}

func (m *MockCore) InvoiceSummary(ctx context.Context, user *entity.User) (*entity.Summary, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Summary), args.Error(1)
}

var testUser = &entity.User{Id: "user-1", Username: "alice", Email: "alice@example.com", Token: "tok"}

// testRouter mounts the invoice routes behind a stub that injects the
// authenticated user, standing in for the authenticate middleware.
func testRouter(handler Core) *chi.Mux {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(cont.PutUser(r.Context(), testUser)))
		})
	})
	router.Post("/invoices", Create(log, handler))
	router.Get("/invoices", List(log, handler))
	router.Get("/invoices/summary", Summary(log, handler))
	router.Post("/invoices/{id}/pay", Pay(log, handler))
	return router
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var envelope response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestCreateHandler(t *testing.T) {
	core := &MockCore{}
	core.On("InvoiceCreate", mock.Anything, mock.Anything, mock.Anything).
		Return(&entity.Invoice{Id: "inv-1", OwnerId: "user-1", Subtotal: 100, Vat: 7.5, Total: 107.5}, nil)

	body := `{"items":[{"description":"X","amount":100}],"country":"US"}`
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)
	core.AssertExpectations(t)
}

func TestCreateHandlerRejectsBadBody(t *testing.T) {
	core := &MockCore{}

	body := `{"items":[]}`
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
	core.AssertNotCalled(t, "InvoiceCreate")
}

func TestCreateHandlerValidationError(t *testing.T) {
	core := &MockCore{}
	core.On("InvoiceCreate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, invoices.ErrValidation)

	body := `{"items":[{"description":"X","amount":100}]}`
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHandler(t *testing.T) {
	core := &MockCore{}
	core.On("InvoiceList", mock.Anything, mock.Anything, "paid").
		Return([]*entity.Invoice{{Id: "inv-1", Paid: true}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/invoices?status=paid", nil)
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
	core.AssertExpectations(t)
}

func TestListHandlerUpstreamError(t *testing.T) {
	core := &MockCore{}
	core.On("InvoiceList", mock.Anything, mock.Anything, "").
		Return(nil, invoices.ErrUpstream)

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.NotContains(t, envelope.StatusMessage, "store", "store detail must not leak")
}

func TestPayHandler(t *testing.T) {
	core := &MockCore{}
	core.On("InvoiceMarkPaid", mock.Anything, mock.Anything, "inv-1").
		Return(&entity.Invoice{Id: "inv-1", Paid: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/invoices/inv-1/pay", nil)
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
	core.AssertExpectations(t)
}

func TestPayHandlerNotFound(t *testing.T) {
	core := &MockCore{}
	core.On("InvoiceMarkPaid", mock.Anything, mock.Anything, "inv-x").
		Return(nil, invoices.ErrNotFound)

	req := httptest.NewRequest(http.MethodPost, "/invoices/inv-x/pay", nil)
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestSummaryHandler(t *testing.T) {
	core := &MockCore{}
	core.On("InvoiceSummary", mock.Anything, mock.Anything).
		Return(&entity.Summary{TotalRevenue: 157.5, TotalVat: 12.5, Outstanding: 1, Paid: 1, Total: 2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/invoices/summary", nil)
	rec := httptest.NewRecorder()
	testRouter(core).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalRevenue":157.5,"totalVat":12.5,"outstanding":1,"paid":1,"total":2}`, string(data))
}
