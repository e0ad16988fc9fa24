package payment

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khipudemo/khipu-payments/internal/domain"
	"github.com/khipudemo/khipu-payments/internal/platform/khipu"
)

// fakeGateway records calls and returns canned results.
type fakeGateway struct {
	generation string
	trace      *[]string

	createCalls int
	getCalls    int
	listCalls   int
	bankCalls   int

	lastRequest domain.PaymentRequest
	lastFilter  domain.PaymentFilter

	createErr error
	getErr    error
	banks     []domain.Bank
	bankErr   error
}

func (f *fakeGateway) Generation() string { return f.generation }

func (f *fakeGateway) CreatePayment(_ context.Context, req domain.PaymentRequest) (*domain.PaymentResponse, error) {
	f.createCalls++
	f.lastRequest = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.PaymentResponse{PaymentID: "p-1", PaymentURL: "https://khipu.com/payment/info/p-1"}, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, id string) (*domain.PaymentInfo, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.PaymentInfo{PaymentID: id, Status: "done"}, nil
}

func (f *fakeGateway) ListPayments(_ context.Context, filter domain.PaymentFilter) (*domain.PaymentList, error) {
	f.listCalls++
	f.lastFilter = filter
	return &domain.PaymentList{Page: filter.Page}, nil
}

func (f *fakeGateway) ListBanks(context.Context) ([]domain.Bank, error) {
	f.bankCalls++
	if f.trace != nil {
		*f.trace = append(*f.trace, f.generation)
	}
	if f.bankErr != nil {
		return nil, f.bankErr
	}
	return f.banks, nil
}

func newTestService(t *testing.T, gw domain.PaymentGateway, cfg Config, fallbacks ...domain.PaymentGateway) *Service {
	t.Helper()
	svc, err := NewService(gw, fallbacks, cfg, nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc
}

func validRequest() domain.PaymentRequest {
	return domain.PaymentRequest{Amount: 1000, Currency: "CLP", Subject: "Test"}
}

func TestNewService(t *testing.T) {
	_, err := NewService(nil, nil, Config{}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewService(&fakeGateway{}, nil, Config{Limits: Limits{MinAmount: 500, MaxAmount: 100}}, nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCreatePayment_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   domain.PaymentRequest
		field string
	}{
		{"ZeroAmount", domain.PaymentRequest{Amount: 0, Currency: "CLP", Subject: "Test"}, "amount"},
		{"NegativeAmount", domain.PaymentRequest{Amount: -5, Currency: "CLP", Subject: "Test"}, "amount"},
		{"MissingCurrency", domain.PaymentRequest{Amount: 1000, Subject: "Test"}, "currency"},
		{"BadCurrency", domain.PaymentRequest{Amount: 1000, Currency: "PESOS", Subject: "Test"}, "currency"},
		{"BlankSubject", domain.PaymentRequest{Amount: 1000, Currency: "CLP", Subject: "   "}, "subject"},
		{"BadEmail", domain.PaymentRequest{Amount: 1000, Currency: "CLP", Subject: "Test", PayerEmail: "nope"}, "payer_email"},
		{"InfiniteAmount", domain.PaymentRequest{Amount: math.Inf(1), Currency: "CLP", Subject: "Test"}, "amount"},
		{"NegativeInfiniteAmount", domain.PaymentRequest{Amount: math.Inf(-1), Currency: "CLP", Subject: "Test"}, "amount"},
		{"NaNAmount", domain.PaymentRequest{Amount: math.NaN(), Currency: "CLP", Subject: "Test"}, "amount"},
		{"BadReturnURL", domain.PaymentRequest{Amount: 1000, Currency: "CLP", Subject: "Test", ReturnURL: "not a url"}, "return_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{generation: "v3"}
			svc := newTestService(t, gw, Config{BaseURL: "https://shop.example.com"})

			_, err := svc.CreatePayment(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, gw.createCalls)

			var pe *domain.PaymentError
			require.ErrorAs(t, err, &pe)
			var fields []string
			for _, d := range pe.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestCreatePayment_AmountLimits(t *testing.T) {
	gw := &fakeGateway{generation: "v3"}
	svc := newTestService(t, gw, Config{Limits: Limits{MinAmount: 100, MaxAmount: 5000}})

	req := validRequest()
	req.Amount = 50
	_, err := svc.CreatePayment(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "minimum")
	assert.Zero(t, gw.createCalls)

	req.Amount = 5001
	_, err = svc.CreatePayment(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "maximum")
	assert.Zero(t, gw.createCalls)

	req.Amount = 100
	_, err = svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.createCalls)
}

func TestCreatePayment_InfiniteAmountWithLimits(t *testing.T) {
	gw := &fakeGateway{generation: "v3"}
	svc := newTestService(t, gw, Config{Limits: Limits{MinAmount: 100, MaxAmount: 5000}})

	req := validRequest()
	req.Amount = math.Inf(1)
	assert.NotPanics(t, func() {
		_, err := svc.CreatePayment(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
	assert.Zero(t, gw.createCalls)
}

func TestCreatePayment_Defaults(t *testing.T) {
	gw := &fakeGateway{generation: "v3"}
	svc := newTestService(t, gw, Config{BaseURL: "https://shop.example.com/"})

	req := validRequest()
	req.Currency = "clp"
	req.Subject = "  Test  "
	resp, err := svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "p-1", resp.PaymentID)

	sent := gw.lastRequest
	assert.Equal(t, "CLP", sent.Currency)
	assert.Equal(t, "Test", sent.Subject)
	assert.Equal(t, "tx_1700000000000", sent.TransactionID)
	assert.Equal(t, "https://shop.example.com/payment/success", sent.ReturnURL)
	assert.Equal(t, "https://shop.example.com/payment/cancelled", sent.CancelURL)
	assert.Equal(t, "https://shop.example.com/api/notify", sent.NotifyURL)
}

func TestCreatePayment_CallerValuesKept(t *testing.T) {
	gw := &fakeGateway{generation: "v3"}
	svc := newTestService(t, gw, Config{BaseURL: "https://shop.example.com"})

	req := validRequest()
	req.TransactionID = "order-42"
	req.ReturnURL = "https://other.example.com/ok"
	req.NotifyURL = "https://hooks.example.com/khipu"
	_, err := svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "order-42", gw.lastRequest.TransactionID)
	assert.Equal(t, "https://other.example.com/ok", gw.lastRequest.ReturnURL)
	assert.Equal(t, "https://shop.example.com/payment/cancelled", gw.lastRequest.CancelURL)
	assert.Equal(t, "https://hooks.example.com/khipu", gw.lastRequest.NotifyURL)
}

func TestCreatePayment_LoopbackSkipsNotify(t *testing.T) {
	for _, base := range []string{"http://localhost:3000", "http://127.0.0.1:8080", "http://[::1]:8080"} {
		gw := &fakeGateway{generation: "v3"}
		svc := newTestService(t, gw, Config{BaseURL: base})

		_, err := svc.CreatePayment(context.Background(), validRequest())
		require.NoError(t, err)
		assert.Empty(t, gw.lastRequest.NotifyURL, base)
		assert.Equal(t, base+"/payment/success", gw.lastRequest.ReturnURL, base)
	}
}

func TestCreatePayment_GatewayErrorPassesThrough(t *testing.T) {
	providerErr := domain.NewPaymentError(domain.KindAuthentication, "invalid key")
	gw := &fakeGateway{generation: "v3", createErr: providerErr}
	svc := newTestService(t, gw, Config{})

	_, err := svc.CreatePayment(context.Background(), validRequest())
	assert.Same(t, providerErr, err)
}

func TestGetPaymentStatus(t *testing.T) {
	gw := &fakeGateway{generation: "v3"}
	svc := newTestService(t, gw, Config{})

	_, err := svc.GetPaymentStatus(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, gw.getCalls)

	info, err := svc.GetPaymentStatus(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", info.PaymentID)
	assert.Equal(t, 1, gw.getCalls)

	gw.getErr = domain.NewPaymentError(domain.KindNotFound, "payment not found")
	_, err = svc.GetPaymentStatus(context.Background(), "zzz")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPayments(t *testing.T) {
	gw := &fakeGateway{generation: "v3"}
	svc := newTestService(t, gw, Config{})

	_, err := svc.ListPayments(context.Background(), domain.PaymentFilter{Page: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, gw.listCalls)

	list, err := svc.ListPayments(context.Background(), domain.PaymentFilter{Page: 3, Status: "done"})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Page)
	assert.Equal(t, "done", gw.lastFilter.Status)
}

func TestListBanks(t *testing.T) {
	banks := []domain.Bank{{BankID: "b1", Name: "DemoBank"}}

	t.Run("PrimarySucceeds", func(t *testing.T) {
		primary := &fakeGateway{generation: "v3", banks: banks}
		fallback := &fakeGateway{generation: "v2"}
		svc := newTestService(t, primary, Config{}, fallback)

		got, err := svc.ListBanks(context.Background())
		require.NoError(t, err)
		assert.Equal(t, banks, got)
		assert.Zero(t, fallback.bankCalls)
	})

	t.Run("FallbackRecovers", func(t *testing.T) {
		var trace []string
		primary := &fakeGateway{generation: "v3", trace: &trace, bankErr: domain.NewPaymentError(domain.KindProviderServer, "down")}
		fallback := &fakeGateway{generation: "v2", trace: &trace, banks: banks}
		svc := newTestService(t, primary, Config{}, fallback)

		got, err := svc.ListBanks(context.Background())
		require.NoError(t, err)
		assert.Equal(t, banks, got)
		assert.Equal(t, []string{"v3", "v2"}, trace)
	})

	t.Run("LastErrorSurfaced", func(t *testing.T) {
		var trace []string
		primary := &fakeGateway{generation: "v3", trace: &trace, bankErr: domain.NewPaymentError(domain.KindTimeout, "slow")}
		fallback := &fakeGateway{generation: "v2", trace: &trace, bankErr: domain.NewPaymentError(domain.KindAuthentication, "bad signature")}
		svc := newTestService(t, primary, Config{}, fallback)

		_, err := svc.ListBanks(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAuthentication)
		assert.NotErrorIs(t, err, domain.ErrTimeout)
		assert.Equal(t, []string{"v3", "v2"}, trace)
	})

	t.Run("NoFallback", func(t *testing.T) {
		primary := &fakeGateway{generation: "v3", bankErr: domain.NewPaymentError(domain.KindConnectivity, "refused")}
		svc := newTestService(t, primary, Config{})

		_, err := svc.ListBanks(context.Background())
		assert.ErrorIs(t, err, domain.ErrConnectivity)
	})
}

func TestService_AgainstProvider(t *testing.T) {
	creds, err := khipu.NewCredentials("99", "key-abc-123", "s3cr3t")
	require.NoError(t, err)

	t.Run("InvalidKey", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid key"}`))
		}))
		defer srv.Close()

		client, err := khipu.NewClient(creds, khipu.Options{BaseURL: srv.URL})
		require.NoError(t, err)
		svc := newTestService(t, client, Config{BaseURL: "https://shop.example.com"})

		_, err = svc.CreatePayment(context.Background(), validRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAuthentication)
		assert.Contains(t, err.Error(), "invalid key")
	})

	t.Run("SlowProvider", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		client, err := khipu.NewClient(creds, khipu.Options{
			BaseURL:  srv.URL,
			Timeouts: khipu.Timeouts{Create: 50 * time.Millisecond},
		})
		require.NoError(t, err)
		svc := newTestService(t, client, Config{})

		_, err = svc.CreatePayment(context.Background(), validRequest())
		assert.ErrorIs(t, err, domain.ErrTimeout)
	})

	t.Run("BankFallbackAcrossGenerations", func(t *testing.T) {
		current := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer current.Close()
		legacy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "99", r.URL.Query().Get(khipu.IdentityKey))
			assert.NotEmpty(t, r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"banks":[{"bank_id":"b1","name":"DemoBank"}]}`))
		}))
		defer legacy.Close()

		primary, err := khipu.NewClient(creds, khipu.Options{BaseURL: current.URL})
		require.NoError(t, err)
		secondary, err := khipu.NewLegacyClient(creds, khipu.SchemeRaw, khipu.Options{BaseURL: legacy.URL})
		require.NoError(t, err)
		svc := newTestService(t, primary, Config{}, secondary)

		banks, err := svc.ListBanks(context.Background())
		require.NoError(t, err)
		require.Len(t, banks, 1)
		assert.Equal(t, "DemoBank", banks[0].Name)
	})
}
