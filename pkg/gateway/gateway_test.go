package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pranaypatel512/KiteMCP/pkg/analytics"
	"github.com/pranaypatel512/KiteMCP/pkg/kite"
	"github.com/pranaypatel512/KiteMCP/pkg/models"
)

// fakeClient is an in-memory kite.Client that records adapter contact.
type fakeClient struct {
	calls int

	token       string
	sessionErr  error
	upstreamErr error

	holdings  []models.Holding
	positions models.Positions
	margins   models.AllMargins
	orders    []models.Order
}

func (f *fakeClient) LoginURL() string { return "https://kite.zerodha.com/connect/login?v=3&api_key=x" }

func (f *fakeClient) GenerateSession(_ context.Context, requestToken string) (string, error) {
	f.calls++
	if requestToken == "" {
		return "", kite.ErrInvalidCredentials
	}
	if f.sessionErr != nil {
		return "", f.sessionErr
	}
	return "access-token-1", nil
}

func (f *fakeClient) SetAccessToken(token string) { f.token = token }

func (f *fakeClient) InvalidateSession(context.Context) error { f.token = ""; return nil }

func (f *fakeClient) Holdings(context.Context) ([]models.Holding, error) {
	f.calls++
	return f.holdings, f.upstreamErr
}

func (f *fakeClient) Positions(context.Context) (models.Positions, error) {
	f.calls++
	return f.positions, f.upstreamErr
}

func (f *fakeClient) Margins(context.Context) (models.AllMargins, error) {
	f.calls++
	return f.margins, f.upstreamErr
}

func (f *fakeClient) Orders(context.Context) ([]models.Order, error) {
	f.calls++
	return f.orders, f.upstreamErr
}

func (f *fakeClient) PlaceOrder(_ context.Context, params models.OrderParams) (string, error) {
	f.calls++
	if f.upstreamErr != nil {
		return "", f.upstreamErr
	}
	return "order-1", nil
}

func (f *fakeClient) CancelOrder(_ context.Context, orderID string) error {
	f.calls++
	return f.upstreamErr
}

func (f *fakeClient) Quote(_ context.Context, symbols []string) (map[string]models.Quote, error) {
	f.calls++
	if f.upstreamErr != nil {
		return nil, f.upstreamErr
	}
	out := make(map[string]models.Quote, len(symbols))
	for _, s := range symbols {
		out[s] = models.Quote{LastPrice: 100}
	}
	return out, nil
}

func (f *fakeClient) LTP(_ context.Context, symbols []string) (map[string]models.LTP, error) {
	f.calls++
	if f.upstreamErr != nil {
		return nil, f.upstreamErr
	}
	out := make(map[string]models.LTP, len(symbols))
	for _, s := range symbols {
		out[s] = models.LTP{LastPrice: 100}
	}
	return out, nil
}

func (f *fakeClient) HistoricalData(context.Context, int, time.Time, time.Time, string) ([]models.Candle, error) {
	f.calls++
	return nil, f.upstreamErr
}

func (f *fakeClient) MFHoldings(context.Context) ([]models.MFHolding, error) {
	f.calls++
	return nil, f.upstreamErr
}

func (f *fakeClient) MFOrders(context.Context) ([]models.MFOrder, error) {
	f.calls++
	return nil, f.upstreamErr
}

func (f *fakeClient) MFSIPs(context.Context) ([]models.MFSIP, error) {
	f.calls++
	return nil, f.upstreamErr
}

func newTestGateway(client *fakeClient) *Gateway {
	logger := testLogger()
	return New(client, NewSession(), NewRegistry(logger), analytics.NewEngine(nil), logger)
}

func TestGateway_UnauthenticatedNeverContactsAdapter(t *testing.T) {
	client := &fakeClient{}
	gw := newTestGateway(client)
	ctx := context.Background()

	ops := map[string]func() error{
		"holdings":  func() error { _, err := gw.Holdings(ctx); return err },
		"positions": func() error { _, err := gw.Positions(ctx); return err },
		"margins":   func() error { _, err := gw.Margins(ctx); return err },
		"orders":    func() error { _, err := gw.Orders(ctx); return err },
		"quote":     func() error { _, err := gw.Quote(ctx, []string{"NSE:TCS"}); return err },
		"ltp":       func() error { _, err := gw.LTP(ctx, []string{"NSE:TCS"}); return err },
		"dashboard": func() error { _, err := gw.Dashboard(ctx); return err },
		"analytics": func() error { _, err := gw.Analytics(ctx); return err },
		"place_order": func() error {
			_, err := gw.PlaceOrder(ctx, models.OrderParams{TradingSymbol: "TCS", Quantity: 1, TransactionType: "BUY"})
			return err
		},
		"cancel_order": func() error { return gw.CancelOrder(ctx, "order-1") },
		"mf_holdings":  func() error { _, err := gw.MFHoldings(ctx); return err },
		"mf_orders":    func() error { _, err := gw.MFOrders(ctx); return err },
		"mf_sips":      func() error { _, err := gw.MFSIPs(ctx); return err },
	}

	for name, op := range ops {
		err := op()
		if AsError(err).Code != CodeUnauthenticated {
			t.Fatalf("%s: expected Unauthenticated, got %v", name, err)
		}
	}
	if client.calls != 0 {
		t.Fatalf("expected no adapter contact while unauthenticated, got %d calls", client.calls)
	}
}

func TestGateway_LoginSetsSession(t *testing.T) {
	client := &fakeClient{}
	gw := newTestGateway(client)

	if err := gw.Login(context.Background(), "req-token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gw.Session().IsAuthenticated() {
		t.Fatal("expected session authenticated after login")
	}
	token, _ := gw.Session().CurrentToken()
	if token != "access-token-1" {
		t.Fatalf("expected access-token-1, got %q", token)
	}
}

func TestGateway_LoginEmptyTokenIsInvalidCredentials(t *testing.T) {
	gw := newTestGateway(&fakeClient{})

	err := gw.Login(context.Background(), "")
	if AsError(err).Code != CodeInvalidCredentials {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
	if gw.Session().IsAuthenticated() {
		t.Fatal("session must stay unauthenticated after failed login")
	}
}

func TestGateway_UpstreamFailureIsClassified(t *testing.T) {
	client := &fakeClient{upstreamErr: errors.New("kite: gateway timeout")}
	gw := newTestGateway(client)
	gw.Session().SetToken("tok")

	_, err := gw.Holdings(context.Background())
	gwErr := AsError(err)
	if gwErr.Code != CodeUpstreamError {
		t.Fatalf("expected UpstreamError, got %v", gwErr.Code)
	}
	if gwErr.Message == "" {
		t.Fatal("expected upstream message passed through")
	}
}

func TestGateway_PlaceOrderValidation(t *testing.T) {
	client := &fakeClient{}
	gw := newTestGateway(client)
	gw.Session().SetToken("tok")

	tests := []struct {
		name   string
		params models.OrderParams
	}{
		{"missing symbol", models.OrderParams{Quantity: 1, TransactionType: "BUY"}},
		{"zero quantity", models.OrderParams{TradingSymbol: "TCS", Quantity: 0, TransactionType: "BUY"}},
		{"negative quantity", models.OrderParams{TradingSymbol: "TCS", Quantity: -5, TransactionType: "BUY"}},
		{"bad transaction type", models.OrderParams{TradingSymbol: "TCS", Quantity: 1, TransactionType: "HOLD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gw.PlaceOrder(context.Background(), tt.params)
			if AsError(err).Code != CodeValidationError {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	if client.calls != 0 {
		t.Fatalf("invalid orders must not reach the adapter, got %d calls", client.calls)
	}

	orderID, err := gw.PlaceOrder(context.Background(), models.OrderParams{
		TradingSymbol: "TCS", Quantity: 1, TransactionType: "BUY", OrderType: "MARKET",
	})
	if err != nil || orderID != "order-1" {
		t.Fatalf("expected order-1, got %q (%v)", orderID, err)
	}
}

func TestGateway_DashboardFiltersSnapshot(t *testing.T) {
	client := &fakeClient{
		holdings: []models.Holding{
			{TradingSymbol: "TCS", Quantity: 10, LastPrice: 110},
			{TradingSymbol: "INFY", Quantity: 0, LastPrice: 60},
		},
		positions: models.Positions{
			Net: []models.Position{
				{TradingSymbol: "SBIN", Quantity: 50},
				{TradingSymbol: "WIPRO", Quantity: 0},
			},
		},
	}
	gw := newTestGateway(client)
	gw.Session().SetToken("tok")

	data, err := gw.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data.Portfolio) != 1 || data.Portfolio[0].TradingSymbol != "TCS" {
		t.Fatalf("expected only TCS in portfolio, got %+v", data.Portfolio)
	}
	if len(data.Positions) != 1 || data.Positions[0].TradingSymbol != "SBIN" {
		t.Fatalf("expected only SBIN in positions, got %+v", data.Positions)
	}
}

func TestGateway_LogoutClearsSession(t *testing.T) {
	client := &fakeClient{}
	gw := newTestGateway(client)
	gw.Session().SetToken("tok")

	if err := gw.Logout(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.Session().IsAuthenticated() {
		t.Fatal("expected session cleared after logout")
	}
}
