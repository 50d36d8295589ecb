package gateway

import (
	"context"
	"time"

	"github.com/pranaypatel512/KiteMCP/pkg/analytics"
	"github.com/pranaypatel512/KiteMCP/pkg/kite"
	"github.com/pranaypatel512/KiteMCP/pkg/models"
	"github.com/sirupsen/logrus"
)

// Gateway is the session-scoped broker facade shared by the WebSocket router
// and the REST surface. Every data operation checks the session before
// touching the upstream adapter and maps failures into the gateway error
// taxonomy.
type Gateway struct {
	client   kite.Client
	session  *Session
	registry *Registry
	engine   *analytics.Engine
	logger   *logrus.Logger
}

func New(client kite.Client, session *Session, registry *Registry, engine *analytics.Engine, logger *logrus.Logger) *Gateway {
	return &Gateway{
		client:   client,
		session:  session,
		registry: registry,
		engine:   engine,
		logger:   logger,
	}
}

func (g *Gateway) Session() *Session   { return g.session }
func (g *Gateway) Registry() *Registry { return g.registry }

// LoginURL returns the hosted brokerage login page URL.
func (g *Gateway) LoginURL() string {
	return g.client.LoginURL()
}

// Login exchanges a request token for an access token and installs it in the
// session. An empty or rejected token fails with InvalidCredentials.
func (g *Gateway) Login(ctx context.Context, requestToken string) error {
	token, err := g.client.GenerateSession(ctx, requestToken)
	if err != nil {
		g.logger.WithError(err).Warn("Token exchange failed")
		return classify(err)
	}

	g.session.SetToken(token)
	g.logger.Info("Session established")
	return nil
}

// Authenticate installs an already-obtained access token (the WebSocket auth
// path). Empty tokens are rejected.
func (g *Gateway) Authenticate(token string) error {
	if token == "" {
		return &Error{Code: CodeInvalidCredentials, Message: "access token is empty"}
	}
	g.session.SetToken(token)
	g.client.SetAccessToken(token)
	return nil
}

// Logout revokes the upstream session and clears the local token. The local
// state is cleared even when the upstream call fails.
func (g *Gateway) Logout(ctx context.Context) error {
	err := g.client.InvalidateSession(ctx)
	g.session.ClearToken()
	if err != nil {
		g.logger.WithError(err).Warn("Upstream session invalidation failed")
		return classify(err)
	}
	g.logger.Info("Session cleared")
	return nil
}

// ensureAuth fails with Unauthenticated before any adapter contact when the
// session holds no token.
func (g *Gateway) ensureAuth() *Error {
	if !g.session.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func (g *Gateway) Holdings(ctx context.Context) ([]models.Holding, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	holdings, err := g.client.Holdings(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return holdings, nil
}

func (g *Gateway) Positions(ctx context.Context) (models.Positions, error) {
	if err := g.ensureAuth(); err != nil {
		return models.Positions{}, err
	}
	positions, err := g.client.Positions(ctx)
	if err != nil {
		return models.Positions{}, classify(err)
	}
	return positions, nil
}

func (g *Gateway) Margins(ctx context.Context) (models.AllMargins, error) {
	if err := g.ensureAuth(); err != nil {
		return models.AllMargins{}, err
	}
	margins, err := g.client.Margins(ctx)
	if err != nil {
		return models.AllMargins{}, classify(err)
	}
	return margins, nil
}

func (g *Gateway) Orders(ctx context.Context) ([]models.Order, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	orders, err := g.client.Orders(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return orders, nil
}

// PlaceOrder validates the order parameters before handing them upstream.
func (g *Gateway) PlaceOrder(ctx context.Context, params models.OrderParams) (string, error) {
	if err := g.ensureAuth(); err != nil {
		return "", err
	}
	if params.TradingSymbol == "" {
		return "", validationError("tradingsymbol is required")
	}
	if params.Quantity <= 0 {
		return "", validationError("quantity must be a positive integer")
	}
	if params.TransactionType != "BUY" && params.TransactionType != "SELL" {
		return "", validationError("transaction_type must be BUY or SELL")
	}

	orderID, err := g.client.PlaceOrder(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	g.logger.WithField("order_id", orderID).Info("Order placed")
	return orderID, nil
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	if err := g.ensureAuth(); err != nil {
		return err
	}
	if orderID == "" {
		return validationError("order_id is required")
	}
	if err := g.client.CancelOrder(ctx, orderID); err != nil {
		return classify(err)
	}
	g.logger.WithField("order_id", orderID).Info("Order cancelled")
	return nil
}

func (g *Gateway) Quote(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, validationError("at least one symbol is required")
	}
	quotes, err := g.client.Quote(ctx, symbols)
	if err != nil {
		return nil, classify(err)
	}
	return quotes, nil
}

func (g *Gateway) LTP(ctx context.Context, symbols []string) (map[string]models.LTP, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, validationError("at least one symbol is required")
	}
	ltps, err := g.client.LTP(ctx, symbols)
	if err != nil {
		return nil, classify(err)
	}
	return ltps, nil
}

func (g *Gateway) HistoricalData(ctx context.Context, instrumentToken int, from, to time.Time, interval string) ([]models.Candle, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	if instrumentToken <= 0 {
		return nil, validationError("instrument_token must be a positive integer")
	}
	if interval == "" {
		return nil, validationError("interval is required")
	}
	candles, err := g.client.HistoricalData(ctx, instrumentToken, from, to, interval)
	if err != nil {
		return nil, classify(err)
	}
	return candles, nil
}

func (g *Gateway) MFHoldings(ctx context.Context) ([]models.MFHolding, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	out, err := g.client.MFHoldings(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (g *Gateway) MFOrders(ctx context.Context) ([]models.MFOrder, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	out, err := g.client.MFOrders(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (g *Gateway) MFSIPs(ctx context.Context) ([]models.MFSIP, error) {
	if err := g.ensureAuth(); err != nil {
		return nil, err
	}
	out, err := g.client.MFSIPs(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// DashboardData is the portfolio snapshot backing the dashboard page:
// holdings filtered to owned quantity, open net positions, and margins.
type DashboardData struct {
	Portfolio []models.Holding  `json:"portfolio"`
	Positions []models.Position `json:"positions"`
	Margins   models.AllMargins `json:"margins"`
}

// Dashboard fetches a fresh snapshot; nothing is cached between calls.
func (g *Gateway) Dashboard(ctx context.Context) (DashboardData, error) {
	if err := g.ensureAuth(); err != nil {
		return DashboardData{}, err
	}

	holdings, err := g.client.Holdings(ctx)
	if err != nil {
		return DashboardData{}, classify(err)
	}
	positions, err := g.client.Positions(ctx)
	if err != nil {
		return DashboardData{}, classify(err)
	}
	margins, err := g.client.Margins(ctx)
	if err != nil {
		return DashboardData{}, classify(err)
	}

	portfolio := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.Quantity > 0 {
			portfolio = append(portfolio, h)
		}
	}

	open := make([]models.Position, 0, len(positions.Net))
	for _, p := range positions.Net {
		if p.Quantity != 0 {
			open = append(open, p)
		}
	}

	return DashboardData{
		Portfolio: portfolio,
		Positions: open,
		Margins:   margins,
	}, nil
}

// Analytics runs a fresh holdings/positions snapshot through the analytics
// engine.
func (g *Gateway) Analytics(ctx context.Context) (models.AnalyticsReport, error) {
	if err := g.ensureAuth(); err != nil {
		return models.AnalyticsReport{}, err
	}

	holdings, err := g.client.Holdings(ctx)
	if err != nil {
		return models.AnalyticsReport{}, classify(err)
	}
	positions, err := g.client.Positions(ctx)
	if err != nil {
		return models.AnalyticsReport{}, classify(err)
	}

	return g.engine.Compute(holdings, positions), nil
}
