package kite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pranaypatel512/KiteMCP/pkg/models"
	"golang.org/x/time/rate"
)

// Client is the brokerage adapter consumed by the gateway. All data calls
// require an access token previously installed with SetAccessToken.
type Client interface {
	LoginURL() string
	GenerateSession(ctx context.Context, requestToken string) (string, error)
	SetAccessToken(token string)
	InvalidateSession(ctx context.Context) error

	Holdings(ctx context.Context) ([]models.Holding, error)
	Positions(ctx context.Context) (models.Positions, error)
	Margins(ctx context.Context) (models.AllMargins, error)
	Orders(ctx context.Context) ([]models.Order, error)
	PlaceOrder(ctx context.Context, params models.OrderParams) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
	Quote(ctx context.Context, symbols []string) (map[string]models.Quote, error)
	LTP(ctx context.Context, symbols []string) (map[string]models.LTP, error)
	HistoricalData(ctx context.Context, instrumentToken int, from, to time.Time, interval string) ([]models.Candle, error)

	MFHoldings(ctx context.Context) ([]models.MFHolding, error)
	MFOrders(ctx context.Context) ([]models.MFOrder, error)
	MFSIPs(ctx context.Context) ([]models.MFSIP, error)
}

const (
	apiBaseURL   = "https://api.kite.trade"
	loginBaseURL = "https://kite.zerodha.com/connect/login"
	kiteVersion  = "3"

	// Kite Connect caps clients at roughly 3 requests per second.
	requestsPerSecond = 3
)

// RESTClient talks to the Kite Connect v3 HTTP API.
type RESTClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu          sync.RWMutex
	accessToken string
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(apiKey, apiSecret string) *RESTClient {
	return &RESTClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    apiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// LoginURL builds the hosted login page URL the browser is redirected to.
func (c *RESTClient) LoginURL() string {
	return fmt.Sprintf("%s?v=%s&api_key=%s", loginBaseURL, kiteVersion, url.QueryEscape(c.apiKey))
}

// GenerateSession exchanges a request token for an access token. The checksum
// is SHA-256 over api_key + request_token + api_secret per the Kite contract.
func (c *RESTClient) GenerateSession(ctx context.Context, requestToken string) (string, error) {
	if requestToken == "" {
		return "", ErrInvalidCredentials
	}

	sum := sha256.Sum256([]byte(c.apiKey + requestToken + c.apiSecret))
	form := url.Values{
		"api_key":       {c.apiKey},
		"request_token": {requestToken},
		"checksum":      {hex.EncodeToString(sum[:])},
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/session/token", form, &data); err != nil {
		var apiErr *APIError
		if isTokenError(err, &apiErr) {
			return "", fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
		}
		return "", err
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("%w: no access_token in response", ErrInvalidCredentials)
	}

	c.SetAccessToken(data.AccessToken)
	return data.AccessToken, nil
}

func (c *RESTClient) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// InvalidateSession revokes the current access token upstream and clears it
// locally. Safe to call when no token is set.
func (c *RESTClient) InvalidateSession(ctx context.Context) error {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token == "" {
		return nil
	}

	form := url.Values{
		"api_key":      {c.apiKey},
		"access_token": {token},
	}
	err := c.do(ctx, http.MethodDelete, "/session/token", form, nil)
	c.SetAccessToken("")
	return err
}

func (c *RESTClient) Holdings(ctx context.Context) ([]models.Holding, error) {
	var out []models.Holding
	if err := c.do(ctx, http.MethodGet, "/portfolio/holdings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// positionPayload tolerates both spellings of the net quantity field seen in
// the upstream API; the canonical model field is Quantity.
type positionPayload struct {
	models.Position
	NetQuantity int `json:"net_quantity"`
}

func (c *RESTClient) Positions(ctx context.Context) (models.Positions, error) {
	var raw struct {
		Net []positionPayload `json:"net"`
		Day []positionPayload `json:"day"`
	}
	if err := c.do(ctx, http.MethodGet, "/portfolio/positions", nil, &raw); err != nil {
		return models.Positions{}, err
	}
	return models.Positions{
		Net: normalizePositions(raw.Net),
		Day: normalizePositions(raw.Day),
	}, nil
}

func normalizePositions(in []positionPayload) []models.Position {
	out := make([]models.Position, 0, len(in))
	for _, p := range in {
		pos := p.Position
		if pos.Quantity == 0 && p.NetQuantity != 0 {
			pos.Quantity = p.NetQuantity
		}
		out = append(out, pos)
	}
	return out
}

func (c *RESTClient) Margins(ctx context.Context) (models.AllMargins, error) {
	var out models.AllMargins
	if err := c.do(ctx, http.MethodGet, "/user/margins", nil, &out); err != nil {
		return models.AllMargins{}, err
	}
	return out, nil
}

func (c *RESTClient) Orders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) PlaceOrder(ctx context.Context, params models.OrderParams) (string, error) {
	form := url.Values{
		"tradingsymbol":    {params.TradingSymbol},
		"exchange":         {params.Exchange},
		"transaction_type": {params.TransactionType},
		"order_type":       {params.OrderType},
		"product":          {params.Product},
		"quantity":         {fmt.Sprintf("%d", params.Quantity)},
	}
	if params.Price != 0 {
		form.Set("price", fmt.Sprintf("%f", params.Price))
	}
	if params.TriggerPrice != 0 {
		form.Set("trigger_price", fmt.Sprintf("%f", params.TriggerPrice))
	}
	if params.Validity != "" {
		form.Set("validity", params.Validity)
	}

	var data struct {
		OrderID string `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/regular", form, &data); err != nil {
		return "", err
	}
	return data.OrderID, nil
}

func (c *RESTClient) CancelOrder(ctx context.Context, orderID string) error {
	var data struct {
		OrderID string `json:"order_id"`
	}
	return c.do(ctx, http.MethodDelete, "/orders/regular/"+url.PathEscape(orderID), nil, &data)
}

func (c *RESTClient) Quote(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	var out map[string]models.Quote
	if err := c.do(ctx, http.MethodGet, "/quote?"+instrumentQuery(symbols), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) LTP(ctx context.Context, symbols []string) (map[string]models.LTP, error) {
	var out map[string]models.LTP
	if err := c.do(ctx, http.MethodGet, "/quote/ltp?"+instrumentQuery(symbols), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func instrumentQuery(symbols []string) string {
	q := url.Values{}
	for _, s := range symbols {
		q.Add("i", s)
	}
	return q.Encode()
}

func (c *RESTClient) HistoricalData(ctx context.Context, instrumentToken int, from, to time.Time, interval string) ([]models.Candle, error) {
	const layout = "2006-01-02 15:04:05"
	q := url.Values{
		"from": {from.Format(layout)},
		"to":   {to.Format(layout)},
	}
	path := fmt.Sprintf("/instruments/historical/%d/%s?%s", instrumentToken, url.PathEscape(interval), q.Encode())

	// Candles come back as positional arrays, not objects.
	var data struct {
		Candles [][]any `json:"candles"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(data.Candles))
	for _, row := range data.Candles {
		if len(row) < 6 {
			continue
		}
		ts, _ := row[0].(string)
		date, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		candles = append(candles, models.Candle{
			Date:   date,
			Open:   asFloat(row[1]),
			High:   asFloat(row[2]),
			Low:    asFloat(row[3]),
			Close:  asFloat(row[4]),
			Volume: int64(asFloat(row[5])),
		})
	}
	return candles, nil
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func (c *RESTClient) MFHoldings(ctx context.Context) ([]models.MFHolding, error) {
	var out []models.MFHolding
	if err := c.do(ctx, http.MethodGet, "/mf/holdings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) MFOrders(ctx context.Context) ([]models.MFOrder, error) {
	var out []models.MFOrder
	if err := c.do(ctx, http.MethodGet, "/mf/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RESTClient) MFSIPs(ctx context.Context) ([]models.MFSIP, error) {
	var out []models.MFSIP
	if err := c.do(ctx, http.MethodGet, "/mf/sips", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// envelope is the standard Kite response wrapper.
type envelope struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

func (c *RESTClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("X-Kite-Version", kiteVersion)

	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token == "" && path != "/session/token" {
		return ErrNotAuthorized
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+c.apiKey+":"+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kite request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("kite: malformed response: %w", err)
	}

	if resp.StatusCode >= 400 || env.Status == "error" {
		return &APIError{
			Status:    resp.StatusCode,
			ErrorType: env.ErrorType,
			Message:   env.Message,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("kite: decoding %s response: %w", path, err)
		}
	}
	return nil
}

func isTokenError(err error, target **APIError) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	*target = apiErr
	return apiErr.ErrorType == "TokenException" || apiErr.Status == http.StatusForbidden || apiErr.Status == http.StatusBadRequest
}
