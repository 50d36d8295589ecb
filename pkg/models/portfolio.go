package models

import (
	"time"
)

// Holding is a settled, owned quantity of an instrument as reported by the
// brokerage holdings endpoint.
type Holding struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Exchange      string  `json:"exchange"`
	ISIN          string  `json:"isin"`
	Quantity      int     `json:"quantity"`
	T1Quantity    int     `json:"t1_quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	ClosePrice    float64 `json:"close_price"`
	PnL           float64 `json:"pnl"`
	DayChange     float64 `json:"day_change"`
	DayChangePct  float64 `json:"day_change_percentage"`
}

// MarketValue is the holding's current worth at the last traded price.
func (h Holding) MarketValue() float64 {
	return float64(h.Quantity) * h.LastPrice
}

// Position is an open exposure to an instrument. Quantity is the net quantity
// of the day book; the adapter normalizes the upstream net_quantity field into
// it so callers never see both spellings.
type Position struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Exchange      string  `json:"exchange"`
	Product       string  `json:"product"`
	Quantity      int     `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	PnL           float64 `json:"pnl"`
	M2M           float64 `json:"m2m"`
}

// Positions holds the two position books returned by the brokerage.
type Positions struct {
	Net []Position `json:"net"`
	Day []Position `json:"day"`
}

// Margins reports available and utilised funds for one segment.
type Margins struct {
	Enabled   bool           `json:"enabled"`
	Net       float64        `json:"net"`
	Available MarginsBucket  `json:"available"`
	Utilised  map[string]any `json:"utilised"`
}

type MarginsBucket struct {
	Cash           float64 `json:"cash"`
	Collateral     float64 `json:"collateral"`
	IntradayPayin  float64 `json:"intraday_payin"`
	LiveBalance    float64 `json:"live_balance"`
	OpeningBalance float64 `json:"opening_balance"`
}

// AllMargins holds per-segment margins.
type AllMargins struct {
	Equity    Margins `json:"equity"`
	Commodity Margins `json:"commodity"`
}

// Order is a single order from the order book.
type Order struct {
	OrderID         string    `json:"order_id"`
	TradingSymbol   string    `json:"tradingsymbol"`
	Exchange        string    `json:"exchange"`
	TransactionType string    `json:"transaction_type"`
	OrderType       string    `json:"order_type"`
	Product         string    `json:"product"`
	Quantity        int       `json:"quantity"`
	FilledQuantity  int       `json:"filled_quantity"`
	PendingQuantity int       `json:"pending_quantity"`
	Price           float64   `json:"price"`
	AveragePrice    float64   `json:"average_price"`
	TriggerPrice    float64   `json:"trigger_price"`
	Status          string    `json:"status"`
	StatusMessage   string    `json:"status_message"`
	OrderTimestamp  time.Time `json:"order_timestamp"`
}

// OrderParams carries the user-supplied fields of a new order.
type OrderParams struct {
	TradingSymbol   string  `json:"tradingsymbol"`
	Exchange        string  `json:"exchange"`
	TransactionType string  `json:"transaction_type"`
	OrderType       string  `json:"order_type"`
	Product         string  `json:"product"`
	Quantity        int     `json:"quantity"`
	Price           float64 `json:"price"`
	TriggerPrice    float64 `json:"trigger_price"`
	Validity        string  `json:"validity"`
}

// Quote is a full market quote for one instrument.
type Quote struct {
	InstrumentToken int     `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
	LastQuantity    int     `json:"last_quantity"`
	Volume          int64   `json:"volume"`
	AveragePrice    float64 `json:"average_price"`
	OHLC            OHLC    `json:"ohlc"`
	NetChange       float64 `json:"net_change"`
}

type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// LTP is the minimal last-traded-price quote.
type LTP struct {
	InstrumentToken int     `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
}

// Candle is one bar of historical data.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// MFHolding is a mutual-fund holding.
type MFHolding struct {
	Folio         string  `json:"folio"`
	Fund          string  `json:"fund"`
	TradingSymbol string  `json:"tradingsymbol"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price"`
	PnL           float64 `json:"pnl"`
	Quantity      float64 `json:"quantity"`
}

// MFOrder is a mutual-fund order.
type MFOrder struct {
	OrderID         string    `json:"order_id"`
	TradingSymbol   string    `json:"tradingsymbol"`
	Fund            string    `json:"fund"`
	TransactionType string    `json:"transaction_type"`
	Amount          float64   `json:"amount"`
	Quantity        float64   `json:"quantity"`
	Status          string    `json:"status"`
	OrderTimestamp  time.Time `json:"order_timestamp"`
}

// MFSIP is a recurring scheduled mutual-fund investment.
type MFSIP struct {
	SIPID            string    `json:"sip_id"`
	TradingSymbol    string    `json:"tradingsymbol"`
	Fund             string    `json:"fund"`
	InstalmentAmount float64   `json:"instalment_amount"`
	Instalments      int       `json:"instalments"`
	Frequency        string    `json:"frequency"`
	Status           string    `json:"status"`
	Created          time.Time `json:"created"`
}
