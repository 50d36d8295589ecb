package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Inbound message, a tagged union over the "type" field.
type clientMessage struct {
	Type        string         `json:"type"`
	AccessToken string         `json:"access_token"`
	Symbols     []string       `json:"symbols"`
	Endpoint    string         `json:"endpoint"`
	Params      map[string]any `json:"params"`
}

const (
	msgAuth      = "auth"
	msgSubscribe = "subscribe"
	msgRequest   = "request"
)

type authResponse struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type subscriptionResponse struct {
	Type    string   `json:"type"`
	Status  string   `json:"status"`
	Symbols []string `json:"symbols"`
}

type dataResponse struct {
	Type     string `json:"type"`
	Endpoint string `json:"endpoint"`
	Data     any    `json:"data"`
}

type errorResponse struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"code,omitempty"`
}

// connState is the per-connection protocol state. Closed is implicit: the
// read loop has returned and the connection is unregistered.
type connState int

const (
	stateConnected connState = iota
	stateAuthenticated
)

// Router drives the per-connection protocol: it parses inbound messages,
// walks the Connected -> Authenticated state machine, and dispatches data
// requests through the gateway. Every failure is answered on the same
// connection; none terminates it.
type Router struct {
	gw     *Gateway
	logger *logrus.Logger
}

func NewRouter(gw *Gateway, logger *logrus.Logger) *Router {
	return &Router{gw: gw, logger: logger}
}

// Serve runs the protocol over conn until the peer disconnects or the socket
// errors. It blocks; the caller owns the goroutine.
func (r *Router) Serve(ctx context.Context, conn *WSConn) {
	id := r.gw.registry.Register(conn)
	defer r.gw.registry.Unregister(id)

	go conn.writePump()

	state := stateConnected
	conn.readLoop(func(raw []byte) {
		r.handleMessage(ctx, conn, id, &state, raw)
	})
}

func (r *Router) handleMessage(ctx context.Context, conn Sender, id connID, state *connState, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.send(conn, errorResponse{Type: "error", Message: "Invalid JSON format", Code: CodeProtocolError})
		return
	}

	switch msg.Type {
	case msgAuth:
		r.handleAuth(conn, state, msg)
	case msgSubscribe:
		r.handleSubscribe(conn, id, msg)
	case msgRequest:
		r.handleRequest(ctx, conn, msg)
	default:
		r.send(conn, errorResponse{
			Type:    "error",
			Message: fmt.Sprintf("Unknown message type %q", msg.Type),
			Code:    CodeProtocolError,
		})
	}
}

func (r *Router) handleAuth(conn Sender, state *connState, msg clientMessage) {
	if err := r.gw.Authenticate(msg.AccessToken); err != nil {
		gwErr := classify(err)
		r.send(conn, authResponse{Type: "auth_response", Status: "error", Message: gwErr.Message})
		return
	}
	*state = stateAuthenticated
	r.send(conn, authResponse{Type: "auth_response", Status: "success"})
}

func (r *Router) handleSubscribe(conn Sender, id connID, msg clientMessage) {
	r.gw.registry.SetSubscriptions(id, msg.Symbols)
	r.send(conn, subscriptionResponse{
		Type:    "subscription_response",
		Status:  "success",
		Symbols: msg.Symbols,
	})
}

func (r *Router) handleRequest(ctx context.Context, conn Sender, msg clientMessage) {
	handler, ok := endpoints[msg.Endpoint]
	if !ok {
		r.send(conn, errorResponse{Type: "error", Message: "Invalid endpoint", Code: CodeProtocolError})
		return
	}

	data, err := handler(ctx, r.gw, msg.Params)
	if err != nil {
		gwErr := classify(err)
		r.logger.WithError(err).WithField("endpoint", msg.Endpoint).Debug("Request failed")
		r.send(conn, errorResponse{Type: "error", Message: gwErr.Message, Code: gwErr.Code})
		return
	}

	r.send(conn, dataResponse{Type: "response", Endpoint: msg.Endpoint, Data: data})
}

// send failures are left to the read loop / registry to clean up; a response
// that cannot be queued is dropped.
func (r *Router) send(conn Sender, payload any) {
	if err := conn.Send(payload); err != nil {
		r.logger.WithError(err).Debug("Dropping response to unreachable client")
	}
}

// endpointHandler resolves one data endpoint against the gateway.
type endpointHandler func(ctx context.Context, gw *Gateway, params map[string]any) (any, error)

// endpoints is the exhaustive dispatch table for request messages.
var endpoints = map[string]endpointHandler{
	"portfolio": func(ctx context.Context, gw *Gateway, _ map[string]any) (any, error) {
		return gw.Dashboard(ctx)
	},
	"holdings": func(ctx context.Context, gw *Gateway, _ map[string]any) (any, error) {
		return gw.Holdings(ctx)
	},
	"positions": func(ctx context.Context, gw *Gateway, _ map[string]any) (any, error) {
		return gw.Positions(ctx)
	},
	"orders": func(ctx context.Context, gw *Gateway, _ map[string]any) (any, error) {
		return gw.Orders(ctx)
	},
	"margins": func(ctx context.Context, gw *Gateway, _ map[string]any) (any, error) {
		return gw.Margins(ctx)
	},
	"quote": func(ctx context.Context, gw *Gateway, params map[string]any) (any, error) {
		symbols, err := symbolsParam(params)
		if err != nil {
			return nil, err
		}
		return gw.Quote(ctx, symbols)
	},
	"ltp": func(ctx context.Context, gw *Gateway, params map[string]any) (any, error) {
		symbols, err := symbolsParam(params)
		if err != nil {
			return nil, err
		}
		return gw.LTP(ctx, symbols)
	},
}

// symbolsParam extracts params.symbols as a non-empty string list.
func symbolsParam(params map[string]any) ([]string, error) {
	raw, ok := params["symbols"]
	if !ok {
		return nil, validationError("params.symbols is required")
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, validationError("params.symbols must be an array of strings")
	}

	symbols := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, validationError("params.symbols must be an array of strings")
		}
		symbols = append(symbols, s)
	}
	if len(symbols) == 0 {
		return nil, validationError("params.symbols must not be empty")
	}
	return symbols, nil
}
