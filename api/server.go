package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pranaypatel512/KiteMCP/pkg/gateway"
	"github.com/pranaypatel512/KiteMCP/pkg/models"
	"github.com/sirupsen/logrus"
)

// Server is the HTTP/WS surface in front of the gateway: the login and
// dashboard page routes, the /api namespace, and the /ws upgrade.
type Server struct {
	gw     *gateway.Gateway
	router *gateway.Router
	logger *logrus.Logger
	addr   string

	upgrader websocket.Upgrader
}

func NewServer(gw *gateway.Gateway, router *gateway.Router, logger *logrus.Logger, addr string) *Server {
	return &Server{
		gw:     gw,
		router: router,
		logger: logger,
		addr:   addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Single-user console; the browser client is served from anywhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Start() error {
	s.logger.Infof("Starting API server on %s", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler builds the route table. Exposed separately so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogging)

	// Page routes.
	r.Get("/", s.handleHome)
	r.Get("/login", s.handleLogin)
	r.Get("/login/redirect", s.handleLoginRedirect)
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/refresh", s.handleRefresh)
	r.Get("/logout", s.handleLogout)

	// Live stream.
	r.Get("/ws", s.handleWebSocket)

	// REST namespace mirroring the WebSocket data endpoints.
	r.Route("/api", func(r chi.Router) {
		r.Get("/holdings", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.Holdings(ctx)
		}))
		r.Get("/positions", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.Positions(ctx)
		}))
		r.Get("/margins", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.Margins(ctx)
		}))
		r.Get("/orders", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.Orders(ctx)
		}))
		r.Post("/orders", s.handlePlaceOrder)
		r.Delete("/orders/{order_id}", s.handleCancelOrder)
		r.Get("/quote", s.handleQuote)
		r.Get("/ltp", s.handleLTP)
		r.Get("/historical", s.handleHistorical)
		r.Get("/portfolio", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.Dashboard(ctx)
		}))
		r.Get("/portfolio/analytics", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.Analytics(ctx)
		}))
		r.Get("/mf/holdings", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.MFHoldings(ctx)
		}))
		r.Get("/mf/orders", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.MFOrders(ctx)
		}))
		r.Get("/mf/sips", s.dataHandler(func(ctx context.Context) (any, error) {
			return s.gw.MFSIPs(ctx)
		}))
	})

	return r
}

const homePage = `<!DOCTYPE html>
<html>
<head><title>Kite Console</title></head>
<body>
<h1>Kite Console</h1>
<p><a href="/login">Login with Zerodha</a></p>
</body>
</html>`

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, homePage)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	loginURL := s.gw.LoginURL()
	s.logger.WithField("url", loginURL).Info("Redirecting to broker login")
	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

func (s *Server) handleLoginRedirect(w http.ResponseWriter, r *http.Request) {
	requestToken := r.URL.Query().Get("request_token")
	if err := s.gw.Login(r.Context(), requestToken); err != nil {
		s.writeError(w, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.gw.Dashboard(r.Context())
	if err != nil {
		if code(err) == gateway.CodeUnauthenticated {
			s.logger.Warn("No access token found, redirecting to login")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	data, err := s.gw.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, data)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gw.Logout(r.Context()); err != nil {
		s.logger.WithError(err).Warn("Logout completed with upstream error")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("Failed to upgrade websocket")
		return
	}

	// The request context dies when this handler returns; the connection
	// lives until the peer disconnects.
	wsConn := gateway.NewWSConn(conn, s.logger.WithField("remote", r.RemoteAddr))
	go s.router.Serve(context.Background(), wsConn)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var params models.OrderParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "Invalid JSON format", Code: string(gateway.CodeProtocolError)})
		return
	}

	orderID, err := s.gw.PlaceOrder(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, map[string]string{"order_id": orderID})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	if err := s.gw.CancelOrder(r.Context(), orderID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, map[string]string{"order_id": orderID})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.gw.Quote(r.Context(), r.URL.Query()["i"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, quotes)
}

func (s *Server) handleLTP(w http.ResponseWriter, r *http.Request) {
	ltps, err := s.gw.LTP(r.Context(), r.URL.Query()["i"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, ltps)
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	token, err := strconv.Atoi(q.Get("instrument_token"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "instrument_token must be a positive integer", Code: string(gateway.CodeValidationError)})
		return
	}

	const layout = "2006-01-02"
	from, err := time.Parse(layout, q.Get("from"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "from must be a YYYY-MM-DD date", Code: string(gateway.CodeValidationError)})
		return
	}
	to, err := time.Parse(layout, q.Get("to"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: "to must be a YYYY-MM-DD date", Code: string(gateway.CodeValidationError)})
		return
	}

	candles, err := s.gw.HistoricalData(r.Context(), token, from, to, q.Get("interval"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, candles)
}

// dataHandler wraps a parameterless gateway call into the success/error
// envelope.
func (s *Server) dataHandler(fetch func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fetch(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeSuccess(w, data)
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (s *Server) writeSuccess(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	gwErr := gateway.AsError(err)
	s.writeJSON(w, httpStatus(gwErr.Code), envelope{
		Success: false,
		Error:   gwErr.Message,
		Code:    string(gwErr.Code),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func code(err error) gateway.ErrorCode {
	return gateway.AsError(err).Code
}

func httpStatus(code gateway.ErrorCode) int {
	switch code {
	case gateway.CodeUnauthenticated:
		return http.StatusUnauthorized
	case gateway.CodeInvalidCredentials, gateway.CodeValidationError, gateway.CodeProtocolError:
		return http.StatusBadRequest
	case gateway.CodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// statusWriter captures the response status for request logging.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade pass through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
