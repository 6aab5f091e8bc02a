// Package server exposes registered tools over a websocket channel.
// Clients send JSON invocation frames and receive one response frame per
// invocation, correlated by id. The server only dispatches against a
// frozen registry: a frozen tool table needs no locking on the hot path,
// and it guarantees clients never observe a half-registered plugin.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/cache"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/registry"
	"github.com/ChainPilotAI/chainpilot-agent-sdk/pkg/version"
)

// ErrNotFrozen is returned by Serve when the registration window is
// still open.
var ErrNotFrozen = errors.New("registry must be frozen before serving")

const (
	defaultRequestTimeout = 30 * time.Second
	defaultCacheTTL       = 15 * time.Second

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1 << 20
)

// Config holds server settings.
type Config struct {
	ListenAddr string

	// JWTSecret enables bearer auth on the websocket upgrade when
	// non-empty; tokens must be HMAC-signed with this secret.
	JWTSecret []byte

	// RequestTimeout bounds a single tool invocation. Zero means the
	// 30s default.
	RequestTimeout time.Duration

	// CacheTTL bounds how long identical invocations are served from
	// cache. Zero means the 15s default; caching only happens when a
	// real cache is wired.
	CacheTTL time.Duration
}

// Invocation is one client request frame.
type Invocation struct {
	ID    string          `json:"id"`
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// Response is one server reply frame. Exactly one of Result and Error is
// set.
type Response struct {
	ID     string          `json:"id"`
	Tool   string          `json:"tool"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type Server struct {
	cfg      Config
	logger   zerolog.Logger
	registry *registry.Registry
	cache    cache.Cache
	upgrader websocket.Upgrader

	mu   sync.Mutex
	http *http.Server
}

// New builds a server over the registry. A nil results cache disables
// caching.
func New(reg *registry.Registry, results cache.Cache, cfg Config, logger zerolog.Logger) *Server {
	if results == nil {
		results = cache.NoOpCache{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "tool_server").Logger(),
		registry: reg,
		cache:    results,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the HTTP handler serving /ws, /tools, and /healthz.
// Exposed separately from Serve so tests can mount it on a test server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/tools", s.handleTools)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"build":  version.GetBuildInfo(),
		})
	})
	return mux
}

// Serve listens on the configured address until Shutdown. It refuses to
// start before the registry is frozen.
func (s *Server) Serve() error {
	if !s.registry.IsFrozen() {
		return ErrNotFrozen
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("tool server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight connections and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// handleTools lists tool definitions so clients can discover the surface
// without opening a websocket.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.authorize(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.registry.Tools())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if !s.registry.IsFrozen() {
		http.Error(w, ErrNotFrozen.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	// The request context dies when this handler returns, so the
	// connection runs on its own context.
	s.serveConn(context.Background(), conn)
}

// authorize checks the bearer token when JWT auth is configured.
func (s *Server) authorize(r *http.Request) error {
	if len(s.cfg.JWTSecret) == 0 {
		return nil
	}
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return errors.New("missing bearer token")
	}
	_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.JWTSecret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}

// serveConn owns one websocket connection: a read loop dispatching
// invocations and a write mutex serializing response frames.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var writeMu sync.Mutex
	write := func(resp Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warn().Err(err).Msg("writing response frame")
		}
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-connCtx.Done():
				return
			case <-ticker.C:
				writeMu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		var inv Invocation
		if err := conn.ReadJSON(&inv); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		if inv.ID == "" {
			inv.ID = uuid.NewString()
		}
		go func(inv Invocation) {
			write(s.dispatch(connCtx, inv))
		}(inv)
	}
}

// dispatch runs one invocation against the registry under the request
// timeout, consulting the results cache first.
func (s *Server) dispatch(ctx context.Context, inv Invocation) Response {
	def, ok := s.registry.Tool(inv.Tool)
	if !ok {
		return Response{ID: inv.ID, Tool: inv.Tool, Error: fmt.Sprintf("unknown tool %q", inv.Tool)}
	}

	key := cacheKey(inv)
	if cached, hit, err := s.cache.Get(ctx, key); err == nil && hit {
		return Response{ID: inv.ID, Tool: inv.Tool, OK: true, Result: cached}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.invoke(reqCtx, def.Handler, inv.Input)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("tool", inv.Tool).
			Dur("elapsed", time.Since(start)).
			Msg("tool invocation failed")
		return Response{ID: inv.ID, Tool: inv.Tool, Error: err.Error()}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return Response{ID: inv.ID, Tool: inv.Tool, Error: fmt.Sprintf("encoding result: %v", err)}
	}

	if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("tool", inv.Tool).Msg("caching result failed")
	}

	s.logger.Debug().
		Str("tool", inv.Tool).
		Dur("elapsed", time.Since(start)).
		Msg("tool invocation served")
	return Response{ID: inv.ID, Tool: inv.Tool, OK: true, Result: payload}
}

// invoke shields the connection from a handler panic.
func (s *Server) invoke(ctx context.Context, handler func(context.Context, json.RawMessage) (interface{}, error), input json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	if input == nil {
		input = json.RawMessage(`{}`)
	}
	return handler(ctx, input)
}

// cacheKey hashes tool name plus raw input so identical invocations
// share one entry.
func cacheKey(inv Invocation) string {
	sum := sha256.Sum256(append([]byte(inv.Tool+"\x00"), inv.Input...))
	return "tool:" + hex.EncodeToString(sum[:16])
}
