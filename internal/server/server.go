// Package server exposes the REST surface: menus, status blocks, manual
// connection actions and operation invocation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/peternagy/mongoplug/internal/catalog"
	"github.com/peternagy/mongoplug/internal/connection"
	"github.com/peternagy/mongoplug/internal/core"
	"github.com/peternagy/mongoplug/internal/notify"
	"github.com/peternagy/mongoplug/internal/performance"
	"github.com/peternagy/mongoplug/internal/types"
	"github.com/peternagy/mongoplug/internal/watch"
)

// Entities is the registry view the server needs.
type Entities interface {
	Lookup(entityID string) (*connection.Service, error)
}

// Passwords stores entity passwords referenced as keyring:<account>.
type Passwords interface {
	SetPassword(account, password string) error
	DeletePassword(account string) error
}

// Server holds the handlers' dependencies.
type Server struct {
	catalog   *catalog.Catalog
	entities  Entities
	board     *notify.Board
	metrics   *performance.Service
	passwords Passwords
	log       *zap.SugaredLogger
}

// Option configures a Server.
type Option func(*Server)

// WithPasswords mounts the keyring credential endpoints.
func WithPasswords(p Passwords) Option {
	return func(s *Server) { s.passwords = p }
}

// New creates a server.
func New(cat *catalog.Catalog, entities Entities, board *notify.Board, log *zap.SugaredLogger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		catalog:  cat,
		entities: entities,
		board:    board,
		metrics:  performance.NewService(board.All, cat.ActiveWatches),
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))

	r.Route("/rest/mongo", func(r chi.Router) {
		r.Get("/entityWithColl", s.handleEntityCollections)
		r.Get("/entities", s.handleEntities)
		r.Get("/databases/{entityID}", s.handleDatabases)
		r.Get("/status", s.handleStatusAll)
		r.Get("/status/{entityID}", s.handleStatus)
		r.Post("/entity/{entityID}/test", s.handleTest)
		r.Post("/entity/{entityID}/reconnect", s.handleReconnect)
		r.Get("/operations", s.handleOperations)
		r.Post("/invoke/{operation}", s.handleInvoke)
		r.Get("/metrics", s.handleMetrics)
		if s.passwords != nil {
			r.Put("/credentials/{account}", s.handleSetPassword)
			r.Delete("/credentials/{account}", s.handleDeletePassword)
		}
	})
	return r
}

// Run serves on addr until ctx is done, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Infow("http server listening", "addr", addr)

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnw("http server shutdown", "error", err)
			_ = srv.Close()
		}
		runErr = <-errCh
	case runErr = <-errCh:
	}
	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return runErr
	}
	return nil
}

func (s *Server) handleEntityCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.EntityCollections(r.Context()))
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Entities())
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.DatabaseNames(r.Context(), chi.URLParam(r, "entityID")))
}

func (s *Server) handleStatusAll(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.All())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entityID")
	block, ok := s.board.Get(id)
	if !ok {
		writeError(w, core.Translate("status", &core.EntityNotFoundError{EntityID: id}))
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type actionResponse struct {
	Success bool               `json:"success"`
	Status  types.HealthStatus `json:"status"`
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	s.entityAction(w, r, (*connection.Service).TestConnection)
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	s.entityAction(w, r, (*connection.Service).Reconnect)
}

func (s *Server) entityAction(w http.ResponseWriter, r *http.Request, action func(*connection.Service, context.Context) bool) {
	svc, err := s.entities.Lookup(chi.URLParam(r, "entityID"))
	if err != nil {
		writeError(w, core.Translate("action", err))
		return
	}
	ok := action(svc, r.Context())
	writeJSON(w, http.StatusOK, actionResponse{Success: ok, Status: svc.Status()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetMetrics())
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	var body passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, core.NewError(core.KindInvalidArgument, "credentials", "invalid request body: %v", err))
		return
	}
	if body.Password == "" {
		writeError(w, core.NewError(core.KindInvalidArgument, "credentials", "password cannot be empty"))
		return
	}
	if err := s.passwords.SetPassword(account, body.Password); err != nil {
		writeError(w, core.WrapError(core.KindServer, "credentials", err))
		return
	}
	s.log.Infow("keyring password stored", "account", account)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePassword(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if err := s.passwords.DeletePassword(account); err != nil {
		writeError(w, core.WrapError(core.KindServer, "credentials", err))
		return
	}
	s.log.Infow("keyring password deleted", "account", account)
	w.WriteHeader(http.StatusNoContent)
}

// operationView is a catalog entry with its template rendered.
type operationView struct {
	catalog.Operation
	Description string `json:"description"`
}

func (s *Server) handleOperations(w http.ResponseWriter, _ *http.Request) {
	ops := s.catalog.Operations()
	views := make([]operationView, 0, len(ops))
	for _, op := range ops {
		views = append(views, operationView{Operation: op, Description: catalog.Describe(op)})
	}
	writeJSON(w, http.StatusOK, views)
}

type invokeRequest struct {
	Target    string         `json:"target"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	opID := chi.URLParam(r, "operation")

	var body invokeRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			writeError(w, core.NewError(core.KindInvalidArgument, opID, "invalid request body: %v", err))
			return
		}
	}
	req := types.OperationRequest{Operation: opID, TargetRef: body.Target, Arguments: body.Arguments}

	op, ok := s.catalog.Operation(opID)
	if ok && op.Kind == catalog.KindHat {
		s.stream(w, r, req)
		return
	}

	value, err := s.catalog.Invoke(r.Context(), req, nil)
	if err != nil {
		s.log.Debugw("operation failed", "operation", opID, "error", err, "requestId", RequestIDFromContext(r.Context()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

// stream runs a hat operation and writes each event as one JSON line until the
// client goes away. Headers are sent with the first event so that failures
// before any event still get a proper status code.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, req types.OperationRequest) {
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	started := false

	_, err := s.catalog.Invoke(r.Context(), req, func(_ context.Context, ev watch.Event) error {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err == nil {
		if !started {
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}

	s.log.Infow("watch ended with error", "error", err, "requestId", RequestIDFromContext(r.Context()))
	if !started {
		writeError(w, err)
		return
	}
	_ = enc.Encode(errorBody(err))
}

type errorPayload struct {
	Kind    core.Kind `json:"kind"`
	Message string    `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func errorBody(err error) errorResponse {
	kind := core.KindOf(err)
	msg := err.Error()
	var opErr *core.OperationError
	if errors.As(err, &opErr) {
		msg = opErr.Message
	}
	return errorResponse{Error: errorPayload{Kind: kind, Message: msg}}
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindInvalidArgument, core.KindMalformedDocument:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindWrite:
		return http.StatusConflict
	case core.KindConnection:
		return http.StatusServiceUnavailable
	case core.KindReplicaSetRequired:
		return http.StatusPreconditionFailed
	case core.KindServer, core.KindStreamingServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(core.KindOf(err)), errorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
