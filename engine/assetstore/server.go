package assetstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultAddr is the loopback address the asset server listens on.
	DefaultAddr = "127.0.0.1:8108"

	// MaxBodyBytes caps the size of an uploaded model.
	MaxBodyBytes = 1 << 30

	tracerName = "github.com/Carmen-Shannon/deskvrm/engine/assetstore"
)

// listResponse is the body of GET /vrm.
type listResponse struct {
	Models []string `json:"models"`
}

// Server exposes a Store over HTTP.
type Server struct {
	store   Store
	addr    string
	mux     *http.ServeMux
	tracer  trace.Tracer
	verbose bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address. Empty values keep DefaultAddr.
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithServerVerbose logs every request.
func WithServerVerbose(verbose bool) ServerOption {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// NewServer creates a Server backed by store.
//
// Parameters:
//   - store: the backing store
//   - opts: optional server options
//
// Returns:
//   - *Server: the server, not yet listening
func NewServer(store Store, opts ...ServerOption) *Server {
	s := &Server{
		store:  store,
		addr:   DefaultAddr,
		mux:    http.NewServeMux(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /vrm", s.handleList)
	s.mux.HandleFunc("GET /vrm/{name}", s.handleRead)
	s.mux.HandleFunc("POST /vrm/{name}", s.handleWrite)
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the routes wrapped with the permissive CORS policy.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if s.verbose {
			log.Printf("[AssetStore] %s %s", r.Method, r.URL.Path)
		}
		s.mux.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
//
// Parameters:
//   - ctx: cancelling it stops the server
//
// Returns:
//   - error: the listen error, or nil after a clean shutdown
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[AssetStore] listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return s.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "assetstore.List")
	defer span.End()

	names, err := s.store.List(ctx)
	if err != nil {
		failSpan(span, err)
		log.Printf("[AssetStore] list failed: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	span.SetAttributes(attribute.Int("models.count", len(names)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listResponse{Models: names}); err != nil {
		log.Printf("[AssetStore] encode list: %v", err)
	}
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx, span := s.startSpan(r, "assetstore.Read")
	defer span.End()
	span.SetAttributes(attribute.String("model.name", name))

	data, err := s.store.Read(ctx, name)
	if err != nil {
		failSpan(span, err)
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[AssetStore] read %s failed: %v", name, err)
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(data); err != nil {
		log.Printf("[AssetStore] write response for %s: %v", name, err)
	}
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ctx, span := s.startSpan(r, "assetstore.Write")
	defer span.End()
	span.SetAttributes(attribute.String("model.name", name))

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		failSpan(span, err)
		log.Printf("[AssetStore] read body for %s: %v", name, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := s.store.Write(ctx, name, data); err != nil {
		failSpan(span, err)
		log.Printf("[AssetStore] write %s failed: %v", name, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int("model.size", len(data)))
	w.WriteHeader(http.StatusOK)
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
