package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/pulseagent"
	"github.com/jpalmerr/pulseagent/internal/store"
	"github.com/jpalmerr/pulseagent/sender/httpsender"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// thread dumps are the largest documents an agent sends
	maxRequestBodySize = 16 << 20 // 16MB
)

// Server receives documents from agents using the HTTP transport.
//
// Server provides these endpoints:
//   - POST /api/cmdb/checkIn, /api/cmdb/app-event,
//     /api/monitor/thread-dump, /api/monitor/app-config-dump: ingest
//   - GET /api/status: latest check-in of every instance as JSON
//   - GET /api/sse: Server-Sent Events stream of every received document
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	port       int
	httpServer *http.Server
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new collector [Server] listening on port. Port 0
// picks a free port; see [Server.Addr].
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  st,
		port:   port,
		logger: logger,
		now:    time.Now,
	}
}

// Handler returns the collector's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(httpsender.CheckInPath, s.ingest(pulseagent.MessageCheckIn))
	mux.HandleFunc(httpsender.AppEventPath, s.ingest(pulseagent.MessageAppEvent))
	mux.HandleFunc(httpsender.ThreadDumpPath, s.ingest(pulseagent.MessageThreadDump))
	mux.HandleFunc(httpsender.AppConfigDumpPath, s.ingest(pulseagent.MessageAppConfigDump))

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sse", s.handleSSE)

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with ctx, which lets SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("collector listening", "addr", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ingest returns a handler that stores POSTed documents of type mt.
func (s *Server) ingest(mt pulseagent.MessageType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		doc := pulseagent.NewDocument()
		if err := json.Unmarshal(body, doc); err != nil {
			s.logger.Debug("rejected document", "message_type", mt.String(), "error", err.Error())
			http.Error(w, "body must be a JSON object", http.StatusBadRequest)
			return
		}

		rec := store.Record{
			MessageType: mt.String(),
			Host:        doc.String("host"),
			AppID:       doc.String("appId"),
			ReceivedAt:  s.now(),
			Document:    doc,
		}

		logAttrs := []any{
			"message_type", rec.MessageType,
			"host", rec.Host,
			"app_id", rec.AppID,
		}
		if mt == pulseagent.MessageThreadDump {
			if text, err := pulseagent.DecodeThreadDump(doc.String("threadDumpGzip")); err != nil {
				logAttrs = append(logAttrs, "dump_error", err.Error())
			} else {
				logAttrs = append(logAttrs, "dump_bytes", len(text))
			}
		}
		s.logger.Debug("document received", logAttrs...)

		s.store.Add(rec)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}
}

// handleStatus returns the latest check-in of every instance as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checkIns := s.store.CheckIns()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(checkIns); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleSSE streams received documents via Server-Sent Events.
//
// Writes carry a deadline so a slow or vanished client cannot pin the
// handler; it still notices context cancellation and channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send headers now so clients connect before the first document arrives
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	// replay the current check-ins first
	for _, rec := range s.store.CheckIns() {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
