package recorder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/gorilla/mux"
)

// DefaultPort the diagram server listens on
const DefaultPort = 8765

// Server serves a single diagram document over HTTP on the loopback interface
// so that a browser page can fetch it
type Server struct {
	Port int

	body     []byte
	server   *http.Server
	listener net.Listener
	done     chan struct{}
	mu       sync.Mutex
}

// NewServer serves body on port. Port 0 picks a free port.
func NewServer(body []byte, port int) *Server {
	return &Server{Port: port, body: body}
}

// Handler returns the router serving the diagram
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(cors)
	r.HandleFunc("/file.excalidraw", s.serveDiagram).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/", s.serveDiagram).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/").HandlerFunc(preflight).Methods(http.MethodOptions)
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveDiagram(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.body)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(s.body)
}

// Start listens on 127.0.0.1 and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("server already started")
	}
	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(s.Port)))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.Port, err)
	}
	s.listener = listener
	s.Port = listener.Addr().(*net.TCPAddr).Port
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("diagram server error: %v", err)
		}
	}()

	logger.Debugf("Serving diagram on %s", s.URL())
	return nil
}

// URL of the diagram document
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d/file.excalidraw", s.Port)
}

// Shutdown stops the server and waits for it to exit
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	<-s.done
	s.server = nil
	s.listener = nil
	return err
}
