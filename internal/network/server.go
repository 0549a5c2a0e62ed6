package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"linequery/internal/config"
	"linequery/internal/dataset"
	"linequery/internal/index"
	"linequery/internal/logger"
	"linequery/internal/search"
	"linequery/internal/tlsprov"
	"linequery/internal/types"
	"linequery/internal/workerpool"
)

// lookupFunc answers one trimmed query.
type lookupFunc func(ctx context.Context, query string) (bool, error)

type Option func(*Server)

// WithSearch replaces the strategy chosen by the options' algorithm.
func WithSearch(fn search.Func) Option {
	return func(s *Server) { s.strategy = fn }
}

type Server struct {
	cfg  config.ServerConfig
	opts *config.Options

	strategy search.Func
	idx      index.Index
	pool     *workerpool.Pool
	lookup   lookupFunc
	failure  string // error response prefix for the active lookup path

	mu        sync.Mutex
	listener  net.Listener
	tlsConfig *tls.Config
	conns     map[net.Conn]struct{}

	accepting atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewServer builds the buffer index (in buffer mode) and resolves the lookup
// path. Nothing is bound until Start.
func NewServer(ctx context.Context, cfg config.ServerConfig, opts *config.Options, options ...Option) (*Server, error) {
	if opts == nil {
		opts = config.DefaultOptions()
	}
	s := &Server{
		cfg:   cfg,
		opts:  opts,
		conns: make(map[net.Conn]struct{}),
	}
	for _, o := range options {
		o(s)
	}
	if s.strategy == nil {
		fn, err := search.Lookup(opts.Server.Algorithm)
		if err != nil {
			return nil, err
		}
		s.strategy = fn
	}

	kind := opts.BufferKind()
	if cfg.RereadOnQuery {
		if kind != types.NoBuffer {
			logger.Warn("Buffer %s ignored: reread_on_query is enabled", kind)
		}
	} else if kind != types.NoBuffer {
		start := time.Now()
		idx, err := index.Build(ctx, kind, cfg.DatasetPath)
		if err != nil {
			return nil, err
		}
		s.idx = idx
		logger.Info("Loaded %s buffer with %d entries in %s", kind, idx.Len(), time.Since(start))
	}

	s.pool = workerpool.New(workerpool.WorkerContext{
		DatasetPath: cfg.DatasetPath,
		Search:      s.strategy,
		Index:       s.idx,
	}, workerpool.Options{
		Workers:   opts.Server.Workers,
		QueueSize: opts.Server.QueueSize,
	})
	s.resolveLookup()
	return s, nil
}

// resolveLookup fixes the lookup path for the lifetime of the server.
func (s *Server) resolveLookup() {
	switch {
	case s.idx == nil:
		s.failure = "File search failed"
		s.lookup = func(ctx context.Context, query string) (bool, error) {
			return s.pool.Do(ctx, func(ctx context.Context, wc workerpool.WorkerContext) (bool, error) {
				return wc.Search(ctx, wc.DatasetPath, query)
			})
		}
	case s.idx.InProcess():
		s.failure = "Buffer check failed"
		idx := s.idx
		s.lookup = func(_ context.Context, query string) (bool, error) {
			return idx.Contains(query), nil
		}
	default:
		s.failure = "Buffer check failed"
		s.lookup = func(ctx context.Context, query string) (bool, error) {
			return s.pool.Do(ctx, func(_ context.Context, wc workerpool.WorkerContext) (bool, error) {
				return wc.Index.Contains(query), nil
			})
		}
	}
}

// Start binds the listener, sets up TLS and the worker pool and begins
// accepting connections in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.opts.Server.Host, strconv.Itoa(s.cfg.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	var tlsConfig *tls.Config
	if s.cfg.UseSSL {
		tlsConfig, err = tlsprov.Provision(s.opts.TLS)
		if err != nil {
			if s.opts.TLS.Required {
				listener.Close()
				return fmt.Errorf("tls required: %w", err)
			}
			logger.Error("Failed to set up TLS: %v. Running without SSL.", err)
			tlsConfig = nil
		}
	} else {
		logger.Info("SSL is disabled by configuration.")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Lock()
	s.listener = listener
	s.tlsConfig = tlsConfig
	s.mu.Unlock()

	s.pool.Start()
	s.accepting.Store(true)

	mode := "no SSL"
	if tlsConfig != nil {
		mode = "SSL"
	}
	logger.Info("Serving on %s with %s (%s)", listener.Addr(), mode, s.describe())

	s.wg.Add(1)
	go s.acceptLoop(listener, tlsConfig)
	return nil
}

func (s *Server) describe() string {
	if s.idx != nil {
		return "buffer " + s.idx.Kind().String()
	}
	return "algorithm " + s.opts.Server.Algorithm
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// TLSEnabled reports whether connections are wrapped in TLS.
func (s *Server) TLSEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tlsConfig != nil
}

func (s *Server) acceptLoop(listener net.Listener, tlsConfig *tls.Config) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if !s.accepting.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Error("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		// Optimize Buffer Size
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetReadBuffer(65536) // 64KB
			tcpConn.SetWriteBuffer(65536)
		}
		if tlsConfig != nil {
			conn = tls.Server(conn, tlsConfig)
		}

		if !s.track(conn) {
			conn.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accepting.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// ActiveConnections returns the number of tracked connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// answer runs the resolved lookup and maps the outcome to a response line.
func (s *Server) answer(ctx context.Context, query string) string {
	found, err := s.lookup(ctx, query)
	if err != nil {
		if errors.Is(err, dataset.ErrNotFound) {
			return types.ErrorResponse("Search file '%s' not found.", s.cfg.DatasetPath)
		}
		return types.ErrorResponse("%s: %v", s.failure, err)
	}
	return types.ExistenceResponse(found)
}

// Shutdown stops accepting, closes every connection, drains the worker
// pool and releases the listener, TLS config and index. Every stage runs
// even if an earlier one fails.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Initiating graceful shutdown...")
	var errs []error

	s.mu.Lock()
	s.accepting.Store(false)
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[net.Conn]struct{})
	listener := s.listener
	s.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil && !isBenign(err) {
			errs = append(errs, fmt.Errorf("close connection %s: %w", c.RemoteAddr(), err))
		}
	}
	if len(conns) > 0 {
		logger.Info("Closed %d active connections", len(conns))
	}

	// Abort lookups still waiting on the pool for the closed connections.
	if s.cancel != nil {
		s.cancel()
	}

	grace := s.opts.Server.ShutdownGrace
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < grace {
			grace = max(remaining, 0)
		}
	}
	if err := s.pool.Shutdown(grace); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	} else {
		logger.Info("Worker pool shut down.")
	}

	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close listener: %w", err))
		} else {
			logger.Info("Server socket closed.")
		}
	}

	s.mu.Lock()
	s.tlsConfig = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		// Handlers are gone; nothing reads the index any more.
		if s.idx != nil {
			if err := s.idx.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close index: %w", err))
			}
		}
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for connection handlers: %w", ctx.Err()))
	}

	logger.Info("Server shutdown complete.")
	return errors.Join(errs...)
}
