// Package grpc exposes the four index implementations over a gRPC
// service, grounded on the teacher's pkg/api/grpc: the same
// namespace-scoped, lazily-initialized index map under a single mutex,
// a Start/Stop lifecycle with TLS and keepalive options, and
// the same pattern of wrapping domain errors in a grpc/status code. The
// message types are plain structs (see messages.go) rather than
// protoc-generated ones, since no protoc invocation is available here;
// codec.go carries them over the wire as JSON instead of protobuf.
package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/mipsconfig"
	"github.com/devraj-iyer/mipsindex/pkg/mipsobs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// Server implements VectorIndexServer over the four index packages,
// keyed by namespace and kind.
type Server struct {
	cfg     *mipsconfig.Config
	logger  *mipsobs.Logger
	metrics *mipsobs.Metrics

	mu        sync.RWMutex
	indices   map[string]map[IndexKind]indexHandle
	startTime time.Time

	grpcServer *grpc.Server
	listener   net.Listener

	shutdownMu sync.Mutex
	isShutdown bool
}

// NewServer creates a Server from cfg. logger/metrics may be nil, in which
// case package defaults are used.
func NewServer(cfg *mipsconfig.Config, logger *mipsobs.Logger, metrics *mipsobs.Metrics) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = mipsobs.NewDefault()
	}
	if metrics == nil {
		metrics = mipsobs.NewMetrics()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		indices:   make(map[string]map[IndexKind]indexHandle),
		startTime: time.Now(),
	}, nil
}

func (s *Server) handle(namespace string, kind IndexKind, create bool) (indexHandle, error) {
	s.mu.RLock()
	byKind := s.indices[namespace]
	if byKind != nil {
		if h, ok := byKind[kind]; ok {
			s.mu.RUnlock()
			return h, nil
		}
	}
	s.mu.RUnlock()

	if !create {
		return nil, fmt.Errorf("no %s index in namespace %q", kind, namespace)
	}

	h, err := newIndex(kind, s.cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indices[namespace] == nil {
		s.indices[namespace] = make(map[IndexKind]indexHandle)
	}
	if existing, ok := s.indices[namespace][kind]; ok {
		return existing, nil
	}
	s.indices[namespace][kind] = h
	return h, nil
}

func toMatrix(rows [][]float32) (*mipskernel.Matrix, error) {
	if len(rows) == 0 {
		return nil, status.Error(codes.InvalidArgument, "vectors is required")
	}
	return mipskernel.NewMatrixFromRows(rows), nil
}

// Build trains a fresh index at (req.Namespace, req.Kind) over
// req.Vectors, replacing any prior index there.
func (s *Server) Build(ctx context.Context, req *BuildRequest) (*BuildResponse, error) {
	if req.Namespace == "" {
		return nil, status.Error(codes.InvalidArgument, "namespace is required")
	}
	vectors, err := toMatrix(req.Vectors)
	if err != nil {
		return nil, err
	}

	h, err := s.handle(req.Namespace, req.Kind, true)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	start := time.Now()
	err = s.logger.Timed(fmt.Sprintf("build:%s/%s", req.Namespace, req.Kind), func() error {
		return h.Build(vectors)
	})
	duration := time.Since(start)
	s.metrics.RecordBuild(string(req.Kind), vectors.Rows(), duration)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return &BuildResponse{
		VectorCount: vectors.Rows(),
		DurationMs:  float64(duration.Microseconds()) / 1000,
	}, nil
}

// Add inserts req.Vectors into the existing index at (req.Namespace,
// req.Kind) without retraining it.
func (s *Server) Add(ctx context.Context, req *AddRequest) (*AddResponse, error) {
	if req.Namespace == "" {
		return nil, status.Error(codes.InvalidArgument, "namespace is required")
	}
	vectors, err := toMatrix(req.Vectors)
	if err != nil {
		return nil, err
	}

	h, err := s.handle(req.Namespace, req.Kind, false)
	if err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	if !h.Built() {
		return nil, status.Error(codes.FailedPrecondition, "index has not been built")
	}

	if err := h.Add(vectors); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	return &AddResponse{VectorCount: vectors.Rows()}, nil
}

// Search answers req.K-nearest-neighbor queries against the index at
// (req.Namespace, req.Kind).
func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req.Namespace == "" {
		return nil, status.Error(codes.InvalidArgument, "namespace is required")
	}
	if req.K <= 0 {
		return nil, status.Error(codes.InvalidArgument, "k must be > 0")
	}
	queries, err := toMatrix(req.Queries)
	if err != nil {
		return nil, err
	}

	h, err := s.handle(req.Namespace, req.Kind, false)
	if err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	if !h.Built() {
		return nil, status.Error(codes.FailedPrecondition, "index has not been built")
	}

	start := time.Now()
	var distances [][]float32
	var ids [][]int
	if a, ok := h.(*ivfAdapter); ok && req.Nprobe > 0 {
		distances, ids, err = a.IVFFlat.Search(queries, req.K, req.Nprobe)
	} else {
		distances, ids, err = h.Search(queries, req.K)
	}
	duration := time.Since(start)
	s.metrics.RecordSearch(string(req.Kind), duration)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	results := make([]SearchResult, len(ids))
	for i := range ids {
		results[i] = SearchResult{Ids: ids[i], Distances: distances[i]}
	}

	return &SearchResponse{
		Results:    results,
		DurationMs: float64(duration.Microseconds()) / 1000,
	}, nil
}

// Reset discards the index at (req.Namespace, req.Kind), if any.
func (s *Server) Reset(ctx context.Context, req *ResetRequest) (*ResetResponse, error) {
	if req.Namespace == "" {
		return nil, status.Error(codes.InvalidArgument, "namespace is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if byKind, ok := s.indices[req.Namespace]; ok {
		if h, ok := byKind[req.Kind]; ok {
			h.Reset()
		}
	}
	return &ResetResponse{}, nil
}

// Start begins serving the gRPC service on cfg.Server.Address(), applying
// TLS, keepalive, and interceptor options, then returns immediately; the
// listener runs in a background goroutine. Call Stop to shut down.
func (s *Server) Start(interceptors ...grpc.UnaryServerInterceptor) error {
	var opts []grpc.ServerOption

	if s.cfg.Server.EnableTLS {
		cert, err := tls.LoadX509KeyPair(s.cfg.Server.CertFile, s.cfg.Server.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates: %w", err)
		}
		tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		s.logger.Info("TLS enabled", nil)
	}

	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle: 15 * time.Second,
		MaxConnectionAge:  30 * time.Second,
		Time:              5 * time.Second,
		Timeout:           1 * time.Second,
	}
	opts = append(opts, grpc.KeepaliveParams(kaParams))
	opts = append(opts, grpc.MaxConcurrentStreams(uint32(s.cfg.Server.MaxConnections)))
	if len(interceptors) > 0 {
		opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	}

	s.grpcServer = grpc.NewServer(opts...)
	RegisterVectorIndexServer(s.grpcServer, s)

	addr := s.cfg.Server.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.logger.Infof("mipsindex gRPC server listening on %s", addr)

	go func() {
		if err := s.grpcServer.Serve(listener); err != nil {
			s.logger.Errorf("gRPC server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server, forcing a hard stop if
// cfg.Server.ShutdownTimeout elapses first.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	if s.isShutdown {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("server stopped gracefully", nil)
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout exceeded, forcing stop", nil)
		s.grpcServer.Stop()
	}

	s.isShutdown = true
	return nil
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}
