// Package web serves HighwayHash over HTTP: one-shot hashing, and streaming
// sessions held in an arena and addressed by handle.
package web

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edu/highwayhasher/internal/arena"
	"edu/highwayhasher/internal/highway"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxBody caps a single request body.
const DefaultMaxBody = 32 << 20

type Options struct {
	// MaxBody is the largest accepted request body in bytes.
	MaxBody int64
	// Width is used when a request names none.
	Width highway.Width
}

type HashResponse struct {
	Width  int    `json:"width"`
	Digest string `json:"digest"`
}

type SessionResponse struct {
	Handle int `json:"handle"`
}

type ArenaResponse struct {
	Capacity int `json:"capacity"`
	InUse    int `json:"in_use"`
	SlotSize int `json:"slot_size"`
	PageSize int `json:"page_size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type metrics struct {
	bytes   *prometheus.CounterVec
	digests *prometheus.CounterVec
	errors  *prometheus.CounterVec
	inUse   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "highwayhasher",
			Name:      "bytes_hashed_total",
			Help:      "Bytes fed into HighwayHash.",
		}, []string{"mode"}),
		digests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "highwayhasher",
			Name:      "digests_total",
			Help:      "Digests produced, by width.",
		}, []string{"width"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "highwayhasher",
			Name:      "request_errors_total",
			Help:      "Rejected requests, by HTTP status.",
		}, []string{"status"}),
		inUse: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "highwayhasher",
			Name:      "arena_slots_in_use",
			Help:      "Occupied session slots.",
		}),
	}
}

// Server owns one arena. The arena is single-threaded, so every handler that
// touches it holds mu.
type Server struct {
	opts    Options
	logger  log.Logger
	router  *mux.Router
	reg     *prometheus.Registry
	metrics *metrics

	mu    sync.Mutex
	arena *arena.Arena

	srv *http.Server
}

func NewServer(logger log.Logger, opts Options) *Server {
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if !opts.Width.Valid() {
		opts.Width = highway.Width64
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		opts:    opts,
		logger:  log.With(logger, "component", "web"),
		router:  mux.NewRouter(),
		reg:     reg,
		metrics: newMetrics(reg),
		arena:   arena.New(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Full paths on the root router; a PathPrefix subrouter answers a method
	// mismatch with 404.
	s.router.HandleFunc("/api/hash", s.handleHash).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions", s.handleCreate).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{handle}/append", s.handleAppend).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{handle}/finalize", s.handleFinalize).Methods(http.MethodPost)
	s.router.HandleFunc("/api/sessions/{handle}", s.handleRelease).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/arena", s.handleArena).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	level.Info(s.logger).Log("msg", "listening", "addr", addr, "arena_capacity", arena.Capacity)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) width(r *http.Request) (highway.Width, error) {
	v := r.URL.Query().Get("width")
	if v == "" {
		return s.opts.Width, nil
	}
	return highway.ParseWidth(v)
}

func (s *Server) key(r *http.Request) ([]byte, error) {
	k, err := highway.ParseKey(r.URL.Query().Get("key"))
	if err != nil {
		return nil, err
	}
	if k == highway.DefaultKey {
		return nil, nil
	}
	return k.Bytes(), nil
}

func handle(r *http.Request) (int, error) {
	h, err := strconv.Atoi(mux.Vars(r)["handle"])
	if err != nil {
		return -1, errors.Wrapf(arena.ErrInvalidHandle, "%q", mux.Vars(r)["handle"])
	}
	return h, nil
}

func (s *Server) body(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return b, nil
}

func (s *Server) handleHash(w http.ResponseWriter, r *http.Request) {
	width, err := s.width(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	key, err := s.key(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	data, err := s.body(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	sum, err := highway.Sum(key, data, width)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.bytes.WithLabelValues("oneshot").Add(float64(len(data)))
	s.metrics.digests.WithLabelValues(width.String()).Inc()
	s.reply(w, http.StatusOK, HashResponse{Width: int(width), Digest: hex.EncodeToString(sum)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	key, err := s.key(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.mu.Lock()
	h, err := s.arena.Acquire(key)
	s.metrics.inUse.Set(float64(s.arena.Len()))
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	level.Debug(s.logger).Log("msg", "session created", "handle", h)
	s.reply(w, http.StatusCreated, SessionResponse{Handle: h})
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	h, err := handle(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	data, err := s.body(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.mu.Lock()
	err = s.arena.Append(h, data)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.bytes.WithLabelValues("session").Add(float64(len(data)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	h, err := handle(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	width, err := s.width(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	dst := make([]byte, width.Size())
	s.mu.Lock()
	err = s.arena.Finalize(h, width, dst)
	s.metrics.inUse.Set(float64(s.arena.Len()))
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.metrics.digests.WithLabelValues(width.String()).Inc()
	level.Debug(s.logger).Log("msg", "session finalized", "handle", h, "width", width)
	s.reply(w, http.StatusOK, HashResponse{Width: int(width), Digest: hex.EncodeToString(dst)})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	h, err := handle(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.mu.Lock()
	err = s.arena.Release(h)
	s.metrics.inUse.Set(float64(s.arena.Len()))
	s.mu.Unlock()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArena(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	inUse := s.arena.Len()
	s.mu.Unlock()
	s.reply(w, http.StatusOK, ArenaResponse{
		Capacity: arena.Capacity,
		InUse:    inUse,
		SlotSize: arena.SlotSize,
		PageSize: arena.PageSize,
	})
}

func status(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, arena.ErrSlotEmpty):
		return http.StatusNotFound
	case errors.Is(err, arena.ErrArenaFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, arena.ErrInvalidHandle),
		errors.Is(err, highway.ErrInvalidKey),
		errors.Is(err, highway.ErrInvalidKeyLength),
		errors.Is(err, highway.ErrInvalidWidth),
		errors.Is(err, highway.ErrDigestSize),
		errors.Is(err, highway.ErrSessionFinalized):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	code := status(err)
	s.metrics.errors.WithLabelValues(strconv.Itoa(code)).Inc()
	if code == http.StatusInternalServerError {
		level.Error(s.logger).Log("msg", "request failed", "err", err)
	}
	s.reply(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) reply(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		level.Warn(s.logger).Log("msg", "write response", "err", err)
	}
}
