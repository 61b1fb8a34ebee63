// Package server exposes analysis and rendering over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/example/instructsheet/internal/imageio"
	"github.com/example/instructsheet/internal/inference"
	"github.com/example/instructsheet/internal/render"
	"github.com/example/instructsheet/internal/sheet"
)

const instrumentationName = "github.com/example/instructsheet/internal/server"

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 20 << 20

// Server serves the HTTP API.
type Server struct {
	analyzer inference.Analyzer
	renderer *render.Renderer
	style    render.Style
	maxBody  int64
	maxPix   int
	log      zerolog.Logger
	requests metric.Int64Counter
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithRenderer sets the renderer used by /api/render.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithStyle sets the style applied when a render request names none.
func WithStyle(st render.Style) Option {
	return func(s *Server) { s.style = st.Normalized() }
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithMaxPixels limits the declared dimensions of uploaded images.
func WithMaxPixels(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPix = n
		}
	}
}

// New returns a Server. A nil analyzer makes /api/analyze answer that no
// API key is configured.
func New(analyzer inference.Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer: analyzer,
		style:    render.DefaultStyle(),
		maxBody:  DefaultMaxBodyBytes,
		maxPix:   imageio.DefaultMaxPixels,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = render.New()
	}
	counter, err := otel.Meter(instrumentationName).Int64Counter("server.requests",
		metric.WithDescription("HTTP API requests by route and status"))
	if err != nil {
		s.requests = noop.Int64Counter{}
	} else {
		s.requests = counter
	}
	return s
}

// Handler returns the routing handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.wrap("analyze", s.handleAnalyze))
	mux.HandleFunc("POST /api/render", s.wrap("render", s.handleRender))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type ctxKey struct{}

func requestLogger(ctx context.Context, fallback zerolog.Logger) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return fallback
}

func (s *Server) wrap(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		log := s.log.With().Str("request", id).Str("route", route).Logger()
		w.Header().Set("X-Request-Id", id)
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(sw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, log)))

		s.requests.Add(r.Context(), 1, metric.WithAttributes(
			attribute.String("route", route),
			attribute.Int("status", sw.status),
		))
		log.Debug().Int("status", sw.status).Dur("took", time.Since(start)).Msg("request served")
	}
}

// AnalyzeRequest is the body of /api/analyze.
type AnalyzeRequest struct {
	Image        string   `json:"image"`
	MimeType     string   `json:"mimeType"`
	Instructions []string `json:"instructions"`
}

// AnalyzeResponse is the answer of /api/analyze. Annotations is never null.
type AnalyzeResponse struct {
	Annotations []sheet.Annotation `json:"annotations"`
	Error       string             `json:"error,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r.Context(), s.log)
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAnalyze(w, http.StatusBadRequest, nil, "Invalid request: "+err.Error())
		return
	}
	if req.Image == "" || req.Instructions == nil {
		writeAnalyze(w, http.StatusBadRequest, nil, "Invalid request: image and instructions are required")
		return
	}
	data, err := decodeBase64(req.Image)
	if err != nil {
		writeAnalyze(w, http.StatusBadRequest, nil, "Invalid request: image is not valid base64")
		return
	}
	if err := imageio.CheckPixels(data, s.maxPix); err != nil {
		writeAnalyze(w, http.StatusBadRequest, nil, err.Error())
		return
	}
	if s.analyzer == nil {
		writeAnalyze(w, http.StatusInternalServerError, nil, "GEMINI_API_KEY is not configured")
		return
	}
	mime := req.MimeType
	if mime == "" {
		mime = "image/png"
	}

	list, err := s.analyzer.Analyze(r.Context(), inference.Image{Data: data, MIME: mime}, req.Instructions)
	switch {
	case err == nil:
		log.Info().Int("annotations", len(list)).Msg("analyzed")
		writeAnalyze(w, http.StatusOK, list, "")
	case errors.Is(err, imageio.ErrNotImage), errors.Is(err, imageio.ErrTooLarge),
		errors.Is(err, inference.ErrNoInstructions):
		writeAnalyze(w, http.StatusBadRequest, nil, err.Error())
	case errors.Is(err, inference.ErrNoAPIKey):
		writeAnalyze(w, http.StatusInternalServerError, nil, "GEMINI_API_KEY is not configured")
	default:
		log.Error().Err(err).Msg("analyze failed")
		writeAnalyze(w, http.StatusInternalServerError, nil, err.Error())
	}
}

func writeAnalyze(w http.ResponseWriter, status int, list []sheet.Annotation, msg string) {
	if list == nil {
		list = []sheet.Annotation{}
	}
	writeJSON(w, status, AnalyzeResponse{Annotations: list, Error: msg})
}

// RenderRequest is the body of /api/render.
type RenderRequest struct {
	Image       string          `json:"image"`
	MimeType    string          `json:"mimeType"`
	Annotations json.RawMessage `json:"annotations"`
	FontSize    float64         `json:"fontSize,omitempty"`
	FontFamily  string          `json:"fontFamily,omitempty"`
	ArrowColor  string          `json:"arrowColor,omitempty"`
	Format      string          `json:"format,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r.Context(), s.log)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"Invalid request: " + err.Error()})
		return
	}
	data, err := decodeBase64(req.Image)
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{"Invalid request: image is required"})
		return
	}
	img, _, err := imageio.DecodeLimit(data, req.MimeType, s.maxPix)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	var anns []sheet.Annotation
	if len(req.Annotations) > 0 && string(req.Annotations) != "null" {
		anns, err = sheet.Parse(req.Annotations)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	style, err := s.requestStyle(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	format := imageio.PNG
	if req.Format != "" {
		if format, err = imageio.FormatFromExt(req.Format); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
			return
		}
	}

	out, err := s.renderer.Render(nil, img, anns, nil, nil, style)
	if err != nil {
		log.Error().Err(err).Msg("render failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	w.Header().Set("Content-Type", format.MIME())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", imageio.ExportName(time.Now())))
	if err := imageio.Encode(w, out, format); err != nil {
		log.Error().Err(err).Msg("encode failed")
	}
}

func (s *Server) requestStyle(req RenderRequest) (render.Style, error) {
	style := s.style
	if req.FontSize > 0 {
		style.FontSize = req.FontSize
	}
	// only built-in families; a remote caller never names a server file
	if req.FontFamily != "" {
		style.FontFamily = render.GenericFamily(req.FontFamily)
	}
	if req.ArrowColor != "" {
		c, err := render.ParseArrowColor(req.ArrowColor)
		if err != nil {
			return style, err
		}
		style.ArrowColor = c
	}
	return style.Normalized(), nil
}

// decodeBase64 accepts plain base64 or a data URL.
func decodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
