// Package server exposes sessions over a JSON HTTP API.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/clean"
	"github.com/KaramelBytes/dqv-cli/internal/session"
	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

// Options configures the API.
type Options struct {
	// MaxUploadBytes caps uploaded files; 0 means unlimited.
	MaxUploadBytes int64
	Outliers       analysis.OutlierOptions
	Bins           int
	ExportName     string
	Logger         *slog.Logger
}

// Server routes requests to sessions in a Store.
type Server struct {
	store *session.Store
	opt   Options
	log   *slog.Logger
	mux   *http.ServeMux
}

// New wires the routes.
func New(store *session.Store, opt Options) *Server {
	if opt.ExportName == "" {
		opt.ExportName = clean.DefaultExportName
	}
	if opt.Bins <= 0 {
		opt.Bins = analysis.DefaultBins
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	s := &Server{store: store, opt: opt, log: opt.Logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /sessions", s.handleUpload)
	s.mux.HandleFunc("GET /sessions", s.handleList)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleProfile)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /sessions/{id}/outliers", s.handleOutliers)
	s.mux.HandleFunc("GET /sessions/{id}/correlations", s.handleCorrelations)
	s.mux.HandleFunc("GET /sessions/{id}/coordinates", s.handleCoordinates)
	s.mux.HandleFunc("GET /sessions/{id}/distribution", s.handleDistribution)
	s.mux.HandleFunc("GET /sessions/{id}/report", s.handleReport)
	s.mux.HandleFunc("POST /sessions/{id}/clean", s.handleClean)
	s.mux.HandleFunc("GET /sessions/{id}/download", s.handleDownload)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// tableJSON is a JSON view of a table: column names and canonical cell text.
type tableJSON struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func toTableJSON(t *table.Table) tableJSON {
	return tableJSON{Columns: t.Names(), Rows: t.Strings()}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opt.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes+formOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "upload exceeds size limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "expected multipart form with a file field: " + err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing file field"})
		return
	}
	defer file.Close()

	if _, err := table.FormatFromName(header.Filename); err != nil {
		s.writeError(w, err)
		return
	}
	sess := s.store.Detached()
	if err := sess.Load(header.Filename, file); err != nil {
		s.writeError(w, err)
		return
	}
	if evicted := s.store.Add(sess); evicted != "" {
		s.log.Info("session evicted", "session", evicted)
	}
	p, err := sess.Profile()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("dataset loaded", "session", sess.ID(), "file", header.Filename, "rows", p.Rows, "columns", p.Cols)
	writeJSON(w, http.StatusCreated, map[string]any{"session": sess.Info(), "profile": p})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.store.List()})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	p, err := sess.Profile()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess.Info(), "profile": p})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	opt := s.opt.Outliers
	q := r.URL.Query()
	if m := q.Get("method"); m != "" {
		method, err := analysis.ParseOutlierMethod(m)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if method != opt.Method {
			opt.Threshold = 0
		}
		opt.Method = method
	}
	if v := q.Get("threshold"); v != "" {
		thr, err := strconv.ParseFloat(v, 64)
		if err != nil || thr <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "threshold must be a positive number"})
			return
		}
		opt.Threshold = thr
	}
	rep, err := sess.Outliers(q.Get("column"), opt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*analysis.OutlierReport
		Rows tableJSON `json:"rows"`
	}{rep, toTableJSON(rep.Rows)})
}

func (s *Server) handleCorrelations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	m, err := sess.Correlations()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCoordinates(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c, err := sess.Coordinates()
	if errors.Is(err, analysis.ErrNoCoordinates) {
		writeJSON(w, http.StatusOK, map[string]any{"found": false, "note": "No latitude/longitude columns found (e.g. 'lat', 'lon')."})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Found bool `json:"found"`
		*analysis.CoordinatePair
		Points tableJSON `json:"points"`
	}{true, c, toTableJSON(c.Points)})
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	bins := s.opt.Bins
	if v := r.URL.Query().Get("bins"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10000 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bins must be an integer between 1 and 10000"})
			return
		}
		bins = n
	}
	d, err := sess.Distribution(r.URL.Query().Get("column"), bins)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	opt := analysis.DefaultReportOptions()
	opt.Outliers = s.opt.Outliers
	rep, err := sess.Report(opt)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rep.Markdown()))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	fix, err := clean.ParseFix(r.URL.Query().Get("fix"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sum, err := sess.Apply(fix)
	if err != nil {
		s.writeError(w, err)
		return
	}
	t, err := sess.Processed()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("fix applied", "session", sess.ID(), "fix", fix, "rows_before", sum.RowsBefore, "rows_after", sum.RowsAfter)
	writeJSON(w, http.StatusOK, map[string]any{"summary": sum, "profile": analysis.ProfileTable(t)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := sess.Export(&buf); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", clean.MediaType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.opt.ExportName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
