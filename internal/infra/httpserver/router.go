package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appadvice "github.com/bryanwahyu/enginesound/internal/application/advice"
	appdiag "github.com/bryanwahyu/enginesound/internal/application/diagnosis"
	domai "github.com/bryanwahyu/enginesound/internal/domain/ai"
	domain "github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/middleware"
)

const defaultMaxUpload = 25 << 20

// Options wires the router. Advice, Limiter and Checkers are optional.
type Options struct {
	Diagnoses      *appdiag.Service
	Advice         *appadvice.Service
	Log            *zap.Logger
	CORSOrigins    []string
	APIKeys        map[string]string
	Limiter        *middleware.RateLimiter
	MaxUploadBytes int64
	Checkers       map[string]middleware.HealthChecker
}

type Router struct {
	diagSvc   *appdiag.Service
	adviceSvc *appadvice.Service
	log       *zap.Logger
	maxUpload int64
}

// httpError carries a client-facing status.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func NewRouter(opts Options) http.Handler {
	r := &Router{
		diagSvc:   opts.Diagnoses,
		adviceSvc: opts.Advice,
		log:       opts.Log,
		maxUpload: opts.MaxUploadBytes,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.maxUpload <= 0 {
		r.maxUpload = defaultMaxUpload
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(r.log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimit(opts.Limiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/", r.wrap(r.handleRoot))
		rt.Post("/analyze-audio", r.wrap(r.handleAnalyze))
		rt.Get("/analysis-history", r.wrap(r.handleHistory))
		rt.Get("/analyses", r.wrap(r.handlePaginate))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/advice", r.wrap(r.handleAdviceList))
		rt.Route("/analysis/{id}", func(ar chi.Router) {
			ar.Get("/", r.wrap(r.handleGet))
			ar.Get("/audio", r.wrap(r.handleAudio))
			ar.Get("/failures", r.wrap(r.handleFailures))
			ar.Post("/advice", r.wrap(r.handleAdvise))
			ar.Get("/advice", r.wrap(r.handleLatestAdvice))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var he *httpError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &he):
			writeError(w, he.status, he.msg)
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge,
				"file exceeds the "+humanize.IBytes(uint64(tooLarge.Limit))+" upload limit")
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "analysis not found")
		case errors.Is(err, domain.ErrNotAudio):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// GET /api/
func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{
		"message": "Automobile Sound Damage Detection API",
		"status":  "operational",
	})
}

type analyzeResponse struct {
	ID          domain.DiagnosisID      `json:"id"`
	DamageType  domain.Category         `json:"damage_type"`
	Confidence  float64                 `json:"confidence"`
	Suggestions domain.SuggestionBundle `json:"repair_suggestions"`
	Timestamp   time.Time               `json:"timestamp"`
	FileName    string                  `json:"file_name"`
}

// POST /api/analyze-audio (multipart: file, metadata)
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+1<<20)
	if err := req.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("invalid multipart form: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest("file is required")
	}
	defer file.Close()
	if header.Size > r.maxUpload {
		return &http.MaxBytesError{Limit: r.maxUpload}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	contentType, err := middleware.ValidateAudioUpload(header.Header.Get("Content-Type"), head)
	if err != nil {
		return err
	}

	middleware.AnalysisStarted()
	rec, err := r.diagSvc.Submit(req.Context(), appdiag.SubmitCommand{
		FileName:    middleware.SanitizeFileName(header.Filename),
		ContentType: contentType,
		Data:        data,
		Metadata:    middleware.SanitizeString(req.FormValue("metadata")),
	})
	if rec != nil {
		middleware.AnalysisFinished(string(rec.DamageType), rec.DamageType == domain.CategoryAnalysisFailed)
	} else {
		middleware.AnalysisFinished(string(domain.CategoryAnalysisFailed), true)
	}
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, analyzeResponse{
		ID:          rec.ID,
		DamageType:  rec.DamageType,
		Confidence:  rec.Confidence,
		Suggestions: rec.Suggestions,
		Timestamp:   rec.Timestamp,
		FileName:    rec.FileName,
	})
}

type historyItem struct {
	ID          domain.DiagnosisID      `json:"id"`
	Timestamp   time.Time               `json:"timestamp"`
	DamageType  domain.Category         `json:"damage_type"`
	Confidence  float64                 `json:"confidence"`
	FileName    string                  `json:"file_name"`
	Suggestions domain.SuggestionBundle `json:"repair_suggestions"`
}

// GET /api/analysis-history?limit=100
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, err := intQuery(req, "limit")
	if err != nil {
		return err
	}
	list, err := r.diagSvc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	items := make([]historyItem, 0, len(list))
	for _, d := range list {
		items = append(items, historyItem{
			ID:          d.ID,
			Timestamp:   d.Timestamp,
			DamageType:  d.DamageType,
			Confidence:  d.Confidence,
			FileName:    d.FileName,
			Suggestions: d.Suggestions,
		})
	}
	return writeJSON(w, http.StatusOK, items)
}

// GET /api/analyses?page=1&page_size=20&damage_type=&file_name=
func (r *Router) handlePaginate(w http.ResponseWriter, req *http.Request) error {
	page, err := intQuery(req, "page")
	if err != nil {
		return err
	}
	size, err := intQuery(req, "page_size")
	if err != nil {
		return err
	}
	category, err := middleware.ValidateCategory(req.URL.Query().Get("damage_type"))
	if err != nil {
		return badRequest("%v", err)
	}
	res, err := r.diagSvc.Paginate(req.Context(), page, size, domain.Filter{
		DamageType: category,
		FileName:   middleware.SanitizeString(req.URL.Query().Get("file_name")),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	days, err := intQuery(req, "days")
	if err != nil {
		return err
	}
	sum, err := r.diagSvc.Summary(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, sum)
}

// GET /api/analysis/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	d, err := r.diagSvc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, d)
}

// GET /api/analysis/{id}/audio
func (r *Router) handleAudio(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	url, err := r.diagSvc.RecordingURL(req.Context(), id)
	if err != nil {
		return err
	}
	http.Redirect(w, req, url, http.StatusTemporaryRedirect)
	return nil
}

// GET /api/analysis/{id}/failures
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	limit, err := intQuery(req, "limit")
	if err != nil {
		return err
	}
	list, err := r.diagSvc.FailuresFor(req.Context(), id, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/analysis/{id}/advice
func (r *Router) handleAdvise(w http.ResponseWriter, req *http.Request) error {
	if r.adviceSvc == nil {
		return &httpError{status: http.StatusServiceUnavailable, msg: "advice is disabled"}
	}
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	n, err := r.adviceSvc.Generate(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, n)
}

// GET /api/analysis/{id}/advice
func (r *Router) handleLatestAdvice(w http.ResponseWriter, req *http.Request) error {
	if r.adviceSvc == nil {
		return &httpError{status: http.StatusServiceUnavailable, msg: "advice is disabled"}
	}
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	n, err := r.adviceSvc.Latest(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, n)
}

// GET /api/advice?page=&page_size=
func (r *Router) handleAdviceList(w http.ResponseWriter, req *http.Request) error {
	if r.adviceSvc == nil {
		return &httpError{status: http.StatusServiceUnavailable, msg: "advice is disabled"}
	}
	page, err := intQuery(req, "page")
	if err != nil {
		return err
	}
	size, err := intQuery(req, "page_size")
	if err != nil {
		return err
	}
	list, err := r.adviceSvc.Paginate(req.Context(), page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func analysisID(req *http.Request) (domain.DiagnosisID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return "", badRequest("%v", err)
	}
	return domain.DiagnosisID(id), nil
}

// intQuery returns 0 when the parameter is absent.
func intQuery(req *http.Request, name string) (int, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return v, nil
}
