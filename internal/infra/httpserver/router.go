package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/plantcare/internal/application/analysis"
	"github.com/bryanwahyu/plantcare/internal/domain/ai"
	"github.com/bryanwahyu/plantcare/internal/domain/plants"
	"github.com/bryanwahyu/plantcare/internal/middleware"
)

// statusClientClosedRequest is logged when the caller went away mid analysis.
const statusClientClosedRequest = 499

// PlantStore is the profile repository as seen by the HTTP layer.
type PlantStore interface {
	List(ctx context.Context) []plants.PlantProfile
	Get(ctx context.Context, id string) (plants.PlantProfile, error)
	AddPlant(ctx context.Context, name string) (plants.PlantProfile, error)
	Rename(ctx context.Context, id, name string) (plants.PlantProfile, error)
	Latest(ctx context.Context, plantID string) (*plants.AnalysisRecord, error)
}

type Analyzer interface {
	RunAnalysis(ctx context.Context, cmd analysis.AnalyzeCommand) (analysis.AnalyzeResult, error)
}

type Options struct {
	MaxUploadBytes int64
	APIKeys        map[string]string
	Limiter        *middleware.RateLimiter // nil disables rate limiting
	CORSOrigins    []string
	Checkers       map[string]middleware.HealthChecker
}

type Router struct {
	store     PlantStore
	analyzer  Analyzer
	maxUpload int64
}

func NewRouter(store PlantStore, analyzer Analyzer, opts Options) http.Handler {
	r := &Router{store: store, analyzer: analyzer, maxUpload: opts.MaxUploadBytes}
	if r.maxUpload <= 0 {
		r.maxUpload = 10 << 20
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/plants", r.wrap(r.handleListPlants))
		rt.Post("/plants", r.wrap(r.handleAddPlant))
		rt.Get("/plants/{id}", r.wrap(r.handleGetPlant))
		rt.Patch("/plants/{id}", r.wrap(r.handleRenamePlant))
		rt.Get("/plants/{id}/latest", r.wrap(r.handleLatest))
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, body := errorResponse(err)
			if status >= http.StatusInternalServerError {
				log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
			}
			writeJSON(w, status, body)
		}
	}
}

func errorResponse(err error) (int, errorBody) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, errorBody{Error: "upload exceeds the size limit"}
	case errors.Is(err, plants.ErrInvalidArgument):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.Is(err, plants.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error()}
	case errors.Is(err, ai.ErrInvalidImage):
		return http.StatusUnprocessableEntity, errorBody{Error: ai.UserMessage(err), Kind: ai.Kind(err)}
	case errors.Is(err, ai.ErrSchemaViolation):
		return http.StatusBadGateway, errorBody{Error: ai.UserMessage(err), Kind: ai.Kind(err)}
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorBody{Error: "ai quota exceeded", Kind: ai.Kind(err)}
	case errors.Is(err, ai.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorBody{Error: ai.UserMessage(err), Kind: ai.Kind(err)}
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, errorBody{Error: "request cancelled"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type nameBody struct {
	Name string `json:"name"`
}

func decodeName(req *http.Request) (string, error) {
	var body nameBody
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: invalid JSON body: %v", plants.ErrInvalidArgument, err)
	}
	return middleware.SanitizeString(body.Name), nil
}

func plantID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidatePlantID(id); err != nil {
		return "", err
	}
	return id, nil
}

// GET /v1/plants
func (r *Router) handleListPlants(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.store.List(req.Context()))
}

// POST /v1/plants
// Body: {"name": "Basil-1"}
func (r *Router) handleAddPlant(w http.ResponseWriter, req *http.Request) error {
	name, err := decodeName(req)
	if err != nil {
		return err
	}
	p, err := r.store.AddPlant(req.Context(), name)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, p)
}

// GET /v1/plants/{id}
func (r *Router) handleGetPlant(w http.ResponseWriter, req *http.Request) error {
	id, err := plantID(req)
	if err != nil {
		return err
	}
	p, err := r.store.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// PATCH /v1/plants/{id}
// Body: {"name": "Kitchen Basil"}
func (r *Router) handleRenamePlant(w http.ResponseWriter, req *http.Request) error {
	id, err := plantID(req)
	if err != nil {
		return err
	}
	name, err := decodeName(req)
	if err != nil {
		return err
	}
	p, err := r.store.Rename(req.Context(), id, name)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// GET /v1/plants/{id}/latest
// 204 when the plant has no analysis yet.
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	id, err := plantID(req)
	if err != nil {
		return err
	}
	rec, err := r.store.Latest(req.Context(), id)
	if err != nil {
		return err
	}
	if rec == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	return writeJSON(w, http.StatusOK, rec)
}

// POST /v1/analyze[?stream=true]
// Multipart: image, plant_id | plant_name, sunlight, watering, notes,
// latitude, longitude, organic, image_url.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	start := time.Now()
	cmd, err := r.decodeAnalyze(w, req)
	if err != nil {
		return err
	}

	stream, _ := strconv.ParseBool(req.URL.Query().Get("stream"))
	if !stream {
		res, err := r.analyzer.RunAnalysis(req.Context(), cmd)
		middleware.ObserveAnalysis(ai.Kind(err), time.Since(start))
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, res)
	}

	sse, ok := newEventWriter(w)
	if !ok {
		return errors.New("streaming unsupported by response writer")
	}
	cmd.OnFragment = sse.fragment
	res, err := r.analyzer.RunAnalysis(req.Context(), cmd)
	middleware.ObserveAnalysis(ai.Kind(err), time.Since(start))
	if err != nil {
		if !sse.started {
			return err
		}
		status, body := errorResponse(err)
		log.WithError(err).WithField("status", status).Warn("streamed analysis failed")
		sse.send("error", body)
		return nil
	}
	sse.send("record", res)
	return nil
}

func (r *Router) decodeAnalyze(w http.ResponseWriter, req *http.Request) (analysis.AnalyzeCommand, error) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return analysis.AnalyzeCommand{}, err
		}
		return analysis.AnalyzeCommand{}, fmt.Errorf("%w: expected multipart form: %v", plants.ErrInvalidArgument, err)
	}

	file, header, err := req.FormFile("image")
	if err != nil {
		return analysis.AnalyzeCommand{}, fmt.Errorf("%w: image file is required", plants.ErrInvalidArgument)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return analysis.AnalyzeCommand{}, err
	}

	form := middleware.AnalyzeForm{
		PlantID:   strings.TrimSpace(req.FormValue("plant_id")),
		PlantName: req.FormValue("plant_name"),
		Sunlight:  strings.TrimSpace(req.FormValue("sunlight")),
		Watering:  strings.TrimSpace(req.FormValue("watering")),
		Notes:     req.FormValue("notes"),
		MIMEType:  imageType(header.Header.Get("Content-Type"), data),
		ImageSize: len(data),
	}
	if form.Latitude, err = optionalFloat(req, "latitude"); err != nil {
		return analysis.AnalyzeCommand{}, err
	}
	if form.Longitude, err = optionalFloat(req, "longitude"); err != nil {
		return analysis.AnalyzeCommand{}, err
	}
	if v := req.FormValue("organic"); v != "" {
		if form.Organic, err = strconv.ParseBool(v); err != nil {
			return analysis.AnalyzeCommand{}, fmt.Errorf("%w: organic must be a boolean", plants.ErrInvalidArgument)
		}
	}
	if err := form.Validate(); err != nil {
		return analysis.AnalyzeCommand{}, err
	}

	url := strings.TrimSpace(req.FormValue("image_url"))
	if url == "" {
		url = "upload:" + header.Filename
	}
	return analysis.AnalyzeCommand{
		PlantID:   form.PlantID,
		PlantName: form.PlantName,
		Image:     analysis.Image{Data: data, MIMEType: form.MIMEType, URL: url},
		Env:       form.Environment(),
	}, nil
}

// imageType trusts the part header unless it is missing or generic.
func imageType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

func optionalFloat(req *http.Request, field string) (*float64, error) {
	v := strings.TrimSpace(req.FormValue(field))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", plants.ErrInvalidArgument, field)
	}
	return &f, nil
}
