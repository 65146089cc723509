package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/CTAG07/shannon/pkg/style"
)

// GenerationAPI serves style generation over HTTP.
type GenerationAPI struct {
	gen    *style.Generator
	config *Config
	logger *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewGenerationAPI creates a new instance of the GenerationAPI.
func NewGenerationAPI(gen *style.Generator, config *Config, logger *slog.Logger) *GenerationAPI {
	return &GenerationAPI{
		gen:    gen,
		config: config,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (a *GenerationAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/styles", a.handleStyles)
	mux.HandleFunc("/api/generate", a.handleGenerate)
	mux.HandleFunc("/api/blend", a.handleBlend)
	mux.HandleFunc("/api/version", a.handleVersion)
}

type GenerateRequest struct {
	Style   string   `json:"style"`
	Prompt  string   `json:"prompt"`
	Length  int      `json:"length"`
	Anchors []string `json:"anchors"`
}

type BlendRequest struct {
	First  string  `json:"first"`
	Second string  `json:"second"`
	Ratio  float64 `json:"ratio"`
	Length int     `json:"length"`
}

func (a *GenerationAPI) handleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, a.gen.Styles())
}

// handleGenerate runs creative generation. An unknown style answers with the
// bare prompt, the same as the library does.
func (a *GenerationAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	length, err := a.length(req.Length)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	anchors := normalizeAnchors(req.Anchors)
	result := a.gen.GenerateCreativeText(req.Style, req.Prompt, length, anchors)
	requestLogger(r, a.logger).Debug("Generated text",
		slog.String("style", req.Style),
		slog.Int("length", length),
		slog.Int("anchors", len(anchors)),
	)
	respondWithJSON(w, http.StatusOK, result)
}

func (a *GenerationAPI) handleBlend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req BlendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	length, err := a.length(req.Length)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	first, ok := a.gen.Sampler(req.First)
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown style '%s'", req.First))
		return
	}
	second, ok := a.gen.Sampler(req.Second)
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown style '%s'", req.Second))
		return
	}
	blender, err := style.NewBlender(first, second, req.Ratio)
	if errors.Is(err, style.ErrInvalidRatio) {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		requestLogger(r, a.logger).Error("Failed to create blender", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create blender")
		return
	}
	respondWithJSON(w, http.StatusOK, style.Result{Text: blender.Generate(length)})
}

func (a *GenerationAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate})
}

// length applies the configured default and upper bound to a requested length.
func (a *GenerationAPI) length(requested int) (int, error) {
	switch {
	case requested == 0:
		return a.config.DefaultLength, nil
	case requested < 0:
		return 0, fmt.Errorf("length must be positive, got %d", requested)
	case requested > a.config.MaxLength:
		return 0, fmt.Errorf("length %d exceeds the maximum of %d", requested, a.config.MaxLength)
	}
	return requested, nil
}

type requestIDKey struct{}

// withRequestID tags every request with an ID, echoed in the X-Request-Id
// header and attached to request logs.
func withRequestID(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		logger.Debug("API request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(contextWithRequestID(r, id)))
	})
}

func contextWithRequestID(r *http.Request, id string) context.Context {
	return context.WithValue(r.Context(), requestIDKey{}, id)
}

// requestLogger returns logger annotated with the request's ID, if any.
func requestLogger(r *http.Request, logger *slog.Logger) *slog.Logger {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return logger.With(slog.String("request_id", id))
	}
	return logger
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
