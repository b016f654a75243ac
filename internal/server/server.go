// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/agentberlin/linksnake/internal/app"
)

// errMessageLimit caps the error text echoed to API clients. Resolution
// errors embed URLs and page excerpts that can run long.
const errMessageLimit = 250

// Server represents the HTTP server
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// NewServer creates a new HTTP server
func NewServer(app *app.App) *Server {
	s := &Server{
		app: app,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS middleware
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// Handle preflight
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	// A panic in a handler must cost one request, not the process.
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}()

	log.Printf("%s %s", r.Method, r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/ping", s.handlePing)
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/version", s.handleGetVersion)
	s.mux.HandleFunc("/api/v1/resolve", s.handleResolve)
	s.mux.HandleFunc("/api/v1/resolutions", s.handleResolutions)
	s.mux.HandleFunc("/api/v1/resolutions/", s.handleResolutionByID)
	s.mux.HandleFunc("/api/v1/profiles", s.handleProfiles)
}

// handlePing is the keep-alive endpoint the self-ping loop targets.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("pong"))
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// handleGetVersion returns the application version
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": s.app.GetVersion(),
	})
}

// resolveResponse is the wire shape of a resolution outcome. Failures are
// part of the domain, so they ride a 200 with success=false; non-200 is
// reserved for requests that never ran.
type resolveResponse struct {
	Success           bool     `json:"success"`
	FinalURL          string   `json:"finalUrl,omitempty"`
	SuggestedFilename string   `json:"suggestedFilename,omitempty"`
	FailureKind       string   `json:"failureKind,omitempty"`
	Error             string   `json:"error,omitempty"`
	Hops              int      `json:"hops"`
	DurationMs        int64    `json:"durationMs"`
	Logs              []string `json:"logs"`
}

// handleResolve handles POST /api/v1/resolve
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URL     string `json:"url"`
		Profile string `json:"profile,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResolveError(w, "Invalid request body")
		return
	}
	if req.URL == "" {
		writeResolveError(w, "url is required")
		return
	}

	result, err := s.app.Resolve(r.Context(), req.URL, req.Profile)
	if err != nil {
		writeResolveError(w, truncate(err.Error(), errMessageLimit))
		return
	}

	resp := resolveResponse{
		Success:           result.Success,
		FinalURL:          result.FinalURL,
		SuggestedFilename: result.SuggestedFilename,
		FailureKind:       string(result.Kind),
		Error:             truncate(result.ErrorMessage, errMessageLimit),
		Hops:              result.Hops,
		DurationMs:        result.Duration.Milliseconds(),
		Logs:              result.Logs,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeResolveError reports a request that never ran. It keeps the resolve
// wire shape so clients can always check the success field, but uses a 400
// because no resolution was attempted.
func writeResolveError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(resolveResponse{
		Success: false,
		Error:   msg,
		Logs:    []string{},
	})
}

// handleResolutions handles GET /api/v1/resolutions?limit=50
func (s *Server) handleResolutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err == nil && parsed > 0 {
			limit = parsed
		}
	}

	resolutions, err := s.app.GetRecentResolutions(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resolutions)
}

// handleResolutionByID handles GET /api/v1/resolutions/{id}
func (s *Server) handleResolutionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/resolutions/")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid resolution id"})
		return
	}

	resolution, err := s.app.GetResolution(uint(id))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resolution)
}

// handleProfiles handles GET /api/v1/profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{
		"profiles": s.app.GetProfileNames(),
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
