// Package vision is the observability surface: an HTTP API over the routing
// table, the metrics store and the delegation response slots, plus a
// websocket feed of every event crossing the bus.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dayuer/starfish-go/internal/bus"
	"github.com/dayuer/starfish-go/internal/event"
	"github.com/dayuer/starfish-go/internal/metrics"
	"github.com/dayuer/starfish-go/internal/routing"
	"github.com/dayuer/starfish-go/internal/sessions"
)

// Server serves the vision API.
type Server struct {
	Port   int
	APIKey string

	Bus         bus.Bus
	Assignments routing.AssignmentStore
	Lister      routing.AssignmentLister
	Slots       sessions.Slots
	Metrics     metrics.Store

	startTime time.Time
	wsConns   map[*wsConn]bool
	wsMu      sync.Mutex
	srv       *http.Server
}

// routes builds the HTTP handler and initializes server state.
func (s *Server) routes() http.Handler {
	s.startTime = time.Now()
	s.wsConns = make(map[*wsConn]bool)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/sessions/response", s.handlePutResponse)
		r.Get("/sessions/response", s.handleTakeResponse)
		r.Get("/routing", s.handleListRouting)
		r.Post("/routing", s.handleSetRouting)
		r.Delete("/routing", s.handleClearRouting)
		r.Get("/metrics", s.handleMetrics)
	})

	return r
}

// Start wires the event feed, builds the routes and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	handler := s.routes()

	if s.Bus != nil {
		for _, name := range event.AllNames() {
			s.Bus.Subscribe(name, s.broadcast)
		}
	}

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", s.Port),
		Handler: handler,
	}

	log.Printf("[Vision] ✅ HTTP API → http://0.0.0.0:%d", s.Port)
	log.Printf("[Vision] ✅ WebSocket → ws://0.0.0.0:%d/ws", s.Port)

	go func() {
		<-ctx.Done()
		s.closeAllWS()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.APIKey != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.APIKey {
				writeJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": int(time.Since(s.startTime).Seconds()),
	})
}

// responseBody is the JSON body for POST /api/sessions/response.
type responseBody struct {
	RequestID string `json:"requestId"`
	Output    string `json:"output"`
}

func (s *Server) handlePutResponse(w http.ResponseWriter, r *http.Request) {
	var body responseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if body.RequestID == "" {
		writeJSONError(w, "requestId is required", http.StatusBadRequest)
		return
	}
	if err := s.Slots.Put(r.Context(), body.RequestID, body.Output); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"stored": true})
}

// handleTakeResponse reads and clears the slot: a second GET for the same
// requestId returns null.
func (s *Server) handleTakeResponse(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("requestId")
	if requestID == "" {
		writeJSONError(w, "requestId is required", http.StatusBadRequest)
		return
	}
	output, ok, err := s.Slots.Take(r.Context(), requestID)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, map[string]any{"output": nil})
		return
	}
	writeJSON(w, map[string]any{"output": output})
}

func (s *Server) handleListRouting(w http.ResponseWriter, r *http.Request) {
	assignments, err := s.Lister.Assignments(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	list := make([]map[string]string, 0, len(assignments))
	for conversationID, agentID := range assignments {
		list = append(list, map[string]string{
			"conversationId": conversationID,
			"agentId":        agentID,
		})
	}
	writeJSON(w, map[string]any{"assignments": list})
}

// routingBody is the JSON body for POST /api/routing.
type routingBody struct {
	ConversationID string `json:"conversationId"`
	AgentID        string `json:"agentId"`
}

func (s *Server) handleSetRouting(w http.ResponseWriter, r *http.Request) {
	var body routingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if body.ConversationID == "" || body.AgentID == "" {
		writeJSONError(w, "conversationId and agentId are required", http.StatusBadRequest)
		return
	}
	if err := s.Assignments.Assign(r.Context(), body.ConversationID, body.AgentID); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"assigned": true})
}

func (s *Server) handleClearRouting(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		writeJSONError(w, "conversationId is required", http.StatusBadRequest)
		return
	}
	if err := s.Assignments.Unassign(r.Context(), conversationID); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"unassigned": true})
}

// handleMetrics returns one agent's record when agentId is given, otherwise
// today's record for every agent.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	if agentID != "" {
		record, err := s.Metrics.Metrics(r.Context(), agentID, r.URL.Query().Get("day"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"agentId": agentID, "metrics": record})
		return
	}
	all, err := s.Metrics.AllMetrics(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"metrics": all})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
