package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/samuelbarrett1234/40KLearn/internal/applog"
	"github.com/samuelbarrett1234/40KLearn/internal/httpapi/live"
	"github.com/samuelbarrett1234/40KLearn/pkg/selfplay"
)

// Server exposes a read-only JSON view of a Runner's manager, plus the
// websocket spectator feed, over HTTP.
type Server struct {
	router  *mux.Router
	manager *selfplay.Manager
	runner  *Runner
	hub     *live.Hub
	log     zerolog.Logger
}

// NewServer builds the route table. manager and runner share the same
// underlying selfplay.Manager; Server only ever reads from it.
func NewServer(manager *selfplay.Manager, runner *Runner, hub *live.Hub, log zerolog.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		manager: manager,
		runner:  runner,
		hub:     hub,
		log:     log,
	}

	s.router.Use(s.requestIDMiddleware)
	s.router.HandleFunc("/api/match", s.handleMatch).Methods(http.MethodGet)
	s.router.HandleFunc("/api/games", s.handleListGames).Methods(http.MethodGet)
	s.router.HandleFunc("/api/games/{id}", s.handleGetGame).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", hub.ServeWS)

	return s
}

// ServeHTTP lets Server be used directly with http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := applog.NewRequestID()
		ctx := applog.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type matchStatus struct {
	MatchID string `json:"matchId"`
	Running []int  `json:"runningGameIds"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, applog.ForRequest(r.Context()), matchStatus{
		MatchID: s.runner.MatchID(),
		Running: s.manager.RunningGameIDs(),
	})
}

type gameSummary struct {
	ID       int       `json:"id"`
	Board    string    `json:"board"`
	TreeSize int       `json:"treeSize"`
	Policy   []float64 `json:"policy"`
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	ids := s.manager.RunningGameIDs()
	states := s.manager.CurrentStates()
	sizes, err := s.manager.TreeSizes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	policies, err := s.manager.CurrentActionDistributions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]gameSummary, len(ids))
	for i, id := range ids {
		out[i] = gameSummary{
			ID:       id,
			Board:    states[i].Board().String(),
			TreeSize: sizes[i],
			Policy:   policies[i],
		}
	}
	writeJSON(w, applog.ForRequest(r.Context()), out)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	ids := s.manager.RunningGameIDs()
	states := s.manager.CurrentStates()
	sizes, err := s.manager.TreeSizes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	policies, err := s.manager.CurrentActionDistributions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for i, id := range ids {
		if strconv.Itoa(id) == idStr {
			writeJSON(w, applog.ForRequest(r.Context()), gameSummary{
				ID:       id,
				Board:    states[i].Board().String(),
				TreeSize: sizes[i],
				Policy:   policies[i],
			})
			return
		}
	}

	if id, err := strconv.Atoi(idStr); err == nil {
		if v, ok := s.manager.GameValues()[id]; ok {
			writeJSON(w, applog.ForRequest(r.Context()), map[string]interface{}{
				"id":       idStr,
				"finished": true,
				"value":    v,
			})
			return
		}
	}

	http.Error(w, "game not found", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("httpapi: failed to encode response")
	}
}
