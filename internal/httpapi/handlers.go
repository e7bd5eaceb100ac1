package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"q3scout/internal/servers"
)

// Engine is the query surface the API serves.
type Engine interface {
	Refresh(listMinPeriod, statusMinPeriod time.Duration) bool
	Snapshots() []servers.StatusSnapshot
	ActiveServers() string
	CheckPeekActivity(period time.Duration, minPlayers int) string
}

type API struct {
	engine   Engine
	limiters *limiterSet
}

func New(engine Engine) *API {
	return &API{
		engine:   engine,
		limiters: newLimiterSet(),
	}
}

// Handler routes the API endpoints.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/servers", WithCORS(a.limit(a.ServeServersAPI)))
	mux.HandleFunc("/api/active", WithCORS(a.limit(a.ServeActive)))
	mux.HandleFunc("/api/peek", WithCORS(a.limit(a.ServePeek)))
	return mux
}

// ServeServersAPI responds with the responsive servers in JSON.
func (a *API) ServeServersAPI(w http.ResponseWriter, r *http.Request) {
	if !a.engine.Refresh(servers.ListPeriod, servers.StatusPeriod) {
		http.Error(w, "Failed to retrieve server status info.", http.StatusServiceUnavailable)
		return
	}
	list := a.engine.Snapshots()

	// Busiest servers first, then by address
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ActivePlayers != list[j].ActivePlayers {
			return list[i].ActivePlayers > list[j].ActivePlayers
		}
		return list[i].Address < list[j].Address
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		log.Error().Err(err).Msg("failed to encode server list")
	}
}

// ServeActive responds with one line per server that has active players.
func (a *API) ServeActive(w http.ResponseWriter, r *http.Request) {
	writeText(w, a.engine.ActiveServers())
}

// ServePeek reports the busiest server on demand.
func (a *API) ServePeek(w http.ResponseWriter, r *http.Request) {
	writeText(w, a.engine.CheckPeekActivity(0, 0))
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func WithCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}
