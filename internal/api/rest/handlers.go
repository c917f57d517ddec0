package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/hoopsdaily/internal/ledger"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// HealthChecker is anything that can report readiness, such as the Postgres
// handle or the Redis cache.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	docs    *store.DocumentStore
	ledger  ledger.Store
	checks  map[string]HealthChecker
	version string
}

// NewHandler creates a new handler
func NewHandler(docs *store.DocumentStore, ledgerStore ledger.Store, version string) *Handler {
	return &Handler{
		docs:    docs,
		ledger:  ledgerStore,
		checks:  map[string]HealthChecker{},
		version: version,
	}
}

// AddHealthCheck registers a dependency reported by /health.
func (h *Handler) AddHealthCheck(name string, c HealthChecker) {
	h.checks[name] = c
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.HealthCheck(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	respondJSON(w, code, map[string]interface{}{
		"status":       status,
		"service":      "hoopsdaily",
		"version":      h.version,
		"dependencies": deps,
	})
}

// GetDates returns every scraped date, newest first.
func (h *Handler) GetDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.docs.ListDates()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list dates", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dates": dates,
		"count": len(dates),
	})
}

// GetGamesByDate returns the day document for ?date=, or the latest one.
func (h *Handler) GetGamesByDate(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.dayFromQuery(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// GetGame finds one game by id, searching ?date= when given, otherwise every
// document newest first.
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]

	var dates []string
	if d := r.URL.Query().Get("date"); d != "" {
		if _, err := time.Parse(store.DateLayout, d); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		dates = []string{d}
	} else {
		all, err := h.docs.ListDates()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to list dates", err)
			return
		}
		dates = all
	}

	for _, d := range dates {
		doc, err := h.docs.ReadDay(d)
		if err != nil {
			continue
		}
		for _, g := range doc.Games {
			if g.GameID == gameID {
				respondJSON(w, http.StatusOK, map[string]interface{}{"date": doc.Date, "game": g})
				return
			}
		}
	}
	respondError(w, http.StatusNotFound, "Game not found", nil)
}

type blurbPayload struct {
	GameID  string `json:"game_id"`
	Matchup string `json:"matchup"`
	Text    string `json:"text"`
}

// GetBlurbs returns the blurbs for ?date= (default latest) flattened per game.
func (h *Handler) GetBlurbs(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.dayFromQuery(w, r)
	if !ok {
		return
	}

	blurbs := make([]blurbPayload, 0)
	for _, g := range doc.Games {
		for _, b := range g.Blurbs {
			blurbs = append(blurbs, blurbPayload{GameID: g.GameID, Matchup: g.Matchup(), Text: b})
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":   doc.Date,
		"blurbs": blurbs,
		"count":  len(blurbs),
	})
}

type playerPayload struct {
	PlayerID     string   `json:"player_id"`
	Name         string   `json:"name"`
	Team         string   `json:"team"`
	Games        int      `json:"games"`
	Starts       int      `json:"starts"`
	TotalMinutes float64  `json:"total_min"`
	AvgMinutes   float64  `json:"avg_minutes"`
	DatesStarted []string `json:"dates_started"`
}

func toPlayerPayload(id string, e ledger.Entry) playerPayload {
	return playerPayload{
		PlayerID:     id,
		Name:         e.Name,
		Team:         e.Team,
		Games:        e.Games,
		Starts:       e.Starts,
		TotalMinutes: e.TotalMinutes,
		AvgMinutes:   e.AvgMinutes(),
		DatesStarted: e.DatesStarted,
	}
}

// GetPlayers lists ledger entries, optionally filtered by ?team=.
func (h *Handler) GetPlayers(w http.ResponseWriter, r *http.Request) {
	l, err := h.ledger.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load player ledger", err)
		return
	}

	team := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("team")))
	players := make([]playerPayload, 0, l.Len())
	for _, id := range l.IDs() {
		e, _ := l.Get(id)
		if team != "" && e.Team != team {
			continue
		}
		players = append(players, toPlayerPayload(id, e))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"players": players,
		"count":   len(players),
	})
}

// GetPlayer returns one ledger entry by provider id.
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["playerID"]

	l, err := h.ledger.Load(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load player ledger", err)
		return
	}

	e, ok := l.Get(playerID)
	if !ok {
		respondError(w, http.StatusNotFound, "Player not found", nil)
		return
	}
	respondJSON(w, http.StatusOK, toPlayerPayload(playerID, e))
}

// dayFromQuery loads the document for ?date=, defaulting to the newest.
// It writes the error response itself and reports whether to continue.
func (h *Handler) dayFromQuery(w http.ResponseWriter, r *http.Request) (*store.DayDocument, bool) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		dates, err := h.docs.ListDates()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to list dates", err)
			return nil, false
		}
		if len(dates) == 0 {
			respondError(w, http.StatusNotFound, "No dates scraped yet", nil)
			return nil, false
		}
		dateStr = dates[0]
	}

	if _, err := time.Parse(store.DateLayout, dateStr); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return nil, false
	}

	doc, err := h.docs.ReadDay(dateStr)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No document for date", err)
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read document", err)
		return nil, false
	}
	return doc, true
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
