// Package debugapi serves a development HTTP surface over the running
// simulation: JSON snapshots of combatants, encounters and projectiles, a
// websocket feed of gameplay events, and a few control endpoints for driving
// players by hand.
package debugapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/yomi/internal/game/boss"
	"github.com/cory-johannsen/yomi/internal/game/event"
	"github.com/cory-johannsen/yomi/internal/game/projectile"
	"github.com/cory-johannsen/yomi/internal/game/sim"
)

const (
	shutdownTimeout = 5 * time.Second
	feedBuffer      = 256
	writeWait       = 2 * time.Second
	pingPeriod      = 15 * time.Second
)

// World is the part of the simulation the debug surface reads and drives.
type World interface {
	Combatants() []sim.CombatantView
	Combatant(id string) (sim.CombatantView, bool)
	Encounters() []boss.Snapshot
	Encounter(bossID string) (boss.Snapshot, bool)
	Projectiles() []projectile.Snapshot
	Elapsed() float64
	Perform(id string, a sim.Action) (bool, error)
	StartEncounter(bossID, playerID string) (bool, error)
}

// Roster admits and dismisses players.
type Roster interface {
	Join(ctx context.Context, id string, pos cp.Vector) (bool, error)
	Leave(ctx context.Context, id string) error
}

// Server is the debug HTTP server. It satisfies server.Service.
type Server struct {
	world    World
	roster   Roster
	hub      *Hub
	logger   *zap.Logger
	router   *mux.Router
	http     *http.Server
	upgrader websocket.Upgrader
	health   func(context.Context) error
}

// NewServer builds the router. roster may be nil, which disables the player
// endpoints.
//
// Precondition: world and hub must be non-nil.
func NewServer(addr string, world World, roster Roster, hub *Hub, logger *zap.Logger) *Server {
	if world == nil || hub == nil {
		panic("debugapi.NewServer: world and hub must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		world:  world,
		roster: roster,
		hub:    hub,
		logger: logger,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/combatants", s.handleCombatants).Methods(http.MethodGet)
	r.HandleFunc("/combatants/{id}", s.handleCombatant).Methods(http.MethodGet)
	r.HandleFunc("/combatants/{id}/actions", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/encounters", s.handleEncounters).Methods(http.MethodGet)
	r.HandleFunc("/encounters/{id}", s.handleEncounter).Methods(http.MethodGet)
	r.HandleFunc("/encounters/{id}/start", s.handleStartEncounter).Methods(http.MethodPost)
	r.HandleFunc("/projectiles", s.handleProjectiles).Methods(http.MethodGet)
	r.HandleFunc("/players", s.handleJoin).Methods(http.MethodPost)
	r.HandleFunc("/players/{id}", s.handleLeave).Methods(http.MethodDelete)
	r.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("debug api listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down, waiting briefly for open requests.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("debug api shutdown", zap.Error(err))
	}
}

// StateView is the body of GET /state.
type StateView struct {
	Elapsed     float64               `json:"elapsed"`
	Combatants  []sim.CombatantView   `json:"combatants"`
	Encounters  []boss.Snapshot       `json:"encounters"`
	Projectiles []projectile.Snapshot `json:"projectiles"`
	Subscribers int                   `json:"subscribers"`
	Dropped     uint64                `json:"dropped_events"`
}

// ActionRequest is the body of POST /combatants/{id}/actions.
type ActionRequest struct {
	Action string `json:"action"`
}

// StartRequest is the body of POST /encounters/{id}/start.
type StartRequest struct {
	Player string `json:"player"`
}

// JoinRequest is the body of POST /players.
type JoinRequest struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Result reports whether a requested action took effect.
type Result struct {
	Accepted bool `json:"accepted"`
}

// SetHealthCheck installs the check consulted by /healthz. Call before Start.
func (s *Server) SetHealthCheck(check func(context.Context) error) {
	s.health = check
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "elapsed": s.world.Elapsed()})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, StateView{
		Elapsed:     s.world.Elapsed(),
		Combatants:  s.world.Combatants(),
		Encounters:  s.world.Encounters(),
		Projectiles: s.world.Projectiles(),
		Subscribers: s.hub.Len(),
		Dropped:     s.hub.Dropped(),
	})
}

func (s *Server) handleCombatants(w http.ResponseWriter, r *http.Request) {
	views := s.world.Combatants()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := views[:0]
		for _, v := range views {
			if v.Kind == kind {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCombatant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	v, ok := s.world.Combatant(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown combatant "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleEncounters(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.world.Encounters())
}

func (s *Server) handleEncounter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	enc, ok := s.world.Encounter(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown boss "+id)
		return
	}
	s.writeJSON(w, http.StatusOK, enc)
}

func (s *Server) handleProjectiles(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.world.Projectiles())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	a, err := sim.ParseAction(req.Action)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := s.world.Perform(mux.Vars(r)["id"], a)
	if err != nil {
		s.writeSimError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Result{Accepted: ok})
}

func (s *Server) handleStartEncounter(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !s.decode(w, r, &req) {
		return
	}
	ok, err := s.world.StartEncounter(mux.Vars(r)["id"], req.Player)
	if err != nil {
		s.writeSimError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, Result{Accepted: ok})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if s.roster == nil {
		s.writeError(w, http.StatusNotImplemented, "player roster disabled")
		return
	}
	var req JoinRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "id must not be empty")
		return
	}
	restored, err := s.roster.Join(r.Context(), req.ID, cp.Vector{X: req.X, Y: req.Y})
	if err != nil {
		s.writeSimError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"id": req.ID, "restored": restored})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if s.roster == nil {
		s.writeError(w, http.StatusNotImplemented, "player roster disabled")
		return
	}
	if err := s.roster.Leave(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeSimError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents upgrades to a websocket and streams events as JSON until the
// client goes away. ?kinds=died,phase_changed narrows the feed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var kinds []event.Kind
	if raw := r.URL.Query().Get("kinds"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			k, err := event.ParseKind(strings.TrimSpace(name))
			if err != nil {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			kinds = append(kinds, k)
		}
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("event feed upgrade failed", zap.Error(err))
		return
	}
	feed, unsubscribe := s.hub.Subscribe(feedBuffer, kinds...)
	s.logger.Debug("event feed opened", zap.String("remote", r.RemoteAddr))

	// The reader only watches for the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		unsubscribe()
		_ = conn.Close()
		s.logger.Debug("event feed closed", zap.String("remote", r.RemoteAddr))
	}()
	for {
		select {
		case <-closed:
			return
		case e := <-feed:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeSimError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrUnknownCombatant):
		status = http.StatusNotFound
	case errors.Is(err, sim.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, sim.ErrWrongKind):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("debug api request failed", zap.Error(err))
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("writing response", zap.Error(err))
	}
}
