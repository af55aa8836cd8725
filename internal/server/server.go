// Package server is the HTTP adapter over the services. It only decodes
// requests, dispatches and maps domain errors to status codes; all rules
// live below it.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Gabriel-Palomares/matchmaking/internal/domain"
	"github.com/Gabriel-Palomares/matchmaking/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Server struct {
	players     *service.PlayerService
	matchmaking *service.MatchmakingService
	history     *service.HistoryService
	logger      zerolog.Logger
}

func New(players *service.PlayerService, matchmaking *service.MatchmakingService, history *service.HistoryService, logger zerolog.Logger) *Server {
	return &Server{players: players, matchmaking: matchmaking, history: history, logger: logger}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/players", func(r chi.Router) {
		r.Get("/", s.listPlayers)
		r.Post("/", s.createPlayer)
		r.Get("/{playerID}", s.getPlayer)
		r.Put("/{playerID}", s.renamePlayer)
		r.Delete("/{playerID}", s.deletePlayer)
		r.Get("/{playerID}/history", s.playerHistory)
	})

	r.Get("/modes", s.listModes)

	r.Route("/matches", func(r chi.Router) {
		r.Get("/", s.recentMatches)
		r.Post("/", s.createMatch)
		r.Post("/fixed", s.registerFixedMatch)
		r.Get("/{matchID}", s.getMatch)
		r.Post("/{matchID}/result", s.recordResult)
	})

	return r
}

type playerResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Rating        float64 `json:"rating"`
	MatchesPlayed int     `json:"matchesPlayed"`
	TotalMVP      int     `json:"totalMvp"`
	TotalUnderdog int     `json:"totalUnderdog"`
	InCalibration bool    `json:"inCalibration"`
}

type teamResponse struct {
	ID        int64   `json:"id"`
	Label     string  `json:"label"`
	PlayerIDs []int64 `json:"playerIds"`
	Outcome   *string `json:"outcome,omitempty"`
}

type matchResponse struct {
	ID        int64          `json:"id"`
	ModeID    int64          `json:"modeId"`
	CreatedAt time.Time      `json:"createdAt"`
	ModeName  string         `json:"modeName,omitempty"`
	Teams     []teamResponse `json:"teams,omitempty"`
}

func toPlayerResponse(p domain.Player) playerResponse {
	return playerResponse{
		ID:            p.ID,
		Name:          p.Name,
		Rating:        p.Rating,
		MatchesPlayed: p.MatchesPlayed,
		TotalMVP:      p.TotalMVP,
		TotalUnderdog: p.TotalUnderdog,
		InCalibration: p.InCalibration(),
	}
}

func toTeamResponses(teams []domain.Team) []teamResponse {
	out := make([]teamResponse, len(teams))
	for i, t := range teams {
		out[i] = teamResponse{ID: t.ID, Label: t.Label, PlayerIDs: t.MemberIDs}
		if t.Result != nil {
			outcome := string(t.Result.Outcome)
			out[i].Outcome = &outcome
		}
	}
	return out
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.players.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]playerResponse, len(players))
	for i, p := range players {
		out[i] = toPlayerResponse(p)
	}
	s.writeJSON(w, http.StatusOK, out)
}

type createPlayerRequest struct {
	Name string `json:"name"`
}

func (s *Server) createPlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	player, err := s.players.Create(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPlayerResponse(*player))
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerID")
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	player, err := s.players.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPlayerResponse(*player))
}

func (s *Server) renamePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerID")
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	player, err := s.players.Rename(r.Context(), id, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPlayerResponse(*player))
}

func (s *Server) deletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerID")
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	if err := s.players.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type historyEntryResponse struct {
	MatchID   int64     `json:"matchId"`
	PlayedAt  time.Time `json:"playedAt"`
	ModeName  string    `json:"modeName"`
	TeamLabel string    `json:"teamLabel"`
	Outcome   *string   `json:"outcome,omitempty"`
}

func (s *Server) playerHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "playerID")
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	history, err := s.history.PlayerHistory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entries := make([]historyEntryResponse, len(history.Entries))
	for i, e := range history.Entries {
		entries[i] = historyEntryResponse{
			MatchID:   e.MatchID,
			PlayedAt:  e.PlayedAt,
			ModeName:  e.ModeName,
			TeamLabel: e.TeamLabel,
		}
		if e.Outcome != nil {
			outcome := string(*e.Outcome)
			entries[i].Outcome = &outcome
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"player":  toPlayerResponse(history.Player),
		"entries": entries,
	})
}

type modeResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PlayersPerTeam int    `json:"playersPerTeam"`
	AutoBalance    bool   `json:"autoBalance"`
}

func (s *Server) listModes(w http.ResponseWriter, r *http.Request) {
	modes, err := s.history.GameModes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]modeResponse, len(modes))
	for i, m := range modes {
		out[i] = modeResponse{ID: m.ID, Name: m.Name, PlayersPerTeam: m.PlayersPerTeam, AutoBalance: m.AutoBalance}
	}
	s.writeJSON(w, http.StatusOK, out)
}

type createMatchRequest struct {
	PlayerIDs []int64 `json:"playerIds"`
	ModeID    int64   `json:"modeId"`
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.matchmaking.CreateMatch(r.Context(), req.PlayerIDs, req.ModeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reserves := make([]playerResponse, len(result.Reserves))
	for i, p := range result.Reserves {
		reserves[i] = toPlayerResponse(p)
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"match": matchResponse{
			ID:        result.Match.ID,
			ModeID:    result.Match.ModeID,
			CreatedAt: result.Match.CreatedAt,
			Teams:     toTeamResponses(result.Teams),
		},
		"reserves": reserves,
	})
}

type registerFixedMatchRequest struct {
	ModeID   int64   `json:"modeId"`
	TeamAIDs []int64 `json:"teamAIds"`
	TeamBIDs []int64 `json:"teamBIds"`
}

func (s *Server) registerFixedMatch(w http.ResponseWriter, r *http.Request) {
	var req registerFixedMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	match, teams, err := s.matchmaking.RegisterFixedMatch(r.Context(), req.ModeID, req.TeamAIDs, req.TeamBIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, matchResponse{
		ID:        match.ID,
		ModeID:    match.ModeID,
		CreatedAt: match.CreatedAt,
		Teams:     toTeamResponses(teams),
	})
}

func (s *Server) recentMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.history.RecentMatches(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]matchResponse, len(matches))
	for i, m := range matches {
		out[i] = matchResponse{
			ID:        m.Match.ID,
			ModeID:    m.Match.ModeID,
			CreatedAt: m.Match.CreatedAt,
			ModeName:  m.Mode.Name,
			Teams:     toTeamResponses(m.Teams),
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "matchID")
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	match, err := s.history.Match(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, matchResponse{
		ID:        match.Match.ID,
		ModeID:    match.Match.ModeID,
		CreatedAt: match.Match.CreatedAt,
		ModeName:  match.Mode.Name,
		Teams:     toTeamResponses(match.Teams),
	})
}

type recordResultRequest struct {
	IsDraw           bool   `json:"isDraw"`
	WinningTeamID    *int64 `json:"winningTeamId,omitempty"`
	MVPPlayerID      *int64 `json:"mvpPlayerId,omitempty"`
	UnderdogPlayerID *int64 `json:"underdogPlayerId,omitempty"`
}

func (s *Server) recordResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "matchID")
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	var req recordResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err = s.matchmaking.RecordResult(r.Context(), id, service.ResultRequest{
		IsDraw:           req.IsDraw,
		WinningTeamID:    req.WinningTeamID,
		MVPPlayerID:      req.MVPPlayerID,
		UnderdogPlayerID: req.UnderdogPlayerID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrModeNotFound),
		errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrResultAlreadyRecorded),
		errors.Is(err, domain.ErrPlayerHasHistory):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPlayers),
		errors.Is(err, domain.ErrInsufficientTeams),
		errors.Is(err, domain.ErrWrongModeKind),
		errors.Is(err, domain.ErrTeamSizeMismatch),
		errors.Is(err, domain.ErrNoWinnerSpecified),
		errors.Is(err, domain.ErrEmptyName):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
