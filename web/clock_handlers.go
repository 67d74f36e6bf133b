package web

import (
	"encoding/json"
	"net/http"

	"quidditch-service/config"
	"quidditch-service/services"
)

// handleGetClock 查询当前虚拟日期和激活赛季
func (s *Server) handleGetClock(w http.ResponseWriter, r *http.Request) {
	state, err := s.clock.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleAdvanceClock 推进虚拟时钟
func (s *Server) handleAdvanceClock(w http.ResponseWriter, r *http.Request) {
	var spec services.AdvanceSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := s.clock.Advance(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleResetClock 重置时钟和激活赛季
func (s *Server) handleResetClock(w http.ResponseWriter, r *http.Request) {
	if err := s.clock.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleCreateSeason 从联赛文件创建并激活赛季
func (s *Server) handleCreateSeason(w http.ResponseWriter, r *http.Request) {
	league, err := config.LoadLeague(s.config.LeagueFile)
	if err != nil {
		writeError(w, err)
		return
	}

	season, err := s.seasons.CreateSeason(r.Context(), league)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, season)
}

// handleGetStandings 查询积分榜
func (s *Server) handleGetStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := s.store.ListStandings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"standings": standings})
}

// handleGetTeams 查询队伍列表
func (s *Server) handleGetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.store.ListTeams(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}
