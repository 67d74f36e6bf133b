package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"quidditch-service/models"
	"quidditch-service/pkg/common"
	"quidditch-service/services"
)

// handleGetMatches 查询比赛列表
func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.MatchFilter{
		SeasonID: query.Get("season_id"),
		Status:   models.MatchStatus(query.Get("status")),
	}

	matches, err := s.store.ListMatches(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// handleGetMatch 查询单场比赛的直播状态，UI 约每3秒轮询一次
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := vars["match_id"]

	state, err := s.simulator.LiveState(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleGetMatchResult 查询已结束比赛的完整结果和两队的累计统计
func (s *Server) handleGetMatchResult(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := vars["match_id"]

	match, err := s.store.GetMatch(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	// 结果在比赛结束前不存在
	if match.Status != models.MatchStatusFinished {
		writeError(w, fmt.Errorf("result for match %s is not available yet: %w", matchID, common.ErrNotFound))
		return
	}

	homeStats, err := s.store.GetTeamStats(r.Context(), match.HomeTeamID)
	if err != nil {
		writeError(w, err)
		return
	}
	awayStats, err := s.store.GetTeamStats(r.Context(), match.AwayTeamID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"match":      match,
		"home_stats": homeStats,
		"away_stats": awayStats,
	})
}

// handleSimulateInstant 立即模拟并结算一场比赛
func (s *Server) handleSimulateInstant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := vars["match_id"]

	result, err := s.simulator.SimulateInstant(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleStartLive 启动直播模拟
func (s *Server) handleStartLive(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := vars["match_id"]

	if err := s.simulator.StartLive(r.Context(), matchID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "match_id": matchID})
}

// handleStopLive 停止直播模拟，比赛保持 live 状态
func (s *Server) handleStopLive(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	matchID := vars["match_id"]

	if err := s.simulator.StopLive(matchID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped", "match_id": matchID})
}
