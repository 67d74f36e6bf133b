package web

import (
	"encoding/json"
	"net/http"

	"quidditch-service/models"
	"quidditch-service/services"
)

// handlePlaceBet 创建投注
func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req services.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	bet, err := s.bets.PlaceBet(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

// handleGetBets 按用户或比赛查询投注
func (s *Server) handleGetBets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.BetFilter{
		UserID:  query.Get("user_id"),
		MatchID: query.Get("match_id"),
		Status:  models.BetStatus(query.Get("status")),
	}

	bets, err := s.bets.ListBets(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bets": bets})
}
