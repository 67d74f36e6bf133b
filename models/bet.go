package models

import "time"

// Bet 用户针对某场比赛的投注或预测
type Bet struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	MatchID    string     `json:"match_id"`
	Type       BetType    `json:"type"`
	Prediction Prediction `json:"prediction"`
	Status     BetStatus  `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// BetType 投注类型
type BetType string

const (
	BetTypeWinner     BetType = "winner"
	BetTypeExactScore BetType = "exact_score"
	BetTypeSnitch     BetType = "snitch"
	BetTypeTimeWindow BetType = "time_window"
	BetTypeCombined   BetType = "combined"
)

// BetStatus 投注状态
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWon     BetStatus = "won"
	BetStatusLost    BetStatus = "lost"
)

// Prediction 单个预测的内容。Combined 投注由多个子预测组成，
// 全部命中才算赢
type Prediction struct {
	// winner/snitch 预测: "home" 或 "away"
	Side string `json:"side,omitempty"`
	// exact_score 预测: 形如 "150-90" 的比分字符串
	Score string `json:"score,omitempty"`
	// time_window 预测: 比赛时长落在 [MinMinutes, MaxMinutes] 区间内
	MinMinutes int `json:"min_minutes,omitempty"`
	MaxMinutes int `json:"max_minutes,omitempty"`
	// combined 投注的子预测
	Legs []PredictionLeg `json:"legs,omitempty"`
}

// PredictionLeg Combined 投注中的一条腿
type PredictionLeg struct {
	Type       BetType    `json:"type"`
	Prediction Prediction `json:"prediction"`
}
