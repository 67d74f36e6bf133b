package models

import "time"

// Match 一场魁地奇比赛
type Match struct {
	ID              string       `json:"id"`
	SeasonID        string       `json:"season_id"`
	HomeTeamID      string       `json:"home_team_id"`
	AwayTeamID      string       `json:"away_team_id"`
	Status          MatchStatus  `json:"status"`
	ScheduledAt     time.Time    `json:"scheduled_at"`
	HomeScore       int          `json:"home_score"`
	AwayScore       int          `json:"away_score"`
	DurationMinutes int          `json:"duration_minutes,omitempty"`
	SnitchCaught    bool         `json:"snitch_caught"`
	SnitchTeamID    *string      `json:"snitch_team_id,omitempty"`
	Events          []MatchEvent `json:"events,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// MatchStatus 比赛状态
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusFinished  MatchStatus = "finished"
)

// MatchEvent 比赛中的单个事件
type MatchEvent struct {
	ID          string    `json:"id"`
	MatchID     string    `json:"match_id"`
	Minute      int       `json:"minute"`
	Type        EventType `json:"type"`
	TeamID      string    `json:"team_id"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
}

// EventType 比赛事件类型
type EventType string

const (
	EventTypeGoal   EventType = "goal"
	EventTypeFoul   EventType = "foul"
	EventTypeSnitch EventType = "snitch"
)

// 事件分值
const (
	PointsGoal   = 10
	PointsSnitch = 150
	PointsFoul   = 0
)

// MatchResult 比赛的最终结果，由模拟器生成并交给结算服务
type MatchResult struct {
	MatchID         string       `json:"match_id"`
	HomeTeamID      string       `json:"home_team_id"`
	AwayTeamID      string       `json:"away_team_id"`
	HomeScore       int          `json:"home_score"`
	AwayScore       int          `json:"away_score"`
	DurationMinutes int          `json:"duration_minutes"`
	SnitchCaught    bool         `json:"snitch_caught"`
	SnitchTeamID    *string      `json:"snitch_team_id,omitempty"`
	Events          []MatchEvent `json:"events"`
}

// WinnerTeamID 返回获胜方的队伍ID，平局返回空字符串
func (r *MatchResult) WinnerTeamID() string {
	if r.HomeScore > r.AwayScore {
		return r.HomeTeamID
	}
	if r.AwayScore > r.HomeScore {
		return r.AwayTeamID
	}
	return ""
}
