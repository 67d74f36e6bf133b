package models

import "time"

// Team 队伍信息
type Team struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	House   string `json:"house,omitempty"`
	Stadium string `json:"stadium,omitempty"`
}

// TeamStats 队伍的累计统计数据，只允许通过结算服务写入
type TeamStats struct {
	TeamID        string    `json:"team_id"`
	MatchesPlayed int       `json:"matches_played"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Draws         int       `json:"draws"`
	PointsFor     int       `json:"points_for"`
	PointsAgainst int       `json:"points_against"`
	SnitchCatches int       `json:"snitch_catches"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Standing 积分榜中的一行
type Standing struct {
	Team  Team      `json:"team"`
	Stats TeamStats `json:"stats"`
}
