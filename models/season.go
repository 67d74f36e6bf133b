package models

import "time"

// Season 一个赛季
type Season struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ClockState 虚拟时钟状态，每个赛季一条时间线
type ClockState struct {
	CurrentDate    time.Time `json:"current_date"`
	ActiveSeasonID string    `json:"active_season_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
