package services

import (
	"context"
	"time"

	"quidditch-service/models"
)

// MatchFilter 比赛查询条件
type MatchFilter struct {
	SeasonID  string
	Status    models.MatchStatus
	DueBefore *time.Time // scheduledAt <= DueBefore
	Limit     int
}

// BetFilter 投注查询条件
type BetFilter struct {
	MatchID string
	UserID  string
	Status  models.BetStatus
}

// Store 数据存储抽象。PostgresStore 是线上实现，MemoryStore 用于测试
type Store interface {
	// 队伍
	SaveTeam(ctx context.Context, team *models.Team) error
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
	GetTeamStats(ctx context.Context, teamID string) (*models.TeamStats, error)
	ListStandings(ctx context.Context) ([]*models.Standing, error)

	// 赛季
	SaveSeason(ctx context.Context, season *models.Season) error
	GetSeason(ctx context.Context, seasonID string) (*models.Season, error)
	GetActiveSeason(ctx context.Context) (*models.Season, error)

	// 比赛
	SaveMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]*models.Match, error)

	// TransitionMatchStatus 比赛状态的原子转换，当前状态不等于 from 时
	// 返回 ErrInvalidState
	TransitionMatchStatus(ctx context.Context, matchID string, from, to models.MatchStatus) error

	// UpdateLiveProgress 写入直播过程中的临时比分和事件。
	// 这些写入仅供展示，最终以 FinalizeMatch 的结果为准
	UpdateLiveProgress(ctx context.Context, matchID string, homeScore, awayScore int, event *models.MatchEvent) error

	// FinalizeMatch 原子地把比赛置为 finished 并应用最终结果和队伍统计。
	// 返回值表示当前调用方是否赢得了这次转换；false 说明比赛已经被
	// 其他调用方结算过，任何数据都不会被修改
	FinalizeMatch(ctx context.Context, result *models.MatchResult) (bool, error)

	// 投注
	SaveBet(ctx context.Context, bet *models.Bet) error
	GetBet(ctx context.Context, betID string) (*models.Bet, error)
	ListBets(ctx context.Context, filter BetFilter) ([]*models.Bet, error)

	// 虚拟时钟
	GetClockState(ctx context.Context) (*models.ClockState, error)
	SaveClockState(ctx context.Context, state *models.ClockState) error

	// ClearSeason 删除赛季的所有比赛、事件和投注，并清零队伍统计。
	// 赛季重置时调用
	ClearSeason(ctx context.Context, seasonID string) error
}
