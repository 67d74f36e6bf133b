package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

// MemoryStore 是 Store 接口的内存实现，用于测试和本地开发
type MemoryStore struct {
	mu       sync.RWMutex
	teams    map[string]*models.Team
	stats    map[string]*models.TeamStats
	seasons  map[string]*models.Season
	matches  map[string]*models.Match
	bets     map[string]*models.Bet
	clock    *models.ClockState
}

// NewMemoryStore 创建 MemoryStore 实例
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:   make(map[string]*models.Team),
		stats:   make(map[string]*models.TeamStats),
		seasons: make(map[string]*models.Season),
		matches: make(map[string]*models.Match),
		bets:    make(map[string]*models.Bet),
	}
}

func (s *MemoryStore) SaveTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *team
	s.teams[team.ID] = &copied
	if _, ok := s.stats[team.ID]; !ok {
		s.stats[team.ID] = &models.TeamStats{TeamID: team.ID}
	}
	return nil
}

func (s *MemoryStore) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, ok := s.teams[teamID]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *team
	return &copied, nil
}

func (s *MemoryStore) ListTeams(ctx context.Context) ([]*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]*models.Team, 0, len(s.teams))
	for _, team := range s.teams {
		copied := *team
		teams = append(teams, &copied)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

func (s *MemoryStore) GetTeamStats(ctx context.Context, teamID string) (*models.TeamStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[teamID]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *stats
	return &copied, nil
}

func (s *MemoryStore) ListStandings(ctx context.Context) ([]*models.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	standings := make([]*models.Standing, 0, len(s.teams))
	for id, team := range s.teams {
		stats := s.stats[id]
		if stats == nil {
			stats = &models.TeamStats{TeamID: id}
		}
		standings = append(standings, &models.Standing{Team: *team, Stats: *stats})
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i].Stats, standings[j].Stats
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		return standings[i].Team.ID < standings[j].Team.ID
	})
	return standings, nil
}

func (s *MemoryStore) SaveSeason(ctx context.Context, season *models.Season) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *season
	s.seasons[season.ID] = &copied
	return nil
}

func (s *MemoryStore) GetSeason(ctx context.Context, seasonID string) (*models.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	season, ok := s.seasons[seasonID]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *season
	return &copied, nil
}

func (s *MemoryStore) GetActiveSeason(ctx context.Context) (*models.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, season := range s.seasons {
		if season.Active {
			copied := *season
			return &copied, nil
		}
	}
	return nil, common.ErrNoActiveSeason
}

func (s *MemoryStore) SaveMatch(ctx context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matches[match.ID] = copyMatch(match)
	return nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match, ok := s.matches[matchID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyMatch(match), nil
}

func (s *MemoryStore) ListMatches(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*models.Match, 0)
	for _, match := range s.matches {
		if filter.SeasonID != "" && match.SeasonID != filter.SeasonID {
			continue
		}
		if filter.Status != "" && match.Status != filter.Status {
			continue
		}
		if filter.DueBefore != nil && match.ScheduledAt.After(*filter.DueBefore) {
			continue
		}
		matches = append(matches, copyMatch(match))
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].ScheduledAt.Equal(matches[j].ScheduledAt) {
			return matches[i].ScheduledAt.Before(matches[j].ScheduledAt)
		}
		return matches[i].ID < matches[j].ID
	})
	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	return matches, nil
}

func (s *MemoryStore) TransitionMatchStatus(ctx context.Context, matchID string, from, to models.MatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok {
		return common.ErrNotFound
	}
	// finished 是终态
	if match.Status == models.MatchStatusFinished || match.Status != from {
		return common.ErrInvalidState
	}
	match.Status = to
	match.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateLiveProgress(ctx context.Context, matchID string, homeScore, awayScore int, event *models.MatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[matchID]
	if !ok {
		return common.ErrNotFound
	}
	// 已结算的比赛不再接受临时写入
	if match.Status == models.MatchStatusFinished {
		return nil
	}
	match.HomeScore = homeScore
	match.AwayScore = awayScore
	if event != nil {
		match.Events = append(match.Events, *event)
	}
	match.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) FinalizeMatch(ctx context.Context, result *models.MatchResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[result.MatchID]
	if !ok {
		return false, common.ErrNotFound
	}

	// 状态转换的原子检查，输掉竞争的调用方直接返回
	if match.Status == models.MatchStatusFinished {
		return false, nil
	}

	match.Status = models.MatchStatusFinished
	match.HomeScore = result.HomeScore
	match.AwayScore = result.AwayScore
	match.DurationMinutes = result.DurationMinutes
	match.SnitchCaught = result.SnitchCaught
	match.SnitchTeamID = result.SnitchTeamID
	match.Events = append([]models.MatchEvent(nil), result.Events...)
	match.UpdatedAt = time.Now()

	s.applyStats(match.HomeTeamID, result, true)
	s.applyStats(match.AwayTeamID, result, false)

	return true, nil
}

func (s *MemoryStore) applyStats(teamID string, result *models.MatchResult, home bool) {
	stats, ok := s.stats[teamID]
	if !ok {
		stats = &models.TeamStats{TeamID: teamID}
		s.stats[teamID] = stats
	}

	own, opp := result.HomeScore, result.AwayScore
	if !home {
		own, opp = opp, own
	}

	stats.MatchesPlayed++
	stats.PointsFor += own
	stats.PointsAgainst += opp
	switch {
	case own > opp:
		stats.Wins++
	case own < opp:
		stats.Losses++
	default:
		stats.Draws++
	}
	if result.SnitchTeamID != nil && *result.SnitchTeamID == teamID {
		stats.SnitchCatches++
	}
	stats.UpdatedAt = time.Now()
}

func (s *MemoryStore) SaveBet(ctx context.Context, bet *models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *bet
	s.bets[bet.ID] = &copied
	return nil
}

func (s *MemoryStore) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bet, ok := s.bets[betID]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *bet
	return &copied, nil
}

func (s *MemoryStore) ListBets(ctx context.Context, filter BetFilter) ([]*models.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bets := make([]*models.Bet, 0)
	for _, bet := range s.bets {
		if filter.MatchID != "" && bet.MatchID != filter.MatchID {
			continue
		}
		if filter.UserID != "" && bet.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && bet.Status != filter.Status {
			continue
		}
		copied := *bet
		bets = append(bets, &copied)
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].ID < bets[j].ID })
	return bets, nil
}

func (s *MemoryStore) GetClockState(ctx context.Context) (*models.ClockState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.clock == nil {
		return nil, common.ErrNotFound
	}
	copied := *s.clock
	return &copied, nil
}

func (s *MemoryStore) SaveClockState(ctx context.Context, state *models.ClockState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *state
	copied.UpdatedAt = time.Now()
	s.clock = &copied
	return nil
}

func (s *MemoryStore) ClearSeason(ctx context.Context, seasonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, match := range s.matches {
		if match.SeasonID != seasonID {
			continue
		}
		for betID, bet := range s.bets {
			if bet.MatchID == id {
				delete(s.bets, betID)
			}
		}
		delete(s.matches, id)
	}
	for id := range s.stats {
		s.stats[id] = &models.TeamStats{TeamID: id}
	}
	if season, ok := s.seasons[seasonID]; ok {
		season.Active = false
	}
	return nil
}

func copyMatch(match *models.Match) *models.Match {
	copied := *match
	copied.Events = append([]models.MatchEvent(nil), match.Events...)
	return &copied
}
