package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quidditch-service/config"
	"quidditch-service/logger"
	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

// SeasonService 负责创建赛季: 写入队伍、生成双循环赛程并初始化
// 虚拟时钟
type SeasonService struct {
	store     Store
	clock     *VirtualClock
	startDate time.Time
	interval  int // 两轮比赛之间的虚拟天数
}

// NewSeasonService 创建赛季服务
func NewSeasonService(store Store, clock *VirtualClock, startDate time.Time, intervalDays int) *SeasonService {
	if intervalDays <= 0 {
		intervalDays = 7
	}
	return &SeasonService{
		store:     store,
		clock:     clock,
		startDate: startDate,
		interval:  intervalDays,
	}
}

// CreateSeason 从联赛定义创建并激活一个赛季。
// 已有激活赛季时返回错误，需要先 Reset
func (s *SeasonService) CreateSeason(ctx context.Context, league *config.LeagueDefinition) (*models.Season, error) {
	if active, err := s.store.GetActiveSeason(ctx); err == nil && active != nil {
		return nil, fmt.Errorf("season %s is still active, reset it first: %w", active.ID, common.ErrInvalidState)
	}

	for _, leagueTeam := range league.Teams {
		team := &models.Team{
			ID:      leagueTeam.ID,
			Name:    leagueTeam.Name,
			House:   leagueTeam.House,
			Stadium: leagueTeam.Stadium,
		}
		if err := s.store.SaveTeam(ctx, team); err != nil {
			return nil, fmt.Errorf("failed to save team %s: %w", team.ID, err)
		}
	}

	season := &models.Season{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("%s %d", league.Name, s.startDate.Year()),
		StartDate: s.startDate,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveSeason(ctx, season); err != nil {
		return nil, fmt.Errorf("failed to save season: %w", err)
	}

	fixtures := s.generateFixtures(season.ID, league.Teams)
	for _, match := range fixtures {
		if err := s.store.SaveMatch(ctx, match); err != nil {
			return nil, fmt.Errorf("failed to save fixture %s: %w", match.ID, err)
		}
	}

	if err := s.clock.Init(ctx, season.ID, season.StartDate); err != nil {
		return nil, fmt.Errorf("failed to init clock: %w", err)
	}

	logger.Printf("[Season] ✅ Season %q created with %d teams and %d fixtures", season.Name, len(league.Teams), len(fixtures))
	return season, nil
}

// generateFixtures 用贝格尔轮转法生成双循环赛程: 每支队伍主客场
// 各对阵其他队伍一次，共 n*(n-1) 场。每轮间隔固定的虚拟天数
func (s *SeasonService) generateFixtures(seasonID string, teams []config.LeagueTeam) []*models.Match {
	ids := make([]string, 0, len(teams))
	for _, team := range teams {
		ids = append(ids, team.ID)
	}
	// 奇数队伍补一个轮空位
	if len(ids)%2 == 1 {
		ids = append(ids, "")
	}

	n := len(ids)
	rounds := n - 1
	matches := make([]*models.Match, 0, n*(n-1))
	round := 0

	// 第一循环
	rotation := append([]string(nil), ids...)
	for r := 0; r < rounds; r++ {
		for i := 0; i < n/2; i++ {
			home, away := rotation[i], rotation[n-1-i]
			if home == "" || away == "" {
				continue
			}
			matches = append(matches, s.newFixture(seasonID, home, away, round))
		}
		rotation = rotate(rotation)
		round++
	}

	// 第二循环，主客场互换
	rotation = append([]string(nil), ids...)
	for r := 0; r < rounds; r++ {
		for i := 0; i < n/2; i++ {
			home, away := rotation[n-1-i], rotation[i]
			if home == "" || away == "" {
				continue
			}
			matches = append(matches, s.newFixture(seasonID, home, away, round))
		}
		rotation = rotate(rotation)
		round++
	}

	return matches
}

func (s *SeasonService) newFixture(seasonID, homeTeamID, awayTeamID string, round int) *models.Match {
	return &models.Match{
		ID:          uuid.NewString(),
		SeasonID:    seasonID,
		HomeTeamID:  homeTeamID,
		AwayTeamID:  awayTeamID,
		Status:      models.MatchStatusScheduled,
		ScheduledAt: s.startDate.AddDate(0, 0, round*s.interval),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// rotate 贝格尔轮转: 首位固定，其余顺时针转一位
func rotate(ids []string) []string {
	n := len(ids)
	rotated := make([]string, n)
	rotated[0] = ids[0]
	rotated[1] = ids[n-1]
	copy(rotated[2:], ids[1:n-1])
	return rotated
}
