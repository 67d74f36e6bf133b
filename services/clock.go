package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quidditch-service/logger"
	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

// AdvanceSpec 时间推进命令。三种模式互斥: 按天数推进、推进到下一场
// 比赛、模拟完整个赛季剩余的比赛
type AdvanceSpec struct {
	Days             int  `json:"days,omitempty"`
	SimulateMatches  bool `json:"simulate_matches,omitempty"`
	ToNextMatch      bool `json:"to_next_match,omitempty"`
	SimulateRemainder bool `json:"simulate_remainder,omitempty"`
}

// AdvanceResult 一次时间推进的结果
type AdvanceResult struct {
	NewDate          time.Time             `json:"new_date"`
	SimulatedMatches []*models.MatchResult `json:"simulated_matches"`
	LiveMatchIDs     []string              `json:"live_match_ids,omitempty"`
}

// VirtualClock 虚拟时钟。每个赛季一条单调递增的时间线，只能通过
// Advance 前进。推进时钟会触发所有到期比赛的模拟；重复推进不会
// 重复结算比赛，这一点由结算服务保证
type VirtualClock struct {
	store       Store
	simulator   *Simulator
	defaultDate time.Time
	mu          sync.Mutex
}

// NewVirtualClock 创建虚拟时钟
func NewVirtualClock(store Store, simulator *Simulator, defaultDate time.Time) *VirtualClock {
	return &VirtualClock{
		store:       store,
		simulator:   simulator,
		defaultDate: defaultDate,
	}
}

// Init 赛季创建时初始化时钟
func (c *VirtualClock) Init(ctx context.Context, seasonID string, startDate time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.SaveClockState(ctx, &models.ClockState{
		CurrentDate:    startDate,
		ActiveSeasonID: seasonID,
	})
}

// Current 查询当前虚拟日期和激活赛季
func (c *VirtualClock) Current(ctx context.Context) (*models.ClockState, error) {
	state, err := c.store.GetClockState(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return &models.ClockState{CurrentDate: c.defaultDate}, nil
	}
	return state, err
}

// Advance 推进虚拟时钟并模拟到期的比赛。时钟只会向前走；
// 推进目标早于当前日期时日期保持不变，但仍会补算到期未结算的比赛
func (c *VirtualClock) Advance(ctx context.Context, spec AdvanceSpec) (*AdvanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.GetClockState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clock state: %w", err)
	}
	if state.ActiveSeasonID == "" {
		return nil, common.ErrNoActiveSeason
	}

	switch {
	case spec.ToNextMatch:
		return c.advanceToNextMatch(ctx, state)
	case spec.SimulateRemainder:
		return c.advanceRemainder(ctx, state)
	case spec.Days > 0:
		return c.advanceDays(ctx, state, spec.Days, spec.SimulateMatches)
	default:
		return nil, fmt.Errorf("advance spec must set days, to_next_match or simulate_remainder: %w", common.ErrInvalidInput)
	}
}

// advanceDays 按天数推进，到期的比赛走 instant 路径批量补算
func (c *VirtualClock) advanceDays(ctx context.Context, state *models.ClockState, days int, simulate bool) (*AdvanceResult, error) {
	target := state.CurrentDate.AddDate(0, 0, days)

	result := &AdvanceResult{NewDate: target}
	if simulate {
		simulated, err := c.simulateDue(ctx, state.ActiveSeasonID, target)
		if err != nil {
			return nil, err
		}
		result.SimulatedMatches = simulated
	}

	state.CurrentDate = target
	if err := c.store.SaveClockState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save clock state: %w", err)
	}

	logger.Printf("[Clock] Advanced %d days to %s (%d matches simulated)", days, target.Format("2006-01-02"), len(result.SimulatedMatches))
	return result, nil
}

// advanceToNextMatch 推进到下一场未打比赛的开球时间，
// 正好排在那个时间点的比赛以直播方式开始
func (c *VirtualClock) advanceToNextMatch(ctx context.Context, state *models.ClockState) (*AdvanceResult, error) {
	matches, err := c.unfinishedMatches(ctx, state.ActiveSeasonID, nil)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no unplayed matches left in season %s: %w", state.ActiveSeasonID, common.ErrNotFound)
	}

	// 先补算已经过期的比赛，保证时间线一致
	overdue, err := c.simulateDue(ctx, state.ActiveSeasonID, state.CurrentDate)
	if err != nil {
		return nil, err
	}

	var boundary time.Time
	for _, match := range matches {
		if match.ScheduledAt.After(state.CurrentDate) {
			boundary = match.ScheduledAt
			break
		}
	}
	if boundary.IsZero() {
		// 所有剩余比赛都已到期并被上面补算
		result := &AdvanceResult{NewDate: state.CurrentDate, SimulatedMatches: overdue}
		return result, nil
	}

	result := &AdvanceResult{NewDate: boundary, SimulatedMatches: overdue}
	for _, match := range matches {
		if !match.ScheduledAt.Equal(boundary) {
			continue
		}
		if err := c.simulator.StartLive(ctx, match.ID); err != nil {
			logger.Errorf("[Clock] ❌ Failed to start live simulation for match %s: %v", match.ID, err)
			continue
		}
		result.LiveMatchIDs = append(result.LiveMatchIDs, match.ID)
	}

	state.CurrentDate = boundary
	if err := c.store.SaveClockState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save clock state: %w", err)
	}

	logger.Printf("[Clock] Advanced to next match day %s (%d live matches started)", boundary.Format("2006-01-02"), len(result.LiveMatchIDs))
	return result, nil
}

// advanceRemainder 模拟赛季剩余的所有比赛，时钟走到最后一场的时间
func (c *VirtualClock) advanceRemainder(ctx context.Context, state *models.ClockState) (*AdvanceResult, error) {
	matches, err := c.unfinishedMatches(ctx, state.ActiveSeasonID, nil)
	if err != nil {
		return nil, err
	}

	result := &AdvanceResult{NewDate: state.CurrentDate}
	for _, match := range matches {
		simulated, err := c.simulateOne(ctx, match.ID)
		if err != nil {
			return nil, err
		}
		if simulated != nil {
			result.SimulatedMatches = append(result.SimulatedMatches, simulated)
		}
		if match.ScheduledAt.After(result.NewDate) {
			result.NewDate = match.ScheduledAt
		}
	}

	state.CurrentDate = result.NewDate
	if err := c.store.SaveClockState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save clock state: %w", err)
	}

	logger.Printf("[Clock] Season remainder simulated: %d matches, clock at %s", len(result.SimulatedMatches), result.NewDate.Format("2006-01-02"))
	return result, nil
}

// Reset 把时钟拨回赛季起点，清空激活赛季的比赛进度和投注，
// 并取消赛季的激活状态
func (c *VirtualClock) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.GetClockState(ctx)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to load clock state: %w", err)
	}

	c.simulator.StopAll()

	if state != nil && state.ActiveSeasonID != "" {
		matches, err := c.store.ListMatches(ctx, MatchFilter{SeasonID: state.ActiveSeasonID})
		if err != nil {
			return err
		}
		for _, match := range matches {
			c.simulator.DropProgress(match.ID)
		}
		if err := c.store.ClearSeason(ctx, state.ActiveSeasonID); err != nil {
			return fmt.Errorf("failed to clear season: %w", err)
		}
		logger.Printf("[Clock] Season %s cleared and deactivated", state.ActiveSeasonID)
	}

	return c.store.SaveClockState(ctx, &models.ClockState{
		CurrentDate:    c.defaultDate,
		ActiveSeasonID: "",
	})
}

// simulateDue 用 instant 路径补算所有到期且未结算的比赛
func (c *VirtualClock) simulateDue(ctx context.Context, seasonID string, dueBefore time.Time) ([]*models.MatchResult, error) {
	matches, err := c.unfinishedMatches(ctx, seasonID, &dueBefore)
	if err != nil {
		return nil, err
	}

	results := make([]*models.MatchResult, 0, len(matches))
	for _, match := range matches {
		result, err := c.simulateOne(ctx, match.ID)
		if err != nil {
			return nil, err
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

// simulateOne 模拟单场比赛，已被并发结算的比赛按跳过处理
func (c *VirtualClock) simulateOne(ctx context.Context, matchID string) (*models.MatchResult, error) {
	result, err := c.simulator.SimulateInstant(ctx, matchID)
	if err != nil {
		if errorsIsBenign(err) {
			logger.Printf("[Clock] Match %s skipped: %v", matchID, err)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to simulate match %s: %w", matchID, err)
	}
	return result, nil
}

// errorsIsBenign 重复触发产生的错误不算失败: 比赛已结束、已被
// 其他调用方结算、或正在直播中
func errorsIsBenign(err error) bool {
	return errors.Is(err, common.ErrInvalidState) ||
		errors.Is(err, common.ErrAlreadyFinalized) ||
		errors.Is(err, common.ErrSimulationRunning)
}

// unfinishedMatches 按开球时间排序返回还没结算的比赛
func (c *VirtualClock) unfinishedMatches(ctx context.Context, seasonID string, dueBefore *time.Time) ([]*models.Match, error) {
	matches, err := c.store.ListMatches(ctx, MatchFilter{SeasonID: seasonID, DueBefore: dueBefore})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	unfinished := make([]*models.Match, 0, len(matches))
	for _, match := range matches {
		if match.Status != models.MatchStatusFinished {
			unfinished = append(unfinished, match)
		}
	}
	return unfinished, nil
}
