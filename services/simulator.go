package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quidditch-service/logger"
	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

// LiveEventPayload 直播事件通知的内容
type LiveEventPayload struct {
	Event     models.MatchEvent `json:"event"`
	HomeScore int               `json:"home_score"`
	AwayScore int               `json:"away_score"`
}

// MatchStartedPayload 比赛开始通知的内容
type MatchStartedPayload struct {
	HomeTeamID  string    `json:"home_team_id"`
	AwayTeamID  string    `json:"away_team_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// LiveState 直播状态查询结果，供 UI 轮询
type LiveState struct {
	MatchID   string             `json:"match_id"`
	Status    models.MatchStatus `json:"status"`
	HomeScore int                `json:"home_score"`
	AwayScore int                `json:"away_score"`
	Events    []models.MatchEvent `json:"events"`
	IsActive  bool               `json:"is_active"`
}

// liveProgress 一场直播模拟的累计进度。Stop 之后进度保留在这里，
// 再次 Start 或 instant 模拟会从中断处继续，已计入的比分不回退
type liveProgress struct {
	match     *models.Match
	events    []models.MatchEvent
	nextIndex int
	homeScore int
	awayScore int
	processed []models.MatchEvent
}

type liveRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Simulator 比赛模拟器。直播模拟作为后台任务运行，
// 通过注册表按比赛ID查找和停止
type Simulator struct {
	store       Store
	generator   *EventGenerator
	settlement  *SettlementService
	broadcaster Broadcaster
	delayMin    time.Duration
	delayMax    time.Duration

	mu      sync.Mutex
	rng     *rand.Rand
	running map[string]*liveRun
	paused  map[string]*liveProgress
}

// NewSimulator 创建比赛模拟器
func NewSimulator(store Store, generator *EventGenerator, settlement *SettlementService, broadcaster Broadcaster, rng *rand.Rand, delayMin, delayMax time.Duration) *Simulator {
	if delayMin <= 0 {
		delayMin = 2 * time.Second
	}
	if delayMax < delayMin {
		delayMax = delayMin
	}
	return &Simulator{
		store:       store,
		generator:   generator,
		settlement:  settlement,
		broadcaster: broadcaster,
		delayMin:    delayMin,
		delayMax:    delayMax,
		rng:         rng,
		running:     make(map[string]*liveRun),
		paused:      make(map[string]*liveProgress),
	}
}

// StartLive 启动一场比赛的直播模拟。比赛必须处于 scheduled 或 live 状态。
// 模拟在后台逐事件推进，事件之间等待随机的真实时间，进度通过
// Broadcaster 广播并写入存储供轮询
func (s *Simulator) StartLive(ctx context.Context, matchID string) error {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	if match.Status == models.MatchStatusFinished {
		return fmt.Errorf("match %s is already finished: %w", matchID, common.ErrInvalidState)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &liveRun{cancel: cancel, done: make(chan struct{})}

	// 检查和注册必须在同一个临界区里完成，并发的 Start 只有一个能占到槽位
	s.mu.Lock()
	if _, ok := s.running[matchID]; ok {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("match %s: %w", matchID, common.ErrSimulationRunning)
	}
	s.running[matchID] = run
	progress := s.paused[matchID]
	delete(s.paused, matchID)
	s.mu.Unlock()

	if progress == nil {
		progress = &liveProgress{
			match:  match,
			events: s.generator.Generate(match.ID, match.HomeTeamID, match.AwayTeamID),
		}
	}

	if match.Status == models.MatchStatusScheduled {
		if err := s.store.TransitionMatchStatus(ctx, matchID, models.MatchStatusScheduled, models.MatchStatusLive); err != nil {
			s.releaseRun(matchID, run, progress)
			return fmt.Errorf("failed to start match %s: %w", matchID, err)
		}
	}

	s.broadcaster.Broadcast(NewNotification(NotifyMatchStarted, matchID, &MatchStartedPayload{
		HomeTeamID:  match.HomeTeamID,
		AwayTeamID:  match.AwayTeamID,
		ScheduledAt: match.ScheduledAt,
	}))
	logger.Printf("[Simulator] 🏟️ Live simulation started for match %s (%s vs %s)", matchID, match.HomeTeamID, match.AwayTeamID)

	go s.runLive(runCtx, run, progress)
	return nil
}

// releaseRun 回滚一次失败的 Start: 释放注册槽位，已有的暂停进度放回暂停表
func (s *Simulator) releaseRun(matchID string, run *liveRun, progress *liveProgress) {
	s.mu.Lock()
	delete(s.running, matchID)
	if progress != nil && progress.nextIndex > 0 {
		s.paused[matchID] = progress
	}
	s.mu.Unlock()
	run.cancel()
	close(run.done)
}

// runLive 直播模拟主循环。任何内部错误都会降级为用当前累计比分
// 强制结算，避免比赛永远卡在 live 状态
func (s *Simulator) runLive(ctx context.Context, run *liveRun, progress *liveProgress) {
	matchID := progress.match.ID
	defer func() {
		s.mu.Lock()
		delete(s.running, matchID)
		s.mu.Unlock()
		close(run.done)
	}()

	for progress.nextIndex < len(progress.events) {
		select {
		case <-ctx.Done():
			// 收到停止请求: 保留进度，比赛停在 live 状态等待恢复
			s.mu.Lock()
			s.paused[matchID] = progress
			s.mu.Unlock()
			logger.Printf("[Simulator] Live simulation for match %s stopped at event %d/%d", matchID, progress.nextIndex, len(progress.events))
			return
		case <-time.After(s.randomDelay()):
		}

		event := progress.events[progress.nextIndex]
		progress.apply(event)

		if err := s.store.UpdateLiveProgress(ctx, matchID, progress.homeScore, progress.awayScore, &event); err != nil {
			// 写入因停止请求被打断时按暂停处理，不触发强制结算
			if ctx.Err() != nil {
				s.mu.Lock()
				s.paused[matchID] = progress
				s.mu.Unlock()
				logger.Printf("[Simulator] Live simulation for match %s stopped at event %d/%d", matchID, progress.nextIndex, len(progress.events))
				return
			}
			logger.Errorf("[Simulator] ❌ Persistence error during live match %s, forcing finalize: %v", matchID, err)
			s.finalize(progress)
			return
		}

		s.broadcaster.Broadcast(NewNotification(NotifyMatchEvent, matchID, &LiveEventPayload{
			Event:     event,
			HomeScore: progress.homeScore,
			AwayScore: progress.awayScore,
		}))

		// 飞贼被抓的瞬间比赛结束，之后的事件不再处理
		if event.Type == models.EventTypeSnitch {
			break
		}
	}

	s.finalize(progress)
}

// SimulateInstant 同步模拟一场比赛并直接结算，不产生延迟和过程通知。
// 如果比赛之前的直播被停止过，从中断处继续折算剩余事件
func (s *Simulator) SimulateInstant(ctx context.Context, matchID string) (*models.MatchResult, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	if match.Status == models.MatchStatusFinished {
		return nil, fmt.Errorf("match %s is already finished: %w", matchID, common.ErrInvalidState)
	}

	s.mu.Lock()
	if _, ok := s.running[matchID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("match %s: %w", matchID, common.ErrSimulationRunning)
	}
	progress := s.paused[matchID]
	delete(s.paused, matchID)
	s.mu.Unlock()

	if progress == nil {
		progress = &liveProgress{
			match:  match,
			events: s.generator.Generate(match.ID, match.HomeTeamID, match.AwayTeamID),
		}
	}

	for progress.nextIndex < len(progress.events) {
		event := progress.events[progress.nextIndex]
		progress.apply(event)
		if event.Type == models.EventTypeSnitch {
			break
		}
	}

	result := progress.result()
	if err := s.settlement.Finalize(ctx, result); err != nil {
		// 重复结算按无副作用的成功处理
		if errors.Is(err, common.ErrAlreadyFinalized) {
			logger.Printf("[Simulator] Match %s was already finalized, instant simulation is a no-op", matchID)
			return result, nil
		}
		return nil, err
	}
	return result, nil
}

// StopLive 停止一场比赛的直播模拟。已应用的比分不回退，
// 比赛保持 live 状态直到再次 Start 或被结算
func (s *Simulator) StopLive(matchID string) error {
	s.mu.Lock()
	run, ok := s.running[matchID]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("no live simulation for match %s: %w", matchID, common.ErrNotFound)
	}
	run.cancel()
	<-run.done
	return nil
}

// StopAll 停止所有直播模拟，服务关闭和赛季重置时调用
func (s *Simulator) StopAll() {
	s.mu.Lock()
	runs := make([]*liveRun, 0, len(s.running))
	for _, run := range s.running {
		runs = append(runs, run)
	}
	s.mu.Unlock()

	for _, run := range runs {
		run.cancel()
		<-run.done
	}
}

// DropProgress 丢弃某场比赛暂停的模拟进度，赛季重置时调用
func (s *Simulator) DropProgress(matchID string) {
	s.mu.Lock()
	delete(s.paused, matchID)
	s.mu.Unlock()
}

// IsActive 该比赛是否有正在运行的直播模拟
func (s *Simulator) IsActive(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[matchID]
	return ok
}

// LiveState 查询一场比赛的直播状态，UI 按固定间隔轮询
func (s *Simulator) LiveState(ctx context.Context, matchID string) (*LiveState, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return &LiveState{
		MatchID:   match.ID,
		Status:    match.Status,
		HomeScore: match.HomeScore,
		AwayScore: match.AwayScore,
		Events:    match.Events,
		IsActive:  s.IsActive(matchID),
	}, nil
}

// finalize 把累计进度交给结算服务，重复结算按无副作用处理
func (s *Simulator) finalize(progress *liveProgress) {
	result := progress.result()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.settlement.Finalize(ctx, result); err != nil {
		if errors.Is(err, common.ErrAlreadyFinalized) {
			logger.Printf("[Simulator] Match %s already finalized by another caller", result.MatchID)
			return
		}
		logger.Errorf("[Simulator] ❌ Failed to finalize match %s: %v", result.MatchID, err)
	}
}

func (s *Simulator) randomDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	spread := s.delayMax - s.delayMin
	if spread <= 0 {
		return s.delayMin
	}
	return s.delayMin + time.Duration(s.rng.Int63n(int64(spread)))
}

func (p *liveProgress) apply(event models.MatchEvent) {
	if event.TeamID == p.match.HomeTeamID {
		p.homeScore += event.Points
	} else {
		p.awayScore += event.Points
	}
	p.processed = append(p.processed, event)
	p.nextIndex++
}

// result 用已处理的事件构建最终结果。时长取最后一个已处理事件的分钟，
// 强制结算的比赛没有飞贼事件时 SnitchCaught 保持 false
func (p *liveProgress) result() *models.MatchResult {
	result := &models.MatchResult{
		MatchID:    p.match.ID,
		HomeTeamID: p.match.HomeTeamID,
		AwayTeamID: p.match.AwayTeamID,
		HomeScore:  p.homeScore,
		AwayScore:  p.awayScore,
		Events:     append([]models.MatchEvent(nil), p.processed...),
	}
	for _, event := range p.processed {
		if event.Type == models.EventTypeSnitch {
			teamID := event.TeamID
			result.SnitchCaught = true
			result.SnitchTeamID = &teamID
		}
	}
	if len(p.processed) > 0 {
		result.DurationMinutes = p.processed[len(p.processed)-1].Minute
	}
	return result
}
