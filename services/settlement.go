package services

import (
	"context"
	"fmt"

	"quidditch-service/logger"
	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

// SettlementService 负责比赛的最终结算。结算在一场比赛上最多生效一次:
// 状态到 finished 的转换是存储层的原子 check-and-set，只有赢得转换的
// 调用方会应用队伍统计并触发投注结算，其余调用方收到 ErrAlreadyFinalized
type SettlementService struct {
	store       Store
	resolver    *BetResolver
	broadcaster Broadcaster
}

// NewSettlementService 创建结算服务
func NewSettlementService(store Store, resolver *BetResolver, broadcaster Broadcaster) *SettlementService {
	return &SettlementService{
		store:       store,
		resolver:    resolver,
		broadcaster: broadcaster,
	}
}

// Finalize 结算一场比赛。重复调用返回 ErrAlreadyFinalized，
// 数据不会被二次修改
func (s *SettlementService) Finalize(ctx context.Context, result *models.MatchResult) error {
	won, err := s.store.FinalizeMatch(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to finalize match %s: %w", result.MatchID, err)
	}
	if !won {
		logger.Printf("[Settlement] Match %s already finalized, skipping", result.MatchID)
		return common.ErrAlreadyFinalized
	}

	logger.Printf("[Settlement] ✅ Match %s finalized: %d-%d in %d minutes",
		result.MatchID, result.HomeScore, result.AwayScore, result.DurationMinutes)

	s.broadcaster.Broadcast(NewNotification(NotifyMatchFinished, result.MatchID, result))

	// 投注结算失败不回滚比赛结果，单独记录
	if _, err := s.resolver.ResolveForMatch(ctx, result); err != nil {
		logger.Errorf("[Settlement] ❌ Failed to resolve bets for match %s: %v", result.MatchID, err)
	}

	return nil
}
