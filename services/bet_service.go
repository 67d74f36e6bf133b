package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

var validate = validator.New()

// PlaceBetRequest 下注请求
type PlaceBetRequest struct {
	UserID     string            `json:"user_id" validate:"required"`
	MatchID    string            `json:"match_id" validate:"required"`
	Type       models.BetType    `json:"type" validate:"required,oneof=winner exact_score snitch time_window combined"`
	Prediction models.Prediction `json:"prediction"`
}

// Validate 校验请求字段
func (r *PlaceBetRequest) Validate() error {
	return validate.Struct(r)
}

// BetService 投注的创建和查询。预测内容在下注时不做语义校验，
// 无法解析的预测在比赛结算时按输处理
type BetService struct {
	store Store
}

// NewBetService 创建投注服务
func NewBetService(store Store) *BetService {
	return &BetService{store: store}
}

// PlaceBet 创建一笔投注。只有比赛还没结束时可以下注
func (s *BetService) PlaceBet(ctx context.Context, req *PlaceBetRequest) (*models.Bet, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	match, err := s.store.GetMatch(ctx, req.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", req.MatchID, err)
	}
	if match.Status == models.MatchStatusFinished {
		return nil, fmt.Errorf("match %s is already finished: %w", req.MatchID, common.ErrInvalidState)
	}

	bet := &models.Bet{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		MatchID:    req.MatchID,
		Type:       req.Type,
		Prediction: req.Prediction,
		Status:     models.BetStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := s.store.SaveBet(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to save bet: %w", err)
	}
	return bet, nil
}

// GetBet 查询单笔投注
func (s *BetService) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	return s.store.GetBet(ctx, betID)
}

// ListBets 按条件查询投注
func (s *BetService) ListBets(ctx context.Context, filter BetFilter) ([]*models.Bet, error) {
	return s.store.ListBets(ctx, filter)
}
