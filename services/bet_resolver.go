package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quidditch-service/logger"
	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

// BetResolver 在比赛结算后判定所有引用它的投注。
// 结算服务保证每场比赛只触发一次；判定后的投注不会回到 pending
type BetResolver struct {
	store Store
}

// NewBetResolver 创建投注判定服务
func NewBetResolver(store Store) *BetResolver {
	return &BetResolver{store: store}
}

// ResolveForMatch 判定引用该比赛的所有待定投注，返回判定后的投注列表。
// 无法解析的预测按输处理并记录原因，从不向上抛错
func (r *BetResolver) ResolveForMatch(ctx context.Context, result *models.MatchResult) ([]*models.Bet, error) {
	pending, err := r.store.ListBets(ctx, BetFilter{
		MatchID: result.MatchID,
		Status:  models.BetStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending bets: %w", err)
	}

	resolved := make([]*models.Bet, 0, len(pending))
	for _, bet := range pending {
		won, reason := r.evaluate(bet.Type, bet.Prediction, result)

		if won {
			bet.Status = models.BetStatusWon
		} else {
			bet.Status = models.BetStatusLost
		}
		bet.Reason = reason
		now := time.Now()
		bet.ResolvedAt = &now

		if err := r.store.SaveBet(ctx, bet); err != nil {
			return resolved, fmt.Errorf("failed to save resolved bet %s: %w", bet.ID, err)
		}
		resolved = append(resolved, bet)
	}

	logger.Printf("[Resolver] Resolved %d bets for match %s", len(resolved), result.MatchID)
	return resolved, nil
}

// evaluate 判定单个预测，返回是否命中和可读的原因
func (r *BetResolver) evaluate(betType models.BetType, prediction models.Prediction, result *models.MatchResult) (bool, string) {
	switch betType {
	case models.BetTypeWinner:
		return r.evaluateWinner(prediction, result)
	case models.BetTypeExactScore:
		return r.evaluateExactScore(prediction, result)
	case models.BetTypeSnitch:
		return r.evaluateSnitch(prediction, result)
	case models.BetTypeTimeWindow:
		return r.evaluateTimeWindow(prediction, result)
	case models.BetTypeCombined:
		return r.evaluateCombined(prediction, result)
	default:
		return false, fmt.Sprintf("unsupported bet type %q", betType)
	}
}

func (r *BetResolver) evaluateWinner(prediction models.Prediction, result *models.MatchResult) (bool, string) {
	predictedTeam, reason := r.sideToTeam(prediction.Side, result)
	if predictedTeam == "" {
		return false, reason
	}

	winner := result.WinnerTeamID()
	if winner == "" {
		return false, fmt.Sprintf("match ended in a %d-%d draw", result.HomeScore, result.AwayScore)
	}
	if winner == predictedTeam {
		return true, fmt.Sprintf("%s won %d-%d", winner, result.HomeScore, result.AwayScore)
	}
	return false, fmt.Sprintf("predicted %s but %s won %d-%d", predictedTeam, winner, result.HomeScore, result.AwayScore)
}

func (r *BetResolver) evaluateExactScore(prediction models.Prediction, result *models.MatchResult) (bool, string) {
	home, away, err := parseScore(prediction.Score)
	if err != nil {
		logger.Printf("[Resolver] ⚠️ Malformed score predicate %q: %v", prediction.Score, err)
		return false, fmt.Sprintf("malformed score prediction %q", prediction.Score)
	}
	if home == result.HomeScore && away == result.AwayScore {
		return true, fmt.Sprintf("exact score %d-%d matched", home, away)
	}
	return false, fmt.Sprintf("predicted %d-%d but final score was %d-%d", home, away, result.HomeScore, result.AwayScore)
}

func (r *BetResolver) evaluateSnitch(prediction models.Prediction, result *models.MatchResult) (bool, string) {
	predictedTeam, reason := r.sideToTeam(prediction.Side, result)
	if predictedTeam == "" {
		return false, reason
	}
	if !result.SnitchCaught || result.SnitchTeamID == nil {
		return false, "the snitch was not caught"
	}
	if *result.SnitchTeamID == predictedTeam {
		return true, fmt.Sprintf("snitch caught by %s", predictedTeam)
	}
	return false, fmt.Sprintf("predicted snitch for %s but %s caught it", predictedTeam, *result.SnitchTeamID)
}

func (r *BetResolver) evaluateTimeWindow(prediction models.Prediction, result *models.MatchResult) (bool, string) {
	if prediction.MaxMinutes <= 0 || prediction.MaxMinutes < prediction.MinMinutes {
		return false, fmt.Sprintf("malformed time window prediction [%d, %d]", prediction.MinMinutes, prediction.MaxMinutes)
	}
	duration := result.DurationMinutes
	if duration >= prediction.MinMinutes && duration <= prediction.MaxMinutes {
		return true, fmt.Sprintf("match lasted %d minutes, within [%d, %d]", duration, prediction.MinMinutes, prediction.MaxMinutes)
	}
	return false, fmt.Sprintf("match lasted %d minutes, outside [%d, %d]", duration, prediction.MinMinutes, prediction.MaxMinutes)
}

// evaluateCombined 组合投注只有在所有子预测都命中时才算赢，
// 第一个失败的子预测会写进原因里
func (r *BetResolver) evaluateCombined(prediction models.Prediction, result *models.MatchResult) (bool, string) {
	if len(prediction.Legs) == 0 {
		return false, "combined bet has no legs"
	}
	for i, leg := range prediction.Legs {
		if leg.Type == models.BetTypeCombined {
			return false, fmt.Sprintf("leg %d: nested combined bets are not supported", i+1)
		}
		won, reason := r.evaluate(leg.Type, leg.Prediction, result)
		if !won {
			return false, fmt.Sprintf("leg %d (%s) lost: %s", i+1, leg.Type, reason)
		}
	}
	return true, fmt.Sprintf("all %d legs won", len(prediction.Legs))
}

func (r *BetResolver) sideToTeam(side string, result *models.MatchResult) (string, string) {
	switch side {
	case "home":
		return result.HomeTeamID, ""
	case "away":
		return result.AwayTeamID, ""
	case result.HomeTeamID:
		return result.HomeTeamID, ""
	case result.AwayTeamID:
		return result.AwayTeamID, ""
	default:
		return "", fmt.Sprintf("unknown side %q", side)
	}
}

// parseScore 解析形如 "150-90" 的比分字符串。
// 其他任何形式，包括字面量 "exact"，都按无法解析处理
func parseScore(score string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(score), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"home-away\" pair, got %q: %w", score, common.ErrMalformedPredicate)
	}
	home, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid home score in %q: %w", score, common.ErrMalformedPredicate)
	}
	away, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid away score in %q: %w", score, common.ErrMalformedPredicate)
	}
	if home < 0 || away < 0 {
		return 0, 0, fmt.Errorf("negative score in %q: %w", score, common.ErrMalformedPredicate)
	}
	return home, away, nil
}
