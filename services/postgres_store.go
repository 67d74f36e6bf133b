package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

// PostgresStore 是 Store 接口的 PostgreSQL 实现
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 创建 PostgresStore 实例
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveTeam(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (id, name, house, stadium)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			house = EXCLUDED.house,
			stadium = EXCLUDED.stadium
	`
	if _, err := s.db.ExecContext(ctx, query, team.ID, team.Name, team.House, team.Stadium); err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}

	statsQuery := `
		INSERT INTO team_stats (team_id)
		VALUES ($1)
		ON CONFLICT (team_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, statsQuery, team.ID); err != nil {
		return fmt.Errorf("failed to init team stats: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	query := `SELECT id, name, COALESCE(house, ''), COALESCE(stadium, '') FROM teams WHERE id = $1`

	var team models.Team
	err := s.db.QueryRowContext(ctx, query, teamID).Scan(&team.ID, &team.Name, &team.House, &team.Stadium)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}

func (s *PostgresStore) ListTeams(ctx context.Context) ([]*models.Team, error) {
	query := `SELECT id, name, COALESCE(house, ''), COALESCE(stadium, '') FROM teams ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.House, &team.Stadium); err != nil {
			return nil, err
		}
		teams = append(teams, &team)
	}
	return teams, rows.Err()
}

func (s *PostgresStore) GetTeamStats(ctx context.Context, teamID string) (*models.TeamStats, error) {
	query := `
		SELECT team_id, matches_played, wins, losses, draws, points_for, points_against, snitch_catches, updated_at
		FROM team_stats WHERE team_id = $1
	`

	var stats models.TeamStats
	err := s.db.QueryRowContext(ctx, query, teamID).Scan(
		&stats.TeamID, &stats.MatchesPlayed, &stats.Wins, &stats.Losses, &stats.Draws,
		&stats.PointsFor, &stats.PointsAgainst, &stats.SnitchCatches, &stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team stats: %w", err)
	}
	return &stats, nil
}

func (s *PostgresStore) ListStandings(ctx context.Context) ([]*models.Standing, error) {
	query := `
		SELECT t.id, t.name, COALESCE(t.house, ''), COALESCE(t.stadium, ''),
		       s.matches_played, s.wins, s.losses, s.draws, s.points_for, s.points_against, s.snitch_catches, s.updated_at
		FROM teams t
		JOIN team_stats s ON s.team_id = t.id
		ORDER BY s.wins DESC, s.points_for DESC, t.id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	defer rows.Close()

	standings := make([]*models.Standing, 0)
	for rows.Next() {
		var standing models.Standing
		if err := rows.Scan(
			&standing.Team.ID, &standing.Team.Name, &standing.Team.House, &standing.Team.Stadium,
			&standing.Stats.MatchesPlayed, &standing.Stats.Wins, &standing.Stats.Losses, &standing.Stats.Draws,
			&standing.Stats.PointsFor, &standing.Stats.PointsAgainst, &standing.Stats.SnitchCatches, &standing.Stats.UpdatedAt,
		); err != nil {
			return nil, err
		}
		standing.Stats.TeamID = standing.Team.ID
		standings = append(standings, &standing)
	}
	return standings, rows.Err()
}

func (s *PostgresStore) SaveSeason(ctx context.Context, season *models.Season) error {
	query := `
		INSERT INTO seasons (id, name, start_date, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			active = EXCLUDED.active
	`
	_, err := s.db.ExecContext(ctx, query, season.ID, season.Name, season.StartDate, season.Active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save season: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSeason(ctx context.Context, seasonID string) (*models.Season, error) {
	query := `SELECT id, name, start_date, active, created_at FROM seasons WHERE id = $1`

	var season models.Season
	err := s.db.QueryRowContext(ctx, query, seasonID).Scan(&season.ID, &season.Name, &season.StartDate, &season.Active, &season.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season: %w", err)
	}
	return &season, nil
}

func (s *PostgresStore) GetActiveSeason(ctx context.Context) (*models.Season, error) {
	query := `SELECT id, name, start_date, active, created_at FROM seasons WHERE active = TRUE LIMIT 1`

	var season models.Season
	err := s.db.QueryRowContext(ctx, query).Scan(&season.ID, &season.Name, &season.StartDate, &season.Active, &season.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, common.ErrNoActiveSeason
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	return &season, nil
}

func (s *PostgresStore) SaveMatch(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (id, season_id, home_team_id, away_team_id, status, scheduled_at,
			home_score, away_score, duration_minutes, snitch_caught, snitch_team_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			duration_minutes = EXCLUDED.duration_minutes,
			snitch_caught = EXCLUDED.snitch_caught,
			snitch_team_id = EXCLUDED.snitch_team_id,
			updated_at = EXCLUDED.updated_at
	`
	var duration *int
	if match.DurationMinutes > 0 {
		duration = &match.DurationMinutes
	}
	_, err := s.db.ExecContext(ctx, query,
		match.ID, match.SeasonID, match.HomeTeamID, match.AwayTeamID, match.Status, match.ScheduledAt,
		match.HomeScore, match.AwayScore, duration, match.SnitchCaught, match.SnitchTeamID, time.Now(), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	query := `
		SELECT id, season_id, home_team_id, away_team_id, status, scheduled_at,
		       home_score, away_score, COALESCE(duration_minutes, 0), snitch_caught, snitch_team_id, created_at, updated_at
		FROM matches WHERE id = $1
	`

	var match models.Match
	err := s.db.QueryRowContext(ctx, query, matchID).Scan(
		&match.ID, &match.SeasonID, &match.HomeTeamID, &match.AwayTeamID, &match.Status, &match.ScheduledAt,
		&match.HomeScore, &match.AwayScore, &match.DurationMinutes, &match.SnitchCaught, &match.SnitchTeamID,
		&match.CreatedAt, &match.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	events, err := s.getMatchEvents(ctx, matchID)
	if err != nil {
		return nil, err
	}
	match.Events = events
	return &match, nil
}

func (s *PostgresStore) getMatchEvents(ctx context.Context, matchID string) ([]models.MatchEvent, error) {
	query := `
		SELECT id, match_id, minute, type, team_id, COALESCE(description, ''), points
		FROM match_events WHERE match_id = $1 ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match events: %w", err)
	}
	defer rows.Close()

	events := make([]models.MatchEvent, 0)
	for rows.Next() {
		var event models.MatchEvent
		if err := rows.Scan(&event.ID, &event.MatchID, &event.Minute, &event.Type, &event.TeamID, &event.Description, &event.Points); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *PostgresStore) ListMatches(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	query := `
		SELECT id, season_id, home_team_id, away_team_id, status, scheduled_at,
		       home_score, away_score, COALESCE(duration_minutes, 0), snitch_caught, snitch_team_id, created_at, updated_at
		FROM matches WHERE 1=1
	`
	args := make([]interface{}, 0)

	if filter.SeasonID != "" {
		args = append(args, filter.SeasonID)
		query += fmt.Sprintf(" AND season_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		query += fmt.Sprintf(" AND scheduled_at <= $%d", len(args))
	}
	query += " ORDER BY scheduled_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		if err := rows.Scan(
			&match.ID, &match.SeasonID, &match.HomeTeamID, &match.AwayTeamID, &match.Status, &match.ScheduledAt,
			&match.HomeScore, &match.AwayScore, &match.DurationMinutes, &match.SnitchCaught, &match.SnitchTeamID,
			&match.CreatedAt, &match.UpdatedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, &match)
	}
	return matches, rows.Err()
}

func (s *PostgresStore) TransitionMatchStatus(ctx context.Context, matchID string, from, to models.MatchStatus) error {
	// finished 是终态，不允许任何离开它的转换
	query := `UPDATE matches SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 AND status <> 'finished'`

	result, err := s.db.ExecContext(ctx, query, to, time.Now(), matchID, from)
	if err != nil {
		return fmt.Errorf("failed to transition match status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// 区分"不存在"和"状态不对"
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, matchID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return common.ErrNotFound
		}
		return common.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) UpdateLiveProgress(ctx context.Context, matchID string, homeScore, awayScore int, event *models.MatchEvent) error {
	// 临时比分写入，已结算的比赛不受影响
	query := `
		UPDATE matches SET home_score = $1, away_score = $2, updated_at = $3
		WHERE id = $4 AND status <> 'finished'
	`
	if _, err := s.db.ExecContext(ctx, query, homeScore, awayScore, time.Now(), matchID); err != nil {
		return fmt.Errorf("failed to update live progress: %w", err)
	}

	if event != nil {
		eventQuery := `
			INSERT INTO match_events (id, match_id, minute, type, team_id, description, points, seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7, (SELECT COALESCE(MAX(seq), 0) + 1 FROM match_events WHERE match_id = $2))
			ON CONFLICT (id) DO NOTHING
		`
		if _, err := s.db.ExecContext(ctx, eventQuery,
			event.ID, matchID, event.Minute, event.Type, event.TeamID, event.Description, event.Points,
		); err != nil {
			return fmt.Errorf("failed to insert live event: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FinalizeMatch(ctx context.Context, result *models.MatchResult) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, common.NewAppError("FINALIZE_TX_FAILED", fmt.Sprintf("failed to begin finalize transaction for match %s", result.MatchID), err)
	}
	defer tx.Rollback()

	// 原子 check-and-set: 只有赢得这次转换的调用方才能继续写统计
	casQuery := `
		UPDATE matches SET
			status = 'finished',
			home_score = $1,
			away_score = $2,
			duration_minutes = $3,
			snitch_caught = $4,
			snitch_team_id = $5,
			updated_at = $6
		WHERE id = $7 AND status <> 'finished'
	`
	casResult, err := tx.ExecContext(ctx, casQuery,
		result.HomeScore, result.AwayScore, result.DurationMinutes,
		result.SnitchCaught, result.SnitchTeamID, time.Now(), result.MatchID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to finalize match: %w", err)
	}
	affected, err := casResult.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, result.MatchID).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, common.ErrNotFound
		}
		return false, nil
	}

	// 最终事件列表覆盖直播期间的临时写入
	if _, err := tx.ExecContext(ctx, `DELETE FROM match_events WHERE match_id = $1`, result.MatchID); err != nil {
		return false, fmt.Errorf("failed to clear live events: %w", err)
	}
	eventQuery := `
		INSERT INTO match_events (id, match_id, minute, type, team_id, description, points, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, event := range result.Events {
		if _, err := tx.ExecContext(ctx, eventQuery,
			event.ID, result.MatchID, event.Minute, event.Type, event.TeamID, event.Description, event.Points, i+1,
		); err != nil {
			return false, fmt.Errorf("failed to insert match event: %w", err)
		}
	}

	if err := applyStatsTx(ctx, tx, result.HomeTeamID, result, true); err != nil {
		return false, err
	}
	if err := applyStatsTx(ctx, tx, result.AwayTeamID, result, false); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, common.NewAppError("FINALIZE_COMMIT_FAILED", fmt.Sprintf("failed to commit finalize transaction for match %s", result.MatchID), err)
	}
	return true, nil
}

func applyStatsTx(ctx context.Context, tx *sql.Tx, teamID string, result *models.MatchResult, home bool) error {
	own, opp := result.HomeScore, result.AwayScore
	if !home {
		own, opp = opp, own
	}

	wins, losses, draws := 0, 0, 0
	switch {
	case own > opp:
		wins = 1
	case own < opp:
		losses = 1
	default:
		draws = 1
	}

	snitch := 0
	if result.SnitchTeamID != nil && *result.SnitchTeamID == teamID {
		snitch = 1
	}

	query := `
		INSERT INTO team_stats (team_id, matches_played, wins, losses, draws, points_for, points_against, snitch_catches, updated_at)
		VALUES ($1, 1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (team_id) DO UPDATE SET
			matches_played = team_stats.matches_played + 1,
			wins = team_stats.wins + $2,
			losses = team_stats.losses + $3,
			draws = team_stats.draws + $4,
			points_for = team_stats.points_for + $5,
			points_against = team_stats.points_against + $6,
			snitch_catches = team_stats.snitch_catches + $7,
			updated_at = $8
	`
	if _, err := tx.ExecContext(ctx, query, teamID, wins, losses, draws, own, opp, snitch, time.Now()); err != nil {
		return fmt.Errorf("failed to apply team stats: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveBet(ctx context.Context, bet *models.Bet) error {
	predictionJSON, err := json.Marshal(bet.Prediction)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}

	query := `
		INSERT INTO bets (id, user_id, match_id, type, prediction, status, reason, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			resolved_at = EXCLUDED.resolved_at
	`
	createdAt := bet.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, query,
		bet.ID, bet.UserID, bet.MatchID, bet.Type, predictionJSON, bet.Status, bet.Reason, createdAt, bet.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save bet: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBet(ctx context.Context, betID string) (*models.Bet, error) {
	query := `
		SELECT id, user_id, match_id, type, prediction, status, COALESCE(reason, ''), created_at, resolved_at
		FROM bets WHERE id = $1
	`

	bet, err := scanBet(s.db.QueryRowContext(ctx, query, betID))
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return bet, nil
}

func (s *PostgresStore) ListBets(ctx context.Context, filter BetFilter) ([]*models.Bet, error) {
	query := `
		SELECT id, user_id, match_id, type, prediction, status, COALESCE(reason, ''), created_at, resolved_at
		FROM bets WHERE 1=1
	`
	args := make([]interface{}, 0)

	if filter.MatchID != "" {
		args = append(args, filter.MatchID)
		query += fmt.Sprintf(" AND match_id = $%d", len(args))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	bets := make([]*models.Bet, 0)
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, bet)
	}
	return bets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBet(row rowScanner) (*models.Bet, error) {
	var bet models.Bet
	var predictionJSON []byte
	err := row.Scan(&bet.ID, &bet.UserID, &bet.MatchID, &bet.Type, &predictionJSON, &bet.Status, &bet.Reason, &bet.CreatedAt, &bet.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(predictionJSON, &bet.Prediction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prediction: %w", err)
	}
	return &bet, nil
}

func (s *PostgresStore) GetClockState(ctx context.Context) (*models.ClockState, error) {
	query := `SELECT current_date_value, COALESCE(active_season_id, ''), updated_at FROM clock_state WHERE id = 1`

	var state models.ClockState
	err := s.db.QueryRowContext(ctx, query).Scan(&state.CurrentDate, &state.ActiveSeasonID, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clock state: %w", err)
	}
	return &state, nil
}

func (s *PostgresStore) SaveClockState(ctx context.Context, state *models.ClockState) error {
	query := `
		INSERT INTO clock_state (id, current_date_value, active_season_id, updated_at)
		VALUES (1, $1, NULLIF($2, ''), $3)
		ON CONFLICT (id) DO UPDATE SET
			current_date_value = EXCLUDED.current_date_value,
			active_season_id = EXCLUDED.active_season_id,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, state.CurrentDate, state.ActiveSeasonID, time.Now()); err != nil {
		return fmt.Errorf("failed to save clock state: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearSeason(ctx context.Context, seasonID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM bets WHERE match_id IN (SELECT id FROM matches WHERE season_id = $1)`,
		`DELETE FROM match_events WHERE match_id IN (SELECT id FROM matches WHERE season_id = $1)`,
		`DELETE FROM matches WHERE season_id = $1`,
		`UPDATE seasons SET active = FALSE WHERE id = $1`,
	}
	for _, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement, seasonID); err != nil {
			return fmt.Errorf("failed to clear season: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE team_stats SET matches_played = 0, wins = 0, losses = 0, draws = 0,
			points_for = 0, points_against = 0, snitch_catches = 0, updated_at = $1
	`, time.Now()); err != nil {
		return fmt.Errorf("failed to reset team stats: %w", err)
	}

	return tx.Commit()
}
