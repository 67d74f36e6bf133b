package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 队伍表
		`CREATE TABLE IF NOT EXISTS teams (
			id VARCHAR(100) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			house VARCHAR(100),
			stadium VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 队伍累计统计表
		`CREATE TABLE IF NOT EXISTS team_stats (
			team_id VARCHAR(100) PRIMARY KEY REFERENCES teams(id),
			matches_played INTEGER DEFAULT 0,
			wins INTEGER DEFAULT 0,
			losses INTEGER DEFAULT 0,
			draws INTEGER DEFAULT 0,
			points_for INTEGER DEFAULT 0,
			points_against INTEGER DEFAULT 0,
			snitch_catches INTEGER DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 赛季表
		`CREATE TABLE IF NOT EXISTS seasons (
			id VARCHAR(100) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			start_date TIMESTAMP NOT NULL,
			active BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 比赛表
		`CREATE TABLE IF NOT EXISTS matches (
			id VARCHAR(100) PRIMARY KEY,
			season_id VARCHAR(100) NOT NULL REFERENCES seasons(id),
			home_team_id VARCHAR(100) NOT NULL REFERENCES teams(id),
			away_team_id VARCHAR(100) NOT NULL REFERENCES teams(id),
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			scheduled_at TIMESTAMP NOT NULL,
			home_score INTEGER DEFAULT 0,
			away_score INTEGER DEFAULT 0,
			duration_minutes INTEGER,
			snitch_caught BOOLEAN DEFAULT FALSE,
			snitch_team_id VARCHAR(100),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_season_id ON matches(season_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_scheduled_at ON matches(scheduled_at)`,

		// 比赛事件表
		`CREATE TABLE IF NOT EXISTS match_events (
			id VARCHAR(100) PRIMARY KEY,
			match_id VARCHAR(100) NOT NULL REFERENCES matches(id),
			minute INTEGER NOT NULL,
			type VARCHAR(20) NOT NULL,
			team_id VARCHAR(100) NOT NULL,
			description TEXT,
			points INTEGER NOT NULL,
			seq INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_match_id ON match_events(match_id)`,

		// 投注表
		`CREATE TABLE IF NOT EXISTS bets (
			id VARCHAR(100) PRIMARY KEY,
			user_id VARCHAR(100) NOT NULL,
			match_id VARCHAR(100) NOT NULL REFERENCES matches(id),
			type VARCHAR(20) NOT NULL,
			prediction JSONB NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			reason TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_match_id ON bets(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_user_id ON bets(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status)`,

		// 虚拟时钟表 (单行)
		`CREATE TABLE IF NOT EXISTS clock_state (
			id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			current_date_value TIMESTAMP NOT NULL,
			active_season_id VARCHAR(100),
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
