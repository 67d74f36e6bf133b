package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// 数据库配置
	DatabaseURL string

	// 服务器配置
	Port string

	// 联赛定义文件 (YAML)
	LeagueFile string

	// 赛季配置
	SeasonStartDate string // "2006-01-02" 格式
	MatchIntervalDays int  // 同一轮比赛之间间隔的虚拟天数

	// 直播模拟配置
	LiveDelayMinSeconds int
	LiveDelayMaxSeconds int

	// AMQP 配置 (可选，为空则不启用)
	AMQPUrl      string
	AMQPExchange string

	// 其他配置
	Environment string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/quidditch?sslmode=disable"),
		Port:        getEnv("PORT", "8080"),

		LeagueFile: getEnv("LEAGUE_FILE", "league.yaml"),

		SeasonStartDate:   getEnv("SEASON_START_DATE", "2025-09-01"),
		MatchIntervalDays: getEnvInt("MATCH_INTERVAL_DAYS", 7),

		LiveDelayMinSeconds: getEnvInt("LIVE_DELAY_MIN_SECONDS", 2),
		LiveDelayMaxSeconds: getEnvInt("LIVE_DELAY_MAX_SECONDS", 8),

		AMQPUrl:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "quidditch.matches"),

		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

// SeasonStart 解析赛季起始日期，解析失败时退回默认值
func (c *Config) SeasonStart() time.Time {
	t, err := time.Parse("2006-01-02", c.SeasonStartDate)
	if err != nil {
		return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}
