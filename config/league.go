package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LeagueDefinition 联赛定义，从 YAML 文件加载
type LeagueDefinition struct {
	Name  string       `yaml:"name"`
	Teams []LeagueTeam `yaml:"teams"`
}

// LeagueTeam 联赛中的一支队伍
type LeagueTeam struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	House   string `yaml:"house"`
	Stadium string `yaml:"stadium"`
}

// LoadLeague 从 YAML 文件加载联赛定义
func LoadLeague(path string) (*LeagueDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read league file: %w", err)
	}

	var league LeagueDefinition
	if err := yaml.Unmarshal(data, &league); err != nil {
		return nil, fmt.Errorf("failed to parse league file: %w", err)
	}

	if len(league.Teams) < 2 {
		return nil, fmt.Errorf("league file must define at least 2 teams, got %d", len(league.Teams))
	}

	seen := make(map[string]bool)
	for _, team := range league.Teams {
		if team.ID == "" || team.Name == "" {
			return nil, fmt.Errorf("league team requires both id and name: %+v", team)
		}
		if seen[team.ID] {
			return nil, fmt.Errorf("duplicate team id in league file: %s", team.ID)
		}
		seen[team.ID] = true
	}

	return &league, nil
}
