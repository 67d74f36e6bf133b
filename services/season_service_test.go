package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"quidditch-service/config"
	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

func leagueOf(ids ...string) *config.LeagueDefinition {
	league := &config.LeagueDefinition{Name: "Test League"}
	for _, id := range ids {
		league.Teams = append(league.Teams, config.LeagueTeam{ID: id, Name: id})
	}
	return league
}

func newSeasonFixture(t *testing.T) (*testEngine, *SeasonService) {
	t.Helper()
	engine := newTestEngine(71, time.Millisecond, 2*time.Millisecond)
	clock := NewVirtualClock(engine.store, engine.simulator, seasonStart)
	seasons := NewSeasonService(engine.store, clock, seasonStart, 7)
	return engine, seasons
}

func TestCreateSeasonDoubleRoundRobin(t *testing.T) {
	engine, seasons := newSeasonFixture(t)

	season, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B", "C", "D"))
	if err != nil {
		t.Fatalf("CreateSeason failed: %v", err)
	}

	matches, err := engine.store.ListMatches(context.Background(), MatchFilter{SeasonID: season.ID})
	if err != nil {
		t.Fatalf("ListMatches failed: %v", err)
	}
	// 4队双循环 = 4*3 = 12场
	if len(matches) != 12 {
		t.Fatalf("Expected 12 fixtures for 4 teams, got %d", len(matches))
	}

	// 每对组合主客场各一场
	pairings := make(map[string]int)
	for _, match := range matches {
		if match.HomeTeamID == match.AwayTeamID {
			t.Errorf("Fixture %s has a team playing itself", match.ID)
		}
		if match.Status != models.MatchStatusScheduled {
			t.Errorf("Expected fixture %s scheduled, got %s", match.ID, match.Status)
		}
		pairings[match.HomeTeamID+"|"+match.AwayTeamID]++
	}
	for pairing, count := range pairings {
		if count != 1 {
			t.Errorf("Pairing %s appears %d times, expected 1", pairing, count)
		}
	}
	if len(pairings) != 12 {
		t.Errorf("Expected 12 distinct home/away pairings, got %d", len(pairings))
	}

	// 每支队伍打 2*(n-1) = 6场
	appearances := make(map[string]int)
	for _, match := range matches {
		appearances[match.HomeTeamID]++
		appearances[match.AwayTeamID]++
	}
	for _, id := range []string{"A", "B", "C", "D"} {
		if appearances[id] != 6 {
			t.Errorf("Team %s plays %d matches, expected 6", id, appearances[id])
		}
	}
}

func TestCreateSeasonRoundSpacing(t *testing.T) {
	engine, seasons := newSeasonFixture(t)

	season, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B", "C", "D"))
	if err != nil {
		t.Fatalf("CreateSeason failed: %v", err)
	}

	matches, _ := engine.store.ListMatches(context.Background(), MatchFilter{SeasonID: season.ID})
	perDay := make(map[string]int)
	for _, match := range matches {
		if match.ScheduledAt.Before(seasonStart) {
			t.Errorf("Fixture %s scheduled before season start: %v", match.ID, match.ScheduledAt)
		}
		if days := int(match.ScheduledAt.Sub(seasonStart).Hours() / 24); days%7 != 0 {
			t.Errorf("Fixture %s not on a 7-day round boundary: %v", match.ID, match.ScheduledAt)
		}
		perDay[match.ScheduledAt.Format("2006-01-02")]++
	}
	// 4队每轮2场，共6轮
	if len(perDay) != 6 {
		t.Errorf("Expected 6 round days, got %d", len(perDay))
	}
	for day, count := range perDay {
		if count != 2 {
			t.Errorf("Round day %s has %d matches, expected 2", day, count)
		}
	}
}

func TestCreateSeasonOddTeamCount(t *testing.T) {
	engine, seasons := newSeasonFixture(t)

	season, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B", "C", "D", "E"))
	if err != nil {
		t.Fatalf("CreateSeason failed: %v", err)
	}

	matches, _ := engine.store.ListMatches(context.Background(), MatchFilter{SeasonID: season.ID})
	// 5队双循环 = 5*4 = 20场，轮空位不产生比赛
	if len(matches) != 20 {
		t.Fatalf("Expected 20 fixtures for 5 teams, got %d", len(matches))
	}
	for _, match := range matches {
		if match.HomeTeamID == "" || match.AwayTeamID == "" {
			t.Errorf("Fixture %s includes the bye slot", match.ID)
		}
	}
}

func TestCreateSeasonRejectsSecondActiveSeason(t *testing.T) {
	_, seasons := newSeasonFixture(t)

	if _, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B")); err != nil {
		t.Fatalf("First CreateSeason failed: %v", err)
	}

	_, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B"))
	if !errors.Is(err, common.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for second active season, got %v", err)
	}
}

func TestCreateSeasonAfterResetSucceeds(t *testing.T) {
	engine, seasons := newSeasonFixture(t)
	clock := NewVirtualClock(engine.store, engine.simulator, seasonStart)

	if _, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B")); err != nil {
		t.Fatalf("First CreateSeason failed: %v", err)
	}
	if err := clock.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	season, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B"))
	if err != nil {
		t.Fatalf("CreateSeason after reset failed: %v", err)
	}

	state, err := engine.store.GetClockState(context.Background())
	if err != nil {
		t.Fatalf("GetClockState failed: %v", err)
	}
	if state.ActiveSeasonID != season.ID {
		t.Errorf("Expected clock bound to new season %s, got %s", season.ID, state.ActiveSeasonID)
	}
}

func TestCreateSeasonInitializesClock(t *testing.T) {
	engine, seasons := newSeasonFixture(t)

	season, err := seasons.CreateSeason(context.Background(), leagueOf("A", "B", "C"))
	if err != nil {
		t.Fatalf("CreateSeason failed: %v", err)
	}

	state, err := engine.store.GetClockState(context.Background())
	if err != nil {
		t.Fatalf("GetClockState failed: %v", err)
	}
	if state.ActiveSeasonID != season.ID {
		t.Errorf("Expected active season %s, got %s", season.ID, state.ActiveSeasonID)
	}
	if !state.CurrentDate.Equal(seasonStart) {
		t.Errorf("Expected clock at %v, got %v", seasonStart, state.CurrentDate)
	}
}
