package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"quidditch-service/models"
	"quidditch-service/pkg/common"
)

var seasonStart = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func clockFixture(t *testing.T) (*testEngine, *VirtualClock) {
	t.Helper()
	engine := newTestEngine(51, time.Millisecond, 2*time.Millisecond)
	seedTeams(t, engine.store, "A", "B", "C", "D")
	seedSeason(t, engine.store, "s1", seasonStart)
	clock := NewVirtualClock(engine.store, engine.simulator, seasonStart)
	return engine, clock
}

func TestAdvanceDaysSimulatesDueMatches(t *testing.T) {
	engine, clock := clockFixture(t)

	// 3场在7天内到期，1场已结束，1场在7天之后
	seedMatch(t, engine.store, "m1", "s1", "A", "B", seasonStart.AddDate(0, 0, 1))
	seedMatch(t, engine.store, "m2", "s1", "C", "D", seasonStart.AddDate(0, 0, 3))
	seedMatch(t, engine.store, "m3", "s1", "A", "C", seasonStart.AddDate(0, 0, 6))
	seedMatch(t, engine.store, "m4", "s1", "B", "D", seasonStart.AddDate(0, 0, 2))
	seedMatch(t, engine.store, "m5", "s1", "B", "C", seasonStart.AddDate(0, 0, 20))

	if _, err := engine.simulator.SimulateInstant(context.Background(), "m4"); err != nil {
		t.Fatalf("Failed to pre-finish m4: %v", err)
	}

	result, err := clock.Advance(context.Background(), AdvanceSpec{Days: 7, SimulateMatches: true})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if len(result.SimulatedMatches) != 3 {
		t.Fatalf("Expected exactly 3 matches simulated, got %d", len(result.SimulatedMatches))
	}
	simulated := make(map[string]bool)
	for _, match := range result.SimulatedMatches {
		simulated[match.MatchID] = true
	}
	for _, id := range []string{"m1", "m2", "m3"} {
		if !simulated[id] {
			t.Errorf("Expected match %s to be simulated", id)
		}
	}
	if simulated["m4"] {
		t.Error("Already finished match m4 must not be re-simulated")
	}
	if simulated["m5"] {
		t.Error("Match m5 beyond the advance target must not be simulated")
	}

	if want := seasonStart.AddDate(0, 0, 7); !result.NewDate.Equal(want) {
		t.Errorf("Expected new date %v, got %v", want, result.NewDate)
	}

	state, err := clock.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !state.CurrentDate.Equal(result.NewDate) {
		t.Errorf("Expected persisted clock %v, got %v", result.NewDate, state.CurrentDate)
	}

	later, _ := engine.store.GetMatch(context.Background(), "m5")
	if later.Status != models.MatchStatusScheduled {
		t.Errorf("Expected m5 untouched, got status %s", later.Status)
	}
}

func TestAdvanceRepeatedDoesNotDoubleSimulate(t *testing.T) {
	engine, clock := clockFixture(t)
	seedMatch(t, engine.store, "m1", "s1", "A", "B", seasonStart.AddDate(0, 0, 1))

	if _, err := clock.Advance(context.Background(), AdvanceSpec{Days: 7, SimulateMatches: true}); err != nil {
		t.Fatalf("First advance failed: %v", err)
	}
	statsBefore, _ := engine.store.GetTeamStats(context.Background(), "A")

	second, err := clock.Advance(context.Background(), AdvanceSpec{Days: 7, SimulateMatches: true})
	if err != nil {
		t.Fatalf("Second advance failed: %v", err)
	}
	if len(second.SimulatedMatches) != 0 {
		t.Errorf("Expected no matches on repeated advance, got %d", len(second.SimulatedMatches))
	}

	statsAfter, _ := engine.store.GetTeamStats(context.Background(), "A")
	if statsAfter.MatchesPlayed != statsBefore.MatchesPlayed {
		t.Errorf("Repeated advance changed matches_played from %d to %d", statsBefore.MatchesPlayed, statsAfter.MatchesPlayed)
	}
}

func TestAdvanceToNextMatchStartsLive(t *testing.T) {
	engine, clock := clockFixture(t)
	seedMatch(t, engine.store, "m1", "s1", "A", "B", seasonStart.AddDate(0, 0, 5))
	seedMatch(t, engine.store, "m2", "s1", "C", "D", seasonStart.AddDate(0, 0, 5))
	seedMatch(t, engine.store, "m3", "s1", "A", "C", seasonStart.AddDate(0, 0, 12))

	result, err := clock.Advance(context.Background(), AdvanceSpec{ToNextMatch: true})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	defer engine.simulator.StopAll()

	if want := seasonStart.AddDate(0, 0, 5); !result.NewDate.Equal(want) {
		t.Errorf("Expected clock at next match day %v, got %v", want, result.NewDate)
	}
	if len(result.LiveMatchIDs) != 2 {
		t.Fatalf("Expected 2 live matches at the boundary, got %d", len(result.LiveMatchIDs))
	}

	waitForStatus(t, engine.store, "m1", models.MatchStatusFinished, 5*time.Second)
	waitForStatus(t, engine.store, "m2", models.MatchStatusFinished, 5*time.Second)

	m3, _ := engine.store.GetMatch(context.Background(), "m3")
	if m3.Status != models.MatchStatusScheduled {
		t.Errorf("Expected later match untouched, got %s", m3.Status)
	}
}

func TestAdvanceSimulateRemainder(t *testing.T) {
	engine, clock := clockFixture(t)
	seedMatch(t, engine.store, "m1", "s1", "A", "B", seasonStart.AddDate(0, 0, 1))
	seedMatch(t, engine.store, "m2", "s1", "C", "D", seasonStart.AddDate(0, 0, 30))
	seedMatch(t, engine.store, "m3", "s1", "A", "C", seasonStart.AddDate(0, 0, 60))

	result, err := clock.Advance(context.Background(), AdvanceSpec{SimulateRemainder: true})
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if len(result.SimulatedMatches) != 3 {
		t.Fatalf("Expected all 3 matches simulated, got %d", len(result.SimulatedMatches))
	}
	if want := seasonStart.AddDate(0, 0, 60); !result.NewDate.Equal(want) {
		t.Errorf("Expected clock at last match day %v, got %v", want, result.NewDate)
	}

	unfinished, _ := engine.store.ListMatches(context.Background(), MatchFilter{SeasonID: "s1", Status: models.MatchStatusScheduled})
	if len(unfinished) != 0 {
		t.Errorf("Expected no scheduled matches left, got %d", len(unfinished))
	}
}

func TestAdvanceWithoutActiveSeason(t *testing.T) {
	engine := newTestEngine(52, time.Millisecond, 2*time.Millisecond)
	clock := NewVirtualClock(engine.store, engine.simulator, seasonStart)

	if err := engine.store.SaveClockState(context.Background(), &models.ClockState{CurrentDate: seasonStart}); err != nil {
		t.Fatalf("Failed to seed clock: %v", err)
	}

	_, err := clock.Advance(context.Background(), AdvanceSpec{Days: 1})
	if !errors.Is(err, common.ErrNoActiveSeason) {
		t.Errorf("Expected ErrNoActiveSeason, got %v", err)
	}
}

func TestAdvanceRejectsEmptySpec(t *testing.T) {
	_, clock := clockFixture(t)

	_, err := clock.Advance(context.Background(), AdvanceSpec{})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestResetClearsSeasonState(t *testing.T) {
	engine, clock := clockFixture(t)
	seedMatch(t, engine.store, "m1", "s1", "A", "B", seasonStart.AddDate(0, 0, 1))
	seedMatch(t, engine.store, "m2", "s1", "C", "D", seasonStart.AddDate(0, 0, 2))

	bet := &models.Bet{ID: "b1", UserID: "u1", MatchID: "m1", Type: models.BetTypeWinner,
		Prediction: models.Prediction{Side: "home"}, Status: models.BetStatusPending, CreatedAt: time.Now()}
	if err := engine.store.SaveBet(context.Background(), bet); err != nil {
		t.Fatalf("Failed to seed bet: %v", err)
	}

	if _, err := clock.Advance(context.Background(), AdvanceSpec{Days: 7, SimulateMatches: true}); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if err := clock.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	state, err := clock.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !state.CurrentDate.Equal(seasonStart) {
		t.Errorf("Expected clock back at %v, got %v", seasonStart, state.CurrentDate)
	}
	if state.ActiveSeasonID != "" {
		t.Errorf("Expected no active season after reset, got %s", state.ActiveSeasonID)
	}

	matches, _ := engine.store.ListMatches(context.Background(), MatchFilter{SeasonID: "s1"})
	if len(matches) != 0 {
		t.Errorf("Expected season matches cleared, got %d", len(matches))
	}
	bets, _ := engine.store.ListBets(context.Background(), BetFilter{})
	if len(bets) != 0 {
		t.Errorf("Expected bets cleared, got %d", len(bets))
	}

	stats, _ := engine.store.GetTeamStats(context.Background(), "A")
	if stats.MatchesPlayed != 0 {
		t.Errorf("Expected team stats reset, got %d matches played", stats.MatchesPlayed)
	}

	if _, err := engine.store.GetActiveSeason(context.Background()); !errors.Is(err, common.ErrNoActiveSeason) {
		t.Errorf("Expected season deactivated, got %v", err)
	}
}
