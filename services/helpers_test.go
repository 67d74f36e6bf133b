package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"quidditch-service/models"
)

type testEngine struct {
	store      *MemoryStore
	generator  *EventGenerator
	resolver   *BetResolver
	settlement *SettlementService
	simulator  *Simulator
	broker     *InMemoryBroker
}

func newTestEngine(seed int64, delayMin, delayMax time.Duration) *testEngine {
	store := NewMemoryStore()
	broker := NewInMemoryBroker()
	generator := NewEventGenerator(rand.New(rand.NewSource(seed)))
	resolver := NewBetResolver(store)
	settlement := NewSettlementService(store, resolver, broker)
	simulator := NewSimulator(store, generator, settlement, broker, rand.New(rand.NewSource(seed+1)), delayMin, delayMax)

	return &testEngine{
		store:      store,
		generator:  generator,
		resolver:   resolver,
		settlement: settlement,
		simulator:  simulator,
		broker:     broker,
	}
}

func seedTeams(t *testing.T, store *MemoryStore, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := store.SaveTeam(context.Background(), &models.Team{ID: id, Name: id}); err != nil {
			t.Fatalf("Failed to seed team %s: %v", id, err)
		}
	}
}

func seedMatch(t *testing.T, store *MemoryStore, id, seasonID, home, away string, scheduledAt time.Time) *models.Match {
	t.Helper()
	match := &models.Match{
		ID:          id,
		SeasonID:    seasonID,
		HomeTeamID:  home,
		AwayTeamID:  away,
		Status:      models.MatchStatusScheduled,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := store.SaveMatch(context.Background(), match); err != nil {
		t.Fatalf("Failed to seed match %s: %v", id, err)
	}
	return match
}

func seedSeason(t *testing.T, store *MemoryStore, id string, start time.Time) {
	t.Helper()
	season := &models.Season{ID: id, Name: id, StartDate: start, Active: true}
	if err := store.SaveSeason(context.Background(), season); err != nil {
		t.Fatalf("Failed to seed season %s: %v", id, err)
	}
	if err := store.SaveClockState(context.Background(), &models.ClockState{CurrentDate: start, ActiveSeasonID: id}); err != nil {
		t.Fatalf("Failed to seed clock state: %v", err)
	}
}

func waitForStatus(t *testing.T, store *MemoryStore, matchID string, status models.MatchStatus, timeout time.Duration) *models.Match {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		match, err := store.GetMatch(context.Background(), matchID)
		if err != nil {
			t.Fatalf("Failed to get match %s: %v", matchID, err)
		}
		if match.Status == status {
			return match
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Match %s did not reach status %s within %v", matchID, status, timeout)
	return nil
}
