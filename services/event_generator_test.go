package services

import (
	"math/rand"
	"testing"

	"quidditch-service/models"
)

func TestGenerateEventCounts(t *testing.T) {
	generator := NewEventGenerator(rand.New(rand.NewSource(1)))

	for seed := 0; seed < 50; seed++ {
		events := generator.Generate("m1", "home-team", "away-team")

		goals, fouls, snitches := 0, 0, 0
		for _, event := range events {
			switch event.Type {
			case models.EventTypeGoal:
				goals++
			case models.EventTypeFoul:
				fouls++
			case models.EventTypeSnitch:
				snitches++
			}
		}

		if goals < 10 || goals > 25 {
			t.Errorf("Expected 10-25 goals, got %d", goals)
		}
		if fouls < 3 || fouls > 8 {
			t.Errorf("Expected 3-8 fouls, got %d", fouls)
		}
		if snitches != 1 {
			t.Errorf("Expected exactly 1 snitch event, got %d", snitches)
		}
	}
}

func TestGenerateSnitchIsLast(t *testing.T) {
	generator := NewEventGenerator(rand.New(rand.NewSource(7)))

	for i := 0; i < 50; i++ {
		events := generator.Generate("m1", "a", "b")

		last := events[len(events)-1]
		if last.Type != models.EventTypeSnitch {
			t.Fatalf("Expected last event to be snitch, got %s", last.Type)
		}
		if last.Points != models.PointsSnitch {
			t.Errorf("Expected snitch worth %d points, got %d", models.PointsSnitch, last.Points)
		}
		if last.Minute < 30 || last.Minute >= 120 {
			t.Errorf("Expected snitch minute in [30, 120), got %d", last.Minute)
		}

		for _, event := range events[:len(events)-1] {
			if event.Minute >= last.Minute {
				t.Errorf("Expected all events before snitch minute %d, got event at %d", last.Minute, event.Minute)
			}
		}
	}
}

func TestGenerateEventsSorted(t *testing.T) {
	generator := NewEventGenerator(rand.New(rand.NewSource(42)))
	events := generator.Generate("m1", "a", "b")

	for i := 1; i < len(events); i++ {
		if events[i].Minute < events[i-1].Minute {
			t.Fatalf("Events not sorted by minute: %d before %d", events[i-1].Minute, events[i].Minute)
		}
	}
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	first := NewEventGenerator(rand.New(rand.NewSource(99))).Generate("m1", "a", "b")
	second := NewEventGenerator(rand.New(rand.NewSource(99))).Generate("m1", "a", "b")

	if len(first) != len(second) {
		t.Fatalf("Expected same event count for same seed, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Minute != second[i].Minute || first[i].Type != second[i].Type || first[i].TeamID != second[i].TeamID {
			t.Errorf("Event %d differs between identically seeded generators: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateSidesAndPoints(t *testing.T) {
	generator := NewEventGenerator(rand.New(rand.NewSource(3)))
	events := generator.Generate("m1", "home-team", "away-team")

	for _, event := range events {
		if event.TeamID != "home-team" && event.TeamID != "away-team" {
			t.Errorf("Event attributed to unknown team %q", event.TeamID)
		}
		switch event.Type {
		case models.EventTypeGoal:
			if event.Points != models.PointsGoal {
				t.Errorf("Expected goal worth %d points, got %d", models.PointsGoal, event.Points)
			}
		case models.EventTypeFoul:
			if event.Points != 0 {
				t.Errorf("Expected foul worth 0 points, got %d", event.Points)
			}
		}
		if event.MatchID != "m1" {
			t.Errorf("Expected event match id m1, got %s", event.MatchID)
		}
	}
}
