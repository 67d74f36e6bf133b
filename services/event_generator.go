package services

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"

	"quidditch-service/models"
)

// 事件生成参数
const (
	minDurationMinutes = 30
	maxDurationMinutes = 120
	minGoals           = 10
	maxGoals           = 25
	minFouls           = 3
	maxFouls           = 8
	quaffleGoalRatio   = 0.8
)

var quaffleDescriptions = []string{
	"%s put the quaffle through the left hoop",
	"%s slipped the quaffle past the keeper",
	"%s scored with a clean quaffle throw",
}

var bludgerDescriptions = []string{
	"%s scored after a bludger knocked the keeper off course",
	"%s converted a bludger-assisted opening",
}

var foulDescriptions = []string{
	"blagging by %s",
	"cobbing called against %s",
	"blatching by %s",
}

// EventGenerator 根据两支队伍生成一场比赛的事件序列。
// 随机源通过构造函数注入，便于测试时固定种子
type EventGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEventGenerator 创建事件生成器
func NewEventGenerator(rng *rand.Rand) *EventGenerator {
	return &EventGenerator{rng: rng}
}

// Generate 生成一场比赛的全部事件，按分钟升序排列。
// 最后一个事件固定是金色飞贼捕获，发生在比赛最后一分钟；
// 其余事件的分钟都严格小于它，因此不存在需要丢弃的飞贼之后的事件
func (g *EventGenerator) Generate(matchID, homeTeamID, awayTeamID string) []models.MatchEvent {
	g.mu.Lock()
	defer g.mu.Unlock()

	duration := minDurationMinutes + g.rng.Intn(maxDurationMinutes-minDurationMinutes)
	goals := minGoals + g.rng.Intn(maxGoals-minGoals+1)
	fouls := minFouls + g.rng.Intn(maxFouls-minFouls+1)

	events := make([]models.MatchEvent, 0, goals+fouls+1)

	for i := 0; i < goals; i++ {
		teamID := g.pickSide(homeTeamID, awayTeamID)
		var description string
		if g.rng.Float64() < quaffleGoalRatio {
			description = fmt.Sprintf(quaffleDescriptions[g.rng.Intn(len(quaffleDescriptions))], teamID)
		} else {
			description = fmt.Sprintf(bludgerDescriptions[g.rng.Intn(len(bludgerDescriptions))], teamID)
		}
		events = append(events, models.MatchEvent{
			ID:          uuid.NewString(),
			MatchID:     matchID,
			Minute:      g.rng.Intn(duration),
			Type:        models.EventTypeGoal,
			TeamID:      teamID,
			Description: description,
			Points:      models.PointsGoal,
		})
	}

	for i := 0; i < fouls; i++ {
		teamID := g.pickSide(homeTeamID, awayTeamID)
		events = append(events, models.MatchEvent{
			ID:          uuid.NewString(),
			MatchID:     matchID,
			Minute:      g.rng.Intn(duration),
			Type:        models.EventTypeFoul,
			TeamID:      teamID,
			Description: fmt.Sprintf(foulDescriptions[g.rng.Intn(len(foulDescriptions))], teamID),
			Points:      models.PointsFoul,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Minute < events[j].Minute
	})

	snitchTeamID := g.pickSide(homeTeamID, awayTeamID)
	events = append(events, models.MatchEvent{
		ID:          uuid.NewString(),
		MatchID:     matchID,
		Minute:      duration,
		Type:        models.EventTypeSnitch,
		TeamID:      snitchTeamID,
		Description: fmt.Sprintf("the golden snitch was caught by %s", snitchTeamID),
		Points:      models.PointsSnitch,
	})

	return events
}

func (g *EventGenerator) pickSide(homeTeamID, awayTeamID string) string {
	if g.rng.Intn(2) == 0 {
		return homeTeamID
	}
	return awayTeamID
}
