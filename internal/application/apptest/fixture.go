// Package apptest wires the application handlers over in-memory
// infrastructure for tests.
package apptest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/infrastructure/catalog"
	"github.com/alem-hub/learning-journey/internal/infrastructure/messaging"
	"github.com/alem-hub/learning-journey/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learning-journey/pkg/logger"
	"github.com/alem-hub/learning-journey/pkg/timeutil"
)

// Activity ids of the fixture plan, in catalog order.
const (
	PlanID      = "algebra-101"
	Lesson      = "alg-w1-lesson"
	Practice    = "alg-w1-practice"
	Quiz        = "alg-w2-quiz"
	LessonXP    = 5
	PracticeXP  = 10
	QuizXP      = 20
	SubjectMath = "math"
)

// Start is the fixture's initial clock reading: Monday 10:00 in Almaty.
var Start = time.Date(2026, 3, 2, 10, 0, 0, 0, timeutil.AlmatyTZ)

// Plan returns the fixture plan definition.
func Plan() catalog.PlanDefinition {
	return catalog.PlanDefinition{
		Plan:    domain.Plan{ID: PlanID, Name: "Algebra basics", Weeks: 2},
		Default: true,
		Activities: []catalog.ActivityDefinition{
			{Activity: domain.Activity{
				ID: Quiz, Week: 2, DayOfWeek: 1, Type: domain.TypeAssessment,
				SubjectID: SubjectMath, XPReward: QuizXP, Required: true,
			}, Questions: []domain.Question{
				{ID: "q1", TopicID: "quadratics", CorrectValue: "yes"},
			}},
			{Activity: domain.Activity{
				ID: Practice, Week: 1, DayOfWeek: 2, Type: domain.TypePractice,
				SubjectID: SubjectMath, XPReward: PracticeXP, Required: true,
				Duration: 20 * time.Minute,
			}, Questions: []domain.Question{
				{ID: "q1", TopicID: "linear-equations", CorrectValue: "4", Explanation: "2x = 8"},
				{ID: "q2", TopicID: "linear-equations", CorrectValue: "7"},
			}},
			{Activity: domain.Activity{
				ID: Lesson, Week: 1, DayOfWeek: 1, Type: domain.TypeLesson,
				SubjectID: SubjectMath, XPReward: LessonXP, Required: true,
			}},
		},
	}
}

// Fixture holds in-memory collaborators for one test.
type Fixture struct {
	Clock    *shared.FixedClock
	Catalog  *catalog.Loader
	Records  *memory.CompletionRepository
	Streaks  *memory.StreakRepository
	Journeys *memory.JourneyRepository
	Reviews  *memory.ReviewStore
	Locker   *memory.KeyedLocker
	Bus      *messaging.InMemoryEventBus
	Events   *Recorder
	Log      *logger.Logger
}

// New builds a fixture loaded with Plan().
func New(t *testing.T) *Fixture {
	t.Helper()

	cat := catalog.NewLoader(logger.Nop())
	require.NoError(t, cat.Set(Plan()))

	cfg := messaging.DefaultInMemoryEventBusConfig()
	cfg.Logger = logger.Nop()
	bus := messaging.NewInMemoryEventBus(cfg)
	t.Cleanup(func() { _ = bus.Close() })

	events := &Recorder{}
	require.NoError(t, bus.SubscribeAll(events.Handle))

	return &Fixture{
		Clock:    shared.NewFixedClock(Start),
		Catalog:  cat,
		Records:  memory.NewCompletionRepository(),
		Streaks:  memory.NewStreakRepository(),
		Journeys: memory.NewJourneyRepository(),
		Reviews:  memory.NewReviewStore(),
		Locker:   memory.NewKeyedLocker(),
		Bus:      bus,
		Events:   events,
		Log:      logger.Nop(),
	}
}

// Recorder collects published events.
type Recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

// Handle implements shared.EventHandler.
func (r *Recorder) Handle(_ context.Context, e shared.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

// OfType returns the recorded events of one type.
func (r *Recorder) OfType(t shared.EventType) []shared.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.Event
	for _, e := range r.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
