// Package catalog loads study plans, activities and answer keys from YAML
// files and serves them through the read-only catalog contracts.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

// PlanDefinition is the content of one plan file:
//
//	plan:
//	  id: algebra-101
//	  name: Algebra basics
//	  weeks: 4
//	default: true
//	enrolled: [u1, u2]
//	activities:
//	  - id: alg-w1-d1
//	    week: 1
//	    day: 1
//	    type: practice
//	    subject: math
//	    xp_reward: 10
//	    duration: 20m
//	    questions:
//	      - id: q1
//	        topic: linear-equations
//	        answer: "4"
type PlanDefinition struct {
	Plan       domain.Plan          `yaml:"plan"`
	Default    bool                 `yaml:"default"`
	Enrolled   []string             `yaml:"enrolled"`
	Activities []ActivityDefinition `yaml:"activities"`
}

// ActivityDefinition is an activity together with its answer key.
type ActivityDefinition struct {
	domain.Activity `yaml:",inline"`
	Questions       []domain.Question `yaml:"questions"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// snapshot is an immutable view of the catalog. Reload builds a new one and
// swaps it in only when the whole directory validated.
type snapshot struct {
	plans       map[string]domain.Plan
	defaultPlan string
	enrollments map[string]string
	activities  map[string]domain.Activity
	byPlan      map[string][]domain.Activity
	questions   map[string]map[string]domain.Question
}

func buildSnapshot(defs []PlanDefinition) (*snapshot, error) {
	s := &snapshot{
		plans:       make(map[string]domain.Plan),
		enrollments: make(map[string]string),
		activities:  make(map[string]domain.Activity),
		byPlan:      make(map[string][]domain.Activity),
		questions:   make(map[string]map[string]domain.Question),
	}

	for _, def := range defs {
		plan := def.Plan
		if plan.ID == "" {
			return nil, fmt.Errorf("plan id is required")
		}
		if _, dup := s.plans[plan.ID]; dup {
			return nil, fmt.Errorf("duplicate plan %q", plan.ID)
		}
		s.plans[plan.ID] = plan

		if def.Default {
			if s.defaultPlan != "" {
				return nil, fmt.Errorf("plans %q and %q are both marked default", s.defaultPlan, plan.ID)
			}
			s.defaultPlan = plan.ID
		}
		for _, userID := range def.Enrolled {
			if other, ok := s.enrollments[userID]; ok && other != plan.ID {
				return nil, fmt.Errorf("user %q enrolled in %q and %q", userID, other, plan.ID)
			}
			s.enrollments[userID] = plan.ID
		}

		for _, entry := range def.Activities {
			act := entry.Activity
			act.PlanID = plan.ID
			if act.QuestionCount == 0 {
				act.QuestionCount = len(entry.Questions)
			}
			if err := act.Validate(); err != nil {
				return nil, fmt.Errorf("plan %s: %w", plan.ID, err)
			}
			if _, dup := s.activities[act.ID]; dup {
				return nil, fmt.Errorf("duplicate activity %q", act.ID)
			}

			keys := make(map[string]domain.Question, len(entry.Questions))
			for _, q := range entry.Questions {
				if q.ID == "" {
					return nil, fmt.Errorf("activity %s: question id is required", act.ID)
				}
				if _, dup := keys[q.ID]; dup {
					return nil, fmt.Errorf("activity %s: duplicate question %q", act.ID, q.ID)
				}
				q.ActivityID = act.ID
				keys[q.ID] = q
			}

			s.activities[act.ID] = act
			s.byPlan[plan.ID] = append(s.byPlan[plan.ID], act)
			s.questions[act.ID] = keys
		}
	}

	for id := range s.byPlan {
		domain.SortActivities(s.byPlan[id])
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADER
// ══════════════════════════════════════════════════════════════════════════════

// Loader implements domain.Catalog, domain.AnswerKey and domain.PlanProvider.
type Loader struct {
	mu   sync.RWMutex
	snap *snapshot
	dir  string
	log  *logger.Logger
}

// NewLoader creates an empty loader.
func NewLoader(log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	empty, _ := buildSnapshot(nil)
	return &Loader{snap: empty, log: log.With(logger.Component("catalog"))}
}

// LoadFromDir loads every *.yaml / *.yml file of dir and its direct
// subdirectories, and remembers dir for Reload.
func (l *Loader) LoadFromDir(dir string) error {
	defs, files, err := readDir(dir)
	if err != nil {
		return err
	}
	if err := l.Set(defs...); err != nil {
		return err
	}

	l.mu.Lock()
	l.dir = dir
	l.mu.Unlock()

	l.log.Info("catalog loaded",
		logger.String("dir", dir),
		logger.Int("files", files),
		logger.Int("plans", len(defs)),
	)
	return nil
}

// Reload re-reads the directory given to LoadFromDir. On error the current
// catalog stays in place.
func (l *Loader) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.RLock()
	dir := l.dir
	l.mu.RUnlock()
	if dir == "" {
		return nil
	}
	return l.LoadFromDir(dir)
}

// Set replaces the catalog with the given plans.
func (l *Loader) Set(defs ...PlanDefinition) error {
	snap, err := buildSnapshot(defs)
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	l.mu.Lock()
	l.snap = snap
	l.mu.Unlock()
	return nil
}

func readDir(dir string) ([]PlanDefinition, int, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*/*.yaml", "*/*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	defs := make([]PlanDefinition, 0, len(files))
	for _, file := range files {
		def, err := readFile(file)
		if err != nil {
			return nil, 0, err
		}
		defs = append(defs, def)
	}
	return defs, len(files), nil
}

func readFile(path string) (PlanDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PlanDefinition{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var def PlanDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return PlanDefinition{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return def, nil
}

func (l *Loader) current() *snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// ─────────────────────────────────────────────────────────────────────────────
// Contracts
// ─────────────────────────────────────────────────────────────────────────────

// GetActivity implements domain.Catalog.
func (l *Loader) GetActivity(_ context.Context, activityID string) (domain.Activity, error) {
	act, ok := l.current().activities[activityID]
	if !ok {
		return domain.Activity{}, shared.ErrActivityNotFound
	}
	return act, nil
}

// ListActivities implements domain.Catalog.
func (l *Loader) ListActivities(_ context.Context, planID string) ([]domain.Activity, error) {
	list := l.current().byPlan[planID]
	out := make([]domain.Activity, len(list))
	copy(out, list)
	return out, nil
}

// GetQuestion implements domain.AnswerKey.
func (l *Loader) GetQuestion(_ context.Context, activityID, questionID string) (domain.Question, error) {
	keys, ok := l.current().questions[activityID]
	if !ok {
		return domain.Question{}, shared.ErrActivityNotFound
	}
	q, ok := keys[questionID]
	if !ok {
		return domain.Question{}, shared.ErrQuestionNotFound
	}
	return q, nil
}

// ActivePlan implements domain.PlanProvider. Users without an explicit
// enrollment fall back to the default plan, if one is marked.
func (l *Loader) ActivePlan(_ context.Context, userID string) (domain.Plan, error) {
	snap := l.current()
	planID, ok := snap.enrollments[userID]
	if !ok {
		planID = snap.defaultPlan
	}
	plan, ok := snap.plans[planID]
	if !ok {
		return domain.Plan{}, shared.ErrNoActivePlan
	}
	return plan, nil
}

// Stats reports the number of plans and activities currently served.
func (l *Loader) Stats() (plans, activities int) {
	snap := l.current()
	return len(snap.plans), len(snap.activities)
}
