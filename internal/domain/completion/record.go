package completion

import (
	"math"
	"time"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// PerfectMultiplier is the XP multiplier for a perfect completion.
const PerfectMultiplier = 1.5

// ═══════════════════════════════════════════════════════════════════════════
// ANSWER & MISTAKE
// ═══════════════════════════════════════════════════════════════════════════

// Answer is one submitted answer. Answers are append-only.
type Answer struct {
	QuestionID    string        `json:"question_id"`
	TopicID       string        `json:"topic_id,omitempty"`
	SelectedValue string        `json:"selected_value"`
	IsCorrect     bool          `json:"is_correct"`
	TimeSpent     time.Duration `json:"time_spent"`
	AttemptNumber int           `json:"attempt_number"`
	AnsweredAt    time.Time     `json:"answered_at"`
}

// Mistake is recorded for every incorrect answer and feeds spaced repetition.
type Mistake struct {
	QuestionID     string     `json:"question_id"`
	TopicID        string     `json:"topic_id,omitempty"`
	IncorrectValue string     `json:"incorrect_value"`
	CorrectValue   string     `json:"correct_value"`
	Explanation    string     `json:"explanation,omitempty"`
	RecordedAt     time.Time  `json:"recorded_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
}

// Feedback is returned to the learner right after an answer.
type Feedback struct {
	Message      string `json:"message"`
	CorrectValue string `json:"correct_value,omitempty"`
	Explanation  string `json:"explanation,omitempty"`
}

// Progress reports how far into the activity the learner is.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// AnswerResult is the outcome of SubmitAnswer.
type AnswerResult struct {
	IsCorrect bool     `json:"is_correct"`
	Feedback  Feedback `json:"feedback"`
	Progress  Progress `json:"progress"`
}

// ═══════════════════════════════════════════════════════════════════════════
// RECORD
// ═══════════════════════════════════════════════════════════════════════════

// Record is the per-user, per-activity completion record.
// Status only moves forward. A terminal record is immutable except for
// Mistake.ReviewedAt.
type Record struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id"`
	SubjectID  string `json:"subject_id,omitempty"`
	Status     Status `json:"status"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Score is nil until the record is terminal.
	Score           *int          `json:"score,omitempty"`
	MaxScore        int           `json:"max_score"`
	TimeSpent       time.Duration `json:"time_spent"`
	XPEarned        int           `json:"xp_earned"`
	CountsForStreak bool          `json:"counts_for_streak"`

	Answers  []Answer  `json:"answers"`
	Mistakes []Mistake `json:"mistakes"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord creates an in-progress record for a freshly started activity.
func NewRecord(id, userID string, activity catalog.Activity, now time.Time) (*Record, error) {
	if id == "" {
		return nil, shared.NewDomainError("completion", "NewRecord", shared.ErrInvalidInput, "record id is required")
	}
	if _, err := shared.NewUserID(userID); err != nil {
		return nil, err
	}
	if activity.ID == "" {
		return nil, shared.ErrActivityNotFound
	}

	return &Record{
		ID:         id,
		UserID:     userID,
		ActivityID: activity.ID,
		SubjectID:  activity.SubjectID,
		Status:     StatusInProgress,
		StartedAt:  now,
		MaxScore:   activity.QuestionCount,
		Answers:    []Answer{},
		Mistakes:   []Mistake{},
		UpdatedAt:  now,
	}, nil
}

// Start moves a locked or unlocked record to in_progress.
// Records that are already in progress or terminal are left unchanged.
// Returns true if the record changed.
func (r *Record) Start(now time.Time) (bool, error) {
	switch r.Status {
	case StatusLocked, StatusUnlocked:
		if err := r.transition(StatusInProgress); err != nil {
			return false, err
		}
		r.StartedAt = now
		r.UpdatedAt = now
		return true, nil
	default:
		return false, nil
	}
}

// IsTerminal returns true once the record has been completed.
func (r *Record) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// attemptsFor counts prior answers for a question.
func (r *Record) attemptsFor(questionID string) int {
	n := 0
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			n++
		}
	}
	return n
}

// answeredQuestions counts distinct answered questions.
func (r *Record) answeredQuestions() int {
	seen := make(map[string]struct{}, len(r.Answers))
	for _, a := range r.Answers {
		seen[a.QuestionID] = struct{}{}
	}
	return len(seen)
}

// SubmitAnswer appends an answer checked against the canonical question.
// An incorrect answer also appends a Mistake, which is returned so the caller
// can write it through to the review store.
func (r *Record) SubmitAnswer(q catalog.Question, value string, timeSpent time.Duration, now time.Time) (AnswerResult, *Mistake, error) {
	if r.IsTerminal() {
		return AnswerResult{}, nil, shared.ErrRecordTerminal
	}
	if r.Status != StatusInProgress {
		return AnswerResult{}, nil, shared.NewDomainError("completion", "SubmitAnswer", shared.ErrInvalidState, "activity has not been started")
	}
	if q.ID == "" {
		return AnswerResult{}, nil, shared.ErrInvalidAnswerInput
	}
	if timeSpent < 0 {
		timeSpent = 0
	}

	correct := q.IsCorrect(value)
	r.Answers = append(r.Answers, Answer{
		QuestionID:    q.ID,
		TopicID:       q.TopicID,
		SelectedValue: value,
		IsCorrect:     correct,
		TimeSpent:     timeSpent,
		AttemptNumber: r.attemptsFor(q.ID) + 1,
		AnsweredAt:    now,
	})
	r.UpdatedAt = now

	result := AnswerResult{
		IsCorrect: correct,
		Progress: Progress{
			Answered: r.answeredQuestions(),
			Total:    r.MaxScore,
		},
	}

	if correct {
		result.Feedback = Feedback{Message: "Correct!", Explanation: q.Explanation}
		return result, nil, nil
	}

	mistake := Mistake{
		QuestionID:     q.ID,
		TopicID:        q.TopicID,
		IncorrectValue: value,
		CorrectValue:   q.CorrectValue,
		Explanation:    q.Explanation,
		RecordedAt:     now,
	}
	r.Mistakes = append(r.Mistakes, mistake)
	result.Feedback = Feedback{
		Message:      "Incorrect",
		CorrectValue: q.CorrectValue,
		Explanation:  q.Explanation,
	}
	return result, &mistake, nil
}

// Tally returns the number of correct answers and the number of answers.
func (r *Record) Tally() (correct, total int) {
	for _, a := range r.Answers {
		total++
		if a.IsCorrect {
			correct++
		}
	}
	return correct, total
}

// Outcome summarizes a completion for downstream consumers.
type Outcome struct {
	Score           int
	IsPerfect       bool
	XPEarned        int
	TimeSpent       time.Duration
	CompletedAt     time.Time
	CountsForStreak bool
}

// Complete finalizes the record.
//
//	score     = round(100*correct/total), 0 when nothing was answered
//	isPerfect = total > 0 && correct == total
//	xpEarned  = reward * 1.5 when perfect, reward otherwise
func (r *Record) Complete(activity catalog.Activity, now time.Time) (Outcome, error) {
	if r.IsTerminal() {
		return Outcome{}, shared.ErrAlreadyCompleted
	}

	correct, total := r.Tally()
	score := shared.NewScore(correct, total).Int()
	perfect := total > 0 && correct == total

	next := StatusCompleted
	if perfect {
		next = StatusPerfect
	}
	if err := r.transition(next); err != nil {
		return Outcome{}, err
	}

	var spent time.Duration
	for _, a := range r.Answers {
		spent += a.TimeSpent
	}

	xp := activity.XPReward
	if perfect {
		xp = int(math.Round(float64(activity.XPReward) * PerfectMultiplier))
	}

	completedAt := now
	r.CompletedAt = &completedAt
	r.Score = &score
	r.TimeSpent = spent
	r.XPEarned = xp
	r.CountsForStreak = total > 0 || !activity.HasQuestions()
	r.UpdatedAt = now

	return Outcome{
		Score:           score,
		IsPerfect:       perfect,
		XPEarned:        xp,
		TimeSpent:       spent,
		CompletedAt:     completedAt,
		CountsForStreak: r.CountsForStreak,
	}, nil
}

// ReviewMistake stamps every unreviewed mistake for the question.
// This is the only mutation allowed on a terminal record.
func (r *Record) ReviewMistake(questionID string, now time.Time) error {
	found := false
	for i := range r.Mistakes {
		if r.Mistakes[i].QuestionID != questionID {
			continue
		}
		found = true
		if r.Mistakes[i].ReviewedAt == nil {
			reviewed := now
			r.Mistakes[i].ReviewedAt = &reviewed
		}
	}
	if !found {
		return shared.ErrMistakeNotFound
	}
	r.UpdatedAt = now
	return nil
}

// ScoreValue returns the score, or 0 while the record is not terminal.
func (r *Record) ScoreValue() int {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}
