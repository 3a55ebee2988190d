package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName))
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Status returns every embedded migration with its applied flag.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	for i := range out {
		if at, ok := applied[out[i].Version]; ok {
			out[i].IsApplied = true
			out[i].AppliedAt = at
		}
	}
	return out, nil
}

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_completion_records", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_streaks", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_journeys", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_review_items", UpSQL: migration004Up, DownSQL: migration004Down},
		{Version: 5, Name: "key_review_items_by_activity", UpSQL: migration005Up, DownSQL: migration005Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: COMPLETION RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS completion_records (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(100) NOT NULL,
    activity_id VARCHAR(100) NOT NULL,
    subject_id VARCHAR(100) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE,
    score INTEGER,
    max_score INTEGER NOT NULL DEFAULT 0,
    time_spent_ms BIGINT NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    counts_for_streak BOOLEAN NOT NULL DEFAULT FALSE,
    answers JSONB NOT NULL DEFAULT '[]'::jsonb,
    mistakes JSONB NOT NULL DEFAULT '[]'::jsonb,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE (user_id, activity_id),
    CONSTRAINT valid_status CHECK (status IN ('locked', 'unlocked', 'in_progress', 'completed', 'perfect')),
    CONSTRAINT valid_score CHECK (score IS NULL OR (score >= 0 AND score <= 100))
);

CREATE INDEX IF NOT EXISTS idx_completion_records_user ON completion_records(user_id, started_at);
CREATE INDEX IF NOT EXISTS idx_completion_records_completed
    ON completion_records(user_id, subject_id, completed_at)
    WHERE status IN ('completed', 'perfect');
`

const migration001Down = `
DROP TABLE IF EXISTS completion_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: STREAKS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS streaks (
    user_id VARCHAR(100) PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_date TIMESTAMP WITH TIME ZONE,
    freezes_available INTEGER NOT NULL DEFAULT 0,
    freeze_used_dates JSONB NOT NULL DEFAULT '[]'::jsonb,
    recovery_window_end TIMESTAMP WITH TIME ZONE,
    total_activities_completed INTEGER NOT NULL DEFAULT 0,
    milestones JSONB NOT NULL DEFAULT '[]'::jsonb,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_streaks CHECK (current_streak >= 0 AND longest_streak >= current_streak),
    CONSTRAINT valid_freezes CHECK (freezes_available >= 0)
);

CREATE TABLE IF NOT EXISTS streak_daily_counts (
    user_id VARCHAR(100) NOT NULL,
    day_start TIMESTAMP WITH TIME ZONE NOT NULL,
    activity_count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (user_id, day_start)
);
`

const migration002Down = `
DROP TABLE IF EXISTS streak_daily_counts;
DROP TABLE IF EXISTS streaks;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: JOURNEYS
// ══════════════════════════════════════════════════════════════════════════════

// The journey aggregate is stored as one JSONB document; the scalar columns
// are denormalized for reporting.
const migration003Up = `
CREATE TABLE IF NOT EXISTS journeys (
    user_id VARCHAR(100) PRIMARY KEY,
    plan_id VARCHAR(100) NOT NULL,
    journey_type VARCHAR(20) NOT NULL DEFAULT 'linear',
    current_week INTEGER NOT NULL DEFAULT 1,
    total_xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    state JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_journey_type CHECK (journey_type IN ('linear', 'flexible')),
    CONSTRAINT valid_level CHECK (level >= 1)
);

CREATE INDEX IF NOT EXISTS idx_journeys_plan ON journeys(plan_id);
`

const migration003Down = `
DROP TABLE IF EXISTS journeys;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: REVIEW ITEMS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS review_items (
    user_id VARCHAR(100) NOT NULL,
    question_id VARCHAR(100) NOT NULL,
    activity_id VARCHAR(100) NOT NULL,
    topic_id VARCHAR(100) NOT NULL DEFAULT '',
    incorrect_value TEXT NOT NULL DEFAULT '',
    correct_value TEXT NOT NULL DEFAULT '',
    explanation TEXT NOT NULL DEFAULT '',
    occurrences INTEGER NOT NULL DEFAULT 1,
    repetitions INTEGER NOT NULL DEFAULT 0,
    easiness_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    next_review_at TIMESTAMP WITH TIME ZONE NOT NULL,
    last_reviewed_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_review_items_due ON review_items(user_id, next_review_at);
`

const migration004Down = `
DROP TABLE IF EXISTS review_items;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: REVIEW ITEMS PER ACTIVITY
// Question ids are only unique inside an activity.
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
ALTER TABLE review_items DROP CONSTRAINT IF EXISTS review_items_pkey;
ALTER TABLE review_items ADD PRIMARY KEY (user_id, activity_id, question_id);
`

const migration005Down = `
ALTER TABLE review_items DROP CONSTRAINT IF EXISTS review_items_pkey;
ALTER TABLE review_items ADD PRIMARY KEY (user_id, question_id);
`
