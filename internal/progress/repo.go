package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/formcoach/internal/telemetry/tracing"
)

// querier is the part of pgx.Tx the write helpers use
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// RecordSession appends the summary and adds it to the user totals in one
// transaction. A summary whose session was already recorded changes nothing.
func (r *Repo) RecordSession(ctx context.Context, summary Summary) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.recordsession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session_id", summary.SessionID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	id, inserted, err := addSummary(ctx, tx, summary)
	if err != nil {
		return 0, err
	}
	if !inserted {
		span.SetAttributes(attribute.Bool("duplicate", true))
		return id, nil
	}

	if err := upsertTotals(ctx, tx, summary); err != nil {
		return 0, err
	}
	return id, nil
}

func addSummary(ctx context.Context, q querier, s Summary) (id int, inserted bool, err error) {
	err = q.QueryRow(ctx, `
		INSERT INTO progress_session_summary (
			session_id, user_id, exercise, mode, started_at, ended_at,
			duration_seconds, total_reps, correct_reps, incorrect_reps, calories
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id
	`,
		s.SessionID, s.UserID, s.Exercise, s.Mode, s.StartedAt, s.EndedAt,
		s.DurationSeconds, s.TotalReps, s.CorrectReps, s.IncorrectReps, s.Calories,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("insert summary: %w", err)
	}

	// already recorded
	err = q.QueryRow(ctx, `
		SELECT id FROM progress_session_summary WHERE session_id = $1
	`, s.SessionID).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("get recorded summary: %w", err)
	}
	return id, false, nil
}

func upsertTotals(ctx context.Context, q querier, s Summary) error {
	_, err := q.Exec(ctx, `
		INSERT INTO progress_totals (
			user_id, sessions, duration_seconds, calories, correct_reps, incorrect_reps, updated_at
		)
		VALUES ($1, 1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			sessions = progress_totals.sessions + 1,
			duration_seconds = progress_totals.duration_seconds + EXCLUDED.duration_seconds,
			calories = progress_totals.calories + EXCLUDED.calories,
			correct_reps = progress_totals.correct_reps + EXCLUDED.correct_reps,
			incorrect_reps = progress_totals.incorrect_reps + EXCLUDED.incorrect_reps,
			updated_at = EXCLUDED.updated_at
	`,
		s.UserID, s.DurationSeconds, s.Calories, s.CorrectReps, s.IncorrectReps, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert totals: %w", err)
	}
	return nil
}

func (r *Repo) ListSummaries(ctx context.Context, userID string, limit int) (_ []Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.listsummaries")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit))

	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, user_id, exercise, mode, started_at, ended_at,
			duration_seconds, total_reps, correct_reps, incorrect_reps, calories
		FROM progress_session_summary
		WHERE user_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		if err := rows.Scan(
			&s.ID, &s.SessionID, &s.UserID, &s.Exercise, &s.Mode, &s.StartedAt, &s.EndedAt,
			&s.DurationSeconds, &s.TotalReps, &s.CorrectReps, &s.IncorrectReps, &s.Calories,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *Repo) GetGoals(ctx context.Context, userID string) (_ *Goals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.getgoals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	goals := &Goals{}
	err = r.db.QueryRow(ctx, `
		SELECT user_id, target_sessions_per_week, target_reps_per_session, target_calories, updated_at
		FROM progress_goals
		WHERE user_id = $1
	`, userID).Scan(
		&goals.UserID, &goals.TargetSessionsPerWeek, &goals.TargetRepsPerSession,
		&goals.TargetCalories, &goals.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return goals, nil
}

func (r *Repo) SetGoals(ctx context.Context, goals Goals) (_ *Goals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.setgoals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	goals.UpdatedAt = time.Now().UTC()
	_, err = r.db.Exec(ctx, `
		INSERT INTO progress_goals (
			user_id, target_sessions_per_week, target_reps_per_session, target_calories, updated_at
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			target_sessions_per_week = EXCLUDED.target_sessions_per_week,
			target_reps_per_session = EXCLUDED.target_reps_per_session,
			target_calories = EXCLUDED.target_calories,
			updated_at = EXCLUDED.updated_at
	`,
		goals.UserID, goals.TargetSessionsPerWeek, goals.TargetRepsPerSession,
		goals.TargetCalories, goals.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &goals, nil
}

func (r *Repo) GetTotals(ctx context.Context, userID string) (_ *Totals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.progress.gettotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	totals := &Totals{}
	err = r.db.QueryRow(ctx, `
		SELECT user_id, sessions, duration_seconds, calories, correct_reps, incorrect_reps, updated_at
		FROM progress_totals
		WHERE user_id = $1
	`, userID).Scan(
		&totals.UserID, &totals.Sessions, &totals.DurationSeconds, &totals.Calories,
		&totals.CorrectReps, &totals.IncorrectReps, &totals.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return totals, nil
}

// Migrate creates the progress tables if they do not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, SchemaSQL); err != nil {
		return fmt.Errorf("migrate progress schema: %w", err)
	}
	return nil
}
