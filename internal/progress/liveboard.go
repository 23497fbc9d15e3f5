package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/2beens/formcoach/internal/telemetry/tracing"
)

const DefaultLiveTTL = 10 * time.Minute

// LiveBoard keeps the counters of running sessions in redis, one hash per user.
// Entries expire on their own when a session dies without clearing them.
type LiveBoard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLiveBoard(rdb *redis.Client, ttl time.Duration) *LiveBoard {
	if ttl <= 0 {
		ttl = DefaultLiveTTL
	}
	return &LiveBoard{
		rdb: rdb,
		ttl: ttl,
	}
}

func liveKey(userID string) string {
	return "formcoach:live:" + userID
}

func (b *LiveBoard) Update(ctx context.Context, c LiveCounters) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "redis.progress.live.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := ValidateUserID(c.UserID); err != nil {
		return err
	}

	key := liveKey(c.UserID)
	if err := b.rdb.HSet(ctx, key,
		"session_id", c.SessionID,
		"exercise", c.Exercise,
		"status", c.Status,
		"correct_reps", c.CorrectReps,
		"incorrect_reps", c.IncorrectReps,
		"updated_at", c.UpdatedAt.Unix(),
	).Err(); err != nil {
		return fmt.Errorf("hset live counters: %w", err)
	}

	if err := b.rdb.Expire(ctx, key, b.ttl).Err(); err != nil {
		return fmt.Errorf("expire live counters: %w", err)
	}
	return nil
}

func (b *LiveBoard) Get(ctx context.Context, userID string) (_ *LiveCounters, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "redis.progress.live.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	fields, err := b.rdb.HGetAll(ctx, liveKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall live counters: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	c := &LiveCounters{
		UserID:    userID,
		SessionID: fields["session_id"],
		Exercise:  fields["exercise"],
		Status:    fields["status"],
	}
	if c.CorrectReps, err = strconv.Atoi(fields["correct_reps"]); err != nil {
		return nil, fmt.Errorf("parse correct reps: %w", err)
	}
	if c.IncorrectReps, err = strconv.Atoi(fields["incorrect_reps"]); err != nil {
		return nil, fmt.Errorf("parse incorrect reps: %w", err)
	}
	updatedAt, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse updated at: %w", err)
	}
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return c, nil
}

func (b *LiveBoard) Clear(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "redis.progress.live.clear")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := b.rdb.Del(ctx, liveKey(userID)).Err(); err != nil {
		return fmt.Errorf("del live counters: %w", err)
	}
	return nil
}
