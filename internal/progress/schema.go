package progress

// SchemaSQL creates the progress tables.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS progress_session_summary
(
    id               SERIAL PRIMARY KEY,
    session_id       VARCHAR          NOT NULL UNIQUE,
    user_id          VARCHAR          NOT NULL,
    exercise         VARCHAR          NOT NULL,
    mode             VARCHAR          NOT NULL,
    started_at       TIMESTAMPTZ      NOT NULL,
    ended_at         TIMESTAMPTZ      NOT NULL,
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_reps       INTEGER          NOT NULL DEFAULT 0,
    correct_reps     INTEGER          NOT NULL DEFAULT 0,
    incorrect_reps   INTEGER          NOT NULL DEFAULT 0,
    calories         DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ix_progress_session_summary_user_ended
    ON progress_session_summary USING btree (user_id, ended_at DESC);

CREATE TABLE IF NOT EXISTS progress_goals
(
    user_id                  VARCHAR PRIMARY KEY,
    target_sessions_per_week INTEGER          NOT NULL DEFAULT 0,
    target_reps_per_session  INTEGER          NOT NULL DEFAULT 0,
    target_calories          DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at               TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS progress_totals
(
    user_id          VARCHAR PRIMARY KEY,
    sessions         INTEGER          NOT NULL DEFAULT 0,
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    calories         DOUBLE PRECISION NOT NULL DEFAULT 0,
    correct_reps     INTEGER          NOT NULL DEFAULT 0,
    incorrect_reps   INTEGER          NOT NULL DEFAULT 0,
    updated_at       TIMESTAMPTZ      NOT NULL
);
`
