package db

// Schema creates the journal table. It is safe to run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS resolution_journal (
	id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	event_id         UUID NOT NULL UNIQUE,
	kind             TEXT NOT NULL,
	reading_id       BIGINT NOT NULL,
	connection_id    BIGINT,
	meter_id         BIGINT,
	task_id          BIGINT,
	previous_reading DOUBLE PRECISION,
	current_reading  DOUBLE PRECISION,
	consumption      DOUBLE PRECISION,
	notes            TEXT,
	actor            TEXT,
	correlation_id   TEXT,
	occurred_at      TIMESTAMPTZ NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	payload          JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS resolution_journal_reading_idx
	ON resolution_journal (reading_id, occurred_at DESC);
`
