package postgres

// Column lists mirror the db tags on domain.CastJob and domain.CoinJob.
// dedupConstraints names the unique constraints that back storage.Deduplicated
var dedupConstraints = map[string]bool{
	"cast_jobs_idempotency_key_key": true,
}

var (
	castColumns = []string{
		"id", "owner_id", "signer_uuid", "text", "media_url", "due_at",
		"idempotency_key", "status", "cast_hash", "error", "created_at", "updated_at",
	}

	coinColumns = []string{
		"id", "owner_id", "wallet_address", "creator_address", "title", "caption",
		"symbol", "media_url", "media_mime", "due_at", "metadata_uri", "status",
		"coin_address", "tx_hash", "error", "created_at", "updated_at",
	}
)

const schema = `
CREATE TABLE IF NOT EXISTS cast_jobs (
	seq             BIGSERIAL,
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL DEFAULT '',
	signer_uuid     TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL,
	media_url       TEXT NOT NULL DEFAULT '',
	due_at          TIMESTAMPTZ NOT NULL,
	idempotency_key TEXT NOT NULL CONSTRAINT cast_jobs_idempotency_key_key UNIQUE,
	status          TEXT NOT NULL,
	cast_hash       TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS cast_jobs_status_due_idx ON cast_jobs (status, due_at, seq);
CREATE INDEX IF NOT EXISTS cast_jobs_owner_idx ON cast_jobs (owner_id);

CREATE TABLE IF NOT EXISTS coin_jobs (
	seq             BIGSERIAL,
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL DEFAULT '',
	wallet_address  TEXT NOT NULL DEFAULT '',
	creator_address TEXT NOT NULL,
	title           TEXT NOT NULL,
	caption         TEXT NOT NULL,
	symbol          TEXT NOT NULL DEFAULT '',
	media_url       TEXT NOT NULL,
	media_mime      TEXT NOT NULL DEFAULT '',
	due_at          TIMESTAMPTZ NOT NULL,
	metadata_uri    TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	coin_address    TEXT NOT NULL DEFAULT '',
	tx_hash         TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS coin_jobs_status_due_idx ON coin_jobs (status, due_at, seq);
CREATE INDEX IF NOT EXISTS coin_jobs_owner_idx ON coin_jobs (owner_id);
`
