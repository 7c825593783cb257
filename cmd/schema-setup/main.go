// File: cmd/schema-setup/main.go
package main

import (
	"context"
	"flag"
	"log"

	"voice-summary-service/internal/config"
	"voice-summary-service/internal/infra/db/postgres"
)

// Creates (or recreates with -reset) the tables the pipeline runs against.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	reset := flag.Bool("reset", false, "drop existing tables first (DESTROYS DATA)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	if *reset {
		log.Println("dropping existing tables...")
		_, err = pool.Exec(ctx, `
			DROP TABLE IF EXISTS email_deliveries, summary_requests, transcripts, audio_assets CASCADE;
		`)
		if err != nil {
			log.Fatalf("failed to drop tables: %v", err)
		}
	}

	log.Println("creating schema...")
	_, err = pool.Exec(ctx, schema)
	if err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}
	log.Println("schema setup complete")
}

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS audio_assets (
	id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	storage_path TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'audio/webm',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transcripts (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	audio_id   UUID REFERENCES audio_assets(id) ON DELETE SET NULL,
	text       TEXT NOT NULL,
	provider   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS summary_requests (
	id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	email           TEXT NOT NULL,
	audio_id        UUID REFERENCES audio_assets(id) ON DELETE SET NULL,
	transcript_id   UUID REFERENCES transcripts(id) ON DELETE SET NULL,
	raw_transcript  TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'processing', 'sent', 'failed')),
	attempts        INT NOT NULL DEFAULT 0,
	last_error      TEXT,
	summary_json    JSONB,
	transcript_text TEXT,
	lock_token      UUID,
	locked_at       TIMESTAMPTZ,
	send_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_summary_requests_due
	ON summary_requests (send_at)
	WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS email_deliveries (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	request_id UUID NOT NULL REFERENCES summary_requests(id) ON DELETE CASCADE,
	provider   TEXT NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('sent', 'failed')),
	message_id TEXT,
	error      TEXT,
	sent_at    TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_email_deliveries_request
	ON email_deliveries (request_id);
`
