// internal/siteknowledge/postgres.go
package siteknowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists action outcomes across sessions. One row per
// (domain, goal, action, target_text, target_type) pattern; Record upserts
// and only ever increments the tallies.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS site_actions (
		domain       TEXT        NOT NULL,
		goal         TEXT        NOT NULL,
		action       TEXT        NOT NULL,
		target_text  TEXT        NOT NULL DEFAULT '',
		target_type  TEXT        NOT NULL DEFAULT '',
		attempts     INTEGER     NOT NULL DEFAULT 0,
		successes    INTEGER     NOT NULL DEFAULT 0,
		last_reason  TEXT        NOT NULL DEFAULT '',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (domain, goal, action, target_text, target_type)
	);`

// NewPostgresStore verifies the connection and ensures the schema exists.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure site_actions table: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("site_knowledge_pg"),
	}, nil
}

// Load reads every pattern recorded for a domain. Unknown domains yield an
// empty SiteKnowledge.
func (s *PostgresStore) Load(ctx context.Context, domain string) (schemas.SiteKnowledge, error) {
	domain = normalizeDomain(domain)

	query := `
		SELECT goal, action, target_text, target_type, attempts, successes, last_reason
		FROM site_actions
		WHERE domain = $1
		ORDER BY attempts DESC, target_text ASC;`

	rows, err := s.pool.Query(ctx, query, domain)
	if err != nil {
		return schemas.SiteKnowledge{}, fmt.Errorf("failed to query site actions: %w", err)
	}
	defer rows.Close()

	sk := schemas.SiteKnowledge{Domain: domain}
	for rows.Next() {
		var key patternKey
		var actionStr string
		var attempts, successes int
		var lastReason string
		if err := rows.Scan(&key.goal, &actionStr, &key.targetText, &key.targetType, &attempts, &successes, &lastReason); err != nil {
			return schemas.SiteKnowledge{}, fmt.Errorf("failed to scan site action row: %w", err)
		}
		key.action = schemas.DecisionAction(actionStr)
		appendOutcome(&sk, key, attempts, successes, lastReason)
	}
	if err := rows.Err(); err != nil {
		return schemas.SiteKnowledge{}, fmt.Errorf("error during row iteration: %w", err)
	}
	sortKnowledge(&sk)
	return sk, nil
}

// Record upserts one step outcome into the domain's pattern row.
func (s *PostgresStore) Record(ctx context.Context, domain string, outcome schemas.StepOutcome) error {
	domain = normalizeDomain(domain)

	successInc := 0
	if outcome.Success {
		successInc = 1
	}
	reason := ""
	if !outcome.Success {
		reason = outcome.Reason
	}

	upsert := `
		INSERT INTO site_actions (domain, goal, action, target_text, target_type, attempts, successes, last_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, now())
		ON CONFLICT (domain, goal, action, target_text, target_type) DO UPDATE SET
			attempts    = site_actions.attempts + 1,
			successes   = site_actions.successes + EXCLUDED.successes,
			last_reason = CASE WHEN EXCLUDED.last_reason <> '' THEN EXCLUDED.last_reason ELSE site_actions.last_reason END,
			updated_at  = now();`

	if _, err := s.pool.Exec(ctx, upsert,
		domain, outcome.Goal, string(outcome.Action), outcome.TargetText, outcome.TargetType,
		successInc, reason,
	); err != nil {
		return fmt.Errorf("failed to upsert site action: %w", err)
	}

	s.log.Debug("Persisted action outcome",
		zap.String("domain", domain),
		zap.String("action", string(outcome.Action)),
		zap.Bool("success", outcome.Success),
	)
	return nil
}
