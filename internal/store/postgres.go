package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiranshivaraju/triage/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func scanAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	return scanAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return scanAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Runs ---

const runColumns = `run_id, model, provider, title, source, ticket_chars, fingerprint, started_at, finished_at,
	flags, parse_ok, validation_errors, checklist_count, question_count,
	result, markdown, raw_text, repaired_text, created_at`

// CreateRun persists a run of either outcome. Run ids are unique; inserting
// the same run twice returns ErrDuplicateKey.
func (s *PostgresStore) CreateRun(ctx context.Context, run *models.RunRecord) error {
	var result []byte
	if run.Result != nil {
		b, err := json.Marshal(run.Result)
		if err != nil {
			return fmt.Errorf("encode run result: %w", err)
		}
		result = b
	}

	var checklistCount, questionCount *int
	if ev := run.Trace.Evaluation; ev != nil {
		checklistCount, questionCount = &ev.ChecklistCount, &ev.QuestionCount
	}

	flags := run.Trace.Flags
	if flags == nil {
		flags = []string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO triage_runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		run.RunID, run.Trace.Model, run.Provider, run.Title, string(run.Source), run.Trace.TicketChars,
		run.Fingerprint, run.Trace.StartedAt, run.Trace.FinishedAt, flags, run.Trace.ParseOK, run.Trace.ValidationErrors,
		checklistCount, questionCount, result, run.Markdown, run.RawText, run.RepairedText, run.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM triage_runs WHERE run_id = $1`, runID)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*models.RunRecord, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.Provider != "" {
		conditions = append(conditions, fmt.Sprintf("provider = $%d", argIdx))
		args = append(args, filter.Provider)
		argIdx++
	}
	if filter.Fingerprint != "" {
		conditions = append(conditions, fmt.Sprintf("fingerprint = $%d", argIdx))
		args = append(args, filter.Fingerprint)
		argIdx++
	}
	if filter.Flag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(flags)", argIdx))
		args = append(args, filter.Flag)
		argIdx++
	}
	if filter.Failed != nil {
		conditions = append(conditions, fmt.Sprintf("(validation_errors IS NOT NULL) = $%d", argIdx))
		args = append(args, *filter.Failed)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM triage_runs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	limit, offset := filter.normalize()
	dataQuery := fmt.Sprintf(
		`SELECT %s FROM triage_runs WHERE %s ORDER BY created_at DESC, run_id DESC LIMIT $%d OFFSET $%d`,
		runColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func scanRun(row pgx.Row) (*models.RunRecord, error) {
	var (
		r                             models.RunRecord
		source                        string
		checklistCount, questionCount *int
		result                        []byte
	)
	if err := row.Scan(&r.RunID, &r.Trace.Model, &r.Provider, &r.Title, &source, &r.Trace.TicketChars,
		&r.Fingerprint, &r.Trace.StartedAt, &r.Trace.FinishedAt, &r.Trace.Flags, &r.Trace.ParseOK, &r.Trace.ValidationErrors,
		&checklistCount, &questionCount, &result, &r.Markdown, &r.RawText, &r.RepairedText, &r.CreatedAt); err != nil {
		return nil, err
	}

	r.Trace.RunID = r.RunID
	r.Source = models.Source(source)
	if checklistCount != nil && questionCount != nil {
		r.Trace.Evaluation = &models.Evaluation{ChecklistCount: *checklistCount, QuestionCount: *questionCount}
	}
	if len(result) > 0 {
		var rec models.TriageRecord
		if err := json.Unmarshal(result, &rec); err != nil {
			return nil, fmt.Errorf("decode run result: %w", err)
		}
		r.Result = &rec
	}
	return &r, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
