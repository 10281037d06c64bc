package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptvault/promptvault/internal/domain"
)

type LogRepo struct {
	pool *pgxpool.Pool
	gen  *domain.IDGenerator
}

func NewLogRepo(pool *pgxpool.Pool, gen *domain.IDGenerator) *LogRepo {
	return &LogRepo{pool: pool, gen: gen}
}

const logColumns = `id, user_id, pr_url, branch, author_email, orchestrator, llm, tags, content, created_at, updated_at`

func (r *LogRepo) Get(ctx context.Context, id, ownerID string) (*domain.PromptLog, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+logColumns+` FROM prompt_logs
		 WHERE id = $1 AND ($2 = '' OR user_id = $2)`,
		id, ownerID,
	)

	log, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("logRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("logRepo.Get: %w", err)
	}

	return log, nil
}

func (r *LogRepo) ListAll(ctx context.Context, ownerID string) ([]*domain.PromptLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+logColumns+` FROM prompt_logs
		 WHERE ($1 = '' OR user_id = $1)
		 ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("logRepo.ListAll: %w", err)
	}

	logs, err := collectLogs(rows)
	if err != nil {
		return nil, fmt.Errorf("logRepo.ListAll: %w", err)
	}

	return logs, nil
}

func (r *LogRepo) ListRecent(ctx context.Context, limit int, ownerID string) ([]*domain.PromptLog, error) {
	if limit <= 0 {
		limit = domain.DefaultRecentLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+logColumns+` FROM prompt_logs
		 WHERE ($1 = '' OR user_id = $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("logRepo.ListRecent: %w", err)
	}

	logs, err := collectLogs(rows)
	if err != nil {
		return nil, fmt.Errorf("logRepo.ListRecent: %w", err)
	}

	return logs, nil
}

func (r *LogRepo) Search(ctx context.Context, query, ownerID string) ([]*domain.PromptLog, error) {
	pattern := "%" + escapeLike(query) + "%"

	rows, err := r.pool.Query(ctx,
		`SELECT `+logColumns+` FROM prompt_logs
		 WHERE ($2 = '' OR user_id = $2)
		   AND (id ILIKE $1 OR pr_url ILIKE $1 OR author_email ILIKE $1
		        OR orchestrator ILIKE $1 OR llm ILIKE $1 OR branch ILIKE $1
		        OR content ILIKE $1
		        OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $1))
		 ORDER BY created_at DESC, id DESC`,
		pattern, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("logRepo.Search: %w", err)
	}

	logs, err := collectLogs(rows)
	if err != nil {
		return nil, fmt.Errorf("logRepo.Search: %w", err)
	}

	return logs, nil
}

func (r *LogRepo) Create(ctx context.Context, in *domain.LogInput) (*domain.PromptLog, error) {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	if in.ID != "" {
		// Caller-supplied id: primary-key conflicts overwrite via upsert.
		row := r.pool.QueryRow(ctx,
			`INSERT INTO prompt_logs (`+logColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			     user_id = EXCLUDED.user_id, pr_url = EXCLUDED.pr_url,
			     branch = EXCLUDED.branch, author_email = EXCLUDED.author_email,
			     orchestrator = EXCLUDED.orchestrator, llm = EXCLUDED.llm,
			     tags = EXCLUDED.tags, content = EXCLUDED.content,
			     updated_at = now()
			 RETURNING `+logColumns,
			in.ID, nilIfEmpty(in.OwnerID), in.PrURL, nilIfEmpty(in.Branch),
			in.AuthorEmail, in.Orchestrator, in.LLM, tags, in.Content,
		)

		log, err := scanLog(row)
		if err != nil {
			return nil, fmt.Errorf("logRepo.Create: %w", err)
		}
		return log, nil
	}

	// Generated id: insert only, retrying with the next sequence value if a
	// caller-supplied id already occupies the slot. ON CONFLICT DO NOTHING
	// makes each attempt a single atomic statement.
	for {
		id := r.gen.Next()

		row := r.pool.QueryRow(ctx,
			`INSERT INTO prompt_logs (`+logColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			 ON CONFLICT (id) DO NOTHING
			 RETURNING `+logColumns,
			id, nilIfEmpty(in.OwnerID), in.PrURL, nilIfEmpty(in.Branch),
			in.AuthorEmail, in.Orchestrator, in.LLM, tags, in.Content,
		)

		log, err := scanLog(row)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // id taken, try the next one
		}
		if err != nil {
			return nil, fmt.Errorf("logRepo.Create: %w", err)
		}

		return log, nil
	}
}

func (r *LogRepo) Update(ctx context.Context, id string, patch *domain.LogPatch, ownerID string) (*domain.PromptLog, error) {
	existing, err := r.Get(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("logRepo.Update: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE prompt_logs SET
		     pr_url = $3, branch = $4, author_email = $5, orchestrator = $6,
		     llm = $7, tags = $8, content = $9, updated_at = now()
		 WHERE id = $1 AND ($2 = '' OR user_id = $2)
		 RETURNING `+logColumns,
		id, ownerID,
		merged(patch.PrURL, existing.PrURL),
		nilIfEmpty(merged(patch.Branch, existing.Branch)),
		merged(patch.AuthorEmail, existing.AuthorEmail),
		merged(patch.Orchestrator, existing.Orchestrator),
		merged(patch.LLM, existing.LLM),
		mergedTags(patch.Tags, existing.Tags),
		merged(patch.Content, existing.Content),
	)

	log, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("logRepo.Update: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("logRepo.Update: %w", err)
	}

	return log, nil
}

func (r *LogRepo) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM prompt_logs WHERE id = $1 AND ($2 = '' OR user_id = $2)`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("logRepo.Delete: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// --- Helpers ---

func scanLog(row pgx.Row) (*domain.PromptLog, error) {
	var l domain.PromptLog
	var userID, branch *string

	err := row.Scan(&l.ID, &userID, &l.PrURL, &branch, &l.AuthorEmail,
		&l.Orchestrator, &l.LLM, &l.Tags, &l.Content, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	l.OwnerID = derefStr(userID)
	l.Branch = derefStr(branch)
	if l.Tags == nil {
		l.Tags = []string{}
	}

	return &l, nil
}

func collectLogs(rows pgx.Rows) ([]*domain.PromptLog, error) {
	defer rows.Close()

	var logs []*domain.PromptLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		logs = append(logs, log)
	}
	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if logs == nil {
		logs = []*domain.PromptLog{}
	}

	return logs, nil
}

func merged(patch *string, existing string) string {
	if patch != nil {
		return *patch
	}
	return existing
}

func mergedTags(patch *[]string, existing []string) []string {
	if patch != nil {
		return *patch
	}
	if existing == nil {
		return []string{}
	}
	return existing
}

// escapeLike neutralizes LIKE metacharacters so the query matches as a
// literal substring, mirroring the in-memory scan.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
