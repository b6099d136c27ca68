package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kritic-backend/internal/credits"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateWithDebit inserts the analysis and debits its cost in one database
// transaction. The user's balance row is locked first, so either the charge
// and the record both land or neither does.
func (r *PGRepo) CreateWithDebit(ctx context.Context, analysis Analysis, description string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := credits.ApplyTx(ctx, tx, analysis.UserID, credits.KindUsage, -analysis.CreditsUsed, description); err != nil {
		return err
	}

	providers, err := json.Marshal(analysis.Providers)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO analyses (id, user_id, original_response, context, models_used, status, results, credits_used, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8, $8)`
	if _, err := tx.ExecContext(ctx, query,
		analysis.ID,
		analysis.UserID,
		analysis.OriginalResponse,
		nullableString(analysis.Context),
		providers,
		analysis.Status,
		analysis.CreditsUsed,
		analysis.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID returns an analysis by ID regardless of owner. Used by the
// background worker.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	return r.get(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1 LIMIT 1`, analysisID)
}

// GetForUser returns an analysis only when it belongs to userID.
func (r *PGRepo) GetForUser(ctx context.Context, userID, analysisID string) (Analysis, error) {
	return r.get(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1 AND user_id = $2 LIMIT 1`, analysisID, userID)
}

const analysisColumns = `id, user_id, original_response, context, models_used, status, results, credits_used, created_at, updated_at`

func (r *PGRepo) get(ctx context.Context, query string, args ...any) (Analysis, error) {
	var a Analysis
	var contextText sql.NullString
	var providers []byte
	var results sql.NullString
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&a.UserID,
		&a.OriginalResponse,
		&contextText,
		&providers,
		&a.Status,
		&results,
		&a.CreditsUsed,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	if contextText.Valid {
		a.Context = contextText.String
	}
	if len(providers) > 0 {
		if err := json.Unmarshal(providers, &a.Providers); err != nil {
			return Analysis{}, fmt.Errorf("decode models_used: %w", err)
		}
	}
	if results.Valid {
		var v Verdict
		if err := json.Unmarshal([]byte(results.String), &v); err != nil {
			return Analysis{}, fmt.Errorf("decode results: %w", err)
		}
		a.Results = &v
	}
	return a, nil
}

// ListByUser returns a user's analyses newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	const query = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		var a Analysis
		var contextText sql.NullString
		var providers []byte
		var results sql.NullString
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.OriginalResponse,
			&contextText,
			&providers,
			&a.Status,
			&results,
			&a.CreditsUsed,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if contextText.Valid {
			a.Context = contextText.String
		}
		if len(providers) > 0 {
			if err := json.Unmarshal(providers, &a.Providers); err != nil {
				return nil, fmt.Errorf("decode models_used: %w", err)
			}
		}
		if results.Valid {
			var v Verdict
			if err := json.Unmarshal([]byte(results.String), &v); err == nil {
				a.Results = &v
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkProcessing moves a pending analysis to processing. Re-entry from
// processing is allowed so queue redelivery can resume a crashed run;
// terminal states are never left.
func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE analyses SET status = $1, updated_at = $2
WHERE id = $3 AND status IN ($4, $1)`,
		StatusProcessing, time.Now().UTC(), analysisID, StatusPending)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Complete stores the merged verdict and finishes the record.
func (r *PGRepo) Complete(ctx context.Context, analysisID string, results *Verdict) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE analyses SET status = $1, results = $2, updated_at = $3
WHERE id = $4 AND status = $5`,
		StatusCompleted, payload, time.Now().UTC(), analysisID, StatusProcessing)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkFailed finishes the record without a verdict. No-op on terminal rows.
func (r *PGRepo) MarkFailed(ctx context.Context, analysisID string) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE analyses SET status = $1, results = NULL, updated_at = $2
WHERE id = $3 AND status NOT IN ($1, $4)`,
		StatusFailed, time.Now().UTC(), analysisID, StatusCompleted)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClaimUser reassigns all analyses from one owner to another, used when a
// guest signs in.
func (r *PGRepo) ClaimUser(ctx context.Context, fromUserID, toUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
UPDATE analyses SET user_id = $1, updated_at = $2 WHERE user_id = $3`,
		toUserID, time.Now().UTC(), fromUserID)
	if err != nil {
		return 0, err
	}
	count, _ := res.RowsAffected()
	return int(count), nil
}

func requireRow(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotProcessed
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
