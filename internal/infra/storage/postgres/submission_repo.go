package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
)

// SubmissionRepo implements storage.SubmissionRepository using PostgreSQL.
type SubmissionRepo struct {
	db *DB
}

// NewSubmissionRepo creates a new PostgreSQL submission repository.
func NewSubmissionRepo(db *DB) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

type submissionRow struct {
	ID          string          `db:"id"`
	Key         string          `db:"tx_key"`
	Family      string          `db:"chain_family"`
	Asset       string          `db:"asset"`
	Amount      decimal.Decimal `db:"amount"`
	Status      string          `db:"status"`
	Error       string          `db:"error_msg"`
	SubmittedAt time.Time       `db:"submitted_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r *submissionRow) toDomain() *domain.SubmissionRecord {
	return &domain.SubmissionRecord{
		ID:          r.ID,
		Key:         r.Key,
		Family:      domain.ChainFamily(r.Family),
		Asset:       domain.Asset(r.Asset),
		Amount:      r.Amount,
		Status:      domain.SubmissionStatus(r.Status),
		Error:       r.Error,
		SubmittedAt: r.SubmittedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const selectSubmissions = `
	SELECT id, tx_key, chain_family, asset, amount, status, error_msg, submitted_at, updated_at
	FROM submissions
`

// Save saves a submission record to the database.
func (r *SubmissionRepo) Save(ctx context.Context, rec *domain.SubmissionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO submissions (
			id, tx_key, chain_family, asset, amount, status, error_msg, submitted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tx_key) DO UPDATE SET
			status = EXCLUDED.status,
			error_msg = EXCLUDED.error_msg,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Key, string(rec.Family), string(rec.Asset), rec.Amount,
		string(rec.Status), rec.Error, rec.SubmittedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// UpdateStatus updates submission status.
func (r *SubmissionRepo) UpdateStatus(
	ctx context.Context,
	key string,
	status domain.SubmissionStatus,
	errMsg string,
) error {
	query := `UPDATE submissions SET status = $1, error_msg = $2, updated_at = NOW() WHERE tx_key = $3`
	res, err := r.db.ExecContext(ctx, query, string(status), errMsg, key)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrSubmissionNotFound
	}
	return nil
}

// GetByKey retrieves a submission by tx hash or signature.
func (r *SubmissionRepo) GetByKey(ctx context.Context, key string) (*domain.SubmissionRecord, error) {
	var row submissionRow
	err := r.db.GetContext(ctx, &row, selectSubmissions+` WHERE tx_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return row.toDomain(), nil
}

// ListRecent returns the newest submissions first.
func (r *SubmissionRepo) ListRecent(ctx context.Context, limit int) ([]*domain.SubmissionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []submissionRow
	err := r.db.SelectContext(ctx, &rows, selectSubmissions+` ORDER BY submitted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	recs := make([]*domain.SubmissionRecord, 0, len(rows))
	for i := range rows {
		recs = append(recs, rows[i].toDomain())
	}
	return recs, nil
}
