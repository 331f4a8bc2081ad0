package dispatcher

import (
	"context"
	"database/sql"

	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/models"
)

// RecordStorer persists notification records across delivery attempts.
type RecordStorer interface {
	Insert(ctx context.Context, rec models.NotificationRecord) error
	Update(ctx context.Context, rec models.NotificationRecord) error
}

// PostgresRecordStore writes notification_records rows. Records are append
// and update only; delivery history is never deleted.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

func (s *PostgresRecordStore) Insert(ctx context.Context, rec models.NotificationRecord) error {
	const query = `INSERT INTO notification_records
		(id, rfq_id, supplier_id, channel, status, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.RFQID, rec.SupplierID, string(rec.Channel),
		string(rec.Status), rec.Attempts, rec.LastError)
	if err != nil {
		return errors.NewQueryExecutionFailedError(err)
	}
	return nil
}

func (s *PostgresRecordStore) Update(ctx context.Context, rec models.NotificationRecord) error {
	const query = `UPDATE notification_records
		SET status = $2, attempts = $3, last_error = $4, updated_at = NOW()
		WHERE id = $1`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, string(rec.Status), rec.Attempts, rec.LastError)
	if err != nil {
		return errors.NewQueryExecutionFailedError(err)
	}
	return nil
}
