package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	inactivity "sensor-cloud/internal/inactivity/domain"
)

// LedgerRepository stores alert history rows. Append-only; there is no
// uniqueness constraint, so overlapping sweeps can race the dedup check. The
// trigger cadence is assumed to be much longer than a sweep.
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository constructs a repository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// HasRecent reports whether any alert of the kind was recorded for the sensor
// at or after since. Limited to one row; only existence matters.
func (r *LedgerRepository) HasRecent(ctx context.Context, sensorID, kind string, since time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("ledger repo: nil db")
	}
	var id string
	err := r.db.QueryRowContext(ctx, `
SELECT id FROM alert_history
WHERE sensor_id = $1 AND alert_type = $2 AND alert_sent_at >= $3
LIMIT 1`, sensorID, kind, since).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Append records one sent alert.
func (r *LedgerRepository) Append(ctx context.Context, record *inactivity.AlertRecord) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alert_history (id, sensor_id, alert_type, recipient_email, alert_sent_at)
VALUES ($1, $2, $3, $4, $5)`,
		record.ID, record.SensorID, record.Kind, record.Recipient, record.SentAt)
	return err
}

// ListBySensor returns a sensor's alert history, newest first.
func (r *LedgerRepository) ListBySensor(ctx context.Context, sensorID string, limit int) ([]inactivity.AlertRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("ledger repo: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, sensor_id, alert_type, recipient_email, alert_sent_at
FROM alert_history
WHERE sensor_id = $1
ORDER BY alert_sent_at DESC
LIMIT $2`, sensorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []inactivity.AlertRecord
	for rows.Next() {
		var rec inactivity.AlertRecord
		if err := rows.Scan(&rec.ID, &rec.SensorID, &rec.Kind, &rec.Recipient, &rec.SentAt); err != nil {
			return nil, err
		}
		rec.SentAt = rec.SentAt.UTC()
		list = append(list, rec)
	}
	return list, rows.Err()
}
