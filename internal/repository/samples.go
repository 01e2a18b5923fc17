package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorahealth/lora/backend/internal/models"
)

type sampleRepository struct {
	db *DB
}

// NewSampleRepository creates a new SQL-backed sample repository
func NewSampleRepository(db *DB) SampleRepository {
	return &sampleRepository{db: db}
}

func (r *sampleRepository) UpsertBatch(ctx context.Context, samples []models.HealthSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(`
		INSERT INTO health_samples (id, user_id, kind, value, stage, start_ms, end_ms, source, created_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	inserted := 0
	for i := range samples {
		s := &samples[i]
		if s.ID == "" {
			s.ID = uuid.Must(uuid.NewV7()).String()
		}

		res, err := stmt.ExecContext(ctx,
			s.ID,
			s.UserID,
			string(s.Kind),
			s.Value,
			string(s.Stage),
			s.StartTime.UnixMilli(),
			s.EndTime.UnixMilli(),
			s.Source,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert sample %d: %w", i, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit samples: %w", err)
	}

	return inserted, nil
}

func (r *sampleRepository) GetByUserAndKind(ctx context.Context, userID string, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT id, user_id, kind, value, stage, start_ms, end_ms, source, created_ms
		FROM health_samples
		WHERE user_id = ? AND kind = ? AND end_ms >= ? AND start_ms < ?
		ORDER BY start_ms ASC
	`), userID, string(kind), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	samples := make([]models.HealthSample, 0)
	for rows.Next() {
		var (
			s                         models.HealthSample
			kindStr, stage            string
			startMs, endMs, createdMs int64
		)
		if err := rows.Scan(&s.ID, &s.UserID, &kindStr, &s.Value, &stage, &startMs, &endMs, &s.Source, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Kind = models.SampleKind(kindStr)
		s.Stage = models.SleepStage(stage)
		s.StartTime = time.UnixMilli(startMs)
		s.EndTime = time.UnixMilli(endMs)
		s.CreatedAt = time.UnixMilli(createdMs)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}

	return samples, nil
}

func (r *sampleRepository) CountByUser(ctx context.Context, userID string) (map[models.SampleKind]int64, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT kind, COUNT(*) FROM health_samples WHERE user_id = ? GROUP BY kind
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count samples: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SampleKind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sample count: %w", err)
		}
		counts[models.SampleKind(kind)] = n
	}

	return counts, rows.Err()
}

func (r *sampleRepository) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM health_samples WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("failed to delete samples: %w", err)
	}
	return nil
}
