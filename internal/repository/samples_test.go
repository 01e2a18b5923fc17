package repository

import (
	"context"
	"testing"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func at(hour, minute int, day int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, time.UTC)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "dsn"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	got := pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got != want {
		t.Errorf("Rebind() = %q, want %q", got, want)
	}

	lite := &DB{driver: DriverSQLite}
	query := "SELECT * FROM t WHERE a = ?"
	if got := lite.Rebind(query); got != query {
		t.Errorf("sqlite Rebind() = %q, want unchanged", got)
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate failed: %v", err)
	}
}

func TestSampleRepository_UpsertBatchIgnoresDuplicates(t *testing.T) {
	repo := NewSampleRepository(newTestDB(t))
	ctx := context.Background()

	samples := []models.HealthSample{
		{UserID: "u1", Kind: models.SampleKindSteps, Value: 1200, StartTime: at(9, 0, 2), EndTime: at(9, 30, 2)},
		{UserID: "u1", Kind: models.SampleKindSteps, Value: 800, StartTime: at(12, 0, 2), EndTime: at(12, 15, 2)},
	}

	inserted, err := repo.UpsertBatch(ctx, samples)
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", inserted)
	}

	// Re-uploading the same samples with new IDs must not create rows
	again := []models.HealthSample{
		{UserID: "u1", Kind: models.SampleKindSteps, Value: 1200, StartTime: at(9, 0, 2), EndTime: at(9, 30, 2)},
		{UserID: "u1", Kind: models.SampleKindSteps, Value: 500, StartTime: at(18, 0, 2), EndTime: at(18, 10, 2)},
	}
	inserted, err = repo.UpsertBatch(ctx, again)
	if err != nil {
		t.Fatalf("second UpsertBatch failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("Expected 1 new sample, got %d", inserted)
	}

	counts, err := repo.CountByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("CountByUser failed: %v", err)
	}
	if counts[models.SampleKindSteps] != 3 {
		t.Errorf("Expected 3 stored step samples, got %d", counts[models.SampleKindSteps])
	}
}

func TestSampleRepository_UpsertBatchClientIDs(t *testing.T) {
	repo := NewSampleRepository(newTestDB(t))
	ctx := context.Background()
	const sharedID = "019535d9-3df7-7b2c-9d41-5c2e6f0a1b2c"

	_, err := repo.UpsertBatch(ctx, []models.HealthSample{
		{ID: sharedID, UserID: "u1", Kind: models.SampleKindSteps, Value: 1200, StartTime: at(9, 0, 2), EndTime: at(9, 30, 2)},
	})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	tests := []struct {
		name         string
		userID       string
		value        float64
		wantInserted int
	}{
		{name: "other user reusing the id", userID: "u2", value: 1200, wantInserted: 2},
		{name: "same id with a corrected value", userID: "u1", value: 1250, wantInserted: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted, err := repo.UpsertBatch(ctx, []models.HealthSample{
				{UserID: tt.userID, Kind: models.SampleKindSteps, Value: 300, StartTime: at(14, 0, 2), EndTime: at(14, 20, 2)},
				{ID: sharedID, UserID: tt.userID, Kind: models.SampleKindSteps, Value: tt.value, StartTime: at(9, 0, 2), EndTime: at(9, 30, 2)},
			})
			if err != nil {
				t.Fatalf("Expected the batch to be stored, got %v", err)
			}
			if inserted != tt.wantInserted {
				t.Errorf("Expected %d inserted, got %d", tt.wantInserted, inserted)
			}
		})
	}

	c1, _ := repo.CountByUser(ctx, "u1")
	c2, _ := repo.CountByUser(ctx, "u2")
	if c1[models.SampleKindSteps] != 2 || c2[models.SampleKindSteps] != 2 {
		t.Errorf("Expected 2 step samples per user, got u1=%v u2=%v", c1, c2)
	}

	stored, err := repo.GetByUserAndKind(ctx, "u1", models.SampleKindSteps, at(0, 0, 2), at(0, 0, 3))
	if err != nil {
		t.Fatalf("GetByUserAndKind failed: %v", err)
	}
	for _, s := range stored {
		if s.ID == sharedID && s.Value != 1200 {
			t.Errorf("Expected the first stored value to be kept, got %v", s.Value)
		}
	}
}

func TestSampleRepository_GetByUserAndKind(t *testing.T) {
	repo := NewSampleRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertBatch(ctx, []models.HealthSample{
		{UserID: "u1", Kind: models.SampleKindSleep, Stage: models.SleepStageAsleepCore, StartTime: at(22, 30, 1), EndTime: at(6, 30, 2)},
		{UserID: "u1", Kind: models.SampleKindSleep, Stage: models.SleepStageAwake, StartTime: at(3, 0, 2), EndTime: at(3, 10, 2)},
		{UserID: "u1", Kind: models.SampleKindHeartRate, Value: 61, StartTime: at(7, 0, 2), EndTime: at(7, 0, 2)},
		{UserID: "u2", Kind: models.SampleKindSleep, Stage: models.SleepStageAsleepDeep, StartTime: at(23, 0, 1), EndTime: at(5, 0, 2)},
		{UserID: "u1", Kind: models.SampleKindSleep, Stage: models.SleepStageAsleepREM, StartTime: at(23, 0, 5), EndTime: at(6, 0, 6)},
	})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	// Window for March 2 only; the overnight sample starting on March 1 overlaps it
	got, err := repo.GetByUserAndKind(ctx, "u1", models.SampleKindSleep, at(0, 0, 2), at(0, 0, 3))
	if err != nil {
		t.Fatalf("GetByUserAndKind failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 sleep samples, got %d", len(got))
	}
	if !got[0].StartTime.Equal(at(22, 30, 1)) {
		t.Errorf("Expected results ordered by start, first start=%v", got[0].StartTime)
	}
	if got[0].Stage != models.SleepStageAsleepCore || got[1].Stage != models.SleepStageAwake {
		t.Errorf("Unexpected stages: %q, %q", got[0].Stage, got[1].Stage)
	}
	for _, s := range got {
		if s.UserID != "u1" || s.Kind != models.SampleKindSleep {
			t.Errorf("Unexpected sample returned: %+v", s)
		}
		if s.ID == "" {
			t.Error("Expected stored sample to have an ID")
		}
	}
}

func TestSampleRepository_DeleteByUserID(t *testing.T) {
	repo := NewSampleRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.UpsertBatch(ctx, []models.HealthSample{
		{UserID: "u1", Kind: models.SampleKindSteps, Value: 10, StartTime: at(9, 0, 2), EndTime: at(9, 1, 2)},
		{UserID: "u2", Kind: models.SampleKindSteps, Value: 20, StartTime: at(9, 0, 2), EndTime: at(9, 1, 2)},
	})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	if err := repo.DeleteByUserID(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByUserID failed: %v", err)
	}

	c1, _ := repo.CountByUser(ctx, "u1")
	c2, _ := repo.CountByUser(ctx, "u2")
	if len(c1) != 0 {
		t.Errorf("Expected no samples for u1, got %v", c1)
	}
	if c2[models.SampleKindSteps] != 1 {
		t.Errorf("Expected u2 samples untouched, got %v", c2)
	}
}
