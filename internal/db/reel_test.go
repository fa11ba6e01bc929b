package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/reelplay/internal/media"
	"github.com/stwalsh4118/reelplay/internal/models"
)

const testMigrationsPath = "file://../../migrations"

func setupTestDB(t *testing.T) (*DB, *Repositories) {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, RunMigrations(sqlDB, testMigrationsPath))

	return database, NewRepositories(database)
}

func testReel(title string, urls ...string) *models.Reel {
	segments := lo.Map(urls, func(url string, _ int) models.ReelSegment {
		return models.ReelSegment{PrimaryURL: url}
	})
	return models.NewReel(title, true, segments)
}

func TestReelRepository_CreateAndGet(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	reel := testReel("Beach", "a.jpg", "b.jpg", "c.jpg")
	reel.AudioURL = lo.ToPtr("song.mp3")
	reel.OffsetMs = 500
	reel.MusicGain = lo.ToPtr(0.6)
	reel.Segments[1].DurationMs = lo.ToPtr(int64(1200))
	require.NoError(t, repos.Reels.Create(ctx, reel))

	got, err := repos.Reels.GetByID(ctx, reel.ID)
	require.NoError(t, err)

	assert.Equal(t, "Beach", got.Title)
	assert.Equal(t, "song.mp3", lo.FromPtr(got.AudioURL))
	assert.Equal(t, int64(500), got.OffsetMs)
	assert.Equal(t, 0.6, lo.FromPtr(got.MusicGain))
	assert.Nil(t, got.VideoGain)
	assert.True(t, got.Loop)
	require.Len(t, got.Segments, 3)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, lo.Map(got.Segments, func(s models.ReelSegment, _ int) string {
		return s.PrimaryURL
	}))
	assert.Equal(t, int64(1200), lo.FromPtr(got.Segments[1].DurationMs))
	assert.Equal(t, media.KindImage, got.Segments[0].Kind)
}

func TestReelRepository_LoopFalsePersists(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	reel := models.NewReel("Once", false, []models.ReelSegment{{PrimaryURL: "clip.mp4"}})
	require.NoError(t, repos.Reels.Create(ctx, reel))

	got, err := repos.Reels.GetByID(ctx, reel.ID)
	require.NoError(t, err)
	assert.False(t, got.Loop)
	assert.Equal(t, media.KindVideo, got.Segments[0].Kind)
}

func TestReelRepository_GetNotFound(t *testing.T) {
	_, repos := setupTestDB(t)

	_, err := repos.Reels.GetByID(context.Background(), uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestReelRepository_CreateRollsBackOnInvalidSegment(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	reel := testReel("Broken", "a.jpg")
	reel.Segments[0].Kind = "document"

	err := repos.Reels.Create(ctx, reel)
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))

	_, err = repos.Reels.GetByID(ctx, reel.ID)
	assert.True(t, IsNotFound(err), "reel row must not survive a failed segment insert")
}

func TestReelRepository_ListNewestFirst(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	older := testReel("Older", "a.jpg")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testReel("Newer", "b.jpg", "c.jpg")
	require.NoError(t, repos.Reels.Create(ctx, older))
	require.NoError(t, repos.Reels.Create(ctx, newer))

	reels, err := repos.Reels.List(ctx)
	require.NoError(t, err)
	require.Len(t, reels, 2)
	assert.Equal(t, "Newer", reels[0].Title)
	assert.Len(t, reels[0].Segments, 2)
	assert.Equal(t, "Older", reels[1].Title)
}

func TestReelRepository_UpdateReplacesSegments(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()

	reel := testReel("Draft", "a.jpg", "b.jpg")
	require.NoError(t, repos.Reels.Create(ctx, reel))

	reel.Title = "Final"
	reel.Loop = false
	reel.Segments = []models.ReelSegment{
		{PrimaryURL: "z.jpg", Kind: media.KindImage},
	}
	require.NoError(t, repos.Reels.Update(ctx, reel))

	got, err := repos.Reels.GetByID(ctx, reel.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.False(t, got.Loop)
	require.Len(t, got.Segments, 1)
	assert.Equal(t, "z.jpg", got.Segments[0].PrimaryURL)
	assert.Equal(t, 0, got.Segments[0].Position)
}

func TestReelRepository_UpdateNotFound(t *testing.T) {
	_, repos := setupTestDB(t)

	err := repos.Reels.Update(context.Background(), testReel("Ghost", "a.jpg"))
	assert.True(t, IsNotFound(err))
}

func TestReelRepository_Delete(t *testing.T) {
	database, repos := setupTestDB(t)
	ctx := context.Background()

	reel := testReel("Gone", "a.jpg", "b.jpg")
	require.NoError(t, repos.Reels.Create(ctx, reel))

	require.NoError(t, repos.Reels.Delete(ctx, reel.ID))

	var segments int64
	require.NoError(t, database.Model(&models.ReelSegment{}).Where("reel_id = ?", reel.ID.String()).Count(&segments).Error)
	assert.Zero(t, segments)

	err := repos.Reels.Delete(ctx, reel.ID)
	assert.True(t, IsNotFound(err))
}

func TestMigrations_VersionAndRollback(t *testing.T) {
	database, _ := setupTestDB(t)
	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)

	version, dirty, err := MigrationVersion(sqlDB, testMigrationsPath)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// re-running is a no-op
	require.NoError(t, RunMigrations(sqlDB, testMigrationsPath))

	require.NoError(t, RollbackMigrations(sqlDB, testMigrationsPath, 1))
	version, _, err = MigrationVersion(sqlDB, testMigrationsPath)
	require.NoError(t, err)
	assert.Zero(t, version)

	assert.True(t, IsInvalidInput(RollbackMigrations(sqlDB, testMigrationsPath, 0)))
}

func TestMapGormError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want error
	}{
		{"unique", "UNIQUE constraint failed: reels.id", ErrDuplicate},
		{"foreign key", "FOREIGN KEY constraint failed", ErrForeignKey},
		{"check", "CHECK constraint failed: kind", ErrInvalidInput},
		{"not null", "NOT NULL constraint failed: reels.title", ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapGormError(&constraintError{tt.msg}))
		})
	}

	assert.Equal(t, assert.AnError, MapGormError(assert.AnError))
	assert.Nil(t, MapGormError(nil))
}

type constraintError struct{ msg string }

func (e *constraintError) Error() string { return e.msg }
