package repository_test

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/booth-feedback/internal/repository"
	"github.com/godilite/booth-feedback/internal/repository/models"
	"github.com/godilite/booth-feedback/pkg/database"
)

func setupTestRepo(t *testing.T) *repository.FeedbackRepository {
	t.Helper()

	db, err := database.New(context.Background(),
		database.WithDriver("sqlite3"),
		database.WithDataSource(":memory:"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewFeedbackRepository(db, database.DialectSQLite)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestFeedbackRepository_InsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	first, err := repo.InsertFeedback(ctx, models.FeedbackRecord{
		BoothID: " A01 ", PraiseRatio: 70, AdviceRatio: 30,
		RawText: "great booth", VisitorAttribute: "Student",
	})
	require.NoError(t, err)
	second, err := repo.InsertFeedback(ctx, models.FeedbackRecord{
		BoothID: "a01", PraiseRatio: 40, AdviceRatio: 60,
		RawText: "slides too dense", VisitorAttribute: "industry_professional",
	})
	require.NoError(t, err)
	_, err = repo.InsertFeedback(ctx, models.FeedbackRecord{
		BoothID: "B02", PraiseRatio: 50, AdviceRatio: 50,
		RawText: "ok", VisitorAttribute: "general_visitor",
	})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	records, err := repo.ListFeedbackByBooth(ctx, "A01")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second, records[0].ID, "newest first")
	assert.Equal(t, models.FeedbackRecord{
		ID: first, BoothID: "a01", PraiseRatio: 70, AdviceRatio: 30,
		RawText: "great booth", VisitorAttribute: "student",
	}, records[1])

	booths, err := repo.CountBooths(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, booths)
}

func TestFeedbackRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	id, err := repo.InsertFeedback(ctx, models.FeedbackRecord{
		BoothID: "a01", PraiseRatio: 50, AdviceRatio: 50, RawText: "x", VisitorAttribute: "student",
	})
	require.NoError(t, err)

	booth, err := repo.MarkProcessed(ctx, id, "short summary")
	require.NoError(t, err)
	assert.Equal(t, "a01", booth)

	records, err := repo.ListFeedbackByBooth(ctx, "a01")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].IsProcessed)
	assert.Equal(t, "short summary", records[0].SummaryText)

	_, err = repo.MarkProcessed(ctx, id+100, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFeedbackRepository_Members(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	require.NoError(t, repo.UpsertMember(ctx, models.Member{Email: "Aki@Example.com", Name: "Aki", BoothID: "A01", TeamName: "Team A"}))
	require.NoError(t, repo.UpsertMember(ctx, models.Member{Email: "ben@example.com", Name: "Ben", BoothID: "a01", TeamName: "Team A"}))
	require.NoError(t, repo.UpsertMember(ctx, models.Member{Email: "cy@example.com", Name: "Cy", BoothID: "b02", TeamName: "Team B"}))

	m, err := repo.FindMemberByEmail(ctx, "  AKI@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, models.Member{Email: "aki@example.com", Name: "Aki", BoothID: "a01", TeamName: "Team A"}, m)

	team, err := repo.ListTeamMembers(ctx, "A01")
	require.NoError(t, err)
	require.Len(t, team, 2)
	assert.Equal(t, "aki@example.com", team[0].Email)
	assert.Equal(t, "ben@example.com", team[1].Email)

	require.NoError(t, repo.UpsertMember(ctx, models.Member{Email: "ben@example.com", Name: "Ben", BoothID: "b02", TeamName: "Team B"}))
	team, err = repo.ListTeamMembers(ctx, "a01")
	require.NoError(t, err)
	assert.Len(t, team, 1)

	_, err = repo.FindMemberByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFeedbackRepository_Ping(t *testing.T) {
	assert.NoError(t, setupTestRepo(t).Ping(context.Background()))
}
