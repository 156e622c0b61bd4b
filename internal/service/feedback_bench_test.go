package service

import (
	"context"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/godilite/booth-feedback/internal/events"
	"github.com/godilite/booth-feedback/internal/feedback"
	"github.com/godilite/booth-feedback/internal/repository"
	"github.com/godilite/booth-feedback/internal/repository/models"
	"github.com/godilite/booth-feedback/internal/stt"
	dbbuilder "github.com/godilite/booth-feedback/pkg/database"
)

func setupRealDB(tb testing.TB, records int) *repository.FeedbackRepository {
	tb.Helper()
	ctx := context.Background()

	db, err := dbbuilder.New(ctx,
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(":memory:"),
	)
	if err != nil {
		tb.Fatalf("failed to create db pool via builder: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	repo := repository.NewFeedbackRepository(db, dbbuilder.DialectSQLite)
	if err := repo.Migrate(ctx); err != nil {
		tb.Fatalf("failed to migrate: %v", err)
	}
	if err := repo.UpsertMember(ctx, models.Member{Email: "lead@example.com", BoothID: "a01", TeamName: "Alpha"}); err != nil {
		tb.Fatalf("failed to seed member: %v", err)
	}
	for i := 0; i < records; i++ {
		if _, err := repo.InsertFeedback(ctx, models.FeedbackRecord{
			BoothID:          "a01",
			PraiseRatio:      (i * 5) % 101,
			AdviceRatio:      100 - (i*5)%101,
			RawText:          fmt.Sprintf("comment %d", i),
			VisitorAttribute: "student",
		}); err != nil {
			tb.Fatalf("failed to seed feedback: %v", err)
		}
	}
	return repo
}

func newBenchService(repo *repository.FeedbackRepository) *FeedbackService {
	logger := zap.NewNop()
	return NewFeedbackService(repo, stt.StaticRecognizer{Text: "ok"}, stt.ExtractiveSummarizer{}, events.New(nil, logger, nil), logger)
}

func BenchmarkAggregateBooth(b *testing.B) {
	svc := newBenchService(setupRealDB(b, 200))
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.AggregateBooth(ctx, "a01", "Alpha"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSubmit(b *testing.B) {
	svc := newBenchService(setupRealDB(b, 0))
	ctx := context.Background()
	req := feedback.SubmitRequest{
		BoothID:          "A01",
		PraiseRatio:      "70",
		AdviceRatio:      "30",
		RawText:          "great booth",
		VisitorAttribute: "student",
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Submit(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
