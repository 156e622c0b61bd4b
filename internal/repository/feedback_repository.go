package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/godilite/booth-feedback/internal/repository/models"
	"github.com/godilite/booth-feedback/pkg/database"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

var schema = map[database.Dialect][]string{
	database.DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booth_id TEXT NOT NULL,
			praise_ratio INTEGER NOT NULL,
			advice_ratio INTEGER NOT NULL,
			raw_text TEXT NOT NULL,
			visitor_attribute TEXT NOT NULL,
			summary_text TEXT NOT NULL DEFAULT '',
			is_processed BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_booth_id ON feedback (booth_id)`,
		`CREATE TABLE IF NOT EXISTS members (
			email TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			booth_id TEXT NOT NULL,
			team_name TEXT NOT NULL DEFAULT ''
		)`,
	},
	database.DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS feedback (
			id BIGSERIAL PRIMARY KEY,
			booth_id TEXT NOT NULL,
			praise_ratio INTEGER NOT NULL,
			advice_ratio INTEGER NOT NULL,
			raw_text TEXT NOT NULL,
			visitor_attribute TEXT NOT NULL,
			summary_text TEXT NOT NULL DEFAULT '',
			is_processed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_booth_id ON feedback (booth_id)`,
		`CREATE TABLE IF NOT EXISTS members (
			email TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			booth_id TEXT NOT NULL,
			team_name TEXT NOT NULL DEFAULT ''
		)`,
	},
}

// FeedbackRepository stores feedback records and team membership.
// Booth ids and emails are stored lower-cased and trimmed.
type FeedbackRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewFeedbackRepository(db *sql.DB, dialect database.Dialect) *FeedbackRepository {
	return &FeedbackRepository{db: db, dialect: dialect}
}

func (r *FeedbackRepository) q(query string) string {
	return database.Rebind(r.dialect, query)
}

// Migrate creates the tables if they do not exist.
func (r *FeedbackRepository) Migrate(ctx context.Context) error {
	stmts, ok := schema[r.dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", r.dialect)
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// InsertFeedback stores rec and returns its id.
func (r *FeedbackRepository) InsertFeedback(ctx context.Context, rec models.FeedbackRecord) (int64, error) {
	const query = `
		INSERT INTO feedback (booth_id, praise_ratio, advice_ratio, raw_text, visitor_attribute, summary_text, is_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	args := []any{
		normalize(rec.BoothID),
		rec.PraiseRatio,
		rec.AdviceRatio,
		rec.RawText,
		normalize(rec.VisitorAttribute),
		rec.SummaryText,
		rec.IsProcessed,
	}

	if r.dialect == database.DialectPostgres {
		var id int64
		if err := r.db.QueryRowContext(ctx, r.q(query)+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("query InsertFeedback: %w", err)
		}
		return id, nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("query InsertFeedback: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read InsertFeedback id: %w", err)
	}
	return id, nil
}

// ListFeedbackByBooth returns the booth's feedback, newest first.
func (r *FeedbackRepository) ListFeedbackByBooth(ctx context.Context, boothID string) ([]models.FeedbackRecord, error) {
	const query = `
		SELECT id, booth_id, praise_ratio, advice_ratio, raw_text, visitor_attribute, summary_text, is_processed
		FROM feedback
		WHERE booth_id = ?
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, r.q(query), normalize(boothID))
	if err != nil {
		return nil, fmt.Errorf("query ListFeedbackByBooth: %w", err)
	}
	defer rows.Close()

	var results []models.FeedbackRecord
	for rows.Next() {
		var rec models.FeedbackRecord
		if err := rows.Scan(&rec.ID, &rec.BoothID, &rec.PraiseRatio, &rec.AdviceRatio,
			&rec.RawText, &rec.VisitorAttribute, &rec.SummaryText, &rec.IsProcessed); err != nil {
			return nil, fmt.Errorf("scan ListFeedbackByBooth row: %w", err)
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListFeedbackByBooth: %w", err)
	}
	return results, nil
}

// CountBooths returns how many distinct booths have received feedback.
func (r *FeedbackRepository) CountBooths(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(DISTINCT booth_id) FROM feedback`

	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("query CountBooths: %w", err)
	}
	return n, nil
}

// MarkProcessed stores the summary for a record and returns its booth id.
func (r *FeedbackRepository) MarkProcessed(ctx context.Context, id int64, summary string) (string, error) {
	const update = `UPDATE feedback SET summary_text = ?, is_processed = ? WHERE id = ?`
	const lookup = `SELECT booth_id FROM feedback WHERE id = ?`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin MarkProcessed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, r.q(update), summary, true, id)
	if err != nil {
		return "", fmt.Errorf("query MarkProcessed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrNotFound
	}

	var boothID string
	if err := tx.QueryRowContext(ctx, r.q(lookup), id).Scan(&boothID); err != nil {
		return "", fmt.Errorf("query MarkProcessed booth: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit MarkProcessed: %w", err)
	}
	return boothID, nil
}

// UpsertMember creates or replaces a team membership.
func (r *FeedbackRepository) UpsertMember(ctx context.Context, m models.Member) error {
	const query = `
		INSERT INTO members (email, name, booth_id, team_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			name = excluded.name,
			booth_id = excluded.booth_id,
			team_name = excluded.team_name
	`
	if _, err := r.db.ExecContext(ctx, r.q(query),
		normalize(m.Email), m.Name, normalize(m.BoothID), m.TeamName); err != nil {
		return fmt.Errorf("query UpsertMember: %w", err)
	}
	return nil
}

// FindMemberByEmail looks a member up case-insensitively.
func (r *FeedbackRepository) FindMemberByEmail(ctx context.Context, email string) (models.Member, error) {
	const query = `SELECT email, name, booth_id, team_name FROM members WHERE email = ?`

	var m models.Member
	err := r.db.QueryRowContext(ctx, r.q(query), normalize(email)).Scan(&m.Email, &m.Name, &m.BoothID, &m.TeamName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Member{}, ErrNotFound
		}
		return models.Member{}, fmt.Errorf("query FindMemberByEmail: %w", err)
	}
	return m, nil
}

// ListTeamMembers returns everyone registered for the booth, by email.
func (r *FeedbackRepository) ListTeamMembers(ctx context.Context, boothID string) ([]models.Member, error) {
	const query = `
		SELECT email, name, booth_id, team_name
		FROM members
		WHERE booth_id = ?
		ORDER BY email
	`

	rows, err := r.db.QueryContext(ctx, r.q(query), normalize(boothID))
	if err != nil {
		return nil, fmt.Errorf("query ListTeamMembers: %w", err)
	}
	defer rows.Close()

	var results []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.Email, &m.Name, &m.BoothID, &m.TeamName); err != nil {
			return nil, fmt.Errorf("scan ListTeamMembers row: %w", err)
		}
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListTeamMembers: %w", err)
	}
	return results, nil
}

// Ping checks the connection.
func (r *FeedbackRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
