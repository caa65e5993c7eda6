package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
)

const (
	reportsTable = "review_reports"
	reviewsTable = "review_labels"
	defaultLimit = 20
)

var reportColumns = []string{
	"id",
	"product_id",
	"product_name",
	"product_url",
	"total",
	"fake_count",
	"genuine_count",
	"fake_percentage",
	"genuine_percentage",
	"created_at",
}

// ReportRepository persists analysis history in Postgres or SQLite.
type ReportRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

var _ ports.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository wires a sql.DB implementation.
func NewReportRepository(db *sql.DB, dialect Dialect) *ReportRepository {
	return &ReportRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
	}
}

// EnsureSchema creates the history tables when missing.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	product_name TEXT NOT NULL,
	product_url TEXT NOT NULL,
	total INTEGER NOT NULL,
	fake_count INTEGER NOT NULL,
	genuine_count INTEGER NOT NULL,
	fake_percentage %[2]s NOT NULL,
	genuine_percentage %[2]s NOT NULL,
	created_at %[3]s NOT NULL
)`, reportsTable, r.dialect.FloatType, r.dialect.TimeType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	report_id TEXT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	body TEXT NOT NULL,
	label TEXT NOT NULL,
	PRIMARY KEY (report_id, ordinal)
)`, reviewsTable, reportsTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s (created_at)`, reportsTable),
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save stores the report and its labeled reviews in one transaction.
func (r *ReportRepository) Save(ctx context.Context, analysis domain.Analysis) error {
	report := analysis.Report

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	query, args, err := r.builder.Insert(reportsTable).
		Columns(reportColumns...).
		Values(
			report.ID,
			string(report.ProductID),
			report.ProductName,
			report.ProductURL,
			report.Total,
			report.FakeCount,
			report.GenuineCount,
			report.FakePercentage,
			report.GenuinePercentage,
			report.CreatedAt,
		).ToSql()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("build insert report: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert report: %w", err)
	}

	if len(analysis.Reviews) > 0 {
		insert := r.builder.Insert(reviewsTable).Columns("report_id", "ordinal", "body", "label")
		for i, review := range analysis.Reviews {
			insert = insert.Values(report.ID, i, review.Text, string(review.Label))
		}
		query, args, err = insert.ToSql()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build insert reviews: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert reviews: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get loads a single report by id.
func (r *ReportRepository) Get(ctx context.Context, id string) (domain.Report, error) {
	query, args, err := r.builder.Select(reportColumns...).
		From(reportsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Report{}, fmt.Errorf("build select report: %w", err)
	}

	report, err := scanReport(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, fmt.Errorf("report %s: %w", id, domain.ErrReportNotFound)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("select report: %w", err)
	}
	return report, nil
}

// List returns the most recent reports first.
func (r *ReportRepository) List(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	query, args, err := r.builder.Select(reportColumns...).
		From(reportsTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list reports: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	var reports []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (domain.Report, error) {
	var (
		report    domain.Report
		productID string
	)
	err := row.Scan(
		&report.ID,
		&productID,
		&report.ProductName,
		&report.ProductURL,
		&report.Total,
		&report.FakeCount,
		&report.GenuineCount,
		&report.FakePercentage,
		&report.GenuinePercentage,
		&report.CreatedAt,
	)
	report.ProductID = domain.ProductID(productID)
	return report, err
}
