package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/pr-analytics-service/internal/apperrors"
	"github.com/YusovID/pr-analytics-service/internal/domain"
	"github.com/jmoiron/sqlx"
)

type ReportRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewReportRepository(db *sqlx.DB, log *slog.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (rr *ReportRepository) Save(ctx context.Context, report *domain.Report) (int64, error) {
	const op = "internal.repository.postgres.SaveReport"
	log := rr.log.With(slog.String("op", op), slog.String("author", report.Author))

	query, args, err := rr.sq.Insert("reports").
		Columns("author", "creation_date", "file_data").
		Values(report.Author, report.CreationDate, report.FileData).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build report insert query: %w", op, err)
	}

	var id int64
	if err := rr.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, apperrors.ErrPersistence, err)
	}

	log.Info("report saved", slog.Int64("report_id", id), slog.Int("size", len(report.FileData)))

	return id, nil
}

func (rr *ReportRepository) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	const op = "internal.repository.postgres.GetReportByID"

	query, args, err := rr.sq.Select("id", "author", "creation_date", "file_data").
		From("reports").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build report select query: %w", op, err)
	}

	var report domain.Report
	if err := rr.db.GetContext(ctx, &report, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: report %d: %w", op, id, apperrors.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get report: %w", op, err)
	}

	return &report, nil
}
