package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"uring-crawler/internal/checksum"
	"uring-crawler/internal/observability"
	"uring-crawler/internal/scraper"
	"uring-crawler/internal/storage"
)

const insertNotice = `
	INSERT INTO TblNotices
		([RunID], [Campus], [College], [DepartmentID], [DepartmentName], [BoardID], [BoardName],
		 [Title], [Date], [Link], [Fingerprint], [FetchedAt])
	VALUES
		(@RunID, @Campus, @College, @DepartmentID, @DepartmentName, @BoardID, @BoardName,
		 @Title, @Date, @Link, @Fingerprint, @FetchedAt);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	batchSize      int
	checksum       *checksum.Generator
	logger         *observability.Logger
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(dsn string, commandTimeout time.Duration, batchSize int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		batchSize:      batchSize,
		checksum:       checksum.NewGenerator(),
		logger:         logger,
	}, nil
}

// SaveNotices inserts the notices of a run, one transaction per batch.
// Rows of batches committed before a failure stay in place.
func (r *Repository) SaveNotices(ctx context.Context, runID string, notices []scraper.Notice) (int, error) {
	records := storage.NewRecords(runID, notices, time.Now(), r.checksum)

	saved := 0
	for _, b := range storage.Batches(len(records), r.batchSize) {
		n, err := r.insertBatch(ctx, records[b[0]:b[1]])
		saved += n
		if err != nil {
			return saved, err
		}
	}

	r.logger.Debug("Saved notices", "run_id", runID, "count", saved)
	return saved, nil
}

func (r *Repository) insertBatch(ctx context.Context, records []storage.NoticeRecord) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, insertNotice)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	for _, rec := range records {
		n := rec.Notice
		_, err := stmt.ExecContext(ctx,
			sql.Named("RunID", rec.RunID),
			sql.Named("Campus", n.Campus),
			sql.Named("College", n.College),
			sql.Named("DepartmentID", n.DepartmentID),
			sql.Named("DepartmentName", n.DepartmentName),
			sql.Named("BoardID", n.BoardID),
			sql.Named("BoardName", n.BoardName),
			sql.Named("Title", n.Title),
			sql.Named("Date", n.Date),
			sql.Named("Link", n.Link),
			sql.Named("Fingerprint", rec.Fingerprint),
			sql.Named("FetchedAt", rec.FetchedAt),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert notice %q: %w", n.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(records), nil
}

// CountByRun returns the number of notices stored for a run.
func (r *Repository) CountByRun(ctx context.Context, runID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM TblNotices WHERE RunID = @RunID`,
		sql.Named("RunID", runID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}

	return count, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
