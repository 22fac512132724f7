package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/project-tktt/indeed-crawler/internal/domain"
)

// PostgresIndexer upserts jobs into a PostgreSQL table
type PostgresIndexer struct {
	db        *sql.DB
	tableName string
	logger    *slog.Logger
}

// NewPostgresIndexer opens a connection and creates the table if needed
func NewPostgresIndexer(ctx context.Context, connStr string, tableName string, logger *slog.Logger) (*PostgresIndexer, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	indexer := &PostgresIndexer{
		db:        db,
		tableName: tableName,
		logger:    logger,
	}

	if err := indexer.ensureTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure table: %w", err)
	}

	return indexer, nil
}

func createTableQuery(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			listing_id TEXT NOT NULL,
			title TEXT NOT NULL,
			company TEXT,
			location TEXT,
			description TEXT,
			source TEXT,
			source_url TEXT,
			crawled_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, pq.QuoteIdentifier(table))
}

func upsertQuery(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (
			id, listing_id, title, company, location, description,
			source, source_url, crawled_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			source_url = EXCLUDED.source_url,
			crawled_at = EXCLUDED.crawled_at,
			updated_at = NOW()
	`, pq.QuoteIdentifier(table))
}

func (i *PostgresIndexer) ensureTable(ctx context.Context) error {
	_, err := i.db.ExecContext(ctx, createTableQuery(i.tableName))
	return err
}

// BulkIndex upserts jobs in one transaction; any failing row rolls back the batch
func (i *PostgresIndexer) BulkIndex(ctx context.Context, jobs []*domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(i.tableName))
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		_, err := stmt.ExecContext(ctx,
			documentID(job), job.ID, job.Title, job.Company, job.Location, job.Description,
			job.Source, job.URL, job.CrawledAt,
		)
		if err != nil {
			return fmt.Errorf("index job %s: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	i.logger.Debug("[Postgres] Indexed jobs", "table", i.tableName, "count", len(jobs))
	return nil
}

// Close closes the database connection
func (i *PostgresIndexer) Close() error {
	return i.db.Close()
}
