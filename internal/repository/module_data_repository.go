package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/evchart/evchart/internal/domain"
)

// keySeparator matches the token separator the validation engine uses when
// joining unique-key tuples.
const keySeparator = "\x1f"

type moduleDataRepository struct {
	pool *pgxpool.Pool
}

// NewModuleDataRepository wires a repository backed by pgxpool. Table names
// always come from the schema registry, never from user input.
func NewModuleDataRepository(pool *pgxpool.Pool) ModuleDataRepository {
	return &moduleDataRepository{pool: pool}
}

func (r *moduleDataRepository) Exists(ctx context.Context, tableName string, uploadID string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE upload_id = $1)`,
		pgx.Identifier{tableName}.Sanitize(),
	)

	var exists bool
	if err := r.pool.QueryRow(ctx, query, uploadID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing rows in %s: %w", tableName, err)
	}
	return exists, nil
}

func (r *moduleDataRepository) FindExistingKeys(ctx context.Context, tableName string, keyColumns []string, tuples [][]string, uploadID string) (map[string]string, error) {
	if len(keyColumns) == 0 || len(tuples) == 0 {
		return map[string]string{}, nil
	}

	quotedCols := make([]string, len(keyColumns))
	selectCols := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		quoted := pgx.Identifier{col}.Sanitize()
		quotedCols[i] = quoted
		selectCols[i] = quoted + "::text"
	}

	args := []any{uploadID}
	placeholders := make([]string, 0, len(tuples))
	for _, tuple := range tuples {
		slots := make([]string, len(tuple))
		for i, value := range tuple {
			args = append(args, value)
			slots[i] = fmt.Sprintf("$%d", len(args))
		}
		placeholders = append(placeholders, "("+strings.Join(slots, ", ")+")")
	}

	query := fmt.Sprintf(
		`SELECT DISTINCT %s, upload_id FROM %s WHERE upload_id <> $1 AND (%s) IN (%s)`,
		strings.Join(selectCols, ", "),
		pgx.Identifier{tableName}.Sanitize(),
		strings.Join(quotedCols, ", "),
		strings.Join(placeholders, ", "),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate keys in %s: %w", tableName, err)
	}
	defer rows.Close()

	existing := make(map[string]string)
	values := make([]string, len(keyColumns))
	for rows.Next() {
		targets := make([]any, 0, len(keyColumns)+1)
		for i := range values {
			targets = append(targets, &values[i])
		}
		var conflictUpload string
		targets = append(targets, &conflictUpload)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate key row: %w", err)
		}
		existing[strings.Join(values, keySeparator)] = conflictUpload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duplicate key rows: %w", err)
	}

	return existing, nil
}

func (r *moduleDataRepository) WriteBatch(ctx context.Context, ms *domain.ModuleSchema, uploadID string, records []domain.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to write for upload %s", uploadID)
	}

	columns := append([]string{"upload_id"}, ms.ColumnNames()...)
	if _, hasFlag := records[0]["user_reports_no_data"]; hasFlag {
		columns = append(columns, "user_reports_no_data")
	}

	quoted := make([]string, len(columns))
	slots := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
		slots[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		pgx.Identifier{ms.TableName}.Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(slots, ", "),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, record := range records {
		args := make([]any, len(columns))
		args[0] = uploadID
		for i, col := range columns[1:] {
			args[i+1] = bindValue(record[col])
		}
		batch.Queue(insert, args...)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert into %s: %w", ms.TableName, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to flush batch for %s: %w", ms.TableName, err)
	}

	// Status flip rides in the same transaction so a write failure leaves the
	// upload at Processing for retry.
	tag, err := tx.Exec(ctx,
		`UPDATE upload_submissions SET status = $1, updated_at = now() WHERE upload_id = $2 AND status = $3`,
		domain.StatusDraft, uploadID, domain.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to update upload status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upload %s is not in %s status", uploadID, domain.StatusProcessing)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch for %s: %w", ms.TableName, err)
	}
	return nil
}

// bindValue maps transform output to pgx-encodable parameters.
func bindValue(value any) any {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.String()
	default:
		return value
	}
}
