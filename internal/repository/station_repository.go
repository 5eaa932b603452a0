package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evchart/evchart/internal/domain"
)

type stationRepository struct {
	pool *pgxpool.Pool
}

// NewStationRepository wires a repository backed by pgxpool.
func NewStationRepository(pool *pgxpool.Pool) StationRepository {
	return &stationRepository{pool: pool}
}

func (r *stationRepository) OperationalDates(ctx context.Context, keys []domain.StationKey) (map[domain.StationKey]time.Time, error) {
	if len(keys) == 0 {
		return map[domain.StationKey]time.Time{}, nil
	}

	args := make([]any, 0, len(keys)*2)
	placeholders := make([]string, 0, len(keys))
	for _, key := range keys {
		args = append(args, key.StationID, key.NetworkProvider)
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", len(args)-1, len(args)))
	}

	query := fmt.Sprintf(
		`SELECT station_id, network_provider, operational_date
		 FROM station_registration
		 WHERE (station_id, network_provider) IN (%s)`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operational dates: %w", err)
	}
	defer rows.Close()

	dates := make(map[domain.StationKey]time.Time, len(keys))
	for rows.Next() {
		var (
			key  domain.StationKey
			date pgtype.Timestamptz
		)
		if scanErr := rows.Scan(&key.StationID, &key.NetworkProvider, &date); scanErr != nil {
			return nil, fmt.Errorf("failed to scan operational date: %w", scanErr)
		}
		if date.Valid {
			dates[key] = date.Time
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate operational dates: %w", rowsErr)
	}

	return dates, nil
}
