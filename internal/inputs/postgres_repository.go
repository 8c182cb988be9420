package inputs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
)

const databasePostgres = "postgres"

// PostgresRepository reads persisted inputs from the inputs table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error) {
	query := `
		SELECT id, persisted_id, title, type, node_id, global
		FROM inputs
		WHERE id = $1
	`

	start := time.Now()
	row := r.db.QueryRowContext(ctx, query, inputID)

	var (
		meta   models.InputMetadata
		nodeID sql.NullString
	)
	err := row.Scan(&meta.ID, &meta.PersistedID, &meta.Title, &meta.Type, &nodeID, &meta.Global)
	metrics.ObserveDatabaseQueryDuration(databasePostgres, "resolve_input", time.Since(start))

	if errors.Is(err, sql.ErrNoRows) {
		metrics.IncDatabaseQuery(databasePostgres, "resolve_input", "not_found")
		return nil, pkgerrors.ErrInputNotFound.WithCause(err).WithDetail("input_id", inputID)
	}
	if err != nil {
		metrics.IncDatabaseQuery(databasePostgres, "resolve_input", "error")
		return nil, fmt.Errorf("failed to resolve input %s: %w", inputID, err)
	}
	metrics.IncDatabaseQuery(databasePostgres, "resolve_input", "ok")

	meta.NodeID = nodeID.String
	return &meta, nil
}

// List returns every persisted input ordered by title.
func (r *PostgresRepository) List(ctx context.Context) ([]models.InputMetadata, error) {
	query := `
		SELECT id, persisted_id, title, type, node_id, global
		FROM inputs
		ORDER BY title ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list inputs: %w", err)
	}
	defer rows.Close()

	var inputs []models.InputMetadata
	for rows.Next() {
		var (
			meta   models.InputMetadata
			nodeID sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.PersistedID, &meta.Title, &meta.Type, &nodeID, &meta.Global); err != nil {
			return nil, fmt.Errorf("failed to scan input: %w", err)
		}
		meta.NodeID = nodeID.String
		inputs = append(inputs, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return inputs, nil
}
