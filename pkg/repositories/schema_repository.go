package repositories

import (
	"context"
	"fmt"

	"github.com/bosun-marine/bosun-engine/pkg/database"
)

// SchemaRepository answers questions about the live database schema.
// It is used at startup, before any yacht scope exists, so it reads the pool directly.
type SchemaRepository interface {
	ColumnExists(ctx context.Context, table, column string) (bool, error)
}

type schemaRepository struct {
	db *database.DB
}

// NewSchemaRepository creates a new SchemaRepository.
func NewSchemaRepository(db *database.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

var _ SchemaRepository = (*schemaRepository)(nil)

func (r *schemaRepository) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, table, column).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	return exists, nil
}
