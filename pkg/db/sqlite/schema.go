package sqlite

import (
	"context"
	"fmt"

	"github.com/canopy-network/reputationx/pkg/db/models/portal"
)

// InitSchema creates the eight snapshot tables and their indices. It is idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, table := range portal.Tables {
		if err := table.Validate(); err != nil {
			return err
		}
		if err := db.Exec(ctx, table.CreateSQL()); err != nil {
			return fmt.Errorf("create table %s: %w", table.Name, err)
		}
	}
	return nil
}
