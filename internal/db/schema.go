package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var Schema string

// ApplySchema creates the users and payment_methods tables when they are missing.
func (s *DBService) ApplySchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("could not apply schema: %w", err)
	}
	return nil
}
