package document

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies the documents/sessions/messages/user_profiles/
// sessions_archive/escalations schema migrations from sourceDir
// against dsn.
func Migrate(sourceDir, dsn string) error {
	m, err := migrate.New(fmt.Sprintf("file://%s", sourceDir), dsn)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
