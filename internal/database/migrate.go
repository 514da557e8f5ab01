package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies all pending migrations from migrationsPath against
// the configured MySQL database. ErrNoChange is not treated as a
// failure so repeated startups are safe.
func Migrate(migrationsPath, user, pass, host, port, name string) error {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	url := fmt.Sprintf("mysql://%s@tcp(%s:%s)/%s", auth, host, port, name)

	m, err := migrate.New(migrationsPath, url)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}
	return nil
}
