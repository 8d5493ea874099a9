package application

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

type MigrationManager interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Status(ctx context.Context) ([]MigrationStatus, error)
}

type MigrationStatus struct {
	Version int64  `json:"version"`
	Source  string `json:"source"`
	Applied bool   `json:"applied"`
}

type migrationManager struct {
	provider *goose.Provider
	log      *logrus.Entry
}

// NewMigrationManager runs the goose migrations found at the root of fsys.
func NewMigrationManager(db *sql.DB, fsys fs.FS, log *logrus.Entry) (MigrationManager, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &migrationManager{provider: provider, log: log}, nil
}

func (m *migrationManager) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	for _, r := range results {
		m.log.WithField("version", r.Source.Version).WithField("duration", r.Duration).Info("migrations: applied")
	}
	return err
}

func (m *migrationManager) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if r != nil {
		m.log.WithField("version", r.Source.Version).Info("migrations: rolled back")
	}
	return err
}

func (m *migrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version: s.Source.Version,
			Source:  s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
