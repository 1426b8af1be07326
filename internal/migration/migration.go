package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	budgetdomain "github.com/smallbiznis/kontera/internal/budget/domain"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	productdomain "github.com/smallbiznis/kontera/internal/product/domain"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// RunMigrations applies the embedded SQL migrations so a fresh postgres
// instance is usable out of the box.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema via gorm for the non-postgres dialects used
// in development and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&costcenterdomain.CostCenter{},
		&contactdomain.Contact{},
		&productdomain.Product{},
		&ruledomain.AssignmentRule{},
		&documentdomain.Document{},
		&documentdomain.DocumentLine{},
		&budgetdomain.Budget{},
		&budgetdomain.BudgetRevision{},
	)
}
