package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/internal/pkg/config"
	"github.com/ManuelReschke/FormFox/internal/pkg/database"
)

const (
	mysqlImage    = "mysql:8.0"
	mysqlPassword = "password"
	mysqlDatabase = "formfox_test"
)

var (
	mysqlOnce      sync.Once
	mysqlContainer testcontainers.Container
	mysqlDB        *gorm.DB
	mysqlErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if mysqlContainer != nil {
		_ = mysqlContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

// setupMySQL starts one MySQL container for the package, applies the SQL
// migrations and empties the mutable tables. Tests are skipped when no
// container runtime is available.
func setupMySQL(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MySQL tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	mysqlOnce.Do(func() {
		mysqlDB, mysqlErr = startMySQL(context.Background())
	})
	require.NoError(t, mysqlErr)

	for _, table := range []string{"assignments", "submission_answers", "submissions", "webhook_events", "audit_logs"} {
		require.NoError(t, mysqlDB.Exec("DELETE FROM "+table).Error)
	}
	return mysqlDB
}

func startMySQL(ctx context.Context) (*gorm.DB, error) {
	req := testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start mysql: %w", err)
	}
	mysqlContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("mysql host: %w", err)
	}
	port, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		return nil, fmt.Errorf("mysql port: %w", err)
	}

	cfg := config.DBConfig{
		User:     "root",
		Password: mysqlPassword,
		Host:     host,
		Port:     port.Port(),
		Name:     mysqlDatabase,
	}
	db, err := database.SetupDatabase(cfg, false)
	if err != nil {
		return nil, err
	}

	migrationURL := fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	mig, err := migrate.New("file://../../migrations", migrationURL)
	if err != nil {
		return nil, fmt.Errorf("migrate init: %w", err)
	}
	defer mig.Close()
	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	return db, nil
}
