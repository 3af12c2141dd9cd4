//go:build integration

package store

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/recyclebuddy/recyclebuddy/config"
	"github.com/recyclebuddy/recyclebuddy/models"
)

const (
	mysqlImage    = "mysql:8.0"
	mysqlPassword = "recyclebuddy"
	mysqlDatabase = "recyclebuddy_test"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// startMySQL runs a throwaway MySQL server and returns a migrated GormStore on it.
func startMySQL(t *testing.T) *GormStore {
	t.Helper()
	skipIfNoDocker(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("3306/tcp"),
			wait.ForLog("port: 3306  MySQL Community Server"),
		).WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("get mapped port: %v", err)
	}

	var cfg config.AppConfig
	cfg.Log.Level = "silent"
	cfg.Database.URI = fmt.Sprintf("root:%s@tcp(%s:%s)/%s", mysqlPassword, host, port.Port(), mysqlDatabase)
	db, err := config.OpenDatabase(cfg, &models.User{}, &models.UserImage{}, &models.DailyUpload{})
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	s := NewGormStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGormStore(t *testing.T) {
	s := startMySQL(t)

	runStoreSuite(t, func(t *testing.T) Store {
		for _, table := range []string{"users", "user_images", "daily_uploads"} {
			if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
				t.Fatalf("clear %s: %v", table, err)
			}
		}
		return s
	})
}

func TestGormStore_QuotaRowLocked(t *testing.T) {
	s := startMySQL(t)
	ctx := context.Background()

	// a stale row from an earlier day is reset under the row lock, not duplicated
	if err := s.db.Create(&models.DailyUpload{Username: "alice", Day: "2024-12-31", Count: 3}).Error; err != nil {
		t.Fatalf("seed quota row: %v", err)
	}
	n, err := s.ConsumeUpload(ctx, "alice", "2025-01-01", 3)
	if err != nil || n != 1 {
		t.Fatalf("ConsumeUpload() = %d, %v; want 1, nil", n, err)
	}

	var rows []models.DailyUpload
	if err := s.db.Where("username = ?", "alice").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Day != "2025-01-01" || rows[0].Count != 1 {
		t.Errorf("quota rows = %+v, want one row for 2025-01-01 with count 1", rows)
	}
}
