// This file starts database containers for integration tests and for the
// standalone cmd/testcontainers executable. Expects environment variables to
// be loaded from .env files when run standalone.

package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/pis-platform/pis/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DBContainer is a running database container and the config that reaches it
type DBContainer struct {
	Container testcontainers.Container
	Config    *config.Config
}

// Terminate stops the container. t may be nil outside of tests.
func (dc *DBContainer) Terminate(t *testing.T) {
	if dc == nil || dc.Container == nil {
		return
	}
	if err := dc.Container.Terminate(context.Background()); err != nil {
		logMessage(t, "Failed to terminate database container: %v", err)
	}
}

type dbFlavor struct {
	image string
	port  string
	env   func(name, user, password string) map[string]string
	wait  func(port nat.Port) wait.Strategy
}

var flavors = map[string]dbFlavor{
	"postgres": {
		image: "postgres:16-alpine",
		port:  "5432",
		env: func(name, user, password string) map[string]string {
			return map[string]string{
				"POSTGRES_DB":       name,
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
			}
		},
		wait: func(port nat.Port) wait.Strategy {
			return wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort(port),
			).WithDeadline(60 * time.Second)
		},
	},
	"mysql": {
		image: "mariadb:11",
		port:  "3306",
		env: func(name, user, password string) map[string]string {
			return map[string]string{
				"MARIADB_ROOT_PASSWORD": password + "-root",
				"MARIADB_DATABASE":      name,
				"MARIADB_USER":          user,
				"MARIADB_PASSWORD":      password,
			}
		},
		wait: func(port nat.Port) wait.Strategy {
			return wait.ForAll(
				wait.ForLog("ready for connections").WithOccurrence(2),
				wait.ForListeningPort(port),
			).WithDeadline(90 * time.Second)
		},
	},
}

// StartDatabase starts a database container for dbType (postgres or mysql).
// DB_IMAGE, DB_DATABASE, DB_USER and DB_PASSWORD override the defaults.
func StartDatabase(ctx context.Context, t *testing.T, dbType string) (*DBContainer, error) {
	flavor, ok := flavors[dbType]
	if !ok {
		return nil, fmt.Errorf("no container flavor for database type %q", dbType)
	}

	image := envOr("DB_IMAGE", flavor.image)
	name := envOr("DB_DATABASE", "pis")
	user := envOr("DB_USER", "pis")
	password := envOr("DB_PASSWORD", "pis-password")

	port, err := nat.NewPort("tcp", flavor.port)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(port)},
			Env:          flavor.env(name, user, password),
			WaitingFor:   flavor.wait(port),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", image, err)
	}
	dc := &DBContainer{Container: container}

	host, err := container.Host(ctx)
	if err != nil {
		dc.Terminate(t)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		dc.Terminate(t)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	dc.Config = &config.Config{
		DBType:            dbType,
		DBHost:            host,
		DBPort:            mapped.Port(),
		DBDatabase:        name,
		DBUser:            user,
		DBPassword:        password,
		DBConnectionLimit: 5,
	}
	logMessage(t, "DB_TYPE=%s DB_HOST=%s DB_PORT=%s DB_DATABASE=%s", dbType, host, mapped.Port(), name)

	return dc, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
