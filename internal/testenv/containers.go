// Package testenv starts the database and object storage containers the CRM runs against.
// It backs the standalone testcontainers command and the storage integration test.
// Expects environment variables to be loaded from .env files.
package testenv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultMinIOImage = "minio/minio:latest"
	minioPort         = "9000/tcp"
)

type TestContainers struct {
	Network          *testcontainers.DockerNetwork
	DBContainer      testcontainers.Container
	StorageContainer testcontainers.Container

	// StorageEndpoint is the host reachable MinIO URL, for STORAGE_ENDPOINT.
	StorageEndpoint string
}

func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.StorageContainer != nil {
		if err := tc.StorageContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MinIO: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Database: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateAllTestContainers starts MinIO and, when DB_IMAGE is set, a database on a shared network.
// The host side settings are logged as KEY=value lines for the calling process.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	testContainers := &TestContainers{}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	testContainers.Network = nw

	if os.Getenv("DB_IMAGE") != "" {
		if err := startDatabase(ctx, t, testContainers); err != nil {
			testContainers.Terminate(t)
			return nil, err
		}
	}

	if err := startMinIO(ctx, t, testContainers); err != nil {
		testContainers.Terminate(t)
		return nil, err
	}

	logMessage(t, "CRM testcontainers started successfully")
	return testContainers, nil
}

// StartMinIO starts a lone MinIO container without a database or a network.
func StartMinIO(t *testing.T) (*TestContainers, error) {
	testContainers := &TestContainers{}
	if err := startMinIO(context.Background(), t, testContainers); err != nil {
		testContainers.Terminate(t)
		return nil, err
	}
	return testContainers, nil
}

func startMinIO(ctx context.Context, t *testing.T, testContainers *TestContainers) error {
	image := os.Getenv("MINIO_IMAGE")
	if image == "" {
		image = defaultMinIOImage
	}
	port := nat.Port(minioPort)

	request := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{string(port)},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     AccessKey(),
			"MINIO_ROOT_PASSWORD": SecretKey(),
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort(port).WithStartupTimeout(60 * time.Second),
	}
	if testContainers.Network != nil {
		name := testContainers.Network.Name
		request.Networks = []string{name}
		request.NetworkAliases = map[string][]string{name: {"minio"}}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: request,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("start MinIO: %w", err)
	}
	testContainers.StorageContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return fmt.Errorf("MinIO host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return fmt.Errorf("MinIO port: %w", err)
	}
	testContainers.StorageEndpoint = fmt.Sprintf("http://%s:%s", host, mapped.Port())

	logMessage(t, "STORAGE_DRIVER=s3")
	logMessage(t, "STORAGE_ENDPOINT=%s", testContainers.StorageEndpoint)
	logMessage(t, "STORAGE_PATH_STYLE=true")
	logMessage(t, "STORAGE_HOST=%s:%s/%s", host, mapped.Port(), os.Getenv("STORAGE_BUCKET"))
	return nil
}

func startDatabase(ctx context.Context, t *testing.T, testContainers *TestContainers) error {
	dbType := os.Getenv("DB_TYPE")
	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = defaultDBPort(dbType)
	}
	tcpDbPort, err := nat.NewPort("tcp", dbPort)
	if err != nil {
		return fmt.Errorf("create DB port: %w", err)
	}

	var waitStrategy wait.Strategy = wait.ForListeningPort(tcpDbPort).WithStartupTimeout(60 * time.Second)
	if dbType == "postgres" {
		// postgres restarts once after running its init scripts
		waitStrategy = wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second)
	}

	name := testContainers.Network.Name
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{string(tcpDbPort)},
			Env:          getDBInitEnvMap(dbType),
			WaitingFor:   waitStrategy,
			Networks:     []string{name},
			NetworkAliases: map[string][]string{
				name: {"db"},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("start Database: %w", err)
	}
	testContainers.DBContainer = container

	host, _ := container.Host(ctx)
	mapped, _ := container.MappedPort(ctx, tcpDbPort)

	if dbType == "mysql" || dbType == "mariadb" {
		if err := waitForMySQL(host, mapped); err != nil {
			return err
		}
	}

	logMessage(t, "DB_HOST=%s", host)
	logMessage(t, "DB_PORT=%s", mapped.Port())
	return nil
}

func defaultDBPort(dbType string) string {
	if dbType == "postgres" {
		return "5432"
	}
	return "3306"
}

func getDBInitEnvMap(dbType string) map[string]string {
	switch dbType {
	case "postgres":
		return map[string]string{
			"POSTGRES_PASSWORD": os.Getenv("DB_PASSWORD"),
			"POSTGRES_USER":     os.Getenv("DB_USER"),
			"POSTGRES_DB":       os.Getenv("DB_DATABASE"),
		}
	default:
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": os.Getenv("DB_ROOT_PASSWORD"),
			"MYSQL_DATABASE":      os.Getenv("DB_DATABASE"),
			"MYSQL_USER":          os.Getenv("DB_USER"),
			"MYSQL_PASSWORD":      os.Getenv("DB_PASSWORD"),
		}
	}
}

// waitForMySQL pings until the app user can log in; the port opens before the grants land.
func waitForMySQL(host string, port nat.Port) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), host, port.Port(), os.Getenv("DB_DATABASE"))
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("connect to Database for setup: %w", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("database not ready after 30 seconds: %w", err)
}

// AccessKey is the MinIO root user, STORAGE_ACCESS_KEY when set.
func AccessKey() string {
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		return v
	}
	return "minioadmin"
}

// SecretKey is the MinIO root password, STORAGE_SECRET_KEY when set.
func SecretKey() string {
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		return v
	}
	return "minioadmin"
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
