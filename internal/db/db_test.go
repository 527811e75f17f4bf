package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"os"
	"os/exec"
	"testing"

	"order-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "localhost",
		DBUser:     "orders",
		DBPassword: "secret",
		DBName:     "order_db",
		DBPort:     "5432",
	}

	expected := "host=localhost user=orders password=secret dbname=order_db port=5432 sslmode=disable"
	assert.Equal(t, expected, buildDSN(cfg))
}

func TestNewDatabase_InvalidDriver(t *testing.T) {
	db, err := newDatabaseWithDriver(&config.Config{}, "invalid_driver_name")

	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to connect to DB")
}

func TestNewDatabase_PingFailure(t *testing.T) {
	db, err := newDatabaseWithDriver(&config.Config{}, "mock_driver_failing_ping")

	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to ping DB")
}

func TestInitDB_Failure(t *testing.T) {
	// InitDB exits the process, so run it in a child test binary.
	if os.Getenv("BE_CRASHER") == "1" {
		InitDB(&config.Config{DBHost: "127.0.0.1", DBPort: "1"})
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestInitDB_Failure")
	cmd.Env = append(os.Environ(), "BE_CRASHER=1")
	err := cmd.Run()

	if e, ok := err.(*exec.ExitError); ok && !e.Success() {
		return
	}
	t.Fatalf("process ran with err %v, want exit status 1", err)
}

// --- fake drivers ---

type mockDriver struct{ pingErr error }

func (m *mockDriver) Open(name string) (driver.Conn, error) {
	return &mockConn{pingErr: m.pingErr}, nil
}

type mockConn struct{ pingErr error }

func (c *mockConn) Prepare(query string) (driver.Stmt, error) { return &mockStmt{}, nil }
func (c *mockConn) Close() error                              { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                 { return nil, nil }

func (c *mockConn) Ping(ctx context.Context) error { return c.pingErr }

type mockStmt struct{}

func (s *mockStmt) Close() error                                    { return nil }
func (s *mockStmt) NumInput() int                                   { return 0 }
func (s *mockStmt) Exec(args []driver.Value) (driver.Result, error) { return nil, nil }
func (s *mockStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, nil }

func init() {
	sql.Register("mock_driver_success", &mockDriver{})
	sql.Register("mock_driver_failing_ping", &mockDriver{pingErr: errors.New("connection refused")})
}

func TestNewDatabase_Success(t *testing.T) {
	db, err := newDatabaseWithDriver(&config.Config{DBHost: "localhost"}, "mock_driver_success")
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	assert.Equal(t, 25, db.Stats().MaxOpenConnections)
}
