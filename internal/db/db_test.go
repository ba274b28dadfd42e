package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: DriverPostgres},
		{in: "PostgreSQL", want: DriverPostgres},
		{in: "pgx", want: DriverPostgres},
		{in: "sqlite3", want: DriverSQLite},
		{in: " sqlite ", want: DriverSQLite},
		{in: "mysql", wantErr: true},
	}
	for _, tc := range tests {
		got, err := NormalizeDriver(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestOpenSQLite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "open.db") + "?mode=rwc"
	conn, err := Open(context.Background(), DriverSQLite, dsn, DefaultConfig())
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 1, conn.Stats().MaxOpenConnections)
	var one int
	require.NoError(t, conn.QueryRow(`SELECT 1`).Scan(&one))
	assert.Equal(t, 1, one)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), DriverPostgres, " ", DefaultConfig())
	assert.Error(t, err)
}
