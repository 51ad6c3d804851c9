package migration

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // 注册纯 Go SQLite 驱动
)

func TestParseDialect(t *testing.T) {
	cases := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"postgres", DialectPostgres, false},
		{"postgresql", DialectPostgres, false},
		{"pg", DialectPostgres, false},
		{"POSTGRES", DialectPostgres, false},
		{"mysql", DialectMySQL, false},
		{"mariadb", DialectMySQL, false},
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"oracle", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseDialect(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported database dialect")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewMigratorValidation(t *testing.T) {
	_, err := NewMigrator(Config{Dialect: DialectSQLite})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database DSN is required")

	_, err = NewMigrator(Config{Dialect: "oracle", DSN: "whatever"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database dialect")
}

func newSQLiteMigrator(t *testing.T) (*SQLMigrator, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metaexpert.db")
	m, err := NewMigrator(Config{Dialect: DialectSQLite, DSN: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, path
}

func TestMigratorUpCreatesRunsTable(t *testing.T) {
	m, path := newSQLiteMigrator(t)
	ctx := context.Background()

	require.NoError(t, m.Up(ctx))

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// 重复 Up 不报错。
	require.NoError(t, m.Up(ctx))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'runs'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "runs", name)

	// 建出的表能容纳完整的运行记录。
	_, err = db.Exec(`INSERT INTO runs
		(id, session_id, requirements, feedback, report, status, node_count, prompt_tokens, completion_tokens)
		VALUES ('run-1', 'sess-1', 'goal', '', 'report', 'done', 4, 120, 40)`)
	require.NoError(t, err)
}

func TestMigratorDownRollsBack(t *testing.T) {
	m, path := newSQLiteMigrator(t)
	ctx := context.Background()

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Down(ctx))

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'runs'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigratorStatus(t *testing.T) {
	m, _ := newSQLiteMigrator(t)
	ctx := context.Background()

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, uint(1), statuses[0].Version)
	assert.Equal(t, "create_runs", statuses[0].Name)
	assert.False(t, statuses[0].Applied)

	require.NoError(t, m.Up(ctx))

	statuses, err = m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)
	assert.False(t, statuses[0].Dirty)
}

func TestCLIRunUpAndStatus(t *testing.T) {
	m, _ := newSQLiteMigrator(t)
	ctx := context.Background()

	var buf bytes.Buffer
	cli := NewCLI(m)
	cli.SetOutput(&buf)

	require.NoError(t, cli.RunUp(ctx))
	assert.Contains(t, buf.String(), "Current version: 1")

	buf.Reset()
	require.NoError(t, cli.RunStatus(ctx))
	out := buf.String()
	assert.Contains(t, out, "create_runs")
	assert.Contains(t, out, "Applied")
	assert.Contains(t, out, "Applied 1 of 1 migrations.")

	buf.Reset()
	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, buf.String(), "Current version: 1")

	buf.Reset()
	require.NoError(t, cli.RunDown(ctx))
	assert.Contains(t, buf.String(), "Rollback complete. Current version: 0")

	buf.Reset()
	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, buf.String(), "No migrations applied yet.")
}
