package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/respawn/internal/maintenance"
)

func newRequestsDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE requests (id TEXT PRIMARY KEY, metadata TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO requests (id, metadata) VALUES ('r1', '{"a":1}'), ('r2', NULL)`)
	require.NoError(t, err)
	return path
}

func readMetadata(t *testing.T, path, id string) sql.NullString {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var meta sql.NullString
	require.NoError(t, db.QueryRow(`SELECT metadata FROM requests WHERE id = ?`, id).Scan(&meta))
	return meta
}

func TestPatchRow(t *testing.T) {
	path := newRequestsDB(t)

	var out bytes.Buffer
	require.NoError(t, patchRow(context.Background(), path, "requests", "r1", false, &out))

	assert.Equal(t,
		"requests r1 before: {\"a\":1}\n"+
			"requests r1 after:  {\"a\":1,\"requestType\":\"federated\"}\n",
		out.String())
	assert.JSONEq(t, `{"a":1,"requestType":"federated"}`, readMetadata(t, path, "r1").String)
}

func TestPatchRow_JSON(t *testing.T) {
	path := newRequestsDB(t)

	var out bytes.Buffer
	require.NoError(t, patchRow(context.Background(), path, "requests", "r2", true, &out))

	var result maintenance.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.Found)
	assert.Equal(t, "r2", result.ID)
	assert.Empty(t, result.Before)
	assert.Equal(t, `{"requestType":"federated"}`, result.After)
	assert.Equal(t, int64(1), result.RowsAffected)
}

func TestPatchRow_MissingRow(t *testing.T) {
	path := newRequestsDB(t)

	var out bytes.Buffer
	require.NoError(t, patchRow(context.Background(), path, "requests", "nope", false, &out))
	assert.Equal(t, "requests nope: no such row, nothing changed\n", out.String())
	assert.Equal(t, `{"a":1}`, readMetadata(t, path, "r1").String)
}

func TestPatchRow_Errors(t *testing.T) {
	path := newRequestsDB(t)

	t.Run("empty id", func(t *testing.T) {
		err := patchRow(context.Background(), path, "requests", "", false, &bytes.Buffer{})
		assert.Error(t, err)
	})

	t.Run("missing database is not created", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.db")
		err := patchRow(context.Background(), missing, "requests", "r1", false, &bytes.Buffer{})
		require.Error(t, err)
		assert.NoFileExists(t, missing)
	})

	t.Run("bad table name", func(t *testing.T) {
		err := patchRow(context.Background(), path, "requests; DROP TABLE x", "r1", false, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
