package engine_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"isdb/internal/db"
	"isdb/internal/domain"
	"isdb/internal/engine"
	"isdb/internal/metastore"
	"isdb/internal/tablestore"
)

func usersSchema() domain.TableSchema {
	return domain.TableSchema{Name: "users", Columns: []domain.ColumnSchema{
		{Name: "id", Type: domain.TypeInt64},
		{Name: "name", Type: domain.TypeText},
	}}
}

func setupEngine(t *testing.T) *engine.Engine {
	t.Helper()
	writeDB, readDB := db.OpenTestCatalog(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	meta := metastore.New(writeDB, readDB)
	tables, err := tablestore.Open(t.TempDir(), tablestore.NewSerializer(), nil, logger)
	require.NoError(t, err)

	return engine.New(meta, tables, logger)
}

func seedUsers(t *testing.T, e *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.CreateTable(ctx, usersSchema()))
	require.NoError(t, e.Insert(ctx, "users", []domain.Value{domain.Int64(1), domain.Text("ann")}))
	require.NoError(t, e.Insert(ctx, "users", []domain.Value{domain.Int64(2), domain.Text("bob")}))
}

func TestEngine_CreateInsertSelect(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	seedUsers(t, e)

	t.Run("full scan in insertion order", func(t *testing.T) {
		res, err := e.Select(ctx, "users", nil, 0)
		require.NoError(t, err)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, []domain.Value{domain.Int64(1), domain.Text("ann")}, res.Rows[0])
		assert.Equal(t, []domain.Value{domain.Int64(2), domain.Text("bob")}, res.Rows[1])
	})

	t.Run("comparison predicate", func(t *testing.T) {
		pred := &domain.Comparison{Op: domain.CompareGt,
			Left:  &domain.ColumnRef{Name: "id"},
			Right: &domain.Literal{Value: domain.Int64(1)}}
		res, err := e.Select(ctx, "users", pred, 0)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, []domain.Value{domain.Int64(2), domain.Text("bob")}, res.Rows[0])
	})

	t.Run("logical predicate", func(t *testing.T) {
		pred := &domain.Logical{Op: domain.LogicalOr,
			Left: &domain.Comparison{Op: domain.CompareEq,
				Left:  &domain.ColumnRef{Name: "name"},
				Right: &domain.Literal{Value: domain.Text("ann")}},
			Right: &domain.Comparison{Op: domain.CompareEq,
				Left:  &domain.ColumnRef{Name: "id"},
				Right: &domain.Literal{Value: domain.Int64(2)}},
		}
		res, err := e.Select(ctx, "users", pred, 0)
		require.NoError(t, err)
		assert.Len(t, res.Rows, 2)
	})

	t.Run("limit caps results", func(t *testing.T) {
		res, err := e.Select(ctx, "users", nil, 1)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, []domain.Value{domain.Int64(1), domain.Text("ann")}, res.Rows[0])
	})

	t.Run("no matches yields empty non-nil rows", func(t *testing.T) {
		pred := &domain.Comparison{Op: domain.CompareGt,
			Left:  &domain.ColumnRef{Name: "id"},
			Right: &domain.Literal{Value: domain.Int64(100)}}
		res, err := e.Select(ctx, "users", pred, 0)
		require.NoError(t, err)
		assert.NotNil(t, res.Rows)
		assert.Empty(t, res.Rows)
	})
}

func TestEngine_PredicateErrorAbortsQuery(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	seedUsers(t, e)

	pred := &domain.Comparison{Op: domain.CompareEq,
		Left:  &domain.ColumnRef{Name: "age"},
		Right: &domain.Literal{Value: domain.Int64(1)}}

	var unknown *domain.UnknownColumnError
	_, err := e.Select(ctx, "users", pred, 0)
	assert.ErrorAs(t, err, &unknown)
}

func TestEngine_CreateDuplicateLeavesDataIntact(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	seedUsers(t, e)

	var exists *domain.AlreadyExistsError
	err := e.CreateTable(ctx, usersSchema())
	require.ErrorAs(t, err, &exists)

	res, err := e.Select(ctx, "users", nil, 0)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestEngine_DropTable(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	seedUsers(t, e)

	require.NoError(t, e.DropTable(ctx, "users"))

	var notFound *domain.NotFoundError
	_, err := e.Select(ctx, "users", nil, 0)
	assert.ErrorAs(t, err, &notFound)
	assert.ErrorAs(t, e.Insert(ctx, "users", []domain.Value{domain.Int64(3), domain.Text("cat")}), &notFound)
	assert.ErrorAs(t, e.DropTable(ctx, "users"), &notFound)

	// The name is free for reuse with a different schema.
	other := domain.TableSchema{Name: "users", Columns: []domain.ColumnSchema{
		{Name: "email", Type: domain.TypeText},
	}}
	require.NoError(t, e.CreateTable(ctx, other))
	schema, rows, err := e.GetSchema(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, other, schema)
	assert.Equal(t, 0, rows)
}

func TestEngine_InsertValidation(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	seedUsers(t, e)

	var mismatch *domain.SchemaMismatchError
	err := e.Insert(ctx, "users", []domain.Value{domain.Text("two"), domain.Text("bob")})
	assert.ErrorAs(t, err, &mismatch)
	err = e.Insert(ctx, "users", []domain.Value{domain.Int64(3)})
	assert.ErrorAs(t, err, &mismatch)

	_, rows, err := e.GetSchema(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}

func TestEngine_ListTables(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()

	summaries, err := e.ListTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	seedUsers(t, e)
	require.NoError(t, e.CreateTable(ctx, domain.TableSchema{Name: "accounts", Columns: []domain.ColumnSchema{
		{Name: "id", Type: domain.TypeInt64},
	}}))

	summaries, err = e.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []engine.TableSummary{
		{Name: "accounts", Rows: 0},
		{Name: "users", Rows: 2},
	}, summaries)
}

func TestEngine_CopyFromCSV(t *testing.T) {
	ctx := context.Background()

	writeCSV := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "rows.csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("header supplies mapping", func(t *testing.T) {
		e := setupEngine(t)
		require.NoError(t, e.CreateTable(ctx, usersSchema()))

		path := writeCSV(t, "name,id\nann,1\nbob,2\n")
		n, err := e.CopyFromCSV(ctx, "users", path, nil, true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		res, err := e.Select(ctx, "users", nil, 0)
		require.NoError(t, err)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, []domain.Value{domain.Int64(1), domain.Text("ann")}, res.Rows[0])
	})

	t.Run("positional without header", func(t *testing.T) {
		e := setupEngine(t)
		require.NoError(t, e.CreateTable(ctx, usersSchema()))

		path := writeCSV(t, "1,ann\n2,bob\n")
		n, err := e.CopyFromCSV(ctx, "users", path, nil, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("explicit column list", func(t *testing.T) {
		e := setupEngine(t)
		require.NoError(t, e.CreateTable(ctx, usersSchema()))

		path := writeCSV(t, "ann,1\n")
		n, err := e.CopyFromCSV(ctx, "users", path, []string{"name", "id"}, false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		res, err := e.Select(ctx, "users", nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []domain.Value{domain.Int64(1), domain.Text("ann")}, res.Rows[0])
	})

	t.Run("bad int aborts whole load", func(t *testing.T) {
		e := setupEngine(t)
		require.NoError(t, e.CreateTable(ctx, usersSchema()))

		path := writeCSV(t, "1,ann\nnot-a-number,bob\n")
		var mismatch *domain.SchemaMismatchError
		_, err := e.CopyFromCSV(ctx, "users", path, nil, false)
		require.ErrorAs(t, err, &mismatch)

		_, rows, err := e.GetSchema(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})

	t.Run("unknown mapped column", func(t *testing.T) {
		e := setupEngine(t)
		require.NoError(t, e.CreateTable(ctx, usersSchema()))

		path := writeCSV(t, "1\n")
		var unknown *domain.UnknownColumnError
		_, err := e.CopyFromCSV(ctx, "users", path, []string{"age"}, false)
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("missing source file", func(t *testing.T) {
		e := setupEngine(t)
		require.NoError(t, e.CreateTable(ctx, usersSchema()))

		var notFound *domain.NotFoundError
		_, err := e.CopyFromCSV(ctx, "users", filepath.Join(t.TempDir(), "absent.csv"), nil, false)
		assert.ErrorAs(t, err, &notFound)
	})
}
