package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sagarc03/mdedge"
	"github.com/sagarc03/mdedge/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestDB opens an in-memory database with a unique, migrated table.
func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	ctx := context.Background()

	tables := mdedge.Tables{MetaData: "metadata_" + getRandomString(t)}

	db, err := sqlite.Connect(ctx, ":memory:", tables)
	require.NoError(t, err, "connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "migrate")
	return db
}

func entry(path string) mdedge.ObjectEntry {
	return mdedge.ObjectEntry{
		Path:        path,
		Size:        int64(len(path)),
		ETag:        "etag-" + path,
		ContentType: mdedge.DetectContentType(path),
	}
}
