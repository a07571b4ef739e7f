package mdedge_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/mdedge"
)

func TestCursor_RoundTrip(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.UTC)

	encoded := mdedge.EncodeCursor(createdAt, "docs/page one.html")
	cursor, err := mdedge.DecodeCursor(encoded)

	require.NoError(t, err)
	assert.True(t, createdAt.Equal(cursor.CreatedAt))
	assert.Equal(t, "docs/page one.html", cursor.Path)
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := mdedge.DecodeCursor("")

	require.NoError(t, err)
	assert.Equal(t, mdedge.Cursor{}, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	enc := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

	tests := map[string]string{
		"not base64":    "%%%",
		"no separator":  enc("2025-01-01T00:00:00Z"),
		"empty path":    enc("2025-01-01T00:00:00Z|"),
		"bad timestamp": enc("yesterday|a.html"),
	}

	for name, cursor := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := mdedge.DecodeCursor(cursor)
			assert.ErrorIs(t, err, mdedge.ErrInvalidInput)
		})
	}
}

func TestEscapeLikePattern(t *testing.T) {
	assert.Equal(t, `docs/100\%\_done\\x`, mdedge.EscapeLikePattern(`docs/100%_done\x`))
	assert.Equal(t, "plain/prefix", mdedge.EscapeLikePattern("plain/prefix"))
}

func TestTables_Validate(t *testing.T) {
	assert.NoError(t, mdedge.Tables{MetaData: "mdedge_objects"}.Validate())
	assert.Error(t, mdedge.Tables{}.Validate())
	assert.Error(t, mdedge.Tables{MetaData: "Bad-Name"}.Validate())
}
