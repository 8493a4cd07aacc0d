package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewStore(filepath.Join(t.TempDir(), "pieces.json"), logger), hook
}

func TestLoadMissingFile(t *testing.T) {
	store, _ := newTestStore(t)

	pieces, result := store.Load()
	assert.Empty(t, pieces)
	assert.Equal(t, LoadMissing, result.Status)
	assert.NoError(t, result.Err)
}

func TestLoadCorruptFile(t *testing.T) {
	store, hook := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	pieces, result := store.Load()
	assert.Empty(t, pieces)
	assert.Equal(t, LoadCorrupt, result.Status)
	assert.Error(t, result.Err)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLoadDropsIncompleteEntries(t *testing.T) {
	store, _ := newTestStore(t)
	content := `[
		{"aruco_id": "3", "model": "M8 bolt", "type": "Macho"},
		{"aruco_id": "4", "model": "no type"},
		{"model": "no id", "type": "Hembra"},
		{"aruco_id": 9, "model": "numeric id", "type": "Ensamblada"}
	]`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0644))

	pieces, result := store.Load()
	assert.Equal(t, LoadOK, result.Status)
	assert.Equal(t, 2, result.Dropped)
	assert.Equal(t, []Piece{
		{MarkerID: "3", Model: "M8 bolt", Type: TypeMale},
		{MarkerID: "9", Model: "numeric id", Type: TypeAssembled},
	}, pieces)
}

func TestUpsertAppendsAndReplaces(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Upsert("7", "Gear A", TypeMale)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Upsert("12", "Gear B", TypeFemale)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Upsert("7", "Gear A v2", TypeAssembled)
	require.NoError(t, err)
	assert.False(t, created)

	pieces, result := store.Load()
	require.Equal(t, LoadOK, result.Status)
	assert.Equal(t, []Piece{
		{MarkerID: "7", Model: "Gear A v2", Type: TypeAssembled},
		{MarkerID: "12", Model: "Gear B", Type: TypeFemale},
	}, pieces)
}

func TestUpsertValidation(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		name  string
		id    string
		model string
		typ   PieceType
	}{
		{"missing id", "  ", "model", TypeMale},
		{"missing model", "4", "", TypeMale},
		{"unknown type", "4", "model", PieceType("Other")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Upsert(tt.id, tt.model, tt.typ)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPiece))
		})
	}

	_, err := os.Stat(store.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist), "rejected upserts must not write")
}

func TestFileFormat(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Upsert("5", "Housing", TypeFemale)
	require.NoError(t, err)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var raw []map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []map[string]string{{"aruco_id": "5", "model": "Housing", "type": "Hembra"}}, raw)
	assert.Contains(t, string(data), "\n    {")
}

func TestDeleteRemovesExactlyNamed(t *testing.T) {
	store, _ := newTestStore(t)
	for _, id := range []string{"1", "2", "3", "4"} {
		_, err := store.Upsert(id, "part "+id, TypeMale)
		require.NoError(t, err)
	}

	removed, err := store.Delete("2", "4", "99")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	pieces, _ := store.Load()
	assert.Equal(t, []Piece{
		{MarkerID: "1", Model: "part 1", Type: TypeMale},
		{MarkerID: "3", Model: "part 3", Type: TypeMale},
	}, pieces)
}

func TestDeleteNothing(t *testing.T) {
	store, _ := newTestStore(t)
	removed, err := store.Delete()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestIndex(t *testing.T) {
	index := Index([]Piece{
		{MarkerID: "1", Model: "a", Type: TypeMale},
		{MarkerID: "2", Model: "b", Type: TypeFemale},
	})
	assert.Len(t, index, 2)
	assert.Equal(t, "b", index["2"].Model)
	_, ok := index["3"]
	assert.False(t, ok)
}

func TestLoadStatusString(t *testing.T) {
	assert.Equal(t, "ok", LoadOK.String())
	assert.Equal(t, "missing", LoadMissing.String())
	assert.Equal(t, "corrupt", LoadCorrupt.String())
}

func TestMutationsKeepUnlistedEntries(t *testing.T) {
	store, _ := newTestStore(t)
	content := `[
		{"aruco_id": "1", "model": "a", "type": "Macho"},
		{"aruco_id": "2", "model": "b"},
		{"aruco_id": 7, "model": "c", "type": "Hembra", "note": "shelf 3"}
	]`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0644))

	removed, err := store.Delete("1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	created, err := store.Upsert("9", "d", TypeAssembled)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []map[string]interface{}{
		{"aruco_id": "2", "model": "b"},
		{"aruco_id": float64(7), "model": "c", "type": "Hembra", "note": "shelf 3"},
		{"aruco_id": "9", "model": "d", "type": "Ensamblada"},
	}, raw)

	// Updating a numeric entry keeps its ID and extra fields as written.
	created, err = store.Upsert("7", "c2", TypeMale)
	require.NoError(t, err)
	assert.False(t, created)

	data, err = os.ReadFile(store.Path())
	require.NoError(t, err)
	raw = nil
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.Equal(t, map[string]interface{}{"aruco_id": float64(7), "model": "c2", "type": "Macho", "note": "shelf 3"}, raw[1])
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"7", "7"},
		{"07", "7"},
		{" 12 ", "12"},
		{"-3", "-3"},
		{"A-1", "A-1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeID(tt.in), "input %q", tt.in)
	}
}

func TestUpsertNormalizesNumericIDs(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Upsert("07", "Gear", TypeMale)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Upsert("7", "Gear v2", TypeFemale)
	require.NoError(t, err)
	assert.False(t, created, "07 and 7 name the same marker")

	pieces, _ := store.Load()
	assert.Equal(t, []Piece{{MarkerID: "7", Model: "Gear v2", Type: TypeFemale}}, pieces)
	_, ok := Index(pieces)["7"]
	assert.True(t, ok)

	removed, err := store.Delete("007")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
