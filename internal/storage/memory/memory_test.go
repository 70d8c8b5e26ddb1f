package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/tacmap/relay/internal/model"
)

func TestRecordAndExport(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutputDir: dir})
	require.NoError(t, b.Init())

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, b.StartSession("Evening Session", start))

	for i := 0; i < 3; i++ {
		err := b.RecordEvent(&model.SessionEvent{
			Origin:  "c1",
			Type:    "placePin",
			Payload: datatypes.JSON(`{"placementId":"p1"}`),
			Lat:     28.6,
			Lon:     77.2,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, b.EventCount())

	require.NoError(t, b.EndSession(start.Add(time.Hour)))

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "Evening_Session_20260801_100000.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var export struct {
		Session model.Session        `json:"session"`
		Events  []model.SessionEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Equal(t, "Evening Session", export.Session.Name)
	require.Len(t, export.Events, 3)
	assert.Equal(t, uint64(1), export.Events[0].Seq)
	assert.Equal(t, uint64(3), export.Events[2].Seq)
	assert.Equal(t, "placePin", export.Events[0].Type)
}

func TestExportCompressed(t *testing.T) {
	dir := t.TempDir()
	b := New(Config{OutputDir: dir, CompressOutput: true})

	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, b.StartSession("s", start))
	require.NoError(t, b.EndSession(start))

	f, err := os.Open(b.ExportedFilePath())
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export map[string]any
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Contains(t, export, "session")
	assert.Contains(t, export, "events")
}

func TestStartSessionResets(t *testing.T) {
	b := New(Config{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession("one", time.Now()))
	require.NoError(t, b.RecordEvent(&model.SessionEvent{Type: "chatMessage"}))

	require.NoError(t, b.StartSession("two", time.Now()))
	assert.Zero(t, b.EventCount())

	require.NoError(t, b.RecordEvent(&model.SessionEvent{Type: "placePin"}))
	e := &model.SessionEvent{Type: "placeShape"}
	require.NoError(t, b.RecordEvent(e))
	assert.Equal(t, uint64(2), e.Seq, "sequence restarts with the session")
}
