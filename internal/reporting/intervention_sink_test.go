// internal/reporting/intervention_sink_test.go
package reporting

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

func TestFileSinkWritesRecordAndScreenshot(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	iv := schemas.Intervention{
		ID:               "iv-123",
		InterventionType: schemas.InterventionStuck,
		URL:              "https://pets.example.com/category/hamsters",
		SuggestedAction:  "inspect the page manually",
		Timestamp:        time.Now().UTC(),
	}
	screenshot := []byte{0x89, 'P', 'N', 'G'}

	require.NoError(t, sink.Emit(context.Background(), iv, screenshot))

	shot, err := os.ReadFile(filepath.Join(dir, "iv-123.png"))
	require.NoError(t, err)
	assert.Equal(t, screenshot, shot)

	raw, err := os.ReadFile(filepath.Join(dir, "iv-123.json"))
	require.NoError(t, err)
	var stored schemas.Intervention
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, iv.ID, stored.ID)
	assert.Equal(t, schemas.InterventionStuck, stored.InterventionType)
	assert.Equal(t, filepath.Join(dir, "iv-123.png"), stored.ScreenshotRef, "record must reference the screenshot it was written with")
}

func TestFileSinkNoScreenshot(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, zaptest.NewLogger(t))
	require.NoError(t, err)

	iv := schemas.Intervention{ID: "iv-456", InterventionType: schemas.InterventionBlocked}
	require.NoError(t, sink.Emit(context.Background(), iv, nil))

	_, err = os.Stat(filepath.Join(dir, "iv-456.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "iv-456.json"))
	assert.NoError(t, err)
}

func TestFileSinkCanceledContext(t *testing.T) {
	sink, err := NewFileSink(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = sink.Emit(ctx, schemas.Intervention{ID: "iv-789"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
