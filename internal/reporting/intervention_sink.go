// internal/reporting/intervention_sink.go
// Package reporting hands terminal escalations off to the outside world. The
// file sink writes one JSON record (plus the screenshot) per intervention; a
// human or an external queue picks them up from there.
package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileSink implements schemas.InterventionSink on the local filesystem.
type FileSink struct {
	dir    string
	logger *zap.Logger
}

// NewFileSink ensures the output directory exists.
func NewFileSink(dir string, logger *zap.Logger) (*FileSink, error) {
	if dir == "" {
		dir = "interventions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create intervention directory %s: %w", dir, err)
	}
	return &FileSink{dir: dir, logger: logger.Named("intervention_sink")}, nil
}

// Emit writes the screenshot first (so the record can reference it), then the
// intervention record itself. Emit never blocks on human resolution.
func (s *FileSink) Emit(ctx context.Context, iv schemas.Intervention, screenshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(screenshot) > 0 {
		shotPath := filepath.Join(s.dir, iv.ID+".png")
		if err := os.WriteFile(shotPath, screenshot, 0o644); err != nil {
			s.logger.Warn("Failed to write intervention screenshot", zap.Error(err))
		} else {
			iv.ScreenshotRef = shotPath
		}
	}

	payload, err := json.MarshalIndent(iv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize intervention %s: %w", iv.ID, err)
	}

	recordPath := filepath.Join(s.dir, iv.ID+".json")
	if err := os.WriteFile(recordPath, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write intervention record: %w", err)
	}

	s.logger.Info("Intervention written",
		zap.String("intervention_id", iv.ID),
		zap.String("type", string(iv.InterventionType)),
		zap.String("path", recordPath),
	)
	return nil
}
