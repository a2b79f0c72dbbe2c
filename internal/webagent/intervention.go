// internal/webagent/intervention.go
package webagent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
)

// interventionEmitter guarantees at-most-once escalation per session.
type interventionEmitter struct {
	sink    schemas.InterventionSink
	emitted bool
	logger  *zap.Logger
}

func newInterventionEmitter(sink schemas.InterventionSink, logger *zap.Logger) *interventionEmitter {
	return &interventionEmitter{sink: sink, logger: logger.Named("intervention")}
}

// emit builds and publishes one intervention record. Later calls in the same
// session are dropped. Sink failures are logged, never propagated; failing to
// escalate must not mask the session's terminal result.
func (ie *interventionEmitter) emit(
	ctx context.Context,
	ivType schemas.InterventionType,
	url string,
	history []schemas.ActionRecord,
	last schemas.PageUnderstanding,
	screenshot []byte,
	suggested string,
) {
	if ie.emitted || ie.sink == nil {
		return
	}
	ie.emitted = true

	iv := schemas.Intervention{
		ID:                uuid.NewString(),
		InterventionType:  ivType,
		URL:               url,
		ActionHistory:     history,
		LastUnderstanding: &last,
		SuggestedAction:   suggested,
		Timestamp:         time.Now().UTC(),
	}

	if err := ie.sink.Emit(ctx, iv, screenshot); err != nil {
		ie.logger.Error("Failed to emit intervention",
			zap.String("intervention_id", iv.ID),
			zap.String("type", string(ivType)),
			zap.Error(err),
		)
		return
	}
	ie.logger.Info("Intervention emitted",
		zap.String("intervention_id", iv.ID),
		zap.String("type", string(ivType)),
		zap.String("url", url),
	)
}
