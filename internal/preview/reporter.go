package preview

import (
	"log/slog"
	"time"

	draptolib "github.com/five82/drapto"

	"splice/internal/logging"
)

// encodeReporter routes drapto's progress stream into the structured log.
// Encoding progress is throttled so long encodes do not flood the output.
type encodeReporter struct {
	logger     *slog.Logger
	lastReport time.Time
}

func (r *encodeReporter) Hardware(draptolib.HardwareSummary) {}

func (r *encodeReporter) Initialization(s draptolib.InitializationSummary) {
	r.logger.Debug("proxy encode starting",
		logging.String("input", s.InputFile),
		logging.String("resolution", s.Resolution))
}

func (r *encodeReporter) StageProgress(s draptolib.StageProgress) {
	r.logger.Debug("proxy encode stage",
		logging.String("stage", s.Stage),
		logging.Float64("percent", float64(s.Percent)))
}

func (r *encodeReporter) CropResult(draptolib.CropSummary) {}

func (r *encodeReporter) EncodingConfig(s draptolib.EncodingConfigSummary) {
	r.logger.Debug("proxy encoder configured",
		logging.String("encoder", s.Encoder),
		logging.String("preset", s.Preset))
}

func (r *encodeReporter) EncodingStarted(totalFrames uint64) {
	r.logger.Debug("proxy encode started", logging.Int64("total_frames", int64(totalFrames)))
}

func (r *encodeReporter) EncodingProgress(s draptolib.ProgressSnapshot) {
	now := time.Now()
	if now.Sub(r.lastReport) < 5*time.Second {
		return
	}
	r.lastReport = now
	r.logger.Debug("proxy encode progress",
		logging.Float64("percent", float64(s.Percent)),
		logging.Float64("fps", float64(s.FPS)))
}

func (r *encodeReporter) ValidationComplete(s draptolib.ValidationSummary) {
	if !s.Passed {
		r.logger.Warn("proxy validation failed")
	}
}

func (r *encodeReporter) EncodingComplete(s draptolib.EncodingOutcome) {
	r.logger.Debug("proxy encode complete", logging.String("output", s.OutputPath))
}

func (r *encodeReporter) Warning(message string) {
	r.logger.Warn("proxy encoder warning", logging.String("message", message))
}

func (r *encodeReporter) Error(e draptolib.ReporterError) {
	r.logger.Warn("proxy encoder error",
		logging.String("title", e.Title),
		logging.String("message", e.Message))
}

func (r *encodeReporter) OperationComplete(string) {}

func (r *encodeReporter) BatchStarted(draptolib.BatchStartInfo) {}

func (r *encodeReporter) FileProgress(draptolib.FileProgressContext) {}

func (r *encodeReporter) BatchComplete(draptolib.BatchSummary) {}

var _ draptolib.Reporter = (*encodeReporter)(nil)
