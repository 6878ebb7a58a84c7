package session

import (
	"context"
	"os"

	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/media/ffprobe"
)

// scheduleDecode probes the acquired file in the background and completes
// decoding. Called from the item's transition callback, so the probe itself
// runs in a goroutine.
func (m *Manager) scheduleDecode(item *library.Item) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.decode(m.ctx, item)
	}()
}

func (m *Manager) decode(ctx context.Context, item *library.Item) {
	path := item.Source().Path()
	logger := m.logger.With(logging.String(logging.FieldMediaID, item.ID()))

	md, err := m.probe(ctx, item, path)
	if err != nil {
		logger.Warn("metadata decode failed", logging.Error(err))
		if terr := item.TransitionTo(library.StatusError, library.ErrorContext{Message: err.Error()}); terr != nil {
			logger.Warn("decode failure transition refused", logging.Error(terr))
		}
		return
	}

	if err := item.CompleteDecoding(md); err != nil {
		// The item moved on while we probed (cancel or error); nothing to do.
		logger.Debug("decode result discarded", logging.Error(err))
		return
	}
	logger.Info("media ready",
		logging.String("name", item.Name()),
		logging.Int64("duration_frames", md.DurationFrames))
}

// probe extracts stream metadata. Text media has no streams to inspect; it
// gets size-only metadata from a stat.
func (m *Manager) probe(ctx context.Context, item *library.Item, path string) (*library.Metadata, error) {
	if item.MediaType() == library.TypeText {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		return &library.Metadata{SizeBytes: info.Size()}, nil
	}

	result, err := ffprobe.Inspect(ctx, m.cfg.FFprobeBinary(), path)
	if err != nil {
		return nil, err
	}
	return result.Metadata(path), nil
}
