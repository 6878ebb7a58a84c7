package ffprobe_test

import (
	"encoding/json"
	"math"
	"testing"

	"splice/internal/media/ffprobe"
)

const samplePayload = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "30000/1001",
      "r_frame_rate": "30000/1001",
      "nb_frames": "300"
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "sample_rate": "48000",
      "channels": 2
    }
  ],
  "format": {
    "filename": "clip.mp4",
    "nb_streams": 2,
    "duration": "10.010000",
    "size": "1048576",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2"
  }
}`

func decodeSample(t *testing.T) ffprobe.Result {
	t.Helper()
	var result ffprobe.Result
	if err := json.Unmarshal([]byte(samplePayload), &result); err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	return result
}

func TestResultStreamHelpers(t *testing.T) {
	result := decodeSample(t)

	if got := result.VideoStreamCount(); got != 1 {
		t.Fatalf("expected 1 video stream, got %d", got)
	}
	if got := result.AudioStreamCount(); got != 1 {
		t.Fatalf("expected 1 audio stream, got %d", got)
	}
	video := result.FirstVideoStream()
	if video == nil || video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected video stream: %+v", video)
	}
	if rate := result.FrameRate(); math.Abs(rate-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %g", rate)
	}
}

func TestResultMetadata(t *testing.T) {
	result := decodeSample(t)
	md := result.Metadata("clip.mp4")

	if !md.HasVideo || !md.HasAudio {
		t.Fatalf("expected both streams flagged, got %+v", md)
	}
	if md.VideoCodec != "h264" || md.AudioCodec != "aac" {
		t.Fatalf("unexpected codecs: %+v", md)
	}
	if md.DurationFrames != 300 {
		t.Fatalf("expected nb_frames to win, got %d", md.DurationFrames)
	}
	if md.SizeBytes != 1048576 {
		t.Fatalf("unexpected size %d", md.SizeBytes)
	}
	if math.Abs(md.DurationSeconds-10.01) > 0.001 {
		t.Fatalf("unexpected duration %g", md.DurationSeconds)
	}
}

func TestMetadataDerivesFrameCount(t *testing.T) {
	result := decodeSample(t)
	result.Streams[0].NBFrames = ""
	md := result.Metadata("clip.mp4")
	if md.DurationFrames != 300 {
		t.Fatalf("expected derived frame count 300, got %d", md.DurationFrames)
	}
}

func TestMetadataAudioOnly(t *testing.T) {
	result := decodeSample(t)
	result.Streams = result.Streams[1:]
	md := result.Metadata("song.m4a")
	if md.HasVideo {
		t.Fatal("audio-only file should not report video")
	}
	if md.FrameRate != 0 || md.DurationFrames != 0 {
		t.Fatalf("audio-only file should carry no frame data: %+v", md)
	}
}
