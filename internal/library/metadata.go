package library

// Metadata captures the decoded characteristics of a media item's bytes.
// It is attached when an item reaches ready and dropped when it leaves.
type Metadata struct {
	Width           int
	Height          int
	DurationSeconds float64
	DurationFrames  int64
	FrameRate       float64
	VideoCodec      string
	AudioCodec      string
	Container       string
	SizeBytes       int64
	HasVideo        bool
	HasAudio        bool
}

// impliedType derives a media type from the decoded streams for items whose
// extension did not classify them.
func (m *Metadata) impliedType() MediaType {
	switch {
	case m.HasVideo:
		return TypeVideo
	case m.HasAudio:
		return TypeAudio
	default:
		return TypeUnknown
	}
}

func (m *Metadata) clone() *Metadata {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}
