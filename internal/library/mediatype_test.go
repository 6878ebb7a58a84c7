package library_test

import (
	"testing"

	"splice/internal/library"
)

func TestTypeForPath(t *testing.T) {
	cases := []struct {
		path string
		want library.MediaType
	}{
		{"intro.mp4", library.TypeVideo},
		{"/media/b-roll/drone.MOV", library.TypeVideo},
		{"podcast.flac", library.TypeAudio},
		{"voiceover.M4A", library.TypeAudio},
		{"thumb.jpeg", library.TypeImage},
		{"logo.webp", library.TypeImage},
		{"captions.srt", library.TypeText},
		{"notes.txt", library.TypeText},
		{"archive.zip", library.TypeUnknown},
		{"noextension", library.TypeUnknown},
		{"", library.TypeUnknown},
	}

	for _, tc := range cases {
		if got := library.TypeForPath(tc.path); got != tc.want {
			t.Errorf("TypeForPath(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

func TestMIMEForPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"clip.mp4", "video/mp4"},
		{"clip.MKV", "video/x-matroska"},
		{"track.mp3", "audio/mpeg"},
		{"frame.png", "image/png"},
		{"unknown.bin", "application/octet-stream"},
	}

	for _, tc := range cases {
		if got := library.MIMEForPath(tc.path); got != tc.want {
			t.Errorf("MIMEForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestSupportedPath(t *testing.T) {
	if !library.SupportedPath("cut.webm") {
		t.Error("expected .webm to be supported")
	}
	if library.SupportedPath("build.exe") {
		t.Error("expected .exe to be unsupported")
	}
}
