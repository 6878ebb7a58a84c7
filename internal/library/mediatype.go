package library

import (
	"path/filepath"
	"strings"
)

// MediaType classifies what kind of media a file holds. Classification starts
// from the file extension and is refined from probe results once decoding
// completes.
type MediaType string

const (
	TypeVideo   MediaType = "video"
	TypeAudio   MediaType = "audio"
	TypeImage   MediaType = "image"
	TypeText    MediaType = "text"
	TypeUnknown MediaType = "unknown"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".wmv": {},
	".flv": {}, ".webm": {}, ".m4v": {}, ".3gp": {},
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".aac": {}, ".flac": {}, ".ogg": {},
	".m4a": {}, ".wma": {},
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {},
	".webp": {}, ".svg": {}, ".tiff": {},
}

var textExtensions = map[string]struct{}{
	".srt": {}, ".vtt": {}, ".ass": {}, ".txt": {},
}

var mimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".avi":  "video/avi",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/mp4",
	".3gp":  "video/3gpp",

	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".wma":  "audio/x-ms-wma",

	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".tiff": "image/tiff",

	".srt": "application/x-subrip",
	".vtt": "text/vtt",
	".ass": "text/plain",
	".txt": "text/plain",
}

// TypeForPath classifies a file by its extension.
func TypeForPath(path string) MediaType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case hasExt(videoExtensions, ext):
		return TypeVideo
	case hasExt(audioExtensions, ext):
		return TypeAudio
	case hasExt(imageExtensions, ext):
		return TypeImage
	case hasExt(textExtensions, ext):
		return TypeText
	default:
		return TypeUnknown
	}
}

// MIMEForPath returns the MIME type for a file extension, falling back to
// application/octet-stream for anything unrecognized.
func MIMEForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// SupportedPath reports whether the extension belongs to a known media type.
func SupportedPath(path string) bool {
	return TypeForPath(path) != TypeUnknown
}

func hasExt(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}
