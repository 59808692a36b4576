package models

import (
	"time"
)

// ImageData is a decoded specimen image together with where it came from.
type ImageData struct {
	Path     string
	Format   string
	Buffer   Buffer
	LoadTime time.Time
	Metadata ImageMetadata
}

// ImageMetadata contains additional information about the source file.
type ImageMetadata struct {
	FileSize   int64
	ColorModel string
}
