package dataset

import (
	"path/filepath"
	"strings"
)

// Sample is one benchmark entry: an image and the text a reader sees in it
type Sample struct {
	// Primary key
	ID string `json:"id" parquet:"id"`

	// Image is a path (relative to the dataset file) or an http(s) URL
	Image string `json:"image" parquet:"image"`

	// Ground truth transcription; empty for blank images
	Expected string `json:"expected" parquet:"expected"`

	Language string   `json:"language,omitempty" parquet:"language"`
	Tags     []string `json:"tags,omitempty" parquet:"tags,list"`
}

// IsRemote reports whether the image must be downloaded
func (s *Sample) IsRemote() bool {
	return strings.HasPrefix(s.Image, "http://") || strings.HasPrefix(s.Image, "https://")
}

// ImagePath resolves a local image relative to the dataset directory
func (s *Sample) ImagePath(datasetDir string) string {
	if s.IsRemote() || filepath.IsAbs(s.Image) {
		return s.Image
	}
	return filepath.Join(datasetDir, s.Image)
}

// HasTag reports whether the sample carries tag
func (s *Sample) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
