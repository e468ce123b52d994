package detector

import (
	"fmt"
	"os"
	"strings"
)

// FrameInfo describes a loaded detector frame.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is the detected file format: "png", "jpeg", "gif", "tiff", "bmp",
	// "fits", or "unknown". Detection is based on file extension.
	Format string `json:"format"`

	// Stats summarises the finite intensities.
	Stats FrameStats `json:"stats"`

	// Metadata lists the metadata keys attached to the frame, dot-separated.
	Metadata []string `json:"metadata"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo loads a frame into the cache (if not already cached) and
// returns its dimensions, format, intensity statistics and metadata keys.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	f, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	info := &FrameInfo{
		Width:         f.Width,
		Height:        f.Height,
		Format:        formatOf(path),
		Stats:         f.Stats(),
		Metadata:      []string{},
		FileSizeBytes: stat.Size(),
	}
	if f.Meta != nil {
		for _, key := range f.Meta.Keys() {
			info.Metadata = append(info.Metadata, strings.Join(key, "."))
		}
	}
	return info, nil
}

// DimensionsResult contains the width and height of a frame.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of a frame, loading it into the cache if needed.
func GetDimensions(cache *FrameCache, path string) (*DimensionsResult, error) {
	f, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return &DimensionsResult{Width: f.Width, Height: f.Height}, nil
}
