package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/astrogo/fitsio"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/scattering-tools/internal/metadata"
)

// FrameCache provides thread-safe caching of loaded detector frames to avoid
// redundant disk reads.
//
// Frames are keyed by the exact path string used to load them. Cached frames are
// shared between callers and must be treated as read-only; use Frame.Copy before
// modifying one.
//
// # Memory Management
//
// Cached frames remain in memory until explicitly removed via Evict() or Clear().
// A 2048x2048 detector frame takes 32 MiB as float64.
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]*Frame
}

// NewFrameCache creates an empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]*Frame),
	}
}

// Load retrieves a frame from the cache or reads it from disk if not cached.
//
// The format is chosen by file extension: ".fits", ".fit" and ".fts" are read as
// FITS primary images; everything else is decoded as a raster image.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file cannot be decoded
//   - Returns error if a FITS primary HDU is not a 2-D image
func (c *FrameCache) Load(path string) (*Frame, error) {
	c.mu.RLock()
	if f, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	format := formatOf(path)

	var f *Frame
	var err error
	if format == "fits" {
		f, err = loadFITS(path)
	} else {
		f, err = loadRaster(path)
	}
	if err != nil {
		return nil, err
	}

	f.Meta = metadata.New()
	_ = f.Meta.Set(metadata.NewValue(path), "source", "path")
	_ = f.Meta.Set(metadata.NewValue(format), "source", "format")
	_ = f.Meta.Set(metadata.NewValueWithUnits([2]int{f.Height, f.Width}, "pixels"), "detector", "shape")

	c.mu.Lock()
	c.frames[path] = f
	c.mu.Unlock()

	return f, nil
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*Frame)
	c.mu.Unlock()
}

// Evict removes a specific frame from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".tif", ".tiff":
		return "tiff"
	case ".bmp":
		return "bmp"
	case ".fits", ".fit", ".fts":
		return "fits"
	}
	return "unknown"
}

func loadRaster(path string) (*Frame, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return FromImage(img), nil
}

func loadFITS(path string) (*Frame, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer r.Close()

	file, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FITS file: %w", err)
	}
	defer file.Close()

	img, ok := file.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("FITS primary HDU is not an image")
	}

	axes := img.Header().Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("FITS image has %d axes, expected 2", len(axes))
	}

	// NAXIS1 is the fastest varying axis, i.e. the row length.
	pix, err := readFITSPixels(img, axes[0]*axes[1])
	if err != nil {
		return nil, fmt.Errorf("failed to read FITS image data: %w", err)
	}

	return NewFrameFrom(axes[0], axes[1], pix)
}

// readFITSPixels reads n pixels in the HDU's storage type and returns their
// physical values, BZERO + BSCALE*stored.
func readFITSPixels(img fitsio.Image, n int) ([]float64, error) {
	hdr := img.Header()
	zero, err := fitsScaling(hdr, "BZERO", 0)
	if err != nil {
		return nil, err
	}
	scale, err := fitsScaling(hdr, "BSCALE", 1)
	if err != nil {
		return nil, err
	}

	pix := make([]float64, n)
	switch bitpix := hdr.Bitpix(); bitpix {
	case 8:
		raw := make([]byte, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case -64:
		if err := img.Read(&pix); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}

	if zero != 0 || scale != 1 {
		for i, v := range pix {
			pix[i] = zero + scale*v
		}
	}
	return pix, nil
}

func fitsScaling(hdr *fitsio.Header, key string, def float64) (float64, error) {
	card := hdr.Get(key)
	if card == nil || card.Value == nil {
		return def, nil
	}
	switch v := card.Value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("FITS %s has unsupported type %T", key, card.Value)
}
