// Package detector provides the in-memory representation of 2-D detector frames
// and pixel masks used throughout the scattering tools.
//
// A Frame is a row-major grid of float64 intensities. A Mask is a grid of the same
// shape where true marks a pixel that should be kept and false marks a pixel that
// is excluded from aggregation and statistics.
//
// # Coordinate System
//
// Pixels are addressed as (x, y) with 0-based indices:
//   - X: column (0 = leftmost pixel)
//   - Y: row (0 = topmost pixel)
//
// Shape reports the same extent as (Rows, Cols), which is the order used by the
// geometry and projection packages.
//
// # Shape Contract
//
// Every operation that combines frames, masks or coordinate maps requires them to
// have identical shapes. A mismatch is reported as ErrShapeMismatch; nothing is
// broadcast or truncated.
//
// # Loading Frames
//
// FrameCache reads frames from disk. PNG, JPEG, GIF, TIFF and BMP files are
// decoded with github.com/disintegration/imaging and converted to 16-bit gray
// intensities. FITS files are read with github.com/astrogo/fitsio, keeping the
// stored numeric values.
//
// # Thread Safety
//
// FrameCache is safe for concurrent use. Frames and masks are plain values; callers
// that share one across goroutines must not mutate it.
package detector
