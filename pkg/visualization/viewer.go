// Package visualization writes slices of scalar maps derived from ODF
// images, such as generalized fractional anisotropy, as grayscale images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"shodf/internal/models"
)

// Viewer extracts 2D slices from a 3D scalar map
type Viewer struct {
	// volume holds the scalar map, axis 0 fastest
	volume *models.ScalarVolume

	// maxValue is mapped to full white; values are clamped to [0, maxValue]
	maxValue float64
}

// NewViewer creates a viewer for the given map. A non-positive maxValue
// selects the largest value in the map.
func NewViewer(volume *models.ScalarVolume, maxValue float64) *Viewer {
	if maxValue <= 0 {
		for _, v := range volume.Data {
			maxValue = math.Max(maxValue, v)
		}
		if maxValue == 0 {
			maxValue = 1
		}
	}
	return &Viewer{volume: volume, maxValue: maxValue}
}

func (v *Viewer) gray(value float64) color.Gray16 {
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, value/v.maxValue*65535)))}
}

// ExtractSlice extracts a 2D slice perpendicular to the given axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	size := v.volume.Geometry.Size
	width, height, depth := size[0], size[1], size[2]

	var img *image.Gray16

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, width)
		}
		img = image.NewGray16(image.Rect(0, 0, depth, height))
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				img.SetGray16(z, y, v.gray(v.volume.At(position, y, z)))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, height)
		}
		img = image.NewGray16(image.Rect(0, 0, width, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, z, v.gray(v.volume.At(x, position, z)))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, depth)
		}
		img = image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, y, v.gray(v.volume.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) (int, error) {
	var maxPos int
	size := v.volume.Geometry.Size
	switch axis {
	case "x", "X":
		maxPos = size[0]
	case "y", "Y":
		maxPos = size[1]
	case "z", "Z":
		maxPos = size[2]
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return maxPos, nil
}
