package export

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Writer stores rendered images as PNG files.
type Writer struct {
	outputDir string
	prefix    string
}

// NewWriter creates a writer for outputDir using prefix for generated names.
func NewWriter(outputDir, prefix string) *Writer {
	return &Writer{
		outputDir: outputDir,
		prefix:    prefix,
	}
}

// SetOutputDir sets the output directory.
func (w *Writer) SetOutputDir(dir string) {
	w.outputDir = dir
}

// TimestampedName generates a file name like "mesh_2006-01-02_15-04-05.png".
func (w *Writer) TimestampedName() string {
	return w.path(fmt.Sprintf("%s_%s.png", w.prefix, time.Now().Format("2006-01-02_15-04-05")))
}

// FrameName returns the file name of frame i in a sequence.
func (w *Writer) FrameName(i int) string {
	return w.path(fmt.Sprintf("%s_%05d.png", w.prefix, i))
}

func (w *Writer) path(name string) string {
	if w.outputDir != "" {
		return filepath.Join(w.outputDir, name)
	}
	return name
}

// Write encodes img to filename, creating the output directory if needed.
func (w *Writer) Write(img image.Image, filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return file.Close()
}

// WriteImage writes img under a timestamped name and returns the path.
func (w *Writer) WriteImage(img image.Image) (string, error) {
	filename := w.TimestampedName()
	if err := w.Write(img, filename); err != nil {
		return "", err
	}
	return filename, nil
}

// WritePixels stores raw RGBA framebuffer rows under a timestamped name.
// The rows are flipped vertically since OpenGL has origin at bottom-left.
func (w *Writer) WritePixels(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		srcOffset := (height - 1 - y) * rowSize
		dstOffset := y * img.Stride
		copy(img.Pix[dstOffset:dstOffset+rowSize], pixels[srcOffset:srcOffset+rowSize])
	}

	return w.WriteImage(img)
}
