package stream

import (
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/webp"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExts are the still image file types read by ImageSequence
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// ImageSequence plays a directory of still images as a stream, in file name
// order.  Images are rotated according to their EXIF orientation.
type ImageSequence struct {
	files []string
	next  int
	size  image.Point
	fps   float64
}

// OpenImageSequence lists the images in dir.  The fps is reported as the
// sequence frame rate.
func OpenImageSequence(dir string, fps float64) (*ImageSequence, error) {

	entries, err := os.ReadDir(dir)

	if err != nil {
		return nil, errors.Wrapf(err, "error reading image directory %s", dir)
	}

	s := &ImageSequence{fps: fps}

	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}

		s.files = append(s.files, filepath.Join(dir, e.Name()))
	}

	if len(s.files) == 0 {
		return nil, errors.Errorf("no images found in %s", dir)
	}

	sort.Strings(s.files)

	// frame size is taken from the first image
	first, err := imaging.Open(s.files[0], imaging.AutoOrientation(true))

	if err != nil {
		return nil, errors.Wrapf(err, "error decoding %s", s.files[0])
	}

	s.size = first.Bounds().Size()

	return s, nil
}

// Read decodes the next image into dst as a BGR Mat
func (s *ImageSequence) Read(dst *gocv.Mat) error {

	if s.next >= len(s.files) {
		return io.EOF
	}

	file := s.files[s.next]
	s.next++

	img, err := imaging.Open(file, imaging.AutoOrientation(true))

	if err != nil {
		return errors.Wrapf(err, "error decoding %s", file)
	}

	mat, err := gocv.ImageToMatRGB(img)

	if err != nil {
		return errors.Wrapf(err, "error converting %s", file)
	}

	defer mat.Close()

	mat.CopyTo(dst)

	return nil
}

// Len returns the number of images in the sequence
func (s *ImageSequence) Len() int {
	return len(s.files)
}

// Size returns the dimensions of the first image
func (s *ImageSequence) Size() image.Point {
	return s.size
}

// FPS returns the frame rate given when opening the sequence
func (s *ImageSequence) FPS() float64 {
	return s.fps
}

// Close does nothing, files are only open while decoding
func (s *ImageSequence) Close() error {
	return nil
}
