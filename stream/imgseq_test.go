package stream

import (
	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestImageSequence(t *testing.T) {

	dir := t.TempDir()

	// written out of order, read back sorted by name
	frames := []struct {
		name string
		clr  color.NRGBA
	}{
		{"002.png", color.NRGBA{R: 0, G: 0, B: 255, A: 255}},
		{"001.png", color.NRGBA{R: 255, G: 0, B: 0, A: 255}},
	}

	for _, f := range frames {
		img := imaging.New(40, 30, f.clr)

		if err := imaging.Save(img, filepath.Join(dir, f.name)); err != nil {
			t.Fatalf("error writing %s: %v", f.name, err)
		}
	}

	// ignored files
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.png"), 0755)

	seq, err := OpenImageSequence(dir, 2)

	if err != nil {
		t.Fatalf("error opening sequence: %v", err)
	}

	defer seq.Close()

	if seq.Len() != 2 {
		t.Fatalf("expected 2 images, got %d", seq.Len())
	}

	if seq.Size() != image.Pt(40, 30) {
		t.Errorf("expected size 40x30, got %v", seq.Size())
	}

	if seq.FPS() != 2 {
		t.Errorf("expected fps 2, got %v", seq.FPS())
	}

	mat := gocv.NewMat()
	defer mat.Close()

	// Mat channels are BGR, first image is red, second blue
	want := []struct{ b, g, r uint8 }{
		{0, 0, 255},
		{255, 0, 0},
	}

	for i, w := range want {
		if err := seq.Read(&mat); err != nil {
			t.Fatalf("error reading frame %d: %v", i, err)
		}

		if mat.Cols() != 40 || mat.Rows() != 30 || mat.Channels() != 3 {
			t.Fatalf("frame %d: unexpected shape %dx%dx%d", i, mat.Cols(), mat.Rows(), mat.Channels())
		}

		b, g, r := mat.GetUCharAt(10, 10*3), mat.GetUCharAt(10, 10*3+1), mat.GetUCharAt(10, 10*3+2)

		if b != w.b || g != w.g || r != w.r {
			t.Errorf("frame %d: expected BGR %v, got %d %d %d", i, w, b, g, r)
		}
	}

	if err := seq.Read(&mat); err != io.EOF {
		t.Errorf("expected io.EOF after last image, got %v", err)
	}
}

func TestImageSequenceEmpty(t *testing.T) {

	if _, err := OpenImageSequence(t.TempDir(), 1); err == nil {
		t.Errorf("expected error for directory with no images")
	}

	if _, err := OpenImageSequence(filepath.Join(t.TempDir(), "missing"), 1); err == nil {
		t.Errorf("expected error for missing directory")
	}
}
