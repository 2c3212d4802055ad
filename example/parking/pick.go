package main

import (
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gocv.io/x/gocv"
	"image"
	"io"
)

func pickFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  flagSource,
			Usage: "video file, capture device index, stream URL or image directory",
		},
		&cli.IntFlag{
			Name:  "frame",
			Usage: "pick on this frame number instead of the first",
		},
	}
}

// pickAction shows a frame at the working size and prints the corners of the
// dragged rectangle as a roi config entry.  The printed corners can be moved
// by hand to follow the shape of the parking area.
func pickAction(c *cli.Context) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	src, err := openSource(cfg.Source, cfg.Output.FPS)

	if err != nil {
		return err
	}

	defer src.Close()

	raw := gocv.NewMat()
	defer raw.Close()

	for i := 0; i <= c.Int("frame"); i++ {
		if err := src.Read(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.Errorf("source %s has only %d frames", cfg.Source, i)
			}
			return err
		}
	}

	img := gocv.NewMat()
	defer img.Close()

	gocv.Resize(raw, &img, cfg.FrameSize(), 0, 0, gocv.InterpolationLinear)

	win := gocv.NewWindow("Select parking area, then press ENTER")
	defer win.Close()

	rect := win.SelectROI(img)

	if rect.Empty() {
		return errors.New("no area selected")
	}

	out, err := json.Marshal(struct {
		ROI [][2]int `json:"roi"`
	}{
		ROI: rectPolygon(rect),
	})

	if err != nil {
		return errors.Wrap(err, "error encoding roi")
	}

	fmt.Println(string(out))

	return nil
}

// rectPolygon returns the corners of r clockwise from the top left
func rectPolygon(r image.Rectangle) [][2]int {
	return [][2]int{
		{r.Min.X, r.Min.Y},
		{r.Max.X, r.Min.Y},
		{r.Max.X, r.Max.Y},
		{r.Min.X, r.Max.Y},
	}
}
