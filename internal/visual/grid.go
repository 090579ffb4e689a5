// Package visual renders MNIST digits, with optional captions, as figures
// and as console text.
package visual

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mnist-dnn/internal/dataset"
)

const (
	// Columns is the fixed width of a prediction grid.
	Columns = 5

	scale    = 3
	tileSize = dataset.Rows * scale
	caption  = 16
	margin   = 4
)

// ErrLayout indicates a requested grid cannot be laid out exactly.
var ErrLayout = errors.New("visual: invalid grid layout")

// Layout returns the rows and columns for n images, Columns per row.
func Layout(n int) (rows, cols int, err error) {
	if n <= 0 || n%Columns != 0 {
		return 0, 0, errors.Wrapf(ErrLayout, "%d images is not a positive multiple of %d", n, Columns)
	}
	return n / Columns, Columns, nil
}

// Grid renders the first n images with a "Pred: k" caption each, n/5 rows
// by 5 columns. Digits are drawn dark on light.
func Grid(images []dataset.Image, preds []int, n int) (*image.RGBA, error) {
	rows, cols, err := Layout(n)
	if err != nil {
		return nil, err
	}
	if n > len(images) || n > len(preds) {
		return nil, errors.Wrapf(ErrLayout, "%d images requested, %d images and %d predictions available", n, len(images), len(preds))
	}
	captions := make([]string, n)
	for i := range captions {
		captions[i] = fmt.Sprintf("Pred: %d", preds[i])
	}
	return render(images[:n], captions, rows, cols, true), nil
}

// Preview renders the first n images as a square grid without captions.
// n must be a perfect square.
func Preview(images []dataset.Image, n int) (*image.RGBA, error) {
	side := 1
	for side*side < n {
		side++
	}
	if n <= 0 || side*side != n || n > len(images) {
		return nil, errors.Wrapf(ErrLayout, "preview of %d images", n)
	}
	return render(images[:n], nil, side, side, false), nil
}

func render(images []dataset.Image, captions []string, rows, cols int, invert bool) *image.RGBA {
	cellW := tileSize + 2*margin
	cellH := tileSize + 2*margin
	if captions != nil {
		cellH += caption
	}
	canvas := image.NewRGBA(image.Rect(0, 0, cols*cellW, rows*cellH))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	for i := range images {
		r, c := i/cols, i%cols
		x0, y0 := c*cellW+margin, r*cellH+margin
		if captions != nil {
			drawCaption(canvas, captions[i], x0, y0+caption-4)
			y0 += caption
		}
		drawTile(canvas, &images[i], x0, y0, invert)
	}
	return canvas
}

func drawTile(dst *image.RGBA, img *dataset.Image, x0, y0 int, invert bool) {
	for y := 0; y < dataset.Rows; y++ {
		for x := 0; x < dataset.Cols; x++ {
			v := img[y*dataset.Cols+x]
			if invert {
				v = 255 - v
			}
			rect := image.Rect(x0+x*scale, y0+y*scale, x0+(x+1)*scale, y0+(y+1)*scale)
			draw.Draw(dst, rect, image.NewUniform(color.Gray{Y: v}), image.Point{}, draw.Src)
		}
	}
}

func drawCaption(dst *image.RGBA, text string, x, baseline int) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

// WritePNG encodes img to path, creating the parent directory.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create figure dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create figure")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrap(err, "encode figure")
	}
	return errors.Wrap(f.Close(), "close figure")
}

const ramp = " .:-=+*#%@"

// ASCII renders one image at half resolution as text.
func ASCII(img *dataset.Image) []string {
	lines := make([]string, 0, dataset.Rows/2)
	for y := 0; y < dataset.Rows; y += 2 {
		var b strings.Builder
		for x := 0; x < dataset.Cols; x += 2 {
			sum := int(img[y*dataset.Cols+x]) + int(img[y*dataset.Cols+x+1]) +
				int(img[(y+1)*dataset.Cols+x]) + int(img[(y+1)*dataset.Cols+x+1])
			b.WriteByte(ramp[sum/4*(len(ramp)-1)/255])
		}
		lines = append(lines, b.String())
	}
	return lines
}

// ASCIIGrid lays out ASCII renderings cols per row. captions may be nil;
// otherwise it needs one entry per image.
func ASCIIGrid(images []dataset.Image, captions []string, cols int) (string, error) {
	n := len(images)
	if cols <= 0 || n == 0 || n%cols != 0 {
		return "", errors.Wrapf(ErrLayout, "%d images in rows of %d", n, cols)
	}
	if captions != nil && len(captions) != n {
		return "", errors.Errorf("visual: %d captions for %d images", len(captions), n)
	}
	width := dataset.Cols / 2
	var b strings.Builder
	for r := 0; r < n/cols; r++ {
		tiles := make([][]string, cols)
		for c := 0; c < cols; c++ {
			i := r*cols + c
			tiles[c] = ASCII(&images[i])
			if captions != nil {
				fmt.Fprintf(&b, "%-*s  ", width, captions[i])
			}
		}
		if captions != nil {
			b.WriteString("\n")
		}
		for line := 0; line < len(tiles[0]); line++ {
			for c := 0; c < cols; c++ {
				b.WriteString(tiles[c][line])
				b.WriteString("  ")
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
