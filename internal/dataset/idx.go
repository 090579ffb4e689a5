package dataset

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	Rows    = 28
	Cols    = 28
	Pixels  = Rows * Cols
	Classes = 10

	imagesMagic = 0x00000803
	labelsMagic = 0x00000801
)

// ErrBadMagic indicates the stream is not the expected IDX record type.
var ErrBadMagic = errors.New("idx: bad magic number")

// Image is one 28x28 grayscale digit stored row-major.
type Image [Pixels]byte

// Grid returns the image as a 2-D array.
func (img *Image) Grid() (g [Rows][Cols]byte) {
	for y := 0; y < Rows; y++ {
		copy(g[y][:], img[y*Cols:(y+1)*Cols])
	}
	return g
}

// ReadImages decodes an uncompressed IDX3 image stream. Streams declaring
// more than TrainSize images are rejected.
func ReadImages(r io.Reader) ([]Image, error) {
	br := bufio.NewReader(r)
	if err := readMagic(br, imagesMagic, "images"); err != nil {
		return nil, err
	}
	var hdr [3]uint32
	if err := binary.Read(br, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "idx: read image header")
	}
	if err := checkCount(hdr[0], "images"); err != nil {
		return nil, err
	}
	if hdr[1] != Rows || hdr[2] != Cols {
		return nil, errors.Errorf("idx: image grid %dx%d, want %dx%d", hdr[1], hdr[2], Rows, Cols)
	}
	images := make([]Image, hdr[0])
	for i := range images {
		if _, err := io.ReadFull(br, images[i][:]); err != nil {
			return nil, errors.Wrapf(err, "idx: read image %d of %d", i, len(images))
		}
	}
	return images, nil
}

// ReadLabels decodes an uncompressed IDX1 label stream. Labels outside
// [0, Classes) are rejected.
func ReadLabels(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	if err := readMagic(br, labelsMagic, "labels"); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(br, binary.BigEndian, &count); err != nil {
		return nil, errors.Wrap(err, "idx: read label header")
	}
	if err := checkCount(count, "labels"); err != nil {
		return nil, err
	}
	labels := make([]byte, count)
	if _, err := io.ReadFull(br, labels); err != nil {
		return nil, errors.Wrap(err, "idx: read labels")
	}
	for i, l := range labels {
		if l >= Classes {
			return nil, errors.Errorf("idx: label %d at index %d out of range", l, i)
		}
	}
	return labels, nil
}

func readMagic(r io.Reader, want uint32, kind string) error {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return errors.Wrapf(err, "idx: read %s magic", kind)
	}
	if magic != want {
		return errors.Wrapf(ErrBadMagic, "%s: got %#08x", kind, magic)
	}
	return nil
}

// checkCount bounds the declared record count before anything is allocated.
func checkCount(n uint32, kind string) error {
	if n > TrainSize {
		return errors.Errorf("idx: %d %s declared, at most %d supported", n, kind, TrainSize)
	}
	return nil
}
