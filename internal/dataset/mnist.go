package dataset

import (
	"compress/gzip"
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"
)

const (
	TrainSize = 60000
	TestSize  = 10000
)

// Options configures where Load looks for archives and how it fetches them.
type Options struct {
	// DataDir receives downloaded archives and is searched first.
	DataDir string
	// SearchDirs are consulted after DataDir.
	SearchDirs []string
	BaseURL    string
	Offline    bool
	Client     *http.Client
	// Digests overrides KnownDigests. An empty non-nil map disables
	// verification.
	Digests map[string]string
	// AllowPartial skips the 60000/10000 sample count check.
	AllowPartial bool
}

// MNIST holds the raw train and test splits.
type MNIST struct {
	TrainImages []Image
	TrainLabels []byte
	TestImages  []Image
	TestLabels  []byte
}

// DefaultSearchDirs are consulted when Options.SearchDirs is empty.
var DefaultSearchDirs = []string{"/tmp/mnist/"}

// Load locates, verifies and decodes the four MNIST archives, downloading
// them into DataDir when no search directory holds a complete set.
func Load(ctx context.Context, opts Options) (*MNIST, error) {
	digests := opts.Digests
	if digests == nil {
		digests = KnownDigests
	}
	search := opts.SearchDirs
	if len(search) == 0 {
		search = DefaultSearchDirs
	}
	dirs := append([]string{opts.DataDir}, search...)

	paths, err := Locate(dirs)
	if errors.Is(err, ErrNotFound) && !opts.Offline {
		if opts.DataDir == "" {
			return nil, errors.New("dataset: data dir required to fetch archives")
		}
		paths, err = Fetch(ctx, opts.Client, opts.BaseURL, opts.DataDir, digests)
	}
	if err != nil {
		return nil, err
	}

	for _, name := range ArchiveNames {
		if err := Verify(paths[name], digests[name]); err != nil {
			return nil, err
		}
	}

	ds := &MNIST{}
	if ds.TrainImages, err = readImagesFile(paths[TrainImagesFile]); err != nil {
		return nil, err
	}
	if ds.TrainLabels, err = readLabelsFile(paths[TrainLabelsFile]); err != nil {
		return nil, err
	}
	if ds.TestImages, err = readImagesFile(paths[TestImagesFile]); err != nil {
		return nil, err
	}
	if ds.TestLabels, err = readLabelsFile(paths[TestLabelsFile]); err != nil {
		return nil, err
	}
	if err := ds.check(opts.AllowPartial); err != nil {
		return nil, err
	}
	return ds, nil
}

func (ds *MNIST) check(allowPartial bool) error {
	if len(ds.TrainImages) != len(ds.TrainLabels) {
		return errors.Errorf("dataset: %d train images but %d labels", len(ds.TrainImages), len(ds.TrainLabels))
	}
	if len(ds.TestImages) != len(ds.TestLabels) {
		return errors.Errorf("dataset: %d test images but %d labels", len(ds.TestImages), len(ds.TestLabels))
	}
	if allowPartial {
		return nil
	}
	if len(ds.TrainImages) != TrainSize || len(ds.TestImages) != TestSize {
		return errors.Errorf("dataset: got %d/%d samples, want %d/%d",
			len(ds.TrainImages), len(ds.TestImages), TrainSize, TestSize)
	}
	return nil
}

func readImagesFile(path string) ([]Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open images")
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "gunzip %s", path)
	}
	defer zr.Close()
	images, err := ReadImages(zr)
	return images, errors.Wrap(err, path)
}

func readLabelsFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open labels")
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "gunzip %s", path)
	}
	defer zr.Close()
	labels, err := ReadLabels(zr)
	return labels, errors.Wrap(err, path)
}
