package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

const (
	TrainImagesFile = "train-images-idx3-ubyte.gz"
	TrainLabelsFile = "train-labels-idx1-ubyte.gz"
	TestImagesFile  = "t10k-images-idx3-ubyte.gz"
	TestLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

// ArchiveNames lists the four MNIST archives in load order.
var ArchiveNames = []string{TrainImagesFile, TrainLabelsFile, TestImagesFile, TestLabelsFile}

// ErrNotFound indicates no search directory holds the full archive set.
var ErrNotFound = errors.New("dataset: archives not found")

// DiscoverArchives returns paths to known MNIST archives beneath root, keyed
// by archive name. When an archive appears more than once the
// lexicographically first path wins.
func DiscoverArchives(root string) (map[string]string, error) {
	known := make(map[string]bool, len(ArchiveNames))
	for _, name := range ArchiveNames {
		known[name] = true
	}
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if known[d.Name()] {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover archives")
	}
	sort.Strings(entries)
	found := make(map[string]string, len(entries))
	for _, path := range entries {
		name := filepath.Base(path)
		if _, ok := found[name]; !ok {
			found[name] = path
		}
	}
	return found, nil
}

// Locate scans each directory in order and returns the archive set of the
// first one that holds all four archives. Missing directories are skipped.
func Locate(dirs []string) (map[string]string, error) {
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		found, err := DiscoverArchives(dir)
		if err != nil {
			return nil, err
		}
		if len(found) == len(ArchiveNames) {
			return found, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "searched %v", dirs)
}
