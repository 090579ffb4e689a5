package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrChecksum indicates an archive's SHA-256 digest did not match.
var ErrChecksum = errors.New("dataset: checksum mismatch")

// KnownDigests are the SHA-256 digests of the published gzip archives.
var KnownDigests = map[string]string{
	TrainImagesFile: "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609",
	TrainLabelsFile: "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c",
	TestImagesFile:  "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6",
	TestLabelsFile:  "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6",
}

// Fetch downloads any archive missing from dir. Each download lands in a
// temp file that is renamed into place only after its digest checks out.
// A digest map without an entry for an archive skips verification for it.
func Fetch(ctx context.Context, client *http.Client, baseURL, dir string, digests map[string]string) (map[string]string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	paths := make(map[string]string, len(ArchiveNames))
	for _, name := range ArchiveNames {
		dst := filepath.Join(dir, name)
		paths[name] = dst
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		url := strings.TrimSuffix(baseURL, "/") + "/" + name
		if err := download(ctx, client, url, dst, digests[name]); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func download(ctx context.Context, client *http.Client, url, dst, digest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "request %s", url)
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetch %s: status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part-*")
	if err != nil {
		return errors.Wrap(err, "create temp archive")
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "download %s", url)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp archive")
	}
	if digest != "" {
		if got := hex.EncodeToString(h.Sum(nil)); got != digest {
			return errors.Wrapf(ErrChecksum, "%s: got %s want %s", filepath.Base(dst), got, digest)
		}
	}
	return errors.Wrap(os.Rename(tmp.Name(), dst), "install archive")
}

// Verify checks the SHA-256 digest of the file at path.
func Verify(path, digest string) error {
	if digest == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open archive")
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrapf(err, "hash %s", path)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != digest {
		return errors.Wrapf(ErrChecksum, "%s: got %s want %s", filepath.Base(path), got, digest)
	}
	return nil
}
