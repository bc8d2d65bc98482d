package loader

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	"lab47.dev/debdeps/pkg/humanize"
	"lab47.dev/debdeps/pkg/lockfile"
)

func isRemote(src string) bool {
	return strings.Contains(src, "://")
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// open returns a reader over the decompressed content of src, which is a
// local path or a URL understood by go-getter.
func (l *Loader) open(ctx context.Context, src string) (io.ReadCloser, error) {
	if isRemote(src) {
		return l.fetch(ctx, src)
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}

	return decompress(f, src)
}

func decompress(f *os.File, name string) (io.ReadCloser, error) {
	sc := &stackedCloser{Reader: f, closers: []io.Closer{f}}

	switch filepath.Ext(name) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "opening gzip %s", name)
		}

		sc.Reader = gz
		sc.closers = append(sc.closers, gz)
	case ".xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "opening xz %s", name)
		}

		sc.Reader = xr
	}

	return sc, nil
}

type removeOnClose struct {
	io.ReadCloser
	dir string
}

func (r *removeOnClose) Close() error {
	err := r.ReadCloser.Close()
	os.RemoveAll(r.dir)
	return err
}

// fetch downloads src; go-getter decompresses .gz/.xz/.bz2 indexes on
// the way. With a CacheDir the download lands in a temporary file that is
// opened before it is renamed onto its cache name, so a reader keeps its
// own copy even if another process refreshes the cache meanwhile.
func (l *Loader) fetch(ctx context.Context, src string) (io.ReadCloser, error) {
	if l.CacheDir == "" {
		return l.fetchTemp(ctx, src)
	}

	dir := l.CacheDir

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dst := filepath.Join(dir, cacheName(src))

	lock, err := lockfile.Take(ctx, dst+".lock", 0, func() {
		l.L.Info("waiting for another fetch of index", "dest", dst)
	})
	if err != nil {
		return nil, err
	}

	defer lock.Release()

	part, err := ioutil.TempFile(dir, filepath.Base(dst)+".*.part")
	if err != nil {
		return nil, err
	}

	tmp := part.Name()
	part.Close()

	// go-getter resumes into an existing file; start from nothing.
	os.Remove(tmp)

	if err := l.download(ctx, src, tmp); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	f, err := os.Open(tmp)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}

	if err := os.Rename(tmp, dst); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, errors.Wrapf(err, "caching %s", src)
	}

	return f, nil
}

func (l *Loader) fetchTemp(ctx context.Context, src string) (io.ReadCloser, error) {
	dir, err := ioutil.TempDir("", "debdeps")
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(dir, cacheName(src))

	if err := l.download(ctx, src, dst); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	f, err := os.Open(dst)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return &removeOnClose{ReadCloser: f, dir: dir}, nil
}

// cacheName is the base name of src without a compression suffix.
func cacheName(src string) string {
	base := path.Base(src)
	for _, ext := range []string{".gz", ".xz", ".bz2"} {
		base = strings.TrimSuffix(base, ext)
	}

	return base
}

func (l *Loader) download(ctx context.Context, src, dst string) error {
	l.L.Info("fetching index", "url", src, "dest", dst)

	err := getter.GetFile(dst, src, getter.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "fetching %s", src)
	}

	if fi, err := os.Stat(dst); err == nil {
		l.L.Debug("fetched index", "url", src, "size", humanize.Size(fi.Size()))
	}

	return nil
}
