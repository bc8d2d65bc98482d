package loader

import (
	"context"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/debdeps/pkg/catalog"
	"lab47.dev/debdeps/pkg/sumfile"
	"pault.ag/go/debian/control"
	"pault.ag/go/debian/dependency"
)

var ErrMissingPackage = errors.New("paragraph has no Package field")

// Loader populates a Catalog from Debian index files: a Packages index for
// available versions, dependencies and checksums, and a dpkg status file
// for installed versions.
type Loader struct {
	L       hclog.Logger
	Catalog *catalog.Catalog

	// CacheDir receives remote indexes; a temporary directory is used
	// when empty.
	CacheDir string
}

func New(cat *catalog.Catalog, logger hclog.Logger) *Loader {
	if logger == nil {
		logger = hclog.L()
	}

	return &Loader{L: logger, Catalog: cat}
}

func field(p *control.Paragraph, key string) (string, bool) {
	if v, ok := p.Values[key]; ok {
		return strings.TrimSpace(v), true
	}

	for k, v := range p.Values {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v), true
		}
	}

	return "", false
}

func eachParagraph(r io.Reader, fn func(p *control.Paragraph) error) error {
	pr, err := control.NewParagraphReader(r, nil)
	if err != nil {
		return err
	}

	for {
		p, err := pr.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}

			return err
		}

		if p == nil {
			return nil
		}

		if len(p.Order) == 0 {
			continue
		}

		if err := fn(p); err != nil {
			return err
		}
	}
}

// ReadPackages loads a Packages index and returns the number of
// paragraphs recorded.
func (l *Loader) ReadPackages(r io.Reader) (int, error) {
	var count int

	err := eachParagraph(r, func(p *control.Paragraph) error {
		name, ok := field(p, "Package")
		if !ok || name == "" {
			return ErrMissingPackage
		}

		if ver, ok := field(p, "Version"); ok {
			if err := l.Catalog.RecordAvailable(name, ver); err != nil {
				return err
			}
		}

		if sum, ok := field(p, "MD5sum"); ok {
			if err := l.Catalog.RecordChecksum(name, sum); err != nil {
				return err
			}
		}

		if deps, ok := field(p, "Depends"); ok {
			groups, err := parseDepends(deps)
			if err != nil {
				return errors.Wrapf(err, "Depends of %s", name)
			}

			if err := l.Catalog.RecordDependencies(name, groups); err != nil {
				return err
			}
		}

		count++

		return nil
	})

	if err != nil {
		return count, errors.Wrap(err, "reading packages index")
	}

	l.L.Info("loaded packages index", "paragraphs", count, "available", l.Catalog.AvailableCount())

	return count, nil
}

// ReadInstalled loads a dpkg status file. Entries whose Status says the
// package is not fully installed are skipped.
func (l *Loader) ReadInstalled(r io.Reader) (int, error) {
	var count int

	err := eachParagraph(r, func(p *control.Paragraph) error {
		name, ok := field(p, "Package")
		if !ok || name == "" {
			return ErrMissingPackage
		}

		if status, ok := field(p, "Status"); ok && !strings.HasSuffix(status, " installed") {
			l.L.Trace("skipping package not installed", "package", name, "status", status)
			return nil
		}

		ver, ok := field(p, "Version")
		if !ok {
			return nil
		}

		if err := l.Catalog.RecordInstalled(name, ver); err != nil {
			return err
		}

		count++

		return nil
	})

	if err != nil {
		return count, errors.Wrap(err, "reading installed status")
	}

	l.L.Info("loaded installed status", "installed", l.Catalog.InstalledCount())

	return count, nil
}

// ReadSums imports the checksums of a sumfile as expected md5sums.
func (l *Loader) ReadSums(r io.Reader) (int, error) {
	var sf sumfile.Sumfile

	if err := sf.Load(r); err != nil {
		return 0, errors.Wrap(err, "reading sumfile")
	}

	var count int

	for _, ent := range sf.Entries() {
		if ent.Algo != "md5" {
			continue
		}

		if err := l.Catalog.RecordChecksum(ent.Package, ent.Hex()); err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

func parseDepends(value string) ([][]catalog.AltSpec, error) {
	dep, err := dependency.Parse(value)
	if err != nil {
		return nil, err
	}

	var groups [][]catalog.AltSpec

	for _, rel := range dep.Relations {
		var group []catalog.AltSpec

		for _, poss := range rel.Possibilities {
			spec := catalog.AltSpec{Name: poss.Name}

			if poss.Version != nil {
				spec.Relation = poss.Version.Operator
				spec.Version = poss.Version.Number
			}

			group = append(group, spec)
		}

		if len(group) > 0 {
			groups = append(groups, group)
		}
	}

	return groups, nil
}

func (l *Loader) LoadPackages(ctx context.Context, src string) (int, error) {
	r, err := l.open(ctx, src)
	if err != nil {
		return 0, err
	}

	defer r.Close()

	return l.ReadPackages(r)
}

func (l *Loader) LoadInstalled(ctx context.Context, src string) (int, error) {
	r, err := l.open(ctx, src)
	if err != nil {
		return 0, err
	}

	defer r.Close()

	return l.ReadInstalled(r)
}

func (l *Loader) LoadSums(ctx context.Context, src string) (int, error) {
	r, err := l.open(ctx, src)
	if err != nil {
		return 0, err
	}

	defer r.Close()

	return l.ReadSums(r)
}
