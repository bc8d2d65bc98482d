package catalog

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"lab47.dev/debdeps/pkg/debversion"
)

var ErrEmptyName = errors.New("empty package name")

// PackageID identifies a package name for the lifetime of a Catalog.
type PackageID int32

type Constraint struct {
	Relation debversion.Relation
	Version  debversion.Number
}

// Alternative is one choice within an OR-group. Constraint is nil when
// any version will do.
type Alternative struct {
	Package    PackageID
	Constraint *Constraint
}

// Dependency is an OR-group; the first alternative is the default choice.
type Dependency []Alternative

// AltSpec is the unresolved form of an Alternative as handed over by an
// index parser. Relation and Version are empty for an unconstrained
// alternative.
type AltSpec struct {
	Name     string
	Relation string
	Version  string
}

// Catalog holds everything known about packages: installed and available
// versions, dependencies and expected checksums. Entries are only ever
// added. A Catalog is not safe for concurrent mutation.
type Catalog struct {
	names []string
	ids   map[string]PackageID

	installed map[PackageID]debversion.Number
	available map[PackageID]debversion.Number
	deps      map[PackageID][]Dependency
	md5sums   map[PackageID]string
}

func New() *Catalog {
	return &Catalog{
		ids:       make(map[string]PackageID),
		installed: make(map[PackageID]debversion.Number),
		available: make(map[PackageID]debversion.Number),
		deps:      make(map[PackageID][]Dependency),
		md5sums:   make(map[PackageID]string),
	}
}

// Intern returns the id for name, allocating the next one if the name has
// not been seen before.
func (c *Catalog) Intern(name string) PackageID {
	if id, ok := c.ids[name]; ok {
		return id
	}

	id := PackageID(len(c.names))
	c.names = append(c.names, name)
	c.ids[name] = id

	return id
}

func (c *Catalog) Lookup(name string) (PackageID, bool) {
	id, ok := c.ids[name]
	return id, ok
}

func (c *Catalog) Exists(name string) bool {
	_, ok := c.ids[name]
	return ok
}

func (c *Catalog) Name(id PackageID) string {
	if id < 0 || int(id) >= len(c.names) {
		return ""
	}

	return c.names[id]
}

// Len returns the number of interned names.
func (c *Catalog) Len() int {
	return len(c.names)
}

func (c *Catalog) Installed(id PackageID) (debversion.Number, bool) {
	v, ok := c.installed[id]
	return v, ok
}

func (c *Catalog) Available(id PackageID) (debversion.Number, bool) {
	v, ok := c.available[id]
	return v, ok
}

func (c *Catalog) Dependencies(id PackageID) []Dependency {
	return c.deps[id]
}

func (c *Catalog) Checksum(id PackageID) (string, bool) {
	s, ok := c.md5sums[id]
	return s, ok
}

func (c *Catalog) InstalledCount() int {
	return len(c.installed)
}

func (c *Catalog) AvailableCount() int {
	return len(c.available)
}

func (c *Catalog) RecordInstalled(name, ver string) error {
	if name == "" {
		return ErrEmptyName
	}

	v, err := debversion.Parse(ver)
	if err != nil {
		return errors.Wrapf(err, "installed version of %s", name)
	}

	c.installed[c.Intern(name)] = v

	return nil
}

func (c *Catalog) RecordAvailable(name, ver string) error {
	if name == "" {
		return ErrEmptyName
	}

	v, err := debversion.Parse(ver)
	if err != nil {
		return errors.Wrapf(err, "available version of %s", name)
	}

	c.available[c.Intern(name)] = v

	return nil
}

func (c *Catalog) RecordChecksum(name, sum string) error {
	if name == "" {
		return ErrEmptyName
	}

	c.md5sums[c.Intern(name)] = strings.TrimSpace(sum)

	return nil
}

// RecordDependencies replaces the dependency list of name. The whole record
// is validated before any name is interned, so a bad relation or version
// leaves the catalog untouched.
func (c *Catalog) RecordDependencies(name string, groups [][]AltSpec) error {
	if name == "" {
		return ErrEmptyName
	}

	type parsed struct {
		name string
		cons *Constraint
	}

	checked := make([][]parsed, 0, len(groups))

	for _, group := range groups {
		var alts []parsed

		for _, spec := range group {
			if spec.Name == "" {
				return errors.Wrapf(ErrEmptyName, "dependency of %s", name)
			}

			p := parsed{name: spec.Name}

			if spec.Relation != "" || spec.Version != "" {
				rel, err := debversion.ParseRelation(spec.Relation)
				if err != nil {
					return errors.Wrapf(err, "dependency %s of %s", spec.Name, name)
				}

				v, err := debversion.Parse(spec.Version)
				if err != nil {
					return errors.Wrapf(err, "dependency %s of %s", spec.Name, name)
				}

				p.cons = &Constraint{Relation: rel, Version: v}
			}

			alts = append(alts, p)
		}

		if len(alts) > 0 {
			checked = append(checked, alts)
		}
	}

	deps := make([]Dependency, 0, len(checked))

	for _, alts := range checked {
		dep := make(Dependency, 0, len(alts))

		for _, p := range alts {
			dep = append(dep, Alternative{
				Package:    c.Intern(p.name),
				Constraint: p.cons,
			})
		}

		deps = append(deps, dep)
	}

	c.deps[c.Intern(name)] = deps

	return nil
}

// FormatDependency renders dep the way it appears in a Depends field.
func (c *Catalog) FormatDependency(dep Dependency) string {
	var sb strings.Builder

	for i, alt := range dep {
		if i > 0 {
			sb.WriteString(" | ")
		}

		sb.WriteString(c.Name(alt.Package))

		if alt.Constraint != nil {
			sb.WriteString(" (")
			sb.WriteString(alt.Constraint.Relation.String())
			sb.WriteByte(' ')
			sb.WriteString(alt.Constraint.Version.String())
			sb.WriteByte(')')
		}
	}

	return sb.String()
}

// Names maps ids to names, sorted by name.
func (c *Catalog) Names(ids []PackageID) []string {
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		out = append(out, c.Name(id))
	}

	sort.Strings(out)

	return out
}
