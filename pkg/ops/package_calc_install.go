package ops

import (
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/debdeps/pkg/catalog"
	"lab47.dev/debdeps/pkg/debversion"
)

// PackageCalcInstall computes what has to be installed or upgraded so that
// a package's whole dependency tree is satisfied by the installed set.
//
// For an unsatisfied OR-group A | B | C:
//   - if some alternatives are installed at the wrong version, the one
//     with the highest available version is upgraded;
//   - otherwise the alternative with the highest available version is
//     installed, even though that compares unrelated packages.
type PackageCalcInstall struct {
	common

	check DepCheck
}

func NewPackageCalcInstall(cat *catalog.Catalog) *PackageCalcInstall {
	p := &PackageCalcInstall{common: common{Catalog: cat}}
	p.check.Catalog = cat
	return p
}

func (p *PackageCalcInstall) SetLogger(logger hclog.Logger) {
	p.common.SetLogger(logger)
	p.check.SetLogger(logger)
}

func (p *PackageCalcInstall) Calculate(name string) ([]catalog.PackageID, error) {
	id, err := p.lookup(name)
	if err != nil {
		return nil, err
	}

	var worklist []catalog.PackageID

	seen := make(map[catalog.PackageID]struct{})

	consider := func(from catalog.PackageID) error {
		for _, dep := range p.Catalog.Dependencies(from) {
			pick, ok, err := p.choose(dep)
			if err != nil {
				return errors.Wrapf(err, "resolving %s for %s",
					p.Catalog.FormatDependency(dep), p.Catalog.Name(from))
			}

			if !ok {
				continue
			}

			if _, dup := seen[pick]; dup {
				continue
			}

			seen[pick] = struct{}{}
			worklist = append(worklist, pick)
		}

		return nil
	}

	if err := consider(id); err != nil {
		return nil, err
	}

	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]

		p.L().Trace("planning", "package", p.Catalog.Name(cur))

		if err := consider(cur); err != nil {
			return nil, err
		}
	}

	out := make([]catalog.PackageID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	p.L().Debug("calculated install set", "package", name, "count", len(out))

	return out, nil
}

// choose applies the per-OR-group decision. ok is false when the group is
// already satisfied.
func (p *PackageCalcInstall) choose(dep catalog.Dependency) (catalog.PackageID, bool, error) {
	if len(dep) == 0 {
		return 0, false, nil
	}

	if _, _, ok := p.check.SatisfyingPackage(dep); ok {
		return 0, false, nil
	}

	wrong := p.check.WrongVersionCandidates(dep)

	switch len(wrong) {
	case 1:
		return wrong[0].Package, true, nil
	case 0:
		ids := make([]catalog.PackageID, len(dep))
		for i, alt := range dep {
			ids[i] = alt.Package
		}

		pick, err := p.highestAvailable(ids)
		return pick, err == nil, err
	default:
		// Candidates are ranked by the version they would be upgraded
		// to, not by what is installed now.
		ids := make([]catalog.PackageID, len(wrong))
		for i, c := range wrong {
			ids[i] = c.Package
		}

		pick, err := p.highestAvailable(ids)
		return pick, err == nil, err
	}
}

// highestAvailable is a pairwise maximum using >>; the first id starts as
// the incumbent, so ties keep the earlier one.
func (p *PackageCalcInstall) highestAvailable(ids []catalog.PackageID) (catalog.PackageID, error) {
	var (
		best    catalog.PackageID
		bestVer debversion.Number
	)

	for i, id := range ids {
		v, ok := p.Catalog.Available(id)
		if !ok {
			return 0, errors.Wrapf(ErrCatalogInconsistent,
				"no available version for %s", p.Catalog.Name(id))
		}

		if i == 0 || debversion.Compare(debversion.StrictlyGreater, v, bestVer) {
			best, bestVer = id, v
		}
	}

	return best, nil
}

type PlanEntry struct {
	Name      string
	Installed string
	Available string
}

// Explain returns the install set of name with version information,
// sorted by package name.
func (p *PackageCalcInstall) Explain(name string) ([]PlanEntry, error) {
	ids, err := p.Calculate(name)
	if err != nil {
		return nil, err
	}

	var out []PlanEntry

	for _, id := range ids {
		ent := PlanEntry{Name: p.Catalog.Name(id)}

		if v, ok := p.Catalog.Installed(id); ok {
			ent.Installed = v.String()
		}

		if v, ok := p.Catalog.Available(id); ok {
			ent.Available = v.String()
		}

		out = append(out, ent)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}
