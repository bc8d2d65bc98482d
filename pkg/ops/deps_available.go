package ops

import (
	"fmt"

	"lab47.dev/debdeps/pkg/catalog"
	"lab47.dev/debdeps/pkg/debversion"
)

// DepCheck answers whether dependencies are met by the installed set.
type DepCheck struct {
	common
}

func NewDepCheck(cat *catalog.Catalog) *DepCheck {
	return &DepCheck{common: common{Catalog: cat}}
}

// Candidate is an alternative that is installed, but at a version that
// fails the alternative's constraint.
type Candidate struct {
	Package   catalog.PackageID
	Installed debversion.Number
}

// SatisfyingPackage returns the first alternative of dep, in declared
// order, that is installed at an acceptable version.
func (d *DepCheck) SatisfyingPackage(dep catalog.Dependency) (catalog.PackageID, debversion.Number, bool) {
	for _, alt := range dep {
		iv, ok := d.Catalog.Installed(alt.Package)
		if !ok {
			continue
		}

		if alt.Constraint != nil &&
			!debversion.Compare(alt.Constraint.Relation, iv, alt.Constraint.Version) {
			continue
		}

		return alt.Package, iv, true
	}

	return 0, debversion.Number{}, false
}

// WrongVersionCandidates lists the constrained alternatives of dep that are
// installed at a version failing their constraint. dep must be unsatisfied.
func (d *DepCheck) WrongVersionCandidates(dep catalog.Dependency) []Candidate {
	if id, _, ok := d.SatisfyingPackage(dep); ok {
		panic(fmt.Sprintf(
			"wrong version candidates requested for satisfied dependency %q (satisfied by %s)",
			d.Catalog.FormatDependency(dep), d.Catalog.Name(id)))
	}

	var out []Candidate

	for _, alt := range dep {
		if alt.Constraint == nil {
			continue
		}

		iv, ok := d.Catalog.Installed(alt.Package)
		if !ok {
			continue
		}

		if !debversion.Compare(alt.Constraint.Relation, iv, alt.Constraint.Version) {
			out = append(out, Candidate{Package: alt.Package, Installed: iv})
		}
	}

	return out
}

type DependencyStatus struct {
	Expression string
	Satisfied  bool

	// Set when Satisfied.
	By        string
	Installed debversion.Number
}

type DependencyReport struct {
	Package      string
	Dependencies []DependencyStatus
}

// Report describes, for each dependency of name, whether and by what it
// is satisfied.
func (d *DepCheck) Report(name string) (*DependencyReport, error) {
	id, err := d.lookup(name)
	if err != nil {
		return nil, err
	}

	rep := &DependencyReport{Package: name}

	for _, dep := range d.Catalog.Dependencies(id) {
		st := DependencyStatus{
			Expression: d.Catalog.FormatDependency(dep),
		}

		if by, iv, ok := d.SatisfyingPackage(dep); ok {
			st.Satisfied = true
			st.By = d.Catalog.Name(by)
			st.Installed = iv
		}

		rep.Dependencies = append(rep.Dependencies, st)
	}

	d.L().Debug("checked dependencies", "package", name, "count", len(rep.Dependencies))

	return rep, nil
}
