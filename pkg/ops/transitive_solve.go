package ops

import (
	"sort"

	"lab47.dev/debdeps/pkg/catalog"
)

// TransitiveSolve walks the dependency graph taking the first alternative
// of every OR-group. Installed state is ignored.
type TransitiveSolve struct {
	common
}

func NewTransitiveSolve(cat *catalog.Catalog) *TransitiveSolve {
	return &TransitiveSolve{common: common{Catalog: cat}}
}

// Solve returns every package reachable from name, sorted by id.
func (s *TransitiveSolve) Solve(name string) ([]catalog.PackageID, error) {
	id, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	var worklist []catalog.PackageID

	seen := make(map[catalog.PackageID]struct{})

	push := func(from catalog.PackageID) {
		for _, dep := range s.Catalog.Dependencies(from) {
			if len(dep) == 0 {
				continue
			}

			first := dep[0].Package

			if _, ok := seen[first]; ok {
				continue
			}

			seen[first] = struct{}{}
			worklist = append(worklist, first)
		}
	}

	push(id)

	for len(worklist) > 0 {
		cur := worklist[0]
		worklist = worklist[1:]

		s.L().Trace("expanding", "package", s.Catalog.Name(cur))

		push(cur)
	}

	out := make([]catalog.PackageID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out, nil
}
