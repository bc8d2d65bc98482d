package ops

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lab47.dev/debdeps/pkg/catalog"
)

// testCatalog builds catalogs from literal versions.
type testCatalog struct {
	t   *testing.T
	cat *catalog.Catalog
}

func newTestCatalog(t *testing.T) *testCatalog {
	return &testCatalog{t: t, cat: catalog.New()}
}

func (tc *testCatalog) installed(name, ver string) *testCatalog {
	tc.t.Helper()
	require.NoError(tc.t, tc.cat.RecordInstalled(name, ver))
	return tc
}

func (tc *testCatalog) available(name, ver string) *testCatalog {
	tc.t.Helper()
	require.NoError(tc.t, tc.cat.RecordAvailable(name, ver))
	return tc
}

func (tc *testCatalog) depends(name string, groups ...[]catalog.AltSpec) *testCatalog {
	tc.t.Helper()
	require.NoError(tc.t, tc.cat.RecordDependencies(name, groups))
	return tc
}

func (tc *testCatalog) id(name string) catalog.PackageID {
	tc.t.Helper()
	id, ok := tc.cat.Lookup(name)
	require.True(tc.t, ok, name)
	return id
}

func (tc *testCatalog) dep(name string, idx int) catalog.Dependency {
	tc.t.Helper()
	deps := tc.cat.Dependencies(tc.id(name))
	require.True(tc.t, idx < len(deps))
	return deps[idx]
}

func plain(names ...string) []catalog.AltSpec {
	var out []catalog.AltSpec
	for _, n := range names {
		out = append(out, catalog.AltSpec{Name: n})
	}
	return out
}

func alt(name, rel, ver string) catalog.AltSpec {
	return catalog.AltSpec{Name: name, Relation: rel, Version: ver}
}

func or(alts ...catalog.AltSpec) []catalog.AltSpec {
	return alts
}
