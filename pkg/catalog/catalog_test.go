package catalog

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/debdeps/pkg/debversion"
)

func TestIntern(t *testing.T) {
	c := New()

	a := c.Intern("a")
	b := c.Intern("b")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c.Intern("a"))
	assert.Equal(t, "b", c.Name(b))
	assert.Equal(t, 2, c.Len())

	_, ok := c.Lookup("c")
	assert.False(t, ok)
	assert.False(t, c.Exists("c"))
	assert.Equal(t, 2, c.Len(), "lookup must not intern")

	assert.Equal(t, "", c.Name(PackageID(42)))
}

func TestRecord(t *testing.T) {
	t.Run("stores parsed versions", func(t *testing.T) {
		c := New()

		require.NoError(t, c.RecordInstalled("libc6", "2.31-13"))
		require.NoError(t, c.RecordAvailable("libc6", "2.31-13+deb11u5"))
		require.NoError(t, c.RecordChecksum("libc6", " abc123\n"))

		id, ok := c.Lookup("libc6")
		require.True(t, ok)

		iv, ok := c.Installed(id)
		require.True(t, ok)
		assert.Equal(t, "2.31-13", iv.String())

		av, ok := c.Available(id)
		require.True(t, ok)
		assert.Equal(t, "2.31-13+deb11u5", av.String())

		sum, ok := c.Checksum(id)
		require.True(t, ok)
		assert.Equal(t, "abc123", sum)

		assert.Equal(t, 1, c.InstalledCount())
		assert.Equal(t, 1, c.AvailableCount())
	})

	t.Run("rejects bad versions", func(t *testing.T) {
		c := New()

		err := c.RecordInstalled("x", "")
		assert.True(t, errors.Is(err, debversion.ErrInvalidVersion))

		err = c.RecordAvailable("x", "q:1")
		assert.True(t, errors.Is(err, debversion.ErrInvalidVersion))

		assert.True(t, errors.Is(c.RecordChecksum("", "abc"), ErrEmptyName))
	})

	t.Run("records dependencies", func(t *testing.T) {
		c := New()

		err := c.RecordDependencies("app", [][]AltSpec{
			{{Name: "libc6", Relation: ">=", Version: "2.31"}},
			{{Name: "mawk"}, {Name: "gawk", Relation: "<<", Version: "5.0"}},
			{},
		})
		require.NoError(t, err)

		id, _ := c.Lookup("app")
		deps := c.Dependencies(id)
		require.Len(t, deps, 2)

		assert.Equal(t, "libc6 (>= 2.31)", c.FormatDependency(deps[0]))
		assert.Equal(t, "mawk | gawk (<< 5.0)", c.FormatDependency(deps[1]))

		assert.Nil(t, deps[1][0].Constraint)
		require.NotNil(t, deps[1][1].Constraint)
		assert.Equal(t, debversion.StrictlyLess, deps[1][1].Constraint.Relation)
	})

	t.Run("leaves catalog untouched on a bad record", func(t *testing.T) {
		c := New()

		err := c.RecordDependencies("app", [][]AltSpec{
			{{Name: "good"}},
			{{Name: "bad", Relation: "~=", Version: "1.0"}},
		})
		require.Error(t, err)

		assert.Equal(t, 0, c.Len())
	})
}

func TestNames(t *testing.T) {
	c := New()

	ids := []PackageID{c.Intern("zsh"), c.Intern("bash"), c.Intern("dash")}

	assert.Equal(t, []string{"bash", "dash", "zsh"}, c.Names(ids))
}
