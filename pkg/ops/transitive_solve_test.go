package ops

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitiveSolve(t *testing.T) {
	t.Run("follows first alternatives only", func(t *testing.T) {
		tc := newTestCatalog(t).
			depends("app", plain("a", "x"), plain("b")).
			depends("a", plain("c")).
			depends("x", plain("y")).
			depends("b", plain("c"))

		ids, err := NewTransitiveSolve(tc.cat).Solve("app")
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b", "c"}, tc.cat.Names(ids))
	})

	t.Run("ignores installed state", func(t *testing.T) {
		tc := newTestCatalog(t).
			installed("a", "1.0").
			depends("app", or(alt("a", ">=", "0.1")))

		ids, err := NewTransitiveSolve(tc.cat).Solve("app")
		require.NoError(t, err)

		assert.Equal(t, []string{"a"}, tc.cat.Names(ids))
	})

	t.Run("terminates on cycles", func(t *testing.T) {
		tc := newTestCatalog(t).
			depends("a", plain("b")).
			depends("b", plain("a"))

		ts := NewTransitiveSolve(tc.cat)

		ids, err := ts.Solve("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tc.cat.Names(ids))

		again, err := ts.Solve("a")
		require.NoError(t, err)
		assert.Equal(t, ids, again)
	})

	t.Run("reports each package once", func(t *testing.T) {
		tc := newTestCatalog(t).
			depends("app", plain("a"), plain("b"), plain("a")).
			depends("a", plain("b")).
			depends("b", plain("a"))

		ids, err := NewTransitiveSolve(tc.cat).Solve("app")
		require.NoError(t, err)
		assert.Len(t, ids, 2)
	})

	t.Run("unknown package", func(t *testing.T) {
		ids, err := NewTransitiveSolve(newTestCatalog(t).cat).Solve("nope")
		assert.True(t, errors.Is(err, ErrUnknownPackage))
		assert.Empty(t, ids)
	})
}
