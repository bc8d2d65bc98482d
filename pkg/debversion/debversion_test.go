package debversion

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelation(t *testing.T) {
	for tok, rel := range map[string]Relation{
		"<<": StrictlyLess,
		"<=": LessOrEqual,
		"=":  Equal,
		">=": GreaterOrEqual,
		">>": StrictlyGreater,
		"<":  LessOrEqual,
		">":  GreaterOrEqual,
	} {
		got, err := ParseRelation(tok)
		require.NoError(t, err, tok)
		assert.Equal(t, rel, got, tok)
	}

	_, err := ParseRelation("=>")
	assert.True(t, errors.Is(err, ErrInvalidRelation))
}

func TestRelationString(t *testing.T) {
	for _, tok := range []string{"<<", "<=", "=", ">=", ">>"} {
		rel, err := ParseRelation(tok)
		require.NoError(t, err)

		assert.Equal(t, tok, rel.String())
	}
}

func TestParse(t *testing.T) {
	t.Run("accepts debian versions", func(t *testing.T) {
		v, err := Parse("1:2.30-1+b1")
		require.NoError(t, err)

		assert.Equal(t, uint(1), v.Epoch)
		assert.Equal(t, "2.30", v.Version)
		assert.Equal(t, "1+b1", v.Revision)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := Parse("  ")
		assert.True(t, errors.Is(err, ErrInvalidVersion))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := Parse("a:1.0")
		assert.True(t, errors.Is(err, ErrInvalidVersion))
	})
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		rel  Relation
		want bool
	}{
		{"1.0", "2.0", StrictlyLess, true},
		{"2.0", "2.0", StrictlyLess, false},
		{"2.0", "2.0", LessOrEqual, true},
		{"2.0", "2.0", Equal, true},
		{"2.0-1", "2.0-2", Equal, false},
		{"2.0", "1.9", GreaterOrEqual, true},
		{"1:1.0", "2.0", StrictlyGreater, true},
		{"1.0~rc1", "1.0", StrictlyLess, true},
		{"6.6.4-5+b1", "6.6.4-5", StrictlyGreater, true},
		{"2.5", "3.0", StrictlyGreater, false},
	}

	for _, c := range cases {
		got := Compare(c.rel, MustParse(c.a), MustParse(c.b))
		assert.Equal(t, c.want, got, "%s %s %s", c.a, c.rel, c.b)
	}
}
