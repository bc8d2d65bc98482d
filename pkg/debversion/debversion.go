package debversion

import (
	"strings"

	"github.com/pkg/errors"
	"pault.ag/go/debian/version"
)

var (
	ErrInvalidVersion  = errors.New("invalid version")
	ErrInvalidRelation = errors.New("invalid version relation")
)

// Number is a parsed Debian version: epoch, upstream version and revision.
type Number = version.Version

type Relation int

const (
	StrictlyLess Relation = iota
	LessOrEqual
	Equal
	GreaterOrEqual
	StrictlyGreater
)

var relationTokens = map[string]Relation{
	"<<": StrictlyLess,
	"<=": LessOrEqual,
	"=":  Equal,
	">=": GreaterOrEqual,
	">>": StrictlyGreater,

	// Obsolete forms, still found in old indexes. Policy defines them as
	// the non-strict comparisons.
	"<": LessOrEqual,
	">": GreaterOrEqual,
}

func ParseRelation(tok string) (Relation, error) {
	rel, ok := relationTokens[strings.TrimSpace(tok)]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidRelation, "token: %q", tok)
	}

	return rel, nil
}

func (r Relation) String() string {
	switch r {
	case StrictlyLess:
		return "<<"
	case LessOrEqual:
		return "<="
	case Equal:
		return "="
	case GreaterOrEqual:
		return ">="
	case StrictlyGreater:
		return ">>"
	default:
		return "?"
	}
}

func Parse(s string) (Number, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}, errors.Wrap(ErrInvalidVersion, "empty version")
	}

	v, err := version.Parse(s)
	if err != nil {
		return Number{}, errors.Wrapf(ErrInvalidVersion, "%q: %s", s, err)
	}

	return v, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Number {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return v
}

// Compare reports whether a rel b holds.
func Compare(rel Relation, a, b Number) bool {
	c := version.Compare(a, b)

	switch rel {
	case StrictlyLess:
		return c < 0
	case LessOrEqual:
		return c <= 0
	case Equal:
		return c == 0
	case GreaterOrEqual:
		return c >= 0
	case StrictlyGreater:
		return c > 0
	default:
		return false
	}
}
