package ops

import "github.com/pkg/errors"

var (
	// ErrUnknownPackage is a query-time condition: the name was never seen.
	ErrUnknownPackage = errors.New("no such package")

	// ErrCatalogInconsistent means a package referenced by a dependency has
	// no available version to compare against.
	ErrCatalogInconsistent = errors.New("catalog inconsistency")
)
