package ops

import (
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/debdeps/pkg/catalog"
)

type common struct {
	logger hclog.Logger

	Catalog *catalog.Catalog
}

func (c *common) L() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	c.logger = hclog.L()

	return c.logger
}

func (c *common) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

func (c *common) lookup(name string) (catalog.PackageID, error) {
	id, ok := c.Catalog.Lookup(name)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownPackage, "package: %s", name)
	}

	return id, nil
}
