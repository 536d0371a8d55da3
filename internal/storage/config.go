package storage

import (
	"github.com/kyleking/rockset-org-metadata/internal/config"
	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
)

// NewDuckDBCatalogFromConfig opens the catalog named in the config
func NewDuckDBCatalogFromConfig(cfg config.CatalogConfig) (*DuckDBCatalog, error) {
	if !cfg.Enabled() {
		return nil, apperrors.NewConfigError("catalog path is not set", "catalog.path")
	}

	return NewDuckDBCatalog(cfg.Path)
}
