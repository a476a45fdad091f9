package service

import (
	"github.com/noah-isme/curso-asistencia-api/internal/catalog"
	appErrors "github.com/noah-isme/curso-asistencia-api/pkg/errors"
)

// CatalogService serves the region and commune lists.
type CatalogService struct {
	catalog *catalog.Catalog
}

// NewCatalogService wraps a loaded catalog.
func NewCatalogService(c *catalog.Catalog) *CatalogService {
	return &CatalogService{catalog: c}
}

// Regions lists region names.
func (s *CatalogService) Regions() []string {
	return s.catalog.Regions()
}

// CommunesOf lists the communes of region.
func (s *CatalogService) CommunesOf(region string) ([]string, error) {
	communes, ok := s.catalog.CommunesOf(region)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "region not found")
	}
	return communes, nil
}
