package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curso-asistencia-api/pkg/response"
)

type regionCatalog interface {
	Regions() []string
	CommunesOf(region string) ([]string, error)
}

// CatalogHandler exposes the read-only region catalog.
type CatalogHandler struct {
	catalog regionCatalog
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(catalog regionCatalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Regions godoc
// @Summary List regions
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /regions [get]
func (h *CatalogHandler) Regions(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.Regions(), nil)
}

// Communes godoc
// @Summary List communes of a region
// @Tags Catalog
// @Produce json
// @Param region path string true "Region name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /regions/{region}/communes [get]
func (h *CatalogHandler) Communes(c *gin.Context) {
	communes, err := h.catalog.CommunesOf(c.Param("region"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, communes, nil)
}
