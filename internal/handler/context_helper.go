package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/curso-asistencia-api/internal/middleware"
	"github.com/noah-isme/curso-asistencia-api/internal/models"
)

// actorFromContext derives the attendance capability from optional claims.
func actorFromContext(c *gin.Context) models.Actor {
	claims, ok := middleware.Claims(c)
	if ok && claims.Role == models.RoleAdmin {
		return models.ActorAdmin
	}
	return models.ActorSelfService
}

// paginate slices items when page or limit is present in the query string.
func paginate[T any](c *gin.Context, items []T) ([]T, *models.Pagination) {
	if c.Query("page") == "" && c.Query("limit") == "" {
		return items, nil
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || size < 1 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	meta := &models.Pagination{Page: page, PageSize: size, TotalCount: len(items)}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
