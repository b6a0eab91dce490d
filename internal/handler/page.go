// Package handler provides HTTP handlers for the preview server.
package handler

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	mfs "github.com/CageChen/inlineh/internal/fs"
	"github.com/CageChen/inlineh/internal/markdown"
	"github.com/CageChen/inlineh/internal/site"
)

// Site is the part of the builder the handlers need.
type Site interface {
	Pages() []site.Page
	Render(relPath string) (*markdown.ParseResult, error)
}

// PageResponse represents the response for a page render request
type PageResponse struct {
	Path  string             `json:"path"`
	Title string             `json:"title"`
	HTML  string             `json:"html"`
	TOC   []markdown.TOCItem `json:"toc"`
}

// PageHandler handles page API requests
type PageHandler struct {
	site Site
}

// NewPageHandler creates a new page handler
func NewPageHandler(s Site) *PageHandler {
	return &PageHandler{site: s}
}

// GetPages returns the page index of the last build
func (h *PageHandler) GetPages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pages": h.site.Pages(),
	})
}

// GetPage renders one source page and returns its HTML fragment and TOC
func (h *PageHandler) GetPage(c *gin.Context) {
	pagePath := strings.TrimPrefix(c.Param("path"), "/")

	// Security: prevent path traversal
	if strings.Contains(pagePath, "..") {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "invalid path",
		})
		return
	}
	if pagePath == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "page not found",
		})
		return
	}

	result, err := h.site.Render(pagePath)
	if err != nil {
		switch {
		case mfs.IsNotExist(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		case os.IsPermission(err):
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to render page: " + err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, PageResponse{
		Path:  pagePath,
		Title: result.Title,
		HTML:  result.HTML,
		TOC:   result.TOC,
	})
}
