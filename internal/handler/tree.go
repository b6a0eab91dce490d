package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/inlineh/internal/site"
)

// TreeNode represents a page or directory in the site tree
type TreeNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Path     string      `json:"path,omitempty"`
	URL      string      `json:"url,omitempty"`
	Title    string      `json:"title,omitempty"`
	Children []*TreeNode `json:"children,omitempty"`
}

// GetTree returns the pages of the last build arranged by directory
func (h *PageHandler) GetTree(c *gin.Context) {
	c.JSON(http.StatusOK, buildTree(h.site.Pages()))
}

func buildTree(pages []site.Page) *TreeNode {
	root := &TreeNode{Name: "", Type: "directory"}

	for _, p := range pages {
		parts := strings.Split(p.Path, "/")
		node := root
		for i, part := range parts[:len(parts)-1] {
			node = node.child(part, strings.Join(parts[:i+1], "/"))
		}
		node.Children = append(node.Children, &TreeNode{
			Name:  parts[len(parts)-1],
			Type:  "file",
			Path:  p.Path,
			URL:   p.URL,
			Title: p.Title,
		})
	}

	root.sort()
	return root
}

// child returns the directory node called name, creating it if needed.
func (n *TreeNode) child(name, path string) *TreeNode {
	for _, c := range n.Children {
		if c.Type == "directory" && c.Name == name {
			return c
		}
	}
	c := &TreeNode{Name: name, Type: "directory", Path: path}
	n.Children = append(n.Children, c)
	return c
}

// sort orders directories first, then files, both alphabetically
func (n *TreeNode) sort() {
	sort.Slice(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Type != b.Type {
			return a.Type == "directory"
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
	for _, c := range n.Children {
		c.sort()
	}
}
