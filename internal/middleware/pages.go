package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PageData returns the template data shared by every page: the title and the
// current principal, merged with the page's own values.
func PageData(c *gin.Context, title string, values gin.H) gin.H {
	data := gin.H{
		"Title":     title,
		"Principal": GetPrincipal(c),
	}
	for k, v := range values {
		data[k] = v
	}
	return data
}

// RenderError renders the error page with the given status and aborts the chain
func RenderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.html", PageData(c, http.StatusText(status), gin.H{
		"Status":  status,
		"Message": message,
	}))
	c.Abort()
}
