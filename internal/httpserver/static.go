package httpserver

import (
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

var backendPrefixes = []string{"/api", "/health", "/metrics", "/uploads"}

// registerStatic serves uploaded assets and the built frontend. Unknown
// non-API paths fall back to index.html so client side routes work.
func registerStatic(e *echo.Echo, frontendDir, uploadsDir string) {
	if dirExists(uploadsDir) {
		e.Static("/uploads", uploadsDir)
	}
	if !dirExists(frontendDir) {
		return
	}

	e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
		Root:  frontendDir,
		Index: "index.html",
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			for _, prefix := range backendPrefixes {
				if strings.HasPrefix(p, prefix) {
					return true
				}
			}
			return false
		},
	}))
}

func dirExists(dir string) bool {
	if dir == "" {
		return false
	}
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}
