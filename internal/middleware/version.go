package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion describes one published API version.
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active" or "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
}

// VersionMiddleware stamps API version headers on versioned route groups.
type VersionMiddleware struct {
	service  string
	versions map[string]APIVersion
}

func NewVersionMiddleware(service string) *VersionMiddleware {
	return &VersionMiddleware{
		service: service,
		versions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active"},
		},
	}
}

// VersionRoute creates the "/<version>" group with version headers applied.
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	group := e.Group("/" + version)
	group.Use(vm.VersionHeader(version))
	return group
}

func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)
			if ver, ok := vm.versions[version]; ok && ver.Status == "deprecated" {
				h.Set("X-API-Deprecated", "true")
				if ver.SunsetDate != nil {
					h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
					h.Set("Warning", "299 "+vm.service+" \"This API version is deprecated and will be removed on "+ver.SunsetDate.Format("2006-01-02")+"\"")
				}
			}
			return next(c)
		}
	}
}
