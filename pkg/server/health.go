package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/milan604/hr-console/pkg/apperr"
	"github.com/milan604/hr-console/pkg/response"
	"github.com/milan604/hr-console/pkg/version"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		results := make([]checkResult, 0, len(names))
		healthy := true
		for _, name := range names {
			r := checkResult{Name: name, Status: "up"}
			if err := checks[name](ctx); err != nil {
				healthy = false
				r.Status = "down"
				r.Error = err.Error()
			}
			results = append(results, r)
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, response.APIResponse{
				Success: false,
				Code:    apperr.ErrorCodeUnavailable.Code(),
				Message: apperr.ErrorCodeUnavailable.Message(),
				Data:    results,
			})
			return
		}
		response.Success(c, results)
	}
}

func versionHandler(c *gin.Context) {
	response.Success(c, version.Get())
}
