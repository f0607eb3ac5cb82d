package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/teamhub/teamhub/backend/go-services/internal/apierr"
	"github.com/teamhub/teamhub/backend/go-services/pkg/middleware"
)

func respondError(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

// bindJSON binds the body into req and answers 400 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apierr.Validation(err.Error()))
		return false
	}
	return true
}
