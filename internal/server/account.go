package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/salesdesk/internal/account/domain"
)

func (s *Server) ListAccountOptions(c *gin.Context) {
	var query struct {
		Types    string `form:"types"`
		MaxDepth string `form:"max_depth"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	maxDepth, err := parseOptionalInt(query.MaxDepth)
	if err != nil || (maxDepth != nil && *maxDepth < 0) {
		AbortWithError(c, newValidationError("max_depth", "invalid_max_depth", "invalid max_depth"))
		return
	}

	filter := accountdomain.ListFilter{AccountTypes: splitList(query.Types)}
	if maxDepth != nil {
		filter.MaxDepth = *maxDepth
	}

	options, err := s.accounts.ListOptions(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": options})
}
