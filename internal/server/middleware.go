package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/salesdesk/internal/orgcontext"
)

const HeaderOrg = "X-Org-ID"

// OrgContext resolves the organization from the X-Org-ID header, falling back
// to the configured default organization.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := snowflake.ID(s.cfg.DefaultOrgID)
		if raw := strings.TrimSpace(c.GetHeader(HeaderOrg)); raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil || parsed == 0 {
				AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid organization id"))
				return
			}
			orgID = parsed
		}
		if orgID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set("org_id", orgID.String())
		c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), orgID))
		c.Next()
	}
}
