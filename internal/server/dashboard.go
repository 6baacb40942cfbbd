package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DashboardStats summarizes the caller's invoices per status.
//
//	@Summary	Dashboard summary
//	@Tags		dashboard
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/v1/dashboard/stats [get]
func (s *Server) DashboardStats(c *gin.Context) {
	resp, err := s.dashboardSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
