package http

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the operator API of the sorter station
func SetupRoutes(router *gin.Engine, handlers *Handlers) {
	v1 := router.Group("/api/v1")
	{
		station := v1.Group("/station")
		{
			station.GET("", handlers.GetStation)
			station.DELETE("", handlers.Disconnect)
			station.POST("/connect", handlers.Connect)
			station.POST("/refresh", handlers.Refresh)
			station.PUT("/snapshot", handlers.PushSnapshot)

			station.GET("/grids/:gridId", handlers.GetGrid)
			station.PUT("/grids/:gridId/container", handlers.ChangeContainer)
			station.POST("/containers/auto-fill", handlers.AutoFill)

			station.GET("/source-containers", handlers.ListSourceContainers)
			station.POST("/source-container", handlers.ActivateSourceContainer)
			station.DELETE("/source-container", handlers.ClearSourceContainer)

			station.POST("/scans", handlers.Scan)

			station.GET("/history", handlers.GetHistory)
			station.POST("/history/previous", handlers.HistoryPrevious)
			station.POST("/history/next", handlers.HistoryNext)

			station.GET("/audit", handlers.GetAuditTrail)
		}
	}
}
