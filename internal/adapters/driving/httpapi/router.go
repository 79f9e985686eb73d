package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lectern-labs/lectern/internal/core/ports/driving"
)

// Options configures the router.
type Options struct {
	// AllowedOrigins configures CORS. Empty disables cross-origin
	// requests.
	AllowedOrigins []string
}

// NewRouter builds the HTTP API over the driving ports.
func NewRouter(
	reader driving.RealmReader,
	editor driving.RealmEditor,
	daemon driving.SyncDaemon,
	opts Options,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", HeaderUsername, HeaderDisplayName, HeaderRoles},
		}))
	}
	r.Use(TrustedHeaderAuth())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handler{reader: reader, editor: editor, daemon: daemon}

	api := r.Group("/api")
	{
		api.GET("/status", h.status)
		api.GET("/search", h.search)

		api.GET("/realm", h.realmByPath)
		api.GET("/realms/:id", h.realmByID)
		api.POST("/realms/:id/children", h.addChild)
		api.POST("/realms/:id/rename", h.rename)
		api.POST("/realms/:id/segment", h.changeSegment)
		api.POST("/realms/:id/delete", h.deleteRealm)
		api.POST("/realms/:id/order", h.setChildOrder)

		api.POST("/realms/:id/blocks", h.insertBlock)
		api.POST("/realms/:id/blocks/:pos/move", h.moveBlock)
		api.POST("/realms/:id/blocks/:pos/delete", h.removeBlock)
		api.POST("/blocks/:id", h.updateBlock)
	}

	return r
}
