package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-compressor/internal/api/handlers/image"
	"github.com/aliskhannn/image-compressor/internal/api/handlers/storage"
)

// Setup registers the API routes.
func Setup(ih *image.Handler, sh *storage.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/compress", ih.Compress) // compress inline
	api.POST("/base64", ih.Base64)     // file as data URL

	api.POST("/jobs", ih.Submit)              // queue a compression job
	api.GET("/jobs/:id", ih.GetJob)           // job status
	api.GET("/jobs/:id/result", ih.GetResult) // compressed image
	api.DELETE("/jobs/:id", ih.DeleteJob)     // delete job and images

	api.GET("/storage", sh.Supported)
	api.GET("/storage/:key", sh.Get)
	api.PUT("/storage/:key", sh.Set)
	api.DELETE("/storage/:key", sh.Remove)

	return r
}
