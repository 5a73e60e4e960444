package admin

import (
	"github.com/folioworks/portfolio-api/internal/contact"
	"github.com/folioworks/portfolio-api/internal/content"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/folioworks/portfolio-api/internal/http/api/admin/handlers"
	"github.com/gin-gonic/gin"
)

// RegisterAdminRoutes registers the admin content API under /admin. Every route
// requires a verified bearer token from an allow-listed email.
func RegisterAdminRoutes(api *gin.RouterGroup, auth apihttp.Authenticator, engine *content.Engine, contacts *contact.Store, maxUploadBytes int64) {
	if api == nil {
		return
	}

	admin := api.Group("/admin")
	admin.Use(apihttp.AuthMiddleware(auth), apihttp.RequireAdmin())

	emailHandler := handlers.NewEmailHandler(contacts)
	admin.GET("/emails", emailHandler.List)
	admin.DELETE("/emails/:id", emailHandler.Delete)

	sectionHandler := handlers.NewSectionHandler(engine)
	admin.GET("/sections", sectionHandler.List)
	admin.GET("/sections/:section", sectionHandler.Get)
	admin.PATCH("/sections/:section", sectionHandler.PatchDefault)
	admin.GET("/sections/:section/rows", sectionHandler.ListRows)
	admin.POST("/sections/:section/rows", sectionHandler.CreateRow)
	admin.PATCH("/sections/:section/rows/:id", sectionHandler.PatchRow)
	admin.DELETE("/sections/:section/rows/:id", sectionHandler.DeleteRow)

	itemHandler := handlers.NewItemHandler(engine)
	admin.GET("/sections/:section/items", itemHandler.List)
	admin.POST("/sections/:section/items", itemHandler.Create)
	admin.PATCH("/sections/:section/items/:id", itemHandler.Patch)
	admin.DELETE("/sections/:section/items/:id", itemHandler.Delete)

	nestedHandler := handlers.NewNestedHandler(engine)
	nested := admin.Group("/sections/:section/nested/:parentTable/:parentId/:nestedType")
	nested.GET("", nestedHandler.List)
	nested.POST("", nestedHandler.Create)
	nested.PATCH("/:id", nestedHandler.Patch)
	nested.DELETE("/:id", nestedHandler.Delete)

	assetHandler := handlers.NewAssetHandler(engine, maxUploadBytes)
	admin.GET("/storage/list", assetHandler.List)
	admin.POST("/upload", assetHandler.Upload)
}
