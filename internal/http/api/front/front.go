package front

import (
	"github.com/folioworks/portfolio-api/internal/contact"
	"github.com/folioworks/portfolio-api/internal/content"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/folioworks/portfolio-api/internal/http/api/front/handlers"
	"github.com/folioworks/portfolio-api/internal/ratelimit"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const contactRateLimitMessage = "Too many submissions, please try again later."

// RegisterFrontRoutes registers the public routes and /auth/me.
func RegisterFrontRoutes(api *gin.RouterGroup, auth apihttp.Authenticator, engine *content.Engine, contacts *contact.Store, limiter ratelimit.Limiter, db *gorm.DB, storageConfigured bool) {
	if api == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db, storageConfigured)
	api.GET("/health", healthHandler.Health)

	portfolioHandler := handlers.NewPortfolioHandler(engine)
	api.GET("/portfolio", gzip.Gzip(gzip.DefaultCompression), portfolioHandler.Get)

	contactHandler := handlers.NewContactHandler(contacts)
	api.POST("/contact", apihttp.RateLimitMiddleware(limiter, "contact", contactRateLimitMessage), contactHandler.Submit)

	authHandler := handlers.NewAuthHandler()
	api.GET("/auth/me", apihttp.AuthMiddleware(auth), authHandler.Me)
}
