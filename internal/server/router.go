// Package server assembles the HTTP router.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/config"
	"github.com/jimdaga/sop-studio/internal/dashboard"
	"github.com/jimdaga/sop-studio/internal/generator"
	"github.com/jimdaga/sop-studio/internal/health"
	"github.com/jimdaga/sop-studio/internal/letters"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/jimdaga/sop-studio/internal/onboarding"
	"github.com/jimdaga/sop-studio/internal/profile"
	"github.com/jimdaga/sop-studio/internal/prompts"
	"github.com/jimdaga/sop-studio/internal/quota"
	"github.com/jimdaga/sop-studio/internal/store"
)

const sessionName = "sop_studio_session"

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       store.Store
	Generator   generator.TextGenerator
	Prompts     *prompts.Registry
	Guard       *quota.Guard
	ReadyChecks []health.Check
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(d.Logger))

	sessionStore := cookie.NewStore([]byte(d.Config.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   d.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, sessionStore))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", gin.WrapF(health.Ready(d.ReadyChecks...)))

	r.GET("/auth/google", auth.HandleLogin)
	r.GET("/auth/google/callback", auth.HandleCallback(d.Store, d.Config.DefaultLettersLimit))
	r.POST("/auth/logout", auth.HandleLogout)

	requireAuth := auth.RequireAuth(d.Store)
	r.GET("/dashboard", requireAuth, dashboard.RedirectHandler())

	profiles := profile.NewService(d.Store)
	wizard := onboarding.NewService(d.Store)
	letterSvc := letters.NewService(d.Store, profiles, d.Prompts, d.Generator, d.Guard)

	api := r.Group("/api", requireAuth)
	{
		api.GET("/me", auth.MeHandler)
		api.GET("/dashboard", dashboard.Handler(d.Store))

		api.GET("/profile", profile.GetProfileHandler(profiles))
		api.POST("/profile", profile.CreateProfileHandler(profiles))
		api.PATCH("/profile", profile.UpdateProfileHandler(profiles))

		api.POST("/onboarding/country-select", onboarding.CountrySelectHandler(wizard))
		api.POST("/onboarding/profile-step", onboarding.ProfileStepHandler(wizard))
		api.GET("/onboarding/status", onboarding.StatusHandler(wizard))

		api.POST("/generate-letter", letters.GenerateHandler(letterSvc))
		api.GET("/letters", letters.ListHandler(letterSvc))
		api.GET("/letters/:id", letters.GetHandler(letterSvc))
		api.PATCH("/letters/:id", letters.UpdateHandler(letterSvc))
		api.DELETE("/letters/:id", letters.DeleteHandler(letterSvc))
		api.PATCH("/letters/:id/favorite", letters.FavoriteHandler(letterSvc))
		api.PATCH("/letters/:id/rating", letters.RatingHandler(letterSvc))
		api.GET("/letters/:id/download", letters.DownloadHandler(letterSvc))
	}

	r.NoRoute(func(c *gin.Context) {
		apperror.Respond(c, apperror.NotFound("Route"))
	})

	return r
}
