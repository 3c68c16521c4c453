package auth

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/jimdaga/sop-studio/internal/config"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// InitProviders configures gothic's session store and registers the Google
// provider. Without GOOGLE_CLIENT_ID login is disabled but the app still starts.
func InitProviders(cfg *config.Config, logger *slog.Logger) {
	// Gothic keeps OAuth state in its own gorilla store, separate from the app session.
	// The default store sets Secure=true, which breaks plain-HTTP localhost.
	gothStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	gothStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   60 * 10,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = gothStore

	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set; Google login is disabled until credentials are configured")
		return
	}

	goth.UseProviders(
		google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleCallbackURL,
			"email",
			"profile",
		),
	)
	logger.Info("Goth providers initialized", "providers", "google")
}
