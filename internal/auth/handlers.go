package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/store"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
)

const provider = "google"

// completeUserAuth is replaced in tests.
var completeUserAuth = gothic.CompleteUserAuth

// HandleLogin starts the Google OAuth flow.
func HandleLogin(c *gin.Context) {
	setProvider(c)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes OAuth, upserts the user and identity, stores the
// session and redirects according to the user's onboarding state.
// lettersLimit is the FREE quota given to new users.
func HandleCallback(st store.Store, lettersLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logging.FromGin(c)
		setProvider(c)

		gothUser, err := completeUserAuth(c.Writer, c.Request)
		if err != nil {
			logger.Warn("OAuth callback failed", "error", err)
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		user, err := Login(c, st, gothUser, lettersLimit)
		if err != nil {
			logger.Error("Failed to complete login", "email", gothUser.Email, "error", err)
			c.Redirect(http.StatusFound, "/login?error=session_failed")
			return
		}

		logger.Info("User authenticated", "user_id", user.ID, "email", user.Email)
		c.Redirect(http.StatusFound, user.HomePath())
	}
}

// Login records the provider identity and starts an app session for it.
func Login(c *gin.Context, st store.Store, gothUser goth.User, lettersLimit int) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(gothUser.Email))
	if email == "" {
		return nil, errors.New("identity provider returned no email")
	}

	identity := store.LoginIdentity{
		Email:          email,
		Name:           gothUser.Name,
		AvatarURL:      gothUser.AvatarURL,
		Provider:       gothUser.Provider,
		ProviderUserID: gothUser.UserID,
		AccessToken:    gothUser.AccessToken,
		RefreshToken:   gothUser.RefreshToken,
		LettersLimit:   lettersLimit,
	}
	if identity.Provider == "" {
		identity.Provider = provider
	}
	if !gothUser.ExpiresAt.IsZero() {
		expires := gothUser.ExpiresAt
		identity.ExpiresAt = &expires
	}

	user, err := st.UpsertLoginUser(c.Request.Context(), identity)
	if err != nil {
		return nil, err
	}

	session := sessions.Default(c)
	session.Set(SessionUserID, user.ID)
	session.Set(SessionUserEmail, user.Email)
	session.Set(SessionUserName, user.Name)
	if err := session.Save(); err != nil {
		return nil, err
	}
	return user, nil
}

// HandleLogout clears the app session. API clients get JSON; browsers are redirected.
func HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		logging.FromGin(c).Warn("Failed to clear session", "error", err)
	}
	_ = gothic.Logout(c.Writer, c.Request)

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/login"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// MeHandler returns the signed-in user and where the dashboard would send them.
func MeHandler(c *gin.Context) {
	user := MustCurrentUser(c)
	if user == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":                 user,
		"redirect":             user.HomePath(),
		"remainingGenerations": user.RemainingGenerations(),
	})
}

// setProvider adds the provider query parameter gothic expects.
func setProvider(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
}
