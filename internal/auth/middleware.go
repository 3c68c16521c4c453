package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/store"
)

// Session keys
const (
	SessionUserID    = "user_id"
	SessionUserEmail = "user_email"
	SessionUserName  = "user_name"
)

const currentUserKey = "current_user"

// RequireAuth ensures the request carries a session for an existing user and
// loads that user onto the context. API requests get a 401 JSON body; page
// requests are redirected to the login route.
func RequireAuth(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(SessionUserID).(uint)
		if !ok || userID == 0 {
			reject(c)
			return
		}

		user, err := st.GetUser(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logging.FromGin(c).Error("Failed to load session user", "user_id", userID, "error", err)
				apperror.Respond(c, err)
				return
			}
			// Stale session for a user that no longer exists
			session.Clear()
			_ = session.Save()
			reject(c)
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

func reject(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		apperror.Respond(c, apperror.Unauthenticated())
		return
	}
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

// SetCurrentUser stores the authenticated user for downstream handlers.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser returns the user loaded by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// MustCurrentUser returns the current user or writes a 401 and returns nil.
func MustCurrentUser(c *gin.Context) *models.User {
	user, ok := CurrentUser(c)
	if !ok {
		apperror.Respond(c, apperror.Unauthenticated())
		return nil
	}
	return user
}
