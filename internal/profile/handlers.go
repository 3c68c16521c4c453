package profile

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/logging"
)

// GetProfileHandler returns the caller's profile for their target country.
func GetProfileHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		p, err := svc.Get(c.Request.Context(), user)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": p})
	}
}

// CreateProfileHandler creates the caller's profile from a body of sections.
func CreateProfileHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		sections, ok := bindSections(c)
		if !ok {
			return
		}
		p, err := svc.Create(c.Request.Context(), user, sections)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"profile": p})
	}
}

// UpdateProfileHandler validates and overwrites the provided sections.
func UpdateProfileHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		sections, ok := bindSections(c)
		if !ok {
			return
		}
		p, err := svc.Update(c.Request.Context(), user, sections)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": p})
	}
}

func bindSections(c *gin.Context) (map[string]json.RawMessage, bool) {
	var sections map[string]json.RawMessage
	if err := c.ShouldBindJSON(&sections); err != nil {
		apperror.Respond(c, apperror.Validation("Request body must be a JSON object of profile sections"))
		return nil, false
	}
	return sections, true
}

func respondError(c *gin.Context, err error) {
	if apperror.Status(err) >= http.StatusInternalServerError {
		logging.FromGin(c).Error("Profile request failed", "error", err)
	}
	apperror.Respond(c, err)
}
