// Package dashboard summarises a user's progress, quota and letters, and
// routes page requests to the right place for their onboarding state.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/store"
)

const recentLetters = 5

// Summary is the body of GET /api/dashboard.
type Summary struct {
	User                 *models.User             `json:"user"`
	Redirect             string                   `json:"redirect"`
	LettersGenerated     int                      `json:"lettersGenerated"`
	LettersLimit         int                      `json:"lettersLimit"`
	RemainingGenerations int                      `json:"remainingGenerations"`
	ProfileID            *uint                    `json:"profileId"`
	ProfileCompleteness  int                      `json:"profileCompleteness"`
	TotalLetters         int                      `json:"totalLetters"`
	FavoriteLetters      int                      `json:"favoriteLetters"`
	LettersThisWeek      int                      `json:"lettersThisWeek"`
	RecentLetters        []models.GeneratedLetter `json:"recentLetters"`
}

// Build assembles the summary for user.
func Build(ctx context.Context, st store.Store, user *models.User, now time.Time) (*Summary, error) {
	s := &Summary{
		User:                 user,
		Redirect:             user.HomePath(),
		LettersGenerated:     user.LettersGenerated,
		LettersLimit:         user.LettersLimit,
		RemainingGenerations: user.RemainingGenerations(),
		RecentLetters:        []models.GeneratedLetter{},
	}

	if user.TargetCountry != nil {
		p, err := st.GetProfile(ctx, user.ID, *user.TargetCountry)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to load profile: %w", err)
		default:
			id := p.ID
			s.ProfileID = &id
			s.ProfileCompleteness = p.ProfileCompleteness
		}
	}

	letters, err := st.ListLetters(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	weekAgo := now.Add(-7 * 24 * time.Hour)
	s.TotalLetters = len(letters)
	for _, l := range letters {
		if l.IsFavorite {
			s.FavoriteLetters++
		}
		if !l.CreatedAt.Before(weekAgo) {
			s.LettersThisWeek++
		}
	}
	if len(letters) > recentLetters {
		letters = letters[:recentLetters]
	}
	s.RecentLetters = append(s.RecentLetters, letters...)
	return s, nil
}

// Handler serves GET /api/dashboard.
func Handler(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		summary, err := Build(c.Request.Context(), st, user, time.Now())
		if err != nil {
			logging.FromGin(c).Error("Failed to build dashboard", "user_id", user.ID, "error", err)
			apperror.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// RedirectHandler sends GET /dashboard to the page for the user's onboarding state.
func RedirectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		c.Redirect(http.StatusFound, user.HomePath())
	}
}
