package onboarding

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/jimdaga/sop-studio/internal/models"
)

type countryRequest struct {
	Country models.Country `json:"country" binding:"required"`
}

type stepRequest struct {
	Step string                     `json:"step" binding:"required"`
	Data map[string]json.RawMessage `json:"data"`
}

// CountrySelectHandler sets the user's target country.
func CountrySelectHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		var req countryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.Respond(c, apperror.ValidationField("country", "country is required"))
			return
		}

		updated, err := svc.SelectCountry(c.Request.Context(), user, req.Country)
		if err != nil {
			respondError(c, err)
			return
		}
		logging.FromGin(c).Info("Target country selected", "user_id", user.ID, "country", req.Country)
		c.JSON(http.StatusOK, gin.H{"user": updated, "redirect": ProfileRoute})
	}
}

// ProfileStepHandler accepts one wizard step submission.
func ProfileStepHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		var req stepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.Respond(c, apperror.ValidationField("step", "step is required"))
			return
		}

		result, err := svc.SubmitStep(c.Request.Context(), user, req.Step, req.Data)
		if err != nil {
			respondError(c, err)
			return
		}
		logging.FromGin(c).Info("Onboarding step saved",
			"user_id", user.ID,
			"step", req.Step,
			"onboarding_step", result.Step,
			"status", result.Status,
		)
		c.JSON(http.StatusOK, result)
	}
}

// StatusHandler reports onboarding progress.
func StatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		status, err := svc.Status(c.Request.Context(), user)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func respondError(c *gin.Context, err error) {
	if apperror.Status(err) >= http.StatusInternalServerError {
		logging.FromGin(c).Error("Onboarding request failed", "error", err)
	}
	apperror.Respond(c, err)
}
