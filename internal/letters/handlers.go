package letters

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/logging"
)

// GenerateHandler handles POST /api/generate-letter.
func GenerateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		var req GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.Respond(c, apperror.Validation("Request body must include letterType and profileId"))
			return
		}

		result, err := svc.Generate(c.Request.Context(), user, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ListHandler handles GET /api/letters?q=&filter=&sort=.
func ListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		letters, err := svc.List(c.Request.Context(), user.ID, ListOptions{
			Query:  c.Query("q"),
			Filter: c.Query("filter"),
			Sort:   c.Query("sort"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"letters": letters, "count": len(letters)})
	}
}

// GetHandler handles GET /api/letters/:id.
func GetHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		id, ok := letterID(c)
		if !ok {
			return
		}
		letter, err := svc.Get(c.Request.Context(), user.ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"letter": letter})
	}
}

type contentRequest struct {
	Content string `json:"content"`
}

// UpdateHandler handles PATCH /api/letters/:id (content edits).
func UpdateHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		id, ok := letterID(c)
		if !ok {
			return
		}
		var req contentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.Respond(c, apperror.ValidationField("content", "content is required"))
			return
		}
		letter, err := svc.UpdateContent(c.Request.Context(), user.ID, id, req.Content)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"letter": letter})
	}
}

// DeleteHandler handles DELETE /api/letters/:id.
func DeleteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		id, ok := letterID(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), user.ID, id); err != nil {
			respondError(c, err)
			return
		}
		logging.FromGin(c).Info("Letter deleted", "user_id", user.ID, "letter_id", id)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type favoriteRequest struct {
	IsFavorite *bool `json:"isFavorite"`
}

// FavoriteHandler handles PATCH /api/letters/:id/favorite.
func FavoriteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		id, ok := letterID(c)
		if !ok {
			return
		}
		var req favoriteRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.IsFavorite == nil {
			apperror.Respond(c, apperror.ValidationField("isFavorite", "isFavorite must be true or false"))
			return
		}
		letter, err := svc.SetFavorite(c.Request.Context(), user.ID, id, *req.IsFavorite)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"letter": letter})
	}
}

type ratingRequest struct {
	Rating *int `json:"rating"`
}

// RatingHandler handles PATCH /api/letters/:id/rating.
func RatingHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		id, ok := letterID(c)
		if !ok {
			return
		}
		var req ratingRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil {
			apperror.Respond(c, apperror.ValidationField("rating", "Rating must be between 1 and 5"))
			return
		}
		letter, err := svc.Rate(c.Request.Context(), user.ID, id, *req.Rating)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"letter": letter})
	}
}

// DownloadHandler handles GET /api/letters/:id/download?format=txt|html.
func DownloadHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.MustCurrentUser(c)
		if user == nil {
			return
		}
		id, ok := letterID(c)
		if !ok {
			return
		}
		dl, err := svc.Download(c.Request.Context(), user.ID, id, c.Query("format"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.Filename))
		c.Data(http.StatusOK, dl.ContentType, dl.Body)
	}
}

// letterID parses :id. Malformed IDs cannot match a letter, so they are 404s.
func letterID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, strconv.IntSize)
	if err != nil || id == 0 {
		apperror.Respond(c, apperror.NotFound("Letter"))
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	if apperror.Status(err) >= http.StatusInternalServerError {
		logging.FromGin(c).Error("Letter request failed", "path", c.FullPath(), "error", err)
	}
	apperror.Respond(c, err)
}
