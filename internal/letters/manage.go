package letters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jimdaga/sop-studio/internal/apperror"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/store"
)

// Filters accepted by List.
const (
	FilterAll       = "all"
	FilterFavorites = "favorites"
	FilterRated     = "rated"
	FilterRecent    = "recent"
)

// Sort orders accepted by List.
const (
	SortDate   = "date"
	SortTitle  = "title"
	SortWords  = "words"
	SortRating = "rating"
)

// recentWindow bounds FilterRecent.
const recentWindow = 7 * 24 * time.Hour

// ListOptions narrows and orders a user's letters. Zero values mean all
// letters, newest first.
type ListOptions struct {
	Query  string
	Filter string
	Sort   string
}

// List returns the user's letters matching opts.
func (s *Service) List(ctx context.Context, userID uint, opts ListOptions) ([]models.GeneratedLetter, error) {
	filter := strings.ToLower(strings.TrimSpace(opts.Filter))
	if filter == "" {
		filter = FilterAll
	}
	sortBy := strings.ToLower(strings.TrimSpace(opts.Sort))
	if sortBy == "" {
		sortBy = SortDate
	}
	switch filter {
	case FilterAll, FilterFavorites, FilterRated, FilterRecent:
	default:
		return nil, apperror.ValidationField("filter", fmt.Sprintf("unknown filter %q", opts.Filter))
	}
	switch sortBy {
	case SortDate, SortTitle, SortWords, SortRating:
	default:
		return nil, apperror.ValidationField("sort", fmt.Sprintf("unknown sort %q", opts.Sort))
	}

	all, err := s.store.ListLetters(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(opts.Query))
	cutoff := s.now().Add(-recentWindow)
	result := make([]models.GeneratedLetter, 0, len(all))
	for _, l := range all {
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Title), query) &&
			!strings.Contains(strings.ToLower(l.Content), query) {
			continue
		}
		switch filter {
		case FilterFavorites:
			if !l.IsFavorite {
				continue
			}
		case FilterRated:
			if l.FeedbackRating == nil {
				continue
			}
		case FilterRecent:
			if l.CreatedAt.Before(cutoff) {
				continue
			}
		}
		result = append(result, l)
	}

	sortLetters(result, sortBy)
	return result, nil
}

func sortLetters(letters []models.GeneratedLetter, sortBy string) {
	newest := func(i, j int) bool {
		if letters[i].CreatedAt.Equal(letters[j].CreatedAt) {
			return letters[i].ID > letters[j].ID
		}
		return letters[i].CreatedAt.After(letters[j].CreatedAt)
	}
	sort.SliceStable(letters, func(i, j int) bool {
		switch sortBy {
		case SortTitle:
			a, b := strings.ToLower(letters[i].Title), strings.ToLower(letters[j].Title)
			if a != b {
				return a < b
			}
		case SortWords:
			if letters[i].WordCount != letters[j].WordCount {
				return letters[i].WordCount > letters[j].WordCount
			}
		case SortRating:
			a, b := rating(letters[i]), rating(letters[j])
			if a != b {
				return a > b
			}
		}
		return newest(i, j)
	})
}

// rating sorts unrated letters last.
func rating(l models.GeneratedLetter) int {
	if l.FeedbackRating == nil {
		return 0
	}
	return *l.FeedbackRating
}

// Get returns one of the user's letters.
func (s *Service) Get(ctx context.Context, userID, id uint) (*models.GeneratedLetter, error) {
	letter, err := s.store.GetLetter(ctx, id, userID)
	if err != nil {
		return nil, letterError(err)
	}
	return letter, nil
}

// UpdateContent replaces the letter body and recomputes its word count.
func (s *Service) UpdateContent(ctx context.Context, userID, id uint, content string) (*models.GeneratedLetter, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationField("content", "Content cannot be empty")
	}
	words := models.CountWords(content)
	return s.update(ctx, userID, id, store.LetterUpdate{Content: &content, WordCount: &words})
}

// SetFavorite sets the favorite flag.
func (s *Service) SetFavorite(ctx context.Context, userID, id uint, favorite bool) (*models.GeneratedLetter, error) {
	return s.update(ctx, userID, id, store.LetterUpdate{IsFavorite: &favorite})
}

// Rate records a 1 to 5 feedback rating.
func (s *Service) Rate(ctx context.Context, userID, id uint, value int) (*models.GeneratedLetter, error) {
	if value < 1 || value > 5 {
		return nil, apperror.ValidationField("rating", "Rating must be between 1 and 5")
	}
	return s.update(ctx, userID, id, store.LetterUpdate{FeedbackRating: &value})
}

// Delete permanently removes the letter.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	if err := s.store.DeleteLetter(ctx, id, userID); err != nil {
		return letterError(err)
	}
	return nil
}

func (s *Service) update(ctx context.Context, userID, id uint, upd store.LetterUpdate) (*models.GeneratedLetter, error) {
	letter, err := s.store.UpdateLetter(ctx, id, userID, upd)
	if err != nil {
		return nil, letterError(err)
	}
	return letter, nil
}

func letterError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("Letter")
	}
	return fmt.Errorf("letter store: %w", err)
}
