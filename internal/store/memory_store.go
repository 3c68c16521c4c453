package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jimdaga/sop-studio/internal/models"
)

// MemoryStore keeps everything in-process. Used by tests and by the server
// when no DATABASE_URL is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   uint
	users    map[uint]models.User
	profiles map[uint]models.StudentProfile
	letters  map[uint]models.GeneratedLetter
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]models.User),
		profiles: make(map[uint]models.StudentProfile),
		letters:  make(map[uint]models.GeneratedLetter),
	}
}

func (m *MemoryStore) id() uint {
	m.nextID++
	return m.nextID
}

// PutUser inserts or replaces a user, assigning an ID when zero.
func (m *MemoryStore) PutUser(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putUserLocked(user)
}

func (m *MemoryStore) putUserLocked(user *models.User) {
	if user.ID == 0 {
		user.ID = m.id()
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = *user
}

func (m *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpsertLoginUser(_ context.Context, identity LoginIdentity) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, existing := range m.users {
		if existing.Email != identity.Email {
			continue
		}
		existing.Name = identity.Name
		existing.AvatarURL = identity.AvatarURL
		existing.LastLoginAt = &now
		m.putUserLocked(&existing)
		return &existing, nil
	}

	user := &models.User{
		Email:            identity.Email,
		Name:             identity.Name,
		AvatarURL:        identity.AvatarURL,
		Role:             "user",
		OnboardingStatus: models.OnboardingCountrySelection,
		SubscriptionTier: models.TierFree,
		LettersLimit:     models.TierFree.LettersLimit(identity.LettersLimit),
		LastLoginAt:      &now,
	}
	m.putUserLocked(user)
	return user, nil
}

func (m *MemoryStore) SetTargetCountry(_ context.Context, userID uint, country models.Country) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	c := country
	user.TargetCountry = &c
	user.OnboardingStatus = models.OnboardingProfileCreation
	user.OnboardingStep = 0
	user.UpdatedAt = time.Now()
	m.users[userID] = user
	return &user, nil
}

func (m *MemoryStore) findProfile(userID uint, country models.Country) (models.StudentProfile, bool) {
	for _, p := range m.profiles {
		if p.UserID == userID && p.Country == country {
			return cloneProfile(p), true
		}
	}
	return models.StudentProfile{}, false
}

func (m *MemoryStore) GetProfile(_ context.Context, userID uint, country models.Country) (*models.StudentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.findProfile(userID, country)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetProfileByID(_ context.Context, id, userID uint) (*models.StudentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	p = cloneProfile(p)
	return &p, nil
}

func (m *MemoryStore) CreateProfile(_ context.Context, profile *models.StudentProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.findProfile(profile.UserID, profile.Country); exists {
		return ErrProfileExists
	}
	m.insertProfile(profile)
	return nil
}

func (m *MemoryStore) insertProfile(profile *models.StudentProfile) {
	profile.ID = m.id()
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = profile.CreatedAt
	profile.RefreshCompleteness()
	m.profiles[profile.ID] = cloneProfile(*profile)
}

func (m *MemoryStore) SaveProfile(_ context.Context, profile *models.StudentProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; !ok {
		return ErrNotFound
	}
	profile.UpdatedAt = time.Now()
	profile.RefreshCompleteness()
	m.profiles[profile.ID] = cloneProfile(*profile)
	return nil
}

func (m *MemoryStore) ApplyOnboardingStep(_ context.Context, update StepUpdate) (*models.StudentProfile, *models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[update.UserID]
	if !ok {
		return nil, nil, ErrNotFound
	}

	profile, exists := m.findProfile(update.UserID, update.Country)
	if !exists && !update.CreateIfMissing {
		return nil, nil, ErrNotFound
	}
	if !exists {
		profile = models.StudentProfile{UserID: update.UserID, Country: update.Country}
	}

	applySections(&profile, update.Sections)
	if exists {
		profile.UpdatedAt = time.Now()
		m.profiles[profile.ID] = cloneProfile(profile)
	} else {
		m.insertProfile(&profile)
	}

	user.OnboardingStep = update.Step
	if update.Status != "" {
		user.OnboardingStatus = update.Status
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user

	return &profile, &user, nil
}

func (m *MemoryStore) CreateLetter(_ context.Context, letter *models.GeneratedLetter) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[letter.UserID]
	if !ok {
		return nil, ErrNotFound
	}
	if user.LettersGenerated >= user.LettersLimit {
		return nil, ErrQuotaExceeded
	}

	letter.ID = m.id()
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = time.Now()
	}
	letter.UpdatedAt = letter.CreatedAt
	m.letters[letter.ID] = *letter

	user.LettersGenerated++
	m.users[user.ID] = user
	return &user, nil
}

func (m *MemoryStore) GetLetter(_ context.Context, id, userID uint) (*models.GeneratedLetter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	letter, ok := m.letters[id]
	if !ok || letter.UserID != userID {
		return nil, ErrNotFound
	}
	return &letter, nil
}

func (m *MemoryStore) ListLetters(_ context.Context, userID uint) ([]models.GeneratedLetter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.GeneratedLetter, 0)
	for _, l := range m.letters {
		if l.UserID == userID {
			res = append(res, l)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *MemoryStore) UpdateLetter(_ context.Context, id, userID uint, update LetterUpdate) (*models.GeneratedLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	letter, ok := m.letters[id]
	if !ok || letter.UserID != userID {
		return nil, ErrNotFound
	}
	applyLetterUpdate(&letter, update)
	letter.UpdatedAt = time.Now()
	m.letters[id] = letter
	return &letter, nil
}

func (m *MemoryStore) DeleteLetter(_ context.Context, id, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	letter, ok := m.letters[id]
	if !ok || letter.UserID != userID {
		return ErrNotFound
	}
	delete(m.letters, id)
	return nil
}

// cloneProfile copies the section byte slices so callers cannot mutate stored state.
func cloneProfile(p models.StudentProfile) models.StudentProfile {
	out := p
	for _, key := range models.SectionKeys {
		if key == models.SectionPassportNumber {
			continue
		}
		if raw := p.Section(key); raw != nil {
			out.SetSection(key, raw)
		}
	}
	return out
}
