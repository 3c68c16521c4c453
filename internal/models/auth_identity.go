package models

import (
	"time"

	"github.com/jimdaga/sop-studio/internal/crypto"
	"gorm.io/gorm"
)

var encryptor *crypto.FieldEncryptor

// InitEncryption initializes the column encryptor for the models package.
// Must be called before any database operations involving encrypted fields.
func InitEncryption(encryptionKey string) error {
	var err error
	encryptor, err = crypto.NewFieldEncryptor(encryptionKey)
	return err
}

// AuthIdentity links a user to an identity provider account. Tokens are
// stored encrypted.
type AuthIdentity struct {
	gorm.Model
	UserID         uint   `gorm:"not null;index"`
	Provider       string `gorm:"not null"`
	ProviderUserID string `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user,where:deleted_at IS NULL"`
	AccessToken    string `gorm:"type:text"`
	RefreshToken   string `gorm:"type:text"`
	TokenExpiry    *time.Time
}

// BeforeSave encrypts tokens before saving to database.
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	var err error
	if a.AccessToken, err = encryptValue(a.AccessToken); err != nil {
		return err
	}
	a.RefreshToken, err = encryptValue(a.RefreshToken)
	return err
}

// AfterFind decrypts tokens after loading from database
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	var err error
	if a.AccessToken, err = decryptValue(a.AccessToken); err != nil {
		return err
	}
	a.RefreshToken, err = decryptValue(a.RefreshToken)
	return err
}

// encryptValue is a no-op when encryption was never initialised (tests, local dev).
func encryptValue(v string) (string, error) {
	if encryptor == nil || v == "" || crypto.IsEncrypted(v) {
		return v, nil
	}
	return encryptor.Encrypt(v)
}

func decryptValue(v string) (string, error) {
	if encryptor == nil || v == "" {
		return v, nil
	}
	return encryptor.Decrypt(v)
}
