package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/billfold/billfold/internal/auth/domain"
	"github.com/billfold/billfold/internal/auth/password"
)

const (
	defaultUserEmail    = "owner@billfold.local"
	defaultUserPassword = "billfold"
	defaultUserDisplay  = "Billfold Owner"
)

// EnsureDefaultUser seeds a login for local and self-hosted setups so the
// app is usable right after first boot.
func EnsureDefaultUser(db *gorm.DB, email, plaintext string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = defaultUserEmail
	}
	if plaintext == "" {
		plaintext = defaultUserPassword
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing authdomain.User
		err := tx.Where(&authdomain.User{Email: email}).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := password.Hash(plaintext)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		return tx.Create(&authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			PasswordHash: hash,
			DisplayName:  defaultUserDisplay,
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error
	})
}
