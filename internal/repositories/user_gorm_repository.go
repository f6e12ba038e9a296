package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"userapi/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Contains reports whether a user exists under the given email.
func (r *GORMUserRepository) Contains(email string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user with email %s: %w", email, err)
	}
	return count > 0, nil
}

// Get retrieves a user by email from the database.
func (r *GORMUserRepository) Get(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// Put inserts the user, or overwrites the existing row at the same email.
func (r *GORMUserRepository) Put(user *models.User) error {
	exists, err := r.Contains(user.Email)
	if err != nil {
		return err
	}
	if exists {
		if err := r.db.Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user %s: %w", user.Email, err)
		}
		return nil
	}
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

// Remove deletes the user row and returns the removed record.
func (r *GORMUserRepository) Remove(email string) (*models.User, error) {
	user, err := r.Get(email)
	if err != nil {
		return nil, err
	}
	res := r.db.Delete(&models.User{}, "email = ?", email)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete user %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("user with email %s not found for deletion", email)
	}
	return user, nil
}

// Rekey moves the record from oldEmail to the user's current email inside a
// transaction, so both sides of the move commit or neither does.
func (r *GORMUserRepository) Rekey(oldEmail string, user *models.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, "email = ?", oldEmail)
		if res.Error != nil {
			return fmt.Errorf("failed to remove user %s for rekey: %w", oldEmail, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user with email %s not found for rekey", oldEmail)
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to reinsert user as %s: %w", user.Email, err)
		}
		return nil
	})
}

// Values retrieves all users from the database.
func (r *GORMUserRepository) Values() ([]models.User, error) {
	var users []models.User
	if err := r.db.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// IsEmpty reports whether the users table holds no rows.
func (r *GORMUserRepository) IsEmpty() (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count == 0, nil
}
