package repositories

import "userapi/internal/models"

// UserRepository defines the interface for user data access. Records are
// keyed by email; Rekey moves a record from one key to another as a single
// unit so the key always equals the record's current email.
type UserRepository interface {
	Contains(email string) (bool, error)
	Get(email string) (*models.User, error)
	Put(user *models.User) error
	Remove(email string) (*models.User, error)
	Rekey(oldEmail string, user *models.User) error
	Values() ([]models.User, error)
	IsEmpty() (bool, error)
}
