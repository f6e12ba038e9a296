package services

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"userapi/internal/apperrors"
	"userapi/internal/models"
	"userapi/internal/repositories"
)

// PhoneNumberPattern is the fixed phone format: a leading +, 1-3 country-code
// digits, then exactly 9 digits.
const PhoneNumberPattern = `^\+\d{1,3}\d{9}$`

// UpdateField enumerates the fields a partial update may target.
type UpdateField string

const (
	FieldFirstName   UpdateField = "firstName"
	FieldLastName    UpdateField = "lastName"
	FieldBirthDate   UpdateField = "birthDate"
	FieldEmail       UpdateField = "email"
	FieldAddress     UpdateField = "address"
	FieldPhoneNumber UpdateField = "phoneNumber"
)

// ParseUpdateField maps a raw field name onto the fixed field set. Unknown
// names are a distinct validation failure.
func ParseUpdateField(name string) (UpdateField, error) {
	switch f := UpdateField(name); f {
	case FieldFirstName, FieldLastName, FieldBirthDate, FieldEmail, FieldAddress, FieldPhoneNumber:
		return f, nil
	default:
		return "", apperrors.BadRequest(apperrors.CodeUnknownField,
			fmt.Sprintf("incorrect field name: %s", name))
	}
}

// EventPublisher publishes user lifecycle events. A nil publisher disables
// event publication.
type EventPublisher interface {
	PublishUserEvent(action, email string, payload interface{}) error
}

// UserService enforces the business rules over the user repository: fail-fast
// validation before any mutation, and re-keying whenever an email changes.
type UserService struct {
	repo       repositories.UserRepository
	events     EventPublisher
	ageLimit   int
	emailRegex *regexp.Regexp
	phoneRegex *regexp.Regexp
}

// NewUserService creates a new UserService. ageLimit and emailRegex come from
// configuration; the phone pattern is fixed.
func NewUserService(repo repositories.UserRepository, events EventPublisher, ageLimit int, emailRegex *regexp.Regexp) *UserService {
	return &UserService{
		repo:       repo,
		events:     events,
		ageLimit:   ageLimit,
		emailRegex: emailRegex,
		phoneRegex: regexp.MustCompile(PhoneNumberPattern),
	}
}

// CreateUser stores a new user. It fails if the email is already taken or the
// user is below the configured age limit.
func (s *UserService) CreateUser(user *models.User) (*models.User, error) {
	exists, err := s.repo.Contains(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, apperrors.BadRequest(apperrors.CodeDuplicateResource,
			"user with this email already exists")
	}

	if err := s.checkAge(user.BirthDate); err != nil {
		return nil, err
	}

	if err := s.repo.Put(user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	s.publish("user.created", user)
	return user, nil
}

// UpdateUser overwrites every field of the record at email with those of
// updated. The validation checklist runs before any mutation; an email change
// re-keys the store entry.
func (s *UserService) UpdateUser(email string, updated *models.User) (*models.User, error) {
	exists, err := s.repo.Contains(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("User", "email", email)
	}

	if err := s.checkAge(updated.BirthDate); err != nil {
		return nil, err
	}
	if err := s.checkEmailFormat(updated.Email); err != nil {
		return nil, err
	}
	if err := s.checkPhoneFormat(updated.PhoneNumber); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", email, err)
	}
	*existing = *updated

	if email != existing.Email {
		if err := s.repo.Rekey(email, existing); err != nil {
			return nil, fmt.Errorf("failed to rekey user %s: %w", email, err)
		}
	} else {
		if err := s.repo.Put(existing); err != nil {
			return nil, fmt.Errorf("failed to store user %s: %w", email, err)
		}
	}

	s.publish("user.updated", existing)
	return existing, nil
}

// UpdateUserField applies a single-field partial update. Name fields and the
// address are set verbatim; birthDate must parse as yyyy-mm-dd; email and
// phoneNumber must match their patterns, and an email change re-keys the
// entry. A birthDate update parses the value but does not re-check the age
// limit; only create and full update enforce it.
func (s *UserService) UpdateUserField(email, fieldName, value string) (*models.User, error) {
	exists, err := s.repo.Contains(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if !exists {
		return nil, apperrors.NotFound("User", "email", email)
	}

	field, err := ParseUpdateField(fieldName)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", email, err)
	}

	rekeyed := false
	switch field {
	case FieldFirstName:
		existing.FirstName = value
	case FieldLastName:
		existing.LastName = value
	case FieldAddress:
		existing.Address = value
	case FieldBirthDate:
		birthDate, err := models.ParseDate(value)
		if err != nil {
			return nil, apperrors.BadRequest(apperrors.CodeInvalidDate,
				"incorrect date format, it should be yyyy-mm-dd")
		}
		existing.BirthDate = birthDate
	case FieldEmail:
		if err := s.checkEmailFormat(value); err != nil {
			return nil, err
		}
		existing.Email = value
		if err := s.repo.Rekey(email, existing); err != nil {
			return nil, fmt.Errorf("failed to rekey user %s: %w", email, err)
		}
		rekeyed = true
	case FieldPhoneNumber:
		if err := s.checkPhoneFormat(value); err != nil {
			return nil, err
		}
		existing.PhoneNumber = value
	}

	if !rekeyed {
		if err := s.repo.Put(existing); err != nil {
			return nil, fmt.Errorf("failed to store user %s: %w", email, err)
		}
	}

	s.publish("user.updated", existing)
	return existing, nil
}

// DeleteUser removes the user stored under email.
func (s *UserService) DeleteUser(email string) error {
	exists, err := s.repo.Contains(email)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if !exists {
		return apperrors.NotFound("User", "email", email)
	}

	removed, err := s.repo.Remove(email)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", email, err)
	}

	s.publish("user.deleted", removed)
	return nil
}

// SearchUsersByBirthDateRange returns every user whose birth date falls
// within [fromDate, toDate], inclusive on both ends.
func (s *UserService) SearchUsersByBirthDateRange(fromDate, toDate models.Date) ([]models.User, error) {
	if fromDate.After(toDate.Time) {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidRange,
			"from date must be less than or equal to the to date")
	}

	users, err := s.repo.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	usersInRange := make([]models.User, 0)
	for _, user := range users {
		birthDate := user.BirthDate
		if !birthDate.Before(fromDate.Time) && !birthDate.After(toDate.Time) {
			usersInRange = append(usersInRange, user)
		}
	}

	if len(usersInRange) == 0 {
		return nil, apperrors.New(http.StatusNotFound, apperrors.CodeNotFound,
			"no users found in the specified date range")
	}
	return usersInRange, nil
}

// FindAll returns every stored user.
func (s *UserService) FindAll() ([]models.User, error) {
	empty, err := s.repo.IsEmpty()
	if err != nil {
		return nil, fmt.Errorf("failed to check repository: %w", err)
	}
	if empty {
		return nil, apperrors.NotFound("User", "all", "no users found")
	}
	return s.repo.Values()
}

// checkAge verifies that the whole years elapsed since birthDate reach the
// configured age limit. Partial years are truncated.
func (s *UserService) checkAge(birthDate models.Date) error {
	if age(birthDate, time.Now()) < s.ageLimit {
		return apperrors.BadRequest(apperrors.CodeAgeBelowLimit,
			fmt.Sprintf("user must be at least %d years old", s.ageLimit))
	}
	return nil
}

func (s *UserService) checkEmailFormat(email string) error {
	if !s.emailRegex.MatchString(email) {
		return apperrors.BadRequest(apperrors.CodeInvalidEmail, "invalid email format")
	}
	return nil
}

func (s *UserService) checkPhoneFormat(phoneNumber string) error {
	if !s.phoneRegex.MatchString(phoneNumber) {
		return apperrors.BadRequest(apperrors.CodeInvalidPhone, "invalid phoneNumber format")
	}
	return nil
}

// age computes whole years between birthDate and now, truncating the partial
// year before the anniversary.
func age(birthDate models.Date, now time.Time) int {
	years := now.Year() - birthDate.Year()
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		years--
	}
	return years
}

func (s *UserService) publish(action string, user *models.User) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishUserEvent(action, user.Email, user); err != nil {
		log.Printf("Warning: failed to publish %s event for user %s: %v", action, user.Email, err)
	}
}
