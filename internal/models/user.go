package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates (ISO yyyy-mm-dd).
const DateLayout = "2006-01-02"

// Date is a calendar date. It serializes as yyyy-mm-dd in JSON and maps to a
// date column under GORM.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a yyyy-mm-dd string into a Date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date %q: %w", value, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON renders the date as a quoted yyyy-mm-dd string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON accepts a quoted yyyy-mm-dd string. Null and empty values
// leave the date zero.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected yyyy-mm-dd: %w", s, err)
	}
	d.Time = t
	return nil
}

// GormDataType tells GORM to migrate Date fields as date columns.
func (Date) GormDataType() string {
	return "date"
}

// Value implements driver.Valuer so GORM can persist the date.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner so GORM can load the date back.
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = v
	case string:
		if len(v) > len(DateLayout) {
			v = v[:len(DateLayout)]
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return fmt.Errorf("failed to scan date from %q: %w", v, err)
		}
		d.Time = t
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("unsupported type %T for date", value)
	}
	return nil
}

// User represents a managed user record. Email is the primary key; every
// mutation that changes it must re-key the store entry.
type User struct {
	Email       string `json:"email" gorm:"primaryKey;type:varchar(255)" validate:"required,emailfmt"`
	FirstName   string `json:"firstName" gorm:"type:varchar(100)" validate:"required"`
	LastName    string `json:"lastName" gorm:"type:varchar(100)" validate:"required"`
	BirthDate   Date   `json:"birthDate" validate:"required,pastdate"`
	Address     string `json:"address,omitempty" validate:"omitempty,max=500"`
	PhoneNumber string `json:"phoneNumber" gorm:"type:varchar(20)" validate:"required,phonefmt"`
}
