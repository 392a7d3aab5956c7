package model

import (
	"strings"
	"time"
)

// Subject is an applicant of the grant program
type Subject struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	NationalID string    `json:"national_id"`
	Address    string    `json:"address"`
	Signature  []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns "First Last", or the id when no name is known
func (s *Subject) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if name == "" {
		return s.ID
	}
	return name
}

type requiredField struct {
	name  string
	value string
}

// MissingFields lists the identity fields required by kind that are empty
func (s *Subject) MissingFields(kind DocumentKind) []string {
	required := []requiredField{
		{"first_name", s.FirstName},
		{"last_name", s.LastName},
	}
	if kind == KindContract {
		required = append(required,
			requiredField{"national_id", s.NationalID},
			requiredField{"address", s.Address},
		)
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
