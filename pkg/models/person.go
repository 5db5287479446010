package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lanternhq/overlap/pkg/database"
)

// Person is an enriched profile keyed by LinkedIn URL. CurrentCompany
// and CurrentTitle are flattened from the payload's latest experience at
// ingest time so alumni listings can show the present role without a
// second lookup.
type Person struct {
	ID             uuid.UUID `json:"id" db:"id"`
	LinkedInURL    string    `json:"linkedin_url" db:"linkedin_url"`
	FullName       *string   `json:"full_name" db:"full_name"`
	Headline       *string   `json:"headline" db:"headline"`
	Location       *string   `json:"location" db:"location"`
	CurrentCompany *string   `json:"current_company" db:"current_company"`
	CurrentTitle   *string   `json:"current_title" db:"current_title"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// PersonRawPayload holds the unmodified enrichment payload for audit and
// replay. One row per person per source.
type PersonRawPayload struct {
	ID        uuid.UUID                      `json:"id" db:"id"`
	PersonID  uuid.UUID                      `json:"person_id" db:"person_id"`
	Source    string                         `json:"source" db:"source"`
	Payload   database.JSONB[map[string]any] `json:"payload" db:"payload"`
	CreatedAt time.Time                      `json:"created_at" db:"created_at"`
}

// WorkHistory is one employment stint on a person's profile. IsCurrent
// distinguishes present employment from alumni relationships.
type WorkHistory struct {
	ID            uuid.UUID `json:"id" db:"id"`
	PersonID      uuid.UUID `json:"person_id" db:"person_id"`
	CompanyName   *string   `json:"company_name" db:"company_name"`
	CompanyDomain *string   `json:"company_domain" db:"company_domain"`
	Title         *string   `json:"title" db:"title"`
	StartDate     *string   `json:"start_date" db:"start_date"`
	EndDate       *string   `json:"end_date" db:"end_date"`
	IsCurrent     bool      `json:"is_current" db:"is_current"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// EducationHistory is one education entry on a person's profile.
type EducationHistory struct {
	ID           uuid.UUID `json:"id" db:"id"`
	PersonID     uuid.UUID `json:"person_id" db:"person_id"`
	SchoolName   *string   `json:"school_name" db:"school_name"`
	Degree       *string   `json:"degree" db:"degree"`
	FieldOfStudy *string   `json:"field_of_study" db:"field_of_study"`
	StartDate    *string   `json:"start_date" db:"start_date"`
	EndDate      *string   `json:"end_date" db:"end_date"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Certification is one certification entry on a person's profile.
type Certification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PersonID  uuid.UUID `json:"person_id" db:"person_id"`
	Name      *string   `json:"name" db:"name"`
	Authority *string   `json:"authority" db:"authority"`
	IssuedAt  *string   `json:"issued_at" db:"issued_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
