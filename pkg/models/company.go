package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tracked target company.
type Company struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Domain      *string   `json:"domain" db:"domain"`
	LinkedInURL *string   `json:"linkedin_url" db:"linkedin_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CompanyCustomer is a customer relationship attributed to a target company.
// Customer identity is loosely keyed. Domain is preferred, name is the
// fallback, and rows carrying neither are ignored by correlation.
type CompanyCustomer struct {
	ID             uuid.UUID `json:"id" db:"id"`
	CompanyID      uuid.UUID `json:"company_id" db:"company_id"`
	CustomerName   *string   `json:"customer_name" db:"customer_name"`
	CustomerDomain *string   `json:"customer_domain" db:"customer_domain"`
	Source         *string   `json:"source" db:"source"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// CompanyAlumniCount is a per-company summary row combining the customer
// total with the materialized alumni tally.
type CompanyAlumniCount struct {
	CompanyID     uuid.UUID `json:"company_id" db:"company_id"`
	CompanyName   string    `json:"company_name" db:"company_name"`
	CustomerCount int       `json:"customer_count" db:"customer_count"`
	AlumniCount   int       `json:"alumni_count" db:"alumni_count"`
}
