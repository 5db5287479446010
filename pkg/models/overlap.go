package models

import (
	"github.com/google/uuid"
)

// CustomerAlumnus is one row of the customer-alumni view. It represents
// a past employment stint at a declared customer, carrying the past role
// and the person's flattened current role for display.
type CustomerAlumnus struct {
	PersonID       uuid.UUID `json:"person_id" db:"person_id"`
	FullName       *string   `json:"full_name" db:"full_name"`
	Headline       *string   `json:"headline" db:"headline"`
	LinkedInURL    string    `json:"linkedin_url" db:"linkedin_url"`
	Title          *string   `json:"title" db:"title"`
	StartDate      *string   `json:"start_date" db:"start_date"`
	EndDate        *string   `json:"end_date" db:"end_date"`
	CurrentCompany *string   `json:"current_company" db:"current_company"`
	CurrentTitle   *string   `json:"current_title" db:"current_title"`
	CompanyID      uuid.UUID `json:"company_id" db:"company_id"`
	CompanyName    string    `json:"company_name" db:"company_name"`
	CustomerKey    string    `json:"customer_key" db:"customer_key"`
}

// EmployerBucket is an aggregated employer rebuilt from work history
// rows, split into past and current tenures. DisplayName keeps the first
// spelling observed for the key.
type EmployerBucket struct {
	Key          string `json:"key" db:"key"`
	DisplayName  string `json:"display_name" db:"display_name"`
	Domain       string `json:"domain,omitempty" db:"domain"`
	PastCount    int    `json:"past_count" db:"past_count"`
	CurrentCount int    `json:"current_count" db:"current_count"`
}

// CustomerOverlap is one customer row of an overlap summary. One row per
// declared customer, counted by normalized domain only; customers
// without a domain always report zero.
type CustomerOverlap struct {
	CustomerID     uuid.UUID         `json:"customer_id"`
	CustomerKey    string            `json:"customer_key,omitempty"`
	CustomerName   string            `json:"customer_name"`
	CustomerDomain string            `json:"customer_domain,omitempty"`
	AlumniCount    int               `json:"alumni_count"`
	Alumni         []CustomerAlumnus `json:"alumni,omitempty"`
}

// OverlapSummary is the response of the multi-customer summary operation.
// Partial is true when one or more customer lookups failed and were
// skipped rather than failing the whole summary.
type OverlapSummary struct {
	CompanyID uuid.UUID         `json:"company_id"`
	Customers []CustomerOverlap `json:"customers"`
	Partial   bool              `json:"partial"`
}
