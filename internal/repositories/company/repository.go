package company

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lanternhq/overlap/pkg/database"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/normalizers"
	"github.com/lanternhq/overlap/pkg/tracing"
)

// Repository handles company persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new company repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert creates a company or updates it in place when the domain is
// already tracked. Companies without a domain always insert.
func (r *Repository) Upsert(ctx context.Context, company *models.Company) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Upsert")
	defer span.End()

	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	if company.Domain != nil {
		normalized := normalizers.Domain(*company.Domain)
		company.Domain = &normalized
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("companies")
	sb.Cols("id", "name", "domain", "linkedin_url", "created_at", "updated_at")
	sb.Values(company.ID, company.Name, company.Domain, company.LinkedInURL, company.CreatedAt, company.UpdatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (domain) WHERE domain IS NOT NULL DO UPDATE SET name = EXCLUDED.name, linkedin_url = COALESCE(EXCLUDED.linkedin_url, companies.linkedin_url), updated_at = EXCLUDED.updated_at RETURNING id, created_at"

	row := r.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&company.ID, &company.CreatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_name": company.Name}).Error("Failed to upsert company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert company")
	}

	return company, nil
}

// Get retrieves a company by ID
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "domain", "linkedin_url", "created_at", "updated_at")
	sb.From("companies")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("company %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get company")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}

	return &company, nil
}

// GetByDomain retrieves a company by its normalized domain
func (r *Repository) GetByDomain(ctx context.Context, domain string) (*models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.GetByDomain")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "domain", "linkedin_url", "created_at", "updated_at")
	sb.From("companies")
	sb.Where(sb.Equal("domain", normalizers.Domain(domain)))

	query, args := sb.Build()
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get company by domain")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get company")
	}

	return &company, nil
}

// List retrieves tracked companies ordered by name
func (r *Repository) List(ctx context.Context, offset, limit int) ([]models.Company, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.List")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "domain", "linkedin_url", "created_at", "updated_at")
	sb.From("companies")
	sb.OrderBy("name ASC")
	sb.Offset(offset)
	sb.Limit(limit)

	query, args := sb.Build()
	var companies []models.Company
	if err := r.db.SelectContext(ctx, &companies, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list companies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies")
	}

	return companies, nil
}

// ListWithAlumniCounts retrieves companies joined against the
// materialized alumni tallies. Companies with no alumni report zero.
func (r *Repository) ListWithAlumniCounts(ctx context.Context) ([]models.CompanyAlumniCount, error) {
	ctx, span := tracing.StartSpan(ctx, "company.Repository.ListWithAlumniCounts")
	defer span.End()

	query := `
		SELECT
			c.id AS company_id,
			c.name AS company_name,
			(SELECT COUNT(*) FROM company_customers cc WHERE cc.company_id = c.id) AS customer_count,
			COALESCE(ac.alumni_count, 0) AS alumni_count
		FROM companies c
		LEFT JOIN company_alumni_counts ac ON ac.company_id = c.id
		ORDER BY alumni_count DESC, c.name ASC
	`

	var counts []models.CompanyAlumniCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list companies with alumni counts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list companies with alumni counts")
	}

	return counts, nil
}
