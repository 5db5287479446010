package customer

import (
	"context"
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

// Repository handles customer relationship persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new customer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Replace swaps the full customer list for a company. The delete and
// insert run as separate statements, so a concurrent reader can observe
// an empty window between them. Callers accept that in exchange for
// simpler bulk reloads.
func (r *Repository) Replace(ctx context.Context, companyID uuid.UUID, customers []models.CompanyCustomer) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.Replace")
	defer span.End()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("company_customers")
	del.Where(del.Equal("company_id", companyID))

	query, args := del.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID}).Error("Failed to delete existing customers")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace customers")
	}

	if len(customers) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("company_customers")
	sb.Cols("id", "company_id", "customer_name", "customer_domain", "source", "created_at")

	inserted := 0
	for _, c := range customers {
		// Rows with neither a domain nor a name can never correlate
		if key(c) == "" {
			continue
		}
		if c.CustomerDomain != nil {
			normalized := normalizers.Domain(*c.CustomerDomain)
			c.CustomerDomain = &normalized
		}
		sb.Values(uuid.New(), companyID, c.CustomerName, c.CustomerDomain, c.Source, now)
		inserted++
	}

	if inserted == 0 {
		return 0, nil
	}

	query, args = sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID}).Error("Failed to insert customers")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace customers")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"company_id": companyID, "count": inserted}).Debug("Replaced company customers")
	return inserted, nil
}

// ListByCompany retrieves one page of customers for a company, ordered
// by customer name. That order doubles as the tie-break of the overlap
// summary's stable sort.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID, offset, limit int) ([]models.CompanyCustomer, error) {
	ctx, span := tracing.StartSpan(ctx, "customer.Repository.ListByCompany")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "company_id", "customer_name", "customer_domain", "source", "created_at")
	sb.From("company_customers")
	sb.Where(sb.Equal("company_id", companyID))
	sb.OrderBy("customer_name ASC NULLS LAST", "id ASC")
	sb.Offset(offset)
	sb.Limit(limit)

	query, args := sb.Build()
	var customers []models.CompanyCustomer
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list customers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list customers")
	}

	return customers, nil
}

func key(c models.CompanyCustomer) string {
	var domain, name string
	if c.CustomerDomain != nil {
		domain = *c.CustomerDomain
	}
	if c.CustomerName != nil {
		name = *c.CustomerName
	}
	return normalizers.CompanyKey(domain, name)
}
