package alumni

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lanternhq/overlap/pkg/database"
	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/tracing"
	"github.com/lib/pq"
)

// Stats summarizes the correlation dataset.
type Stats struct {
	Companies    int `json:"companies" db:"companies"`
	Customers    int `json:"customers" db:"customers"`
	People       int `json:"people" db:"people"`
	AlumniStints int `json:"alumni_stints" db:"alumni_stints"`
}

// Repository reads the customer-alumni view and maintains the
// materialized alumni tallies.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new alumni repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListByCustomerKey retrieves one page of alumni whose past employer key
// matches the given customer key.
func (r *Repository) ListByCustomerKey(ctx context.Context, companyID uuid.UUID, customerKey string, offset, limit int) ([]models.CustomerAlumnus, error) {
	ctx, span := tracing.StartSpan(ctx, "alumni.Repository.ListByCustomerKey")
	defer span.End()

	query := `
		SELECT person_id, full_name, headline, linkedin_url, title, start_date, end_date, current_company, current_title, company_id, company_name, customer_key
		FROM v_customer_alumni
		WHERE company_id = $1 AND customer_key = $2
		ORDER BY end_date DESC NULLS LAST, person_id ASC
		OFFSET $3 LIMIT $4
	`

	var alumni []models.CustomerAlumnus
	if err := r.db.SelectContext(ctx, &alumni, query, companyID, customerKey, offset, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID, "customer_key": customerKey}).Error("Failed to list alumni by customer key")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list alumni")
	}

	return alumni, nil
}

// CountByCustomerKeys returns alumni stint counts per customer key for a
// company in a single pass over the view. Counts view rows, so a person
// with two past stints at the same customer counts twice.
func (r *Repository) CountByCustomerKeys(ctx context.Context, companyID uuid.UUID, keys []string) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "alumni.Repository.CountByCustomerKeys")
	defer span.End()

	if len(keys) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT customer_key, COUNT(*) AS alumni_count
		FROM v_customer_alumni
		WHERE company_id = $1 AND customer_key = ANY($2)
		GROUP BY customer_key
	`

	rows, err := r.db.QueryxContext(ctx, query, companyID, pq.Array(keys))
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"company_id": companyID}).Error("Failed to count alumni by customer keys")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count alumni")
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to scan alumni count row")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count alumni")
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed iterating alumni count rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count alumni")
	}

	return counts, nil
}

// RefreshCounts rebuilds the materialized alumni tallies. The concurrent
// refresh keeps the old snapshot readable until the new one commits, so
// repeated calls are safe and readers never see a partial state.
func (r *Repository) RefreshCounts(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "alumni.Repository.RefreshCounts")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY company_alumni_counts"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to refresh alumni counts")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh alumni counts")
	}

	return nil
}

// GetStats returns dataset-wide totals
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	ctx, span := tracing.StartSpan(ctx, "alumni.Repository.GetStats")
	defer span.End()

	query := `
		SELECT
			(SELECT COUNT(*) FROM companies) AS companies,
			(SELECT COUNT(*) FROM company_customers) AS customers,
			(SELECT COUNT(*) FROM people) AS people,
			(SELECT COUNT(*) FROM v_customer_alumni) AS alumni_stints
	`

	var stats Stats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get stats")
	}

	return &stats, nil
}
