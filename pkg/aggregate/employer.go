// Package aggregate builds in-memory rollups over work history rows.
package aggregate

import (
	"sort"
	"strings"

	"github.com/lanternhq/overlap/pkg/models"
	"github.com/lanternhq/overlap/pkg/normalizers"
)

// Employers buckets work history rows by employer key, counting past
// and current tenures separately. Rows without an employer name are
// skipped; the key prefers the employer domain and falls back to the
// lowercased name. The first spelling seen for a key becomes the
// bucket's display name, later variants only add to the counts.
func Employers(rows []models.WorkHistory) []models.EmployerBucket {
	buckets := map[string]*models.EmployerBucket{}
	order := []string{}

	for _, row := range rows {
		var domain, name string
		if row.CompanyDomain != nil {
			domain = *row.CompanyDomain
		}
		if row.CompanyName != nil {
			name = *row.CompanyName
		}
		if strings.TrimSpace(name) == "" {
			continue
		}

		key := normalizers.CompanyKey(domain, name)

		bucket, ok := buckets[key]
		if !ok {
			bucket = &models.EmployerBucket{
				Key:         key,
				DisplayName: name,
				Domain:      normalizers.Domain(domain),
			}
			buckets[key] = bucket
			order = append(order, key)
		}

		if row.IsCurrent {
			bucket.CurrentCount++
		} else {
			bucket.PastCount++
		}
	}

	out := make([]models.EmployerBucket, 0, len(order))
	for _, key := range order {
		out = append(out, *buckets[key])
	}

	// Stable so buckets with equal totals keep first-seen order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PastCount+out[i].CurrentCount > out[j].PastCount+out[j].CurrentCount
	})

	return out
}

// Top returns at most limit buckets from an already sorted slice. A non
// positive limit returns the input unchanged.
func Top(buckets []models.EmployerBucket, limit int) []models.EmployerBucket {
	if limit <= 0 || len(buckets) <= limit {
		return buckets
	}
	return buckets[:limit]
}
