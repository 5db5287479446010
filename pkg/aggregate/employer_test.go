package aggregate

import (
	"testing"

	"github.com/lanternhq/overlap/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestEmployers(t *testing.T) {
	t.Run("groups by domain when present", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Acme Corp"), CompanyDomain: strPtr("acme.com"), IsCurrent: true},
			{CompanyName: strPtr("ACME Corporation"), CompanyDomain: strPtr("ACME.com"), IsCurrent: false},
		}

		buckets := Employers(rows)
		require.Len(t, buckets, 1)
		assert.Equal(t, "acme.com", buckets[0].Key)
		assert.Equal(t, 1, buckets[0].PastCount)
		assert.Equal(t, 1, buckets[0].CurrentCount)
	})

	t.Run("counts past and current tenures separately", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Acme"), CompanyDomain: strPtr("acme.com"), IsCurrent: false},
		}

		buckets := Employers(rows)
		require.Len(t, buckets, 1)
		assert.Equal(t, "acme.com", buckets[0].Key)
		assert.Equal(t, 1, buckets[0].PastCount)
		assert.Equal(t, 0, buckets[0].CurrentCount)
	})

	t.Run("falls back to name key", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Initech")},
			{CompanyName: strPtr("INITECH ")},
		}

		buckets := Employers(rows)
		require.Len(t, buckets, 1)
		assert.Equal(t, "initech", buckets[0].Key)
		assert.Equal(t, 2, buckets[0].PastCount)
	})

	t.Run("total across buckets equals named rows", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Acme"), IsCurrent: true},
			{CompanyName: strPtr("Initech")},
			{CompanyName: strPtr("Initech"), IsCurrent: true},
			{CompanyDomain: strPtr("nameless.io")},
		}

		total := 0
		for _, bucket := range Employers(rows) {
			total += bucket.PastCount + bucket.CurrentCount
		}
		assert.Equal(t, 3, total)
	})

	t.Run("first spelling wins for display name", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Acme Corp"), CompanyDomain: strPtr("acme.com")},
			{CompanyName: strPtr("ACME CORPORATION"), CompanyDomain: strPtr("acme.com")},
		}

		buckets := Employers(rows)
		require.Len(t, buckets, 1)
		assert.Equal(t, "Acme Corp", buckets[0].DisplayName)
	})

	t.Run("skips rows with no employer name", func(t *testing.T) {
		rows := []models.WorkHistory{
			{Title: strPtr("Engineer")},
			{CompanyName: strPtr("   ")},
			{CompanyDomain: strPtr("nameless.io")},
			{CompanyName: strPtr("Initech")},
		}

		buckets := Employers(rows)
		require.Len(t, buckets, 1)
		assert.Equal(t, "initech", buckets[0].Key)
	})

	t.Run("sorts by total descending", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Small Co")},
			{CompanyName: strPtr("Big Co")},
			{CompanyName: strPtr("Big Co")},
			{CompanyName: strPtr("Big Co")},
			{CompanyName: strPtr("Mid Co")},
			{CompanyName: strPtr("Mid Co")},
		}

		buckets := Employers(rows)
		require.Len(t, buckets, 3)
		assert.Equal(t, "Big Co", buckets[0].DisplayName)
		assert.Equal(t, "Mid Co", buckets[1].DisplayName)
		assert.Equal(t, "Small Co", buckets[2].DisplayName)
	})

	t.Run("ties keep first seen order", func(t *testing.T) {
		rows := []models.WorkHistory{
			{CompanyName: strPtr("Alpha")},
			{CompanyName: strPtr("Beta")},
			{CompanyName: strPtr("Gamma")},
		}

		buckets := Employers(rows)
		require.Len(t, buckets, 3)
		assert.Equal(t, "Alpha", buckets[0].DisplayName)
		assert.Equal(t, "Beta", buckets[1].DisplayName)
		assert.Equal(t, "Gamma", buckets[2].DisplayName)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Employers(nil))
	})
}

func TestTop(t *testing.T) {
	buckets := []models.EmployerBucket{
		{Key: "a"}, {Key: "b"}, {Key: "c"},
	}

	assert.Len(t, Top(buckets, 2), 2)
	assert.Len(t, Top(buckets, 5), 3)
	assert.Len(t, Top(buckets, 0), 3)
	assert.Len(t, Top(buckets, -1), 3)
}
