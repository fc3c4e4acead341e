package doctor_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/doctor"
	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/testutil"
)

func checkByName(r *doctor.Report, name string) (doctor.CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return doctor.CheckResult{}, false
}

func TestDoctorOnMigratedStore(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()

	t.Run("empty store warns but does not fail", func(t *testing.T) {
		report, err := doctor.New(st).Run(ctx)
		require.NoError(t, err)

		assert.False(t, report.HasErrors())
		assert.Positive(t, report.Warnings)

		data, ok := checkByName(report, "data")
		require.True(t, ok)
		assert.Equal(t, doctor.StatusWarn, data.Status)
	})

	t.Run("populated store passes", func(t *testing.T) {
		people := repo.NewPeople(st, zap.NewNop())
		orgs := repo.NewOrgs(st, zap.NewNop())
		emp := repo.NewEmployments(st, zap.NewNop())

		personID, err := people.Upsert(ctx, repo.PersonParams{Name: "tan mei ling", CleanName: "tan mei ling"})
		require.NoError(t, err)
		orgID, err := orgs.Upsert(ctx, repo.OrgParams{Name: "Ministry of Health"})
		require.NoError(t, err)
		_, err = emp.Upsert(ctx, repo.EmploymentParams{
			PersonID:  personID,
			OrgID:     orgID,
			StartDate: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		report, err := doctor.New(st).Run(ctx)
		require.NoError(t, err)
		assert.False(t, report.HasErrors())

		data, ok := checkByName(report, "data")
		require.True(t, ok)
		assert.Equal(t, doctor.StatusPass, data.Status)

		// The write above bypassed ingest, so the pairs view was never
		// refreshed.
		fresh, ok := checkByName(report, "fresh")
		require.True(t, ok)
		assert.Equal(t, doctor.StatusWarn, fresh.Status)
	})

	t.Run("report prints a summary", func(t *testing.T) {
		report, err := doctor.New(st).Run(ctx)
		require.NoError(t, err)

		var buf bytes.Buffer
		report.Print(&buf, true)
		assert.Contains(t, buf.String(), "Summary:")
		assert.Contains(t, buf.String(), "Tables")
	})
}
