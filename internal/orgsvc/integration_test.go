package orgsvc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/orgsvc"
	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
	"github.com/kasw/orgtrace/internal/testutil"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPreseed(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	orgs := repo.NewOrgs(st, zap.NewNop())

	var invalidations int
	svc := orgsvc.NewService(st, orgs, zap.NewNop(),
		orgsvc.WithInvalidator(func() { invalidations++ }))

	records := []orgsvc.SeedRecord{
		{
			Name:      "Licensing Branch",
			URL:       "https://example.gov/mti/trade/licensing",
			ParentURL: "https://example.gov/mti/trade",
			Parts:     []string{"Ministry of Trade", "Trade Division", "Licensing Branch"},
		},
		{
			Name:          "Ministry of Trade",
			URL:           "https://example.gov/mti",
			EntityType:    "ministry",
			FirstObserved: "2015-01-01",
			Parts:         []string{"Ministry of Trade"},
		},
		{
			Name:      "Trade Division",
			URL:       "https://example.gov/mti/trade",
			ParentURL: "https://example.gov/mti",
			Parts:     []string{"Ministry of Trade", "Trade Division"},
		},
	}

	res, err := svc.Preseed(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, orgsvc.SeedResult{Created: 3}, res)
	assert.Equal(t, 1, invalidations)

	t.Run("parents linked despite input order", func(t *testing.T) {
		leaf, err := orgs.ByURL(ctx, "https://example.gov/mti/trade/licensing")
		require.NoError(t, err)
		require.NotNil(t, leaf)
		require.NotNil(t, leaf.ParentOrgID)
		assert.Equal(t, "Trade Division", *leaf.Department)

		chain, err := orgs.Ancestors(ctx, leaf.ID)
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, "Ministry of Trade", chain[0].Name)
	})

	t.Run("reseeding updates in place", func(t *testing.T) {
		res, err := svc.Preseed(ctx, records)
		require.NoError(t, err)
		assert.Equal(t, orgsvc.SeedResult{Updated: 3}, res)

		n, err := orgs.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("rows without url fail without aborting the batch", func(t *testing.T) {
		res, err := svc.Preseed(ctx, []orgsvc.SeedRecord{
			{Name: "Orphan Unit"},
			{Name: "Energy Board", URL: "https://example.gov/energy"},
		})
		require.NoError(t, err)
		assert.Equal(t, orgsvc.SeedResult{Created: 1, Failed: 1}, res)
	})
}

func TestResolveOrgID(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	orgs := repo.NewOrgs(st, zap.NewNop())
	svc := orgsvc.NewService(st, orgs, zap.NewNop())

	t.Run("creates org and inferred parent", func(t *testing.T) {
		id, err := svc.ResolveOrgID(ctx,
			"Ministry of Health : Hospital Services",
			"https://example.gov/moh/hosp",
			"Ministry of Health",
			"https://example.gov/moh")
		require.NoError(t, err)

		o, err := orgs.ByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Hospital Services", o.Name)
		assert.Equal(t, "Ministry of Health", *o.Department)
		require.NotNil(t, o.ParentOrgID)

		parent, err := orgs.ByID(ctx, *o.ParentOrgID)
		require.NoError(t, err)
		assert.Equal(t, "Ministry of Health", parent.Name)
		assert.Equal(t, "inferred_parent", parent.Attrs["source"])
	})

	t.Run("resolves existing org by url", func(t *testing.T) {
		again, err := svc.ResolveOrgID(ctx,
			"Renamed Hospital Services",
			"https://example.gov/moh/hosp",
			"", "")
		require.NoError(t, err)

		o, err := orgs.ByID(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, "Hospital Services", o.Name)
	})

	t.Run("parent without url is not linked", func(t *testing.T) {
		id, err := svc.ResolveOrgID(ctx,
			"Water Board", "https://example.gov/water",
			"Ministry of Environment", "")
		require.NoError(t, err)

		o, err := orgs.ByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, o.ParentOrgID)
	})
}

func TestTimelineDistinct(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	orgs := repo.NewOrgs(st, zap.NewNop())
	svc := orgsvc.NewService(st, orgs, zap.NewNop())

	rootID, err := orgs.Upsert(ctx, repo.OrgParams{Name: "Ministry of Culture"})
	require.NoError(t, err)

	addChild := func(name, first, last string) {
		t.Helper()
		_, err := orgs.Upsert(ctx, repo.OrgParams{
			Name:        name,
			ParentOrgID: &rootID,
			Attrs:       repo.Attrs{"first_observed": first, "last_observed": last},
		})
		require.NoError(t, err)
	}
	addChild("Arts Division", "2019-01-01", "2020-12-31")
	addChild("Heritage Division", "2019-01-01", "2020-12-31")
	addChild("Film Office", "2020-01-01", "2020-06-30")

	t.Run("raw timeline keeps every observed date", func(t *testing.T) {
		dates, err := svc.Timeline(ctx, rootID, false)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{
			day(2019, time.January, 1),
			day(2020, time.January, 1),
			day(2020, time.June, 30),
			day(2020, time.December, 31),
		}, dates)
	})

	t.Run("distinct drops dates with an unchanged subtree", func(t *testing.T) {
		// The Film Office is still active on its own last_observed
		// date, so 2020-06-30 matches the set at 2020-01-01 and is
		// dropped. By 2020-12-31 it is gone and the date survives.
		dates, err := svc.Timeline(ctx, rootID, true)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{
			day(2019, time.January, 1),
			day(2020, time.January, 1),
			day(2020, time.December, 31),
		}, dates)
	})
}

func TestUpdateParentMissingOrg(t *testing.T) {
	st := testutil.Store(t)
	orgs := repo.NewOrgs(st, zap.NewNop())
	svc := orgsvc.NewService(st, orgs, zap.NewNop())

	err := svc.UpdateParent(context.Background(), 999999, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
