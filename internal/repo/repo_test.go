package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
	"github.com/kasw/orgtrace/internal/testutil"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strptr(s string) *string { return &s }

func TestPeopleRepo(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	people := repo.NewPeople(st, zap.NewNop())

	t.Run("upsert and fetch", func(t *testing.T) {
		id, err := people.Upsert(ctx, repo.PersonParams{
			Name:      "tan wei ming",
			CleanName: "tan wei ming",
			Tel:       strptr("61234567"),
		})
		require.NoError(t, err)
		require.NotZero(t, id)

		p, err := people.ByName(ctx, "tan wei ming")
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, 1, p.DisambiguationKey)
		assert.Equal(t, "61234567", *p.Tel)
	})

	t.Run("same name and key updates in place", func(t *testing.T) {
		first, err := people.Upsert(ctx, repo.PersonParams{
			Name: "lim hui fen", CleanName: "lim hui fen",
		})
		require.NoError(t, err)

		second, err := people.Upsert(ctx, repo.PersonParams{
			Name: "lim hui fen", CleanName: "lim hui fen",
			Email: strptr("lim@example.org"),
		})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		p, err := people.ByID(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, "lim@example.org", *p.Email)
	})

	t.Run("distinct disambiguation keys create distinct rows", func(t *testing.T) {
		a, err := people.Upsert(ctx, repo.PersonParams{
			Name: "ong jun jie", CleanName: "ong jun jie", DisambiguationKey: 1,
		})
		require.NoError(t, err)
		b, err := people.Upsert(ctx, repo.PersonParams{
			Name: "ong jun jie", CleanName: "ong jun jie", DisambiguationKey: 2,
		})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("missing person is not found", func(t *testing.T) {
		_, err := people.ByName(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("trigram search finds close names", func(t *testing.T) {
		names, err := people.SearchCleanNames(ctx, "tan wei", 0.3, 10)
		require.NoError(t, err)
		require.NotEmpty(t, names)
		assert.Equal(t, "tan wei ming", names[0].CleanName)
	})
}

func TestOrgsRepo(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	orgs := repo.NewOrgs(st, zap.NewNop())

	t.Run("upsert dedupes on url", func(t *testing.T) {
		first, err := orgs.Upsert(ctx, repo.OrgParams{
			Name: "Ministry of Health", URL: strptr("https://example.gov/moh"),
		})
		require.NoError(t, err)
		second, err := orgs.Upsert(ctx, repo.OrgParams{
			Name: "Ministry of Health", URL: strptr("https://example.gov/moh"),
			Department: strptr("Government"),
		})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		o, err := orgs.ByID(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, "Government", *o.Department)
	})

	t.Run("ancestors walk root first", func(t *testing.T) {
		root, err := orgs.Upsert(ctx, repo.OrgParams{
			Name: "Ministry of Finance", URL: strptr("https://example.gov/mof"),
		})
		require.NoError(t, err)
		mid, err := orgs.Upsert(ctx, repo.OrgParams{
			Name: "Revenue Division", URL: strptr("https://example.gov/mof/rev"),
			ParentOrgID: &root,
		})
		require.NoError(t, err)
		leaf, err := orgs.Upsert(ctx, repo.OrgParams{
			Name: "Audit Branch", URL: strptr("https://example.gov/mof/rev/audit"),
			ParentOrgID: &mid,
		})
		require.NoError(t, err)

		chain, err := orgs.Ancestors(ctx, leaf)
		require.NoError(t, err)
		require.Len(t, chain, 2)
		assert.Equal(t, "Ministry of Finance", chain[0].Name)
		assert.Equal(t, "Revenue Division", chain[1].Name)

		descendants, err := orgs.Descendants(ctx, root)
		require.NoError(t, err)
		assert.Len(t, descendants, 2)
	})

	t.Run("descendants at date honor observation windows", func(t *testing.T) {
		root, err := orgs.Upsert(ctx, repo.OrgParams{
			Name: "Ministry of Transport", URL: strptr("https://example.gov/mot"),
		})
		require.NoError(t, err)
		_, err = orgs.Upsert(ctx, repo.OrgParams{
			Name: "Rail Division", URL: strptr("https://example.gov/mot/rail"),
			ParentOrgID: &root,
			Attrs: repo.Attrs{
				"first_observed": "2019-01-01",
				"last_observed":  "2020-12-31",
			},
		})
		require.NoError(t, err)

		active, err := orgs.DescendantsAtDate(ctx, root, day(2019, time.June, 1))
		require.NoError(t, err)
		assert.Len(t, active, 1)

		active, err = orgs.DescendantsAtDate(ctx, root, day(2021, time.June, 1))
		require.NoError(t, err)
		assert.Empty(t, active)

		dates, err := orgs.TimelineDates(ctx, root)
		require.NoError(t, err)
		require.Len(t, dates, 2)
		assert.Equal(t, day(2019, time.January, 1), dates[0].UTC())
	})
}

func TestEmploymentsRepo(t *testing.T) {
	st := testutil.Store(t)
	ctx := context.Background()
	people := repo.NewPeople(st, zap.NewNop())
	orgs := repo.NewOrgs(st, zap.NewNop())
	emp := repo.NewEmployments(st, zap.NewNop())

	seed := func(t *testing.T, person string, org string, orgURL string, rank string, start, end time.Time) (int, int) {
		t.Helper()
		personID, err := people.Upsert(ctx, repo.PersonParams{Name: person, CleanName: person})
		require.NoError(t, err)
		orgID, err := orgs.Upsert(ctx, repo.OrgParams{Name: org, URL: strptr(orgURL)})
		require.NoError(t, err)
		_, err = emp.Upsert(ctx, repo.EmploymentParams{
			PersonID: personID, OrgID: orgID, Rank: strptr(rank),
			StartDate: start, EndDate: end,
		})
		require.NoError(t, err)
		return personID, orgID
	}

	aliceID, hospID := seed(t, "alice tan", "Hospital Services", "https://example.gov/moh/hosp",
		"Manager", day(2018, time.January, 1), day(2020, time.December, 31))
	seed(t, "bob lee", "Hospital Services", "https://example.gov/moh/hosp",
		"Analyst", day(2019, time.June, 1), day(2021, time.June, 1))

	t.Run("duplicate tuple upserts in place", func(t *testing.T) {
		before, err := emp.Count(ctx)
		require.NoError(t, err)
		_, err = emp.Upsert(ctx, repo.EmploymentParams{
			PersonID: aliceID, OrgID: hospID, Rank: strptr("Manager"),
			StartDate: day(2018, time.January, 1), EndDate: day(2020, time.December, 31),
			RawName: strptr("TAN Alice"),
		})
		require.NoError(t, err)
		after, err := emp.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("colleagues at date require co-tenure", func(t *testing.T) {
		cols, err := emp.ColleaguesForNamesAtDate(ctx, []string{"alice tan"}, day(2019, time.August, 1))
		require.NoError(t, err)
		require.Len(t, cols, 1)
		assert.Equal(t, "bob lee", cols[0].Name)

		cols, err = emp.ColleaguesForNamesAtDate(ctx, []string{"alice tan"}, day(2018, time.March, 1))
		require.NoError(t, err)
		assert.Empty(t, cols)
	})

	t.Run("colleague stints report overlap days", func(t *testing.T) {
		stints, err := emp.ColleagueStintsAtDate(ctx, "alice tan", day(2019, time.August, 1))
		require.NoError(t, err)
		require.Len(t, stints, 1)
		assert.Equal(t, "bob lee", stints[0].Name)
		assert.Positive(t, stints[0].OverlapDays)
	})

	t.Run("career computes tenure in days", func(t *testing.T) {
		entries, err := emp.CareerForNames(ctx, []string{"alice tan"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		want := int(day(2020, time.December, 31).Sub(day(2018, time.January, 1)).Hours() / 24)
		assert.Equal(t, want, entries[0].TenureDays)
	})

	t.Run("snapshot filters by date", func(t *testing.T) {
		rows, err := emp.Snapshot(ctx, day(2018, time.March, 1))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "alice tan", rows[0].PersonName)

		all, err := emp.AllHistory(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("most recent picks latest start", func(t *testing.T) {
		moh, err := orgs.Upsert(ctx, repo.OrgParams{Name: "Ministry of Health", URL: strptr("https://example.gov/moh")})
		require.NoError(t, err)
		_, err = emp.Upsert(ctx, repo.EmploymentParams{
			PersonID: aliceID, OrgID: moh, Rank: strptr("Director"),
			StartDate: day(2021, time.January, 1), EndDate: day(2022, time.December, 31),
		})
		require.NoError(t, err)

		most, err := emp.MostRecentByPersonID(ctx, aliceID)
		require.NoError(t, err)
		require.NotNil(t, most)
		assert.Equal(t, moh, most.OrgID)
	})
}
