package querysvc

import (
	"testing"
	"time"

	"github.com/kasw/orgtrace/internal/repo"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func entry(rank, org, start, end string) repo.CareerEntry {
	e := repo.CareerEntry{
		OrgName:   org,
		StartDate: date(start),
		EndDate:   date(end),
	}
	if rank != "" {
		e.Rank = &rank
	}
	e.TenureDays = int(e.EndDate.Sub(e.StartDate).Hours() / 24)
	return e
}

func TestMergeCareer(t *testing.T) {
	t.Run("same rank and org extend to union interval", func(t *testing.T) {
		in := []repo.CareerEntry{
			entry("Analyst", "MOH", "2019-01-01", "2019-12-31"),
			entry("Analyst", "MOH", "2020-06-01", "2021-05-31"),
		}
		out := mergeCareer(in)
		if len(out) != 1 {
			t.Fatalf("got %d entries, want 1", len(out))
		}
		if !out[0].StartDate.Equal(date("2019-01-01")) || !out[0].EndDate.Equal(date("2021-05-31")) {
			t.Errorf("interval = %v..%v, want union", out[0].StartDate, out[0].EndDate)
		}
		want := int(date("2021-05-31").Sub(date("2019-01-01")).Hours() / 24)
		if out[0].TenureDays != want {
			t.Errorf("tenure = %d, want %d", out[0].TenureDays, want)
		}
	})

	t.Run("different rank stays separate", func(t *testing.T) {
		in := []repo.CareerEntry{
			entry("Analyst", "MOH", "2019-01-01", "2019-12-31"),
			entry("Manager", "MOH", "2020-01-01", "2020-12-31"),
		}
		if out := mergeCareer(in); len(out) != 2 {
			t.Fatalf("got %d entries, want 2", len(out))
		}
	})

	t.Run("different org stays separate", func(t *testing.T) {
		in := []repo.CareerEntry{
			entry("Analyst", "MOH", "2019-01-01", "2019-12-31"),
			entry("Analyst", "MOF", "2020-01-01", "2020-12-31"),
		}
		if out := mergeCareer(in); len(out) != 2 {
			t.Fatalf("got %d entries, want 2", len(out))
		}
	})

	t.Run("first seen order is preserved", func(t *testing.T) {
		in := []repo.CareerEntry{
			entry("Analyst", "MOH", "2019-01-01", "2019-12-31"),
			entry("Manager", "MOF", "2020-01-01", "2020-12-31"),
			entry("Analyst", "MOH", "2021-01-01", "2021-12-31"),
		}
		out := mergeCareer(in)
		if len(out) != 2 {
			t.Fatalf("got %d entries, want 2", len(out))
		}
		if out[0].OrgName != "MOH" || out[1].OrgName != "MOF" {
			t.Errorf("order = %s, %s", out[0].OrgName, out[1].OrgName)
		}
	})

	t.Run("nil ranks group together", func(t *testing.T) {
		in := []repo.CareerEntry{
			entry("", "MOH", "2019-01-01", "2019-12-31"),
			entry("", "MOH", "2020-01-01", "2020-12-31"),
		}
		if out := mergeCareer(in); len(out) != 1 {
			t.Fatalf("got %d entries, want 1", len(out))
		}
	})
}
