package disambig_test

import (
	"context"
	"testing"
	"time"

	"github.com/kasw/orgtrace/internal/disambig"
)

type fakeAncestors struct {
	ministries map[string]string
}

func (f fakeAncestors) TopAncestorName(_ context.Context, orgURL string) (string, error) {
	if name, ok := f.ministries[orgURL]; ok {
		return name, nil
	}
	return "UNKNOWN", nil
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(raw, title, url, start, end string) disambig.Record {
	return disambig.Record{
		RawName:   raw,
		CleanName: "jane tan",
		Rank:      title,
		Org:       "unit",
		URL:       url,
		StartDate: date(start),
		EndDate:   date(end),
	}
}

func TestCluster(t *testing.T) {
	ancestors := fakeAncestors{ministries: map[string]string{
		"https://gov.test/moh/x": "Ministry of Health",
		"https://gov.test/moh/y": "Ministry of Health",
		"https://gov.test/mof/x": "Ministry of Finance",
		"https://gov.test/mti/x": "Ministry of Trade",
	}}
	d := disambig.New(ancestors)
	ctx := context.Background()

	t.Run("coherent career stays one identity", func(t *testing.T) {
		clusters, err := d.Cluster(ctx, []disambig.Record{
			rec("Jane Tan", "Officer", "https://gov.test/moh/x", "2010-01-01", "2012-01-01"),
			rec("Jane  Tan", "Manager", "https://gov.test/moh/y", "2012-01-15", "2014-01-01"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(clusters) != 1 {
			t.Fatalf("got %d clusters, want 1", len(clusters))
		}
		if len(clusters[0]) != 2 {
			t.Errorf("cluster has %d records, want 2", len(clusters[0]))
		}
	})

	t.Run("overlapping full-time roles split", func(t *testing.T) {
		clusters, err := d.Cluster(ctx, []disambig.Record{
			rec("Jane Tan", "Officer", "https://gov.test/moh/x", "2010-01-01", "2015-12-31"),
			rec("JANE TAN", "Officer", "https://gov.test/mof/x", "2012-01-01", "2016-12-31"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(clusters) != 2 {
			t.Fatalf("got %d clusters, want 2", len(clusters))
		}
	})

	t.Run("overlapping advisory role joins", func(t *testing.T) {
		clusters, err := d.Cluster(ctx, []disambig.Record{
			rec("Jane Tan", "Director", "https://gov.test/moh/x", "2010-01-01", "2015-12-31"),
			rec("Jane Tan.", "Board Member", "https://gov.test/moh/y", "2012-01-01", "2013-12-31"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(clusters) != 1 {
			t.Fatalf("got %d clusters, want 1", len(clusters))
		}
	})

	t.Run("implausible demotion starts a new identity", func(t *testing.T) {
		clusters, err := d.Cluster(ctx, []disambig.Record{
			rec("Jane Tan", "Chief Executive", "https://gov.test/moh/x", "2010-01-01", "2012-01-01"),
			rec("Jane Tan", "Intern", "https://gov.test/mof/x", "2015-06-01", "2016-06-01"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(clusters) != 2 {
			t.Fatalf("got %d clusters, want 2", len(clusters))
		}
	})

	t.Run("tie goes to the earliest cluster", func(t *testing.T) {
		clusters, err := d.Cluster(ctx, []disambig.Record{
			rec("Jane Tan A", "Officer", "https://gov.test/moh/x", "2010-01-01", "2011-06-30"),
			rec("Jane Tan B", "Officer", "https://gov.test/mof/x", "2010-01-01", "2011-06-30"),
			rec("Jane Tan C", "Officer", "https://gov.test/mti/x", "2012-06-01", "2013-06-01"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(clusters) != 2 {
			t.Fatalf("got %d clusters, want 2", len(clusters))
		}
		// A and B hard-conflict and seed two clusters in input order; C
		// scores a lateral move against both, so the first wins.
		if len(clusters[0]) != 2 {
			t.Fatalf("first cluster has %d records, want 2", len(clusters[0]))
		}
		if clusters[0][0].RawName != "Jane Tan A" || clusters[0][1].RawName != "Jane Tan C" {
			t.Errorf("first cluster = %q, %q; want Jane Tan A, Jane Tan C",
				clusters[0][0].RawName, clusters[0][1].RawName)
		}
	})

	t.Run("deterministic across input order", func(t *testing.T) {
		records := []disambig.Record{
			rec("Jane Tan", "Manager", "https://gov.test/moh/y", "2012-01-15", "2014-01-01"),
			rec("Jane  Tan", "Officer", "https://gov.test/moh/x", "2010-01-01", "2012-01-01"),
			rec("JANE TAN", "Officer", "https://gov.test/mof/x", "2011-01-01", "2013-12-31"),
		}
		first, err := d.Cluster(ctx, records)
		if err != nil {
			t.Fatal(err)
		}
		reversed := []disambig.Record{records[2], records[0], records[1]}
		second, err := d.Cluster(ctx, reversed)
		if err != nil {
			t.Fatal(err)
		}
		if len(first) != len(second) {
			t.Fatalf("cluster counts differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if len(first[i]) != len(second[i]) {
				t.Fatalf("cluster %d sizes differ: %d vs %d", i, len(first[i]), len(second[i]))
			}
			for j := range first[i] {
				if first[i][j].RawName != second[i][j].RawName {
					t.Errorf("cluster %d record %d differs: %q vs %q",
						i, j, first[i][j].RawName, second[i][j].RawName)
				}
			}
		}
	})
}

func TestClusterThreshold(t *testing.T) {
	ancestors := fakeAncestors{ministries: map[string]string{
		"https://gov.test/moh/x": "Ministry of Health",
		"https://gov.test/mof/x": "Ministry of Finance",
	}}
	ctx := context.Background()

	// Cross-ministry lateral move with a long gap scores exactly 1.
	records := []disambig.Record{
		rec("Jane Tan", "Officer", "https://gov.test/moh/x", "2010-01-01", "2011-06-30"),
		rec("Jane Tan", "Officer", "https://gov.test/mof/x", "2012-06-01", "2013-06-01"),
	}

	loose := disambig.New(ancestors, disambig.WithThreshold(1))
	clusters, err := loose.Cluster(ctx, records)
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 1 {
		t.Errorf("threshold 1: got %d clusters, want 1", len(clusters))
	}

	strict := disambig.New(ancestors, disambig.WithThreshold(2))
	clusters, err = strict.Cluster(ctx, records)
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 2 {
		t.Errorf("threshold 2: got %d clusters, want 2", len(clusters))
	}
}
