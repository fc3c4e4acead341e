package nameres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kasw/orgtrace/internal/nameres"
	"github.com/kasw/orgtrace/internal/repo"
	"github.com/kasw/orgtrace/internal/store"
)

type fakeSource struct {
	candidates []repo.NameCandidate
	lastLimit  int
}

func (f *fakeSource) SearchCleanNames(_ context.Context, _ string, _ float64, limit int) ([]repo.NameCandidate, error) {
	f.lastLimit = limit
	if len(f.candidates) > limit {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func candidates(names ...string) []repo.NameCandidate {
	out := make([]repo.NameCandidate, len(names))
	for i, n := range names {
		out[i] = repo.NameCandidate{CleanName: n, SimScore: 0.9}
	}
	return out
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestTokenSetRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"tan wei ming", "tan wei ming", 100},
		// Order-insensitive.
		{"tan wei ming", "ming wei tan", 100},
		// Repeated tokens collapse.
		{"tan tan wei", "tan wei", 100},
		// One side a token subset of the other still scores 100.
		{"tan wei", "tan wei ming", 100},
		{"", "", 100},
	}
	for _, tc := range cases {
		if got := nameres.TokenSetRatio(tc.a, tc.b); got != tc.want {
			t.Errorf("TokenSetRatio(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	// Genuinely different names score below the pairwise floor.
	if got := nameres.TokenSetRatio("tan jun", "tan wei ming"); got >= 80 {
		t.Errorf("TokenSetRatio(tan jun, tan wei ming) = %d, want < 80", got)
	}
	if got := nameres.TokenSetRatio("tan jun", "tan wei"); got >= 80 {
		t.Errorf("TokenSetRatio(tan jun, tan wei) = %d, want < 80", got)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query is invalid", func(t *testing.T) {
		r := nameres.New(&fakeSource{})
		_, err := r.Resolve(ctx, "")
		if !errors.Is(err, store.ErrInvalidArgument) {
			t.Errorf("Resolve(\"\") err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("no candidates resolves to nothing", func(t *testing.T) {
		r := nameres.New(&fakeSource{})
		names, err := r.Resolve(ctx, "tan wei ming")
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 0 {
			t.Errorf("got %v, want empty", names)
		}
	})

	t.Run("pool over-fetches for refinement", func(t *testing.T) {
		src := &fakeSource{}
		r := nameres.New(src, nameres.WithMaxResults(3))
		if _, err := r.Resolve(ctx, "tan"); err != nil {
			t.Fatal(err)
		}
		if src.lastLimit != 20 {
			t.Errorf("pool limit = %d, want 20", src.lastLimit)
		}

		r = nameres.New(src, nameres.WithMaxResults(10))
		if _, err := r.Resolve(ctx, "tan"); err != nil {
			t.Fatal(err)
		}
		if src.lastLimit != 50 {
			t.Errorf("pool limit = %d, want 50", src.lastLimit)
		}
	})

	t.Run("pairwise corroboration drops the outlier", func(t *testing.T) {
		src := &fakeSource{candidates: candidates("tan wei", "tan wei ming", "tan jun")}
		r := nameres.New(src)
		names, err := r.Resolve(ctx, "tan wei ming")
		if err != nil {
			t.Fatal(err)
		}
		if !contains(names, "tan wei") || !contains(names, "tan wei ming") {
			t.Errorf("got %v, want tan wei and tan wei ming kept", names)
		}
		if contains(names, "tan jun") {
			t.Errorf("got %v, want tan jun dropped", names)
		}
	})

	t.Run("disabling pairwise keeps the outlier", func(t *testing.T) {
		src := &fakeSource{candidates: candidates("tan wei", "tan wei ming", "tan jun")}
		r := nameres.New(src, nameres.WithPairwiseFilter(false))
		names, err := r.Resolve(ctx, "tan wei ming")
		if err != nil {
			t.Fatal(err)
		}
		if !contains(names, "tan jun") {
			t.Errorf("got %v, want tan jun kept without pairwise filter", names)
		}
	})

	t.Run("single candidate skips pairwise", func(t *testing.T) {
		src := &fakeSource{candidates: candidates("tan wei ming")}
		r := nameres.New(src)
		names, err := r.Resolve(ctx, "tan wei ming")
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 1 || names[0] != "tan wei ming" {
			t.Errorf("got %v, want [tan wei ming]", names)
		}
	})

	t.Run("max results caps the list", func(t *testing.T) {
		src := &fakeSource{candidates: candidates("tan wei", "tan wei ming", "wei ming tan", "ming tan wei")}
		r := nameres.New(src, nameres.WithMaxResults(2))
		names, err := r.Resolve(ctx, "tan wei ming")
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 2 {
			t.Errorf("got %d names, want 2", len(names))
		}
	})
}

func TestResolveMonotonicity(t *testing.T) {
	ctx := context.Background()
	pool := candidates("tan wei", "tan wei ming", "wei ming tan", "tan jun", "jun tan", "lim boon keng")

	resolve := func(opts ...nameres.Option) []string {
		src := &fakeSource{candidates: pool}
		names, err := nameres.New(src, opts...).Resolve(ctx, "tan wei ming")
		if err != nil {
			t.Fatal(err)
		}
		return names
	}

	subset := func(small, big []string) bool {
		for _, n := range small {
			if !contains(big, n) {
				return false
			}
		}
		return true
	}

	// Raising the primary threshold can only shrink the result set.
	loose := resolve(nameres.WithPrimaryThreshold(0.3), nameres.WithPairwiseFilter(false))
	tight := resolve(nameres.WithPrimaryThreshold(0.7), nameres.WithPairwiseFilter(false))
	if len(tight) > len(loose) || !subset(tight, loose) {
		t.Errorf("primary threshold not monotone: loose=%v tight=%v", loose, tight)
	}

	// Raising the pairwise threshold can only shrink the result set.
	loose = resolve(nameres.WithPairwiseThreshold(0.6))
	tight = resolve(nameres.WithPairwiseThreshold(0.95))
	if !subset(tight, loose) {
		t.Errorf("pairwise threshold not monotone: loose=%v tight=%v", loose, tight)
	}

	// Requiring more strong links can only shrink the result set.
	loose = resolve(nameres.WithMinStrongLinks(1))
	tight = resolve(nameres.WithMinStrongLinks(2))
	if !subset(tight, loose) {
		t.Errorf("min strong links not monotone: loose=%v tight=%v", loose, tight)
	}
}
