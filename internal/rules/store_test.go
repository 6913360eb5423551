package rules

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/solatis/waypoint/internal/types"
)

func candidateKeys(rules []*CompiledRule) []string {
	keys := make([]string, len(rules))
	for i, r := range rules {
		keys[i] = r.Key
	}
	return keys
}

func TestSnapshot_CandidatesOrder(t *testing.T) {
	declared := []types.Rule{
		{Key: "*", Cases: []types.Case{{FromOutcome: "g", ToPageID: "/g"}}},
		{Key: "/*", Cases: []types.Case{{FromOutcome: "w", ToPageID: "/w"}}},
		{Key: "/admin/users/*", Cases: []types.Case{{FromOutcome: "w", ToPageID: "/w"}}},
		{Key: "/admin/*", Cases: []types.Case{{FromOutcome: "w", ToPageID: "/w"}}},
		{Key: "/admin/users/list.xhtml", Cases: []types.Case{{FromOutcome: "e", ToPageID: "/e"}}},
		{Key: "/public/*", Cases: []types.Case{{FromOutcome: "w", ToPageID: "/w"}}},
	}
	want := []string{"/admin/users/list.xhtml", "/admin/users/*", "/admin/*", "/*", "*"}

	// Every rotation of the declaration order yields the same candidates
	for shift := 0; shift < len(declared); shift++ {
		rotated := append(append([]types.Rule(nil), declared[shift:]...), declared[:shift]...)
		store := NewStore()
		if _, err := store.Replace(rotated); err != nil {
			t.Fatalf("Replace() error = %v", err)
		}

		got := candidateKeys(store.Snapshot().Candidates("/admin/users/list.xhtml"))
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("shift %d: Candidates() = %v, want %v", shift, got, want)
		}
	}
}

func TestSnapshot_CandidatesNoRules(t *testing.T) {
	store := NewStore()
	if got := store.Snapshot().Candidates("/z"); len(got) != 0 {
		t.Errorf("Candidates() = %v, want empty", candidateKeys(got))
	}
	if store.Snapshot().Version() != 0 {
		t.Errorf("Version() = %d, want 0", store.Snapshot().Version())
	}
}

func TestStore_PutMergesSameKey(t *testing.T) {
	store := NewStore()
	if err := store.Put(&types.Rule{Key: "/a", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	before := store.Snapshot()

	if err := store.Put(&types.Rule{Key: " /a", Cases: []types.Case{{FromOutcome: "y", ToPageID: "/2"}}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	after := store.Snapshot()

	rule, ok := after.Rule("/a")
	if !ok {
		t.Fatal("Rule(/a) not found")
	}
	if len(rule.Cases) != 2 {
		t.Fatalf("len(Cases) = %d, want 2", len(rule.Cases))
	}
	if rule.Cases[1].Ordinal != 1 {
		t.Errorf("merged Ordinal = %d, want 1", rule.Cases[1].Ordinal)
	}

	// Earlier snapshot is untouched (copy-on-write)
	old, _ := before.Rule("/a")
	if len(old.Cases) != 1 {
		t.Errorf("previous snapshot mutated: len(Cases) = %d, want 1", len(old.Cases))
	}
	if after.Version() != before.Version()+1 {
		t.Errorf("Version() = %d, want %d", after.Version(), before.Version()+1)
	}
}

func TestStore_PutGlobalSpellings(t *testing.T) {
	store := NewStore()
	if err := store.Put(&types.Rule{Key: "", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(&types.Rule{Key: "*", Cases: []types.Case{{FromOutcome: "y", ToPageID: "/2"}}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rule, ok := store.Snapshot().Rule("")
	if !ok {
		t.Fatal("global rule not found")
	}
	if len(rule.Cases) != 2 {
		t.Errorf("len(Cases) = %d, want 2", len(rule.Cases))
	}
	if store.Snapshot().Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Snapshot().Len())
	}
}

func TestStore_ReplaceKeepsCurrentOnError(t *testing.T) {
	store := NewStore()
	if err := store.Put(&types.Rule{Key: "/a", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	before := store.Snapshot()

	_, err := store.Replace([]types.Rule{
		{Key: "/b", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}},
		{Key: "/c*d", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}},
	})
	if !errors.Is(err, types.ErrConfiguration) {
		t.Fatalf("Replace() error = %v, want ErrConfiguration", err)
	}
	if store.Snapshot() != before {
		t.Error("Replace() published a snapshot despite error")
	}
}

func TestStore_ReplaceReturnsPublishedSnapshot(t *testing.T) {
	store := NewStore()
	rs := []types.Rule{{Key: "/a", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}}}

	first, err := store.Replace(rs)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := store.Put(&types.Rule{Key: "/b", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/2"}}}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if first.Version() != 1 || first.Len() != 1 {
		t.Errorf("returned snapshot = (version %d, len %d), want (1, 1)", first.Version(), first.Len())
	}
	if store.Snapshot() == first {
		t.Error("Put() did not publish a new snapshot")
	}
	if got := store.Snapshot().Version(); got != 2 {
		t.Errorf("Snapshot().Version() = %d, want 2", got)
	}
}

func TestStore_RulesListing(t *testing.T) {
	store := NewStore()
	_, err := store.Replace([]types.Rule{
		{Key: "*", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}},
		{Key: "/b", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}},
		{Key: "/x/*", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}},
		{Key: "/a", Cases: []types.Case{{FromOutcome: "x", ToPageID: "/1"}}},
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got := candidateKeys(store.Snapshot().Rules())
	want := []string{"/a", "/b", "/x/*", "*"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Rules() = %v, want %v", got, want)
	}
}

// Readers racing a writer only ever see complete snapshots.
func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	store := NewStore()
	build := func(n int) []types.Rule {
		cases := make([]types.Case, n)
		for i := range cases {
			cases[i] = types.Case{FromOutcome: fmt.Sprintf("o%d", i), ToPageID: "/t"}
		}
		return []types.Rule{{Key: "/a", Cases: cases}, {Key: "/b", Cases: cases}}
	}
	if _, err := store.Replace(build(1)); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Snapshot()
				a, _ := snap.Rule("/a")
				b, _ := snap.Rule("/b")
				if len(a.Cases) != len(b.Cases) {
					t.Errorf("torn snapshot: /a has %d cases, /b has %d", len(a.Cases), len(b.Cases))
					return
				}
			}
		}()
	}

	for n := 2; n < 50; n++ {
		if _, err := store.Replace(build(n)); err != nil {
			t.Errorf("Replace() error = %v", err)
		}
	}
	close(stop)
	wg.Wait()
}
