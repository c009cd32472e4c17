package window

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
)

func itemGen(calls *[]int) Generator[string] {
	return func(i int) string {
		if calls != nil {
			*calls = append(*calls, i)
		}
		return fmt.Sprintf("item%d", i)
	}
}

func names(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("item%d", i))
	}
	return out
}

func checkInvariants(t *testing.T, s *Sequence[string]) {
	t.Helper()
	st := s.Stats()
	if st.WindowOffset < st.ItemsOffset {
		t.Errorf("window offset %d before items offset %d", st.WindowOffset, st.ItemsOffset)
	}
	if st.WindowEnd() > st.ItemsEnd() {
		t.Errorf("window end %d past items end %d", st.WindowEnd(), st.ItemsEnd())
	}
	if st.WindowCount < 0 {
		t.Errorf("window count %d is negative", st.WindowCount)
	}
}

func TestNewBackfillsOnePage(t *testing.T) {
	var calls []int
	s, err := New(10, 3, itemGen(&calls), WithLogger(zaptest.NewLogger(t).Sugar()))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{9, 8, 7}, calls); diff != "" {
		t.Errorf("generator calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(names(7, 10), s.WindowItems()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	if off, n := s.Window(); off != 7 || n != 3 {
		t.Errorf("Window() = (%d, %d), want (7, 3)", off, n)
	}
	if !s.HasPrevious() {
		t.Error("HasPrevious() = false, want true")
	}
	if s.HasMore() {
		t.Error("HasMore() = true, want false")
	}
	checkInvariants(t, s)
}

func TestNewSmallerThanPage(t *testing.T) {
	s, err := New(2, 5, itemGen(nil))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(names(0, 2), s.WindowItems()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	if s.HasPrevious() {
		t.Error("HasPrevious() = true, want false")
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name            string
		count, pageSize int
		gen             Generator[string]
		wantErr         error
	}{
		{name: "missing generator", count: 5, pageSize: 3, wantErr: ErrNoGenerator},
		{name: "negative count", count: -1, pageSize: 3, gen: itemGen(nil), wantErr: ErrInvalidArgument},
		{name: "negative page", count: 1, pageSize: -3, gen: itemGen(nil), wantErr: ErrInvalidArgument},
		{name: "empty without generator", count: 0, pageSize: 3},
		{name: "zero page without generator", count: 4, pageSize: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.count, tt.pageSize, tt.gen)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && s == nil {
				t.Fatal("New() returned nil sequence")
			}
		})
	}
}

func TestLoadPrevious(t *testing.T) {
	var calls []int
	s, err := New(10, 3, itemGen(&calls))
	if err != nil {
		t.Fatal(err)
	}
	calls = nil

	s.LoadPrevious()
	if diff := cmp.Diff([]int{6, 5, 4}, calls); diff != "" {
		t.Errorf("generator calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(names(4, 10), s.WindowItems()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}

	s.LoadPrevious()
	s.LoadPrevious()
	if diff := cmp.Diff(names(0, 10), s.WindowItems()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	if s.HasPrevious() {
		t.Error("HasPrevious() = true at offset 0")
	}

	calls = nil
	s.LoadPrevious()
	if len(calls) != 0 {
		t.Errorf("LoadPrevious at offset 0 generated %v", calls)
	}
	if off, n := s.Window(); off != 0 || n != 10 {
		t.Errorf("Window() = (%d, %d), want (0, 10)", off, n)
	}
	checkInvariants(t, s)
}

func TestLoadPreviousWithinStore(t *testing.T) {
	var calls []int
	s, err := New(10, 10, itemGen(&calls))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AdjustWindow(1, 2); err != nil {
		t.Fatal(err)
	}
	calls = nil
	s.LoadPrevious() // window [8,10) -> [0,10) with the store already full
	if len(calls) != 0 {
		t.Errorf("unexpected generator calls %v", calls)
	}
	if diff := cmp.Diff(names(0, 10), s.WindowItems()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadNext(t *testing.T) {
	s := FromItems([]string{"a", "b", "c", "d", "e"}, 2)
	if _, err := s.AdjustWindow(0, 1); err != nil {
		t.Fatal(err)
	}
	steps := [][]string{
		{"a", "b", "c"},
		{"a", "b", "c", "d", "e"},
		{"a", "b", "c", "d", "e"},
	}
	for i, want := range steps {
		s.LoadNext()
		if diff := cmp.Diff(want, s.WindowItems()); diff != "" {
			t.Errorf("step %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if s.HasMore() {
		t.Error("HasMore() = true after revealing everything")
	}

	empty := FromItems[string](nil, 2)
	empty.LoadNext()
	if off, n := empty.Window(); off != 0 || n != 0 {
		t.Errorf("empty Window() = (%d, %d), want (0, 0)", off, n)
	}
}

func TestFromItemsRoundTrip(t *testing.T) {
	s := FromItems([]string{"a", "b", "c"}, 2)
	var got []string
	for i := 0; ; i++ {
		got = s.WindowItems()
		if !s.HasMore() {
			break
		}
		if i > 10 {
			t.Fatal("HasMore never became false")
		}
		s.LoadNext()
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAdjustWindow(t *testing.T) {
	tests := []struct {
		name        string
		focus       float64
		max         int
		wantChanged bool
		wantOffset  int
		wantCount   int
		wantErr     error
	}{
		{name: "centre", focus: 0.5, max: 2, wantChanged: true, wantOffset: 2, wantCount: 2},
		{name: "top", focus: 0, max: 2, wantChanged: true, wantOffset: 0, wantCount: 2},
		{name: "bottom", focus: 1, max: 2, wantChanged: true, wantOffset: 4, wantCount: 2},
		{name: "floor", focus: 0.3, max: 1, wantChanged: true, wantOffset: 1, wantCount: 1},
		{name: "fits", focus: 0.5, max: 6, wantOffset: 0, wantCount: 6},
		{name: "larger", focus: 0.5, max: 100, wantOffset: 0, wantCount: 6},
		{name: "negative focus", focus: -0.1, max: 2, wantOffset: 0, wantCount: 6, wantErr: ErrFocusOutOfRange},
		{name: "focus above one", focus: 1.5, max: 2, wantOffset: 0, wantCount: 6, wantErr: ErrFocusOutOfRange},
		{name: "nan focus", focus: math.NaN(), max: 2, wantOffset: 0, wantCount: 6, wantErr: ErrFocusOutOfRange},
		{name: "negative max", focus: 0.5, max: -1, wantOffset: 0, wantCount: 6, wantErr: ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(6, 6, itemGen(nil))
			if err != nil {
				t.Fatal(err)
			}
			changed, err := s.AdjustWindow(tt.focus, tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AdjustWindow() error = %v, want %v", err, tt.wantErr)
			}
			if changed != tt.wantChanged {
				t.Errorf("AdjustWindow() = %v, want %v", changed, tt.wantChanged)
			}
			if off, n := s.Window(); off != tt.wantOffset || n != tt.wantCount {
				t.Errorf("Window() = (%d, %d), want (%d, %d)", off, n, tt.wantOffset, tt.wantCount)
			}
			checkInvariants(t, s)
		})
	}
}

func TestInsert(t *testing.T) {
	t.Run("bottom outside window", func(t *testing.T) {
		s := FromItems([]string{"a", "b", "c"}, 2)
		s.AdjustWindow(0, 1)
		s.Insert("d", Bottom)
		if diff := cmp.Diff([]string{"a"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
		if !s.HasMore() {
			t.Error("HasMore() = false, want true")
		}
	})
	t.Run("top outside window", func(t *testing.T) {
		s := FromItems([]string{"a", "b", "c"}, 2)
		s.AdjustWindow(1, 1)
		s.Insert("z", Top)
		if diff := cmp.Diff([]string{"c"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
		if got, ok := s.At(-1); !ok || got != "z" {
			t.Errorf("At(-1) = %q, %v; want \"z\", true", got, ok)
		}
		if got, ok := s.At(2); !ok || got != "c" {
			t.Errorf("At(2) = %q, %v; want \"c\", true", got, ok)
		}
		if _, ok := s.At(3); ok {
			t.Error("At(3) ok past the end of the store")
		}
	})
	t.Run("top tracked", func(t *testing.T) {
		s := FromItems([]string{"a"}, 2)
		s.Insert("z", Top)
		s.Insert("y", Top)
		if diff := cmp.Diff([]string{"y", "z", "a"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"y", "z", "a"}, s.Items()); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("unknown position", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Insert with unknown position did not panic")
			}
		}()
		FromItems[string](nil, 1).Insert("x", Position(7))
	})
}

func TestHeavyPrepending(t *testing.T) {
	s := FromItems[string](nil, 4)
	for i := range 100 {
		s.Insert(fmt.Sprintf("old%d", i), Top)
		checkInvariants(t, s)
	}
	st := s.Stats()
	if st.ItemsOffset != -100 || st.WindowOffset != -100 || st.WindowCount != 100 {
		t.Errorf("Stats() = %+v", st)
	}
	items := s.WindowItems()
	if items[0] != "old99" || items[99] != "old0" {
		t.Errorf("window order = %q ... %q, want old99 ... old0", items[0], items[99])
	}
	// Zero is the origin for HasPrevious; nothing before it is generated.
	if s.HasPrevious() {
		t.Error("HasPrevious() = true with a negative window offset")
	}
	s.LoadPrevious()
	if got := s.Stats(); got != st {
		t.Errorf("LoadPrevious changed stats: %+v -> %+v", st, got)
	}

	s.AdjustWindow(0.5, 10)
	s.Insert("older", Top)
	if off, n := s.Window(); off != -55 || n != 10 {
		t.Errorf("Window() = (%d, %d), want (-55, 10)", off, n)
	}
	if got, ok := s.At(-101); !ok || got != "older" {
		t.Errorf("At(-101) = %q, %v", got, ok)
	}
}

func TestWindowItemsMemo(t *testing.T) {
	t.Run("idempotent read", func(t *testing.T) {
		s := FromItems([]string{"a", "b"}, 2)
		first := s.WindowItems()
		second := s.WindowItems()
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("reads differ (-first +second):\n%s", diff)
		}
		if &first[0] != &second[0] {
			t.Error("second read did not reuse the cached result")
		}
	})
	t.Run("tracked append", func(t *testing.T) {
		s := FromItems([]string{"a", "b"}, 2)
		before := s.WindowItems()
		s.Insert("c", Bottom)
		if diff := cmp.Diff([]string{"a", "b", "c"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"a", "b"}, before); diff != "" {
			t.Errorf("earlier result changed (-want +got):\n%s", diff)
		}
	})
	t.Run("untracked append", func(t *testing.T) {
		s := FromItems([]string{"a", "b"}, 2)
		s.AdjustWindow(0, 1)
		s.WindowItems()
		s.Insert("c", Bottom)
		if diff := cmp.Diff([]string{"a"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("tracked prepend", func(t *testing.T) {
		s := FromItems([]string{"a"}, 2)
		s.WindowItems()
		s.Insert("z", Top)
		if diff := cmp.Diff([]string{"z", "a"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("several appends", func(t *testing.T) {
		s := FromItems([]string{"a"}, 2)
		s.WindowItems()
		s.Insert("b", Bottom)
		s.Insert("c", Bottom)
		if diff := cmp.Diff([]string{"a", "b", "c"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("shrunk in place", func(t *testing.T) {
		s := FromItems([]string{"a", "b", "c"}, 2)
		s.WindowItems()
		s.AdjustWindow(0, 1)
		if diff := cmp.Diff([]string{"a"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("grown by load", func(t *testing.T) {
		s := FromItems([]string{"a", "b", "c"}, 2)
		s.AdjustWindow(0, 1)
		s.WindowItems()
		s.LoadNext()
		if diff := cmp.Diff([]string{"a", "b", "c"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("result is capped", func(t *testing.T) {
		s := FromItems([]string{"a"}, 2)
		s.WindowItems()
		s.Insert("b", Bottom)
		s.WindowItems()
		s.Insert("c", Bottom)
		got := s.WindowItems()
		if cap(got) != len(got) {
			t.Fatalf("cap = %d, len = %d", cap(got), len(got))
		}
		scribbled := append(got, "x")
		s.Insert("d", Bottom)
		if diff := cmp.Diff([]string{"a", "b", "c", "d"}, s.WindowItems()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
		if scribbled[3] != "x" {
			t.Errorf("caller slice changed: %q", scribbled)
		}
	})
}

// TestRandomOperations checks the invariants and the memoized read against
// a direct slice of the store over random operation sequences.
func TestRandomOperations(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			r := rand.New(rand.NewSource(seed))
			var calls []int
			s, err := New(40, 1+r.Intn(6), itemGen(&calls))
			if err != nil {
				t.Fatal(err)
			}
			next := 0
			for step := range 200 {
				var op string
				switch r.Intn(6) {
				case 0:
					op = "top"
					s.Insert(fmt.Sprintf("top%d", next), Top)
					next++
				case 1:
					op = "bottom"
					s.Insert(fmt.Sprintf("bottom%d", next), Bottom)
					next++
				case 2:
					op = "previous"
					s.LoadPrevious()
				case 3:
					op = "next"
					s.LoadNext()
				case 4:
					op = "adjust"
					if _, err := s.AdjustWindow(r.Float64(), r.Intn(12)); err != nil {
						t.Fatal(err)
					}
				case 5:
					op = "read"
				}
				checkInvariants(t, s)
				st := s.Stats()
				start := st.WindowOffset - st.ItemsOffset
				want := s.Items()[start : start+st.WindowCount]
				if diff := cmp.Diff(want, s.WindowItems()); diff != "" {
					t.Fatalf("step %d (%s): window mismatch (-want +got):\n%s", step, op, diff)
				}
			}
			for _, c := range calls {
				if c < 0 || c >= 40 {
					t.Errorf("generator called with index %d outside [0, 40)", c)
				}
			}
		})
	}
}

func TestStatsString(t *testing.T) {
	s, err := New(10, 3, itemGen(nil))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := s.Stats().String(), "window [7, 10) items [7, 10) page 3"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Top.String(); got != "top" {
		t.Errorf("Top.String() = %q", got)
	}
}
