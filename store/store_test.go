package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/tmc/chatwindow/message"
	"github.com/tmc/chatwindow/window"
)

var epoch = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "db", "chat.db"), WithLogger(zaptest.NewLogger(t).Sugar()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ids(msgs []*message.Msg) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestAppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	in := []*message.Msg{
		message.NewText("a", "hello", true, epoch),
		message.NewText("b", "hi", false, epoch.Add(time.Minute)),
		message.NewText("", "generated id", false, epoch.Add(2*time.Minute)),
	}
	in[0].Status = message.StatusSent
	if err := s.Append(ctx, in...); err != nil {
		t.Fatal(err)
	}
	if in[2].ID == "" {
		t.Error("Append did not assign an ID")
	}

	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Count() = %d, %v; want 3", n, err)
	}

	got, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}

	m, err := s.At(ctx, 1)
	if err != nil || m.ID != "b" || m.Incoming {
		t.Errorf("At(1) = %v, %v", m, err)
	}
	for _, idx := range []int{-1, 3} {
		if _, err := s.At(ctx, idx); !errors.Is(err, ErrNotFound) {
			t.Errorf("At(%d) error = %v, want ErrNotFound", idx, err)
		}
	}

	r, err := s.Range(ctx, -5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids(r)); diff != "" {
		t.Errorf("Range(-5, 2) mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := message.NewText("dup", "x", true, epoch)
	if err := s.Append(ctx, m); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, message.NewText("ok", "y", true, epoch), m.Clone()); err == nil {
		t.Fatal("Append with duplicate ID succeeded")
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("failed batch was partially committed: count %d", n)
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	s.Append(ctx, message.NewText("a", "x", false, epoch))
	if err := s.UpdateStatus(ctx, "a", message.StatusRead); err != nil {
		t.Fatal(err)
	}
	m, _ := s.At(ctx, 0)
	if m.Status != message.StatusRead {
		t.Errorf("status = %s, want read", m.Status)
	}
	if err := s.UpdateStatus(ctx, "nope", message.StatusRead); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(nope) = %v, want ErrNotFound", err)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	f := message.NewFactory(1, epoch)
	if err := s.Seed(ctx, f, 30); err != nil {
		t.Fatal(err)
	}
	if err := s.Seed(ctx, f, 5); err != nil {
		t.Fatal(err)
	}
	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 35 {
		t.Fatalf("len = %d, want 35", len(all))
	}
	gen := f.Generator()
	for i, m := range all {
		if want := gen(i); m.ID != want.ID || m.Text != want.Text {
			t.Errorf("row %d = %v, want %v", i, m, want)
		}
	}
}

func TestGeneratorFeedsWindow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Seed(ctx, message.NewFactory(1, epoch), 25); err != nil {
		t.Fatal(err)
	}
	n, _ := s.Count(ctx)
	seq, err := window.New(n, 10, s.Generator(ctx, 10))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"15", "16", "17", "18", "19", "20", "21", "22", "23", "24"}
	if diff := cmp.Diff(want, ids(seq.WindowItems())); diff != "" {
		t.Errorf("initial window mismatch (-want +got):\n%s", diff)
	}
	seq.LoadPrevious()
	seq.LoadPrevious()
	got := ids(seq.Items())
	if len(got) != 25 || got[0] != "0" || got[24] != "24" {
		t.Errorf("items after paging back = %v", got)
	}
	if seq.HasPrevious() {
		t.Error("HasPrevious after reaching the first stored message")
	}
}

func TestGeneratorPlaceholder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	gen := s.Generator(ctx, 5)
	m := gen(3)
	if m.Type != message.TypeSystem || m.ID != "missing-3" {
		t.Errorf("gen(3) on empty store = %v, want placeholder", m)
	}

	s.Close()
	if m := gen(0); m.Type != message.TypeSystem {
		t.Errorf("gen on closed store = %v, want placeholder", m)
	}
}
