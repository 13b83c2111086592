package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dsymup/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRecordAndList(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	run := Run{
		ID:              "run-1",
		CreatedAt:       now,
		Region:          "cn",
		Endpoint:        "https://api.leancloud.cn/1.1/stats/breakpad/symbols",
		BundlePath:      "/tmp/App.dSYM",
		Outcome:         models.OutcomeSuccess,
		Status:          200,
		Body:            "{}",
		KeyFingerprint:  KeyFingerprint("secret"),
		SlicesAttempted: 2,
		SlicesEmpty:     1,
		Parts: []Part{
			{Field: "symbol_file_arm64", Arch: "arm64", BuildID: "AAAA", SizeBytes: 42, SHA256: "abc"},
		},
	}
	if err := st.Record(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := st.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 run, got %d", len(got))
	}
	if diff := cmp.Diff(run, got[0]); diff != "" {
		t.Fatalf("run mismatch (-want +got):\n%s", diff)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		run := Run{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Region:    "us",
			Outcome:   models.OutcomeNoOp,
		}
		if err := st.Record(ctx, run); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	got, err := st.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordAssignsIDAndTime(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.Record(ctx, Run{Region: "cn", Outcome: models.OutcomeFailed, Status: 500, Body: "boom"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := st.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %#v", got)
	}
	if got[0].Body != "boom" || got[0].Status != 500 {
		t.Fatalf("expected server response kept, got %#v", got[0])
	}
}

func TestRecordRejectsUnknownOutcome(t *testing.T) {
	st := testStore(t)
	if err := st.Record(context.Background(), Run{Outcome: "partial"}); err == nil {
		t.Fatal("expected invalid outcome error")
	}
}

func TestFindByBuildID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	run := Run{
		ID:      "run-x",
		Outcome: models.OutcomeSuccess,
		Parts:   []Part{{Field: "symbol_file_armv7", Arch: "armv7", BuildID: "ABCD", SizeBytes: 1, SHA256: "x"}},
	}
	if err := st.Record(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}

	ids, err := st.FindByBuildID(ctx, "abcd")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]string{"run-x"}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestKeyFingerprint(t *testing.T) {
	if KeyFingerprint("") != "" {
		t.Fatal("expected empty fingerprint for empty key")
	}
	a := KeyFingerprint("secret")
	if len(a) != 12 {
		t.Fatalf("expected 12 hex chars, got %q", a)
	}
	if a != KeyFingerprint(" secret ") {
		t.Fatal("expected fingerprint to ignore surrounding space")
	}
	if a == KeyFingerprint("other") {
		t.Fatal("expected different keys to differ")
	}
}

func TestSQLiteDSNRequiresPath(t *testing.T) {
	if _, err := sqliteDSN(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
