package deps_test

import (
	"testing"

	"splice/internal/deps"
	"splice/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("fakeprobe"))

	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "FakeProbe", Command: "fakeprobe"},
		{Name: "Absent", Command: "definitely-not-a-binary-xyz"},
		{Name: "Unset", Command: ""},
	})
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("stubbed binary should be available: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("missing binary should report detail: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("unset command should be flagged: %+v", statuses[2])
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []deps.Status{
		{Name: "A", Available: true},
		{Name: "B", Available: false},
		{Name: "C", Available: false, Optional: true},
	}
	missing := deps.MissingRequired(statuses)
	if len(missing) != 1 || missing[0] != "B" {
		t.Fatalf("unexpected missing list %v", missing)
	}
}
