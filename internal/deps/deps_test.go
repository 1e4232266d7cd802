package deps_test

import (
	"testing"

	"demix/internal/deps"
	"demix/internal/testsupport"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{Name: "Shell", Command: "sh"},
		{Name: "Ghost", Command: "demix-no-such-binary"},
		{Name: "Unset", Command: "   "},
	})
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("expected sh to be available: %#v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("expected ghost binary unavailable with detail: %#v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("expected unset command reported: %#v", statuses[2])
	}
}

func TestRequirementsForUsesConfiguredBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	reqs := deps.RequirementsFor(cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	statuses := deps.CheckBinaries(reqs)
	if missing := deps.MissingRequired(statuses); len(missing) != 0 {
		t.Fatalf("stubbed binaries reported missing: %#v", missing)
	}
}

func TestMissingRequiredSkipsOptional(t *testing.T) {
	statuses := []deps.Status{
		{Name: "A", Available: false, Optional: true},
		{Name: "B", Available: false},
		{Name: "C", Available: true},
	}
	missing := deps.MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "B" {
		t.Fatalf("unexpected missing set: %#v", missing)
	}
}
