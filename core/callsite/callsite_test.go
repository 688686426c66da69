package callsite

import (
	"strings"
	"testing"
)

func TestCapturePolicyRecordsThisFile(test *testing.T) {
	policy := CapturePolicy(0)
	if !strings.HasSuffix(policy.Origin, "callsite_test.go") {
		test.Fatalf("expected origin to be this test file, got %s", policy.Origin)
	}
}

func TestShouldLogMatchesOriginFileOnly(test *testing.T) {
	policy := Policy{Origin: "/work/script.go"}
	if !policy.ShouldLog("/work/script.go") {
		test.Fatalf("origin file must log")
	}
	if policy.ShouldLog("/work/helper.go") {
		test.Fatalf("helper file must not log")
	}
	if policy.ShouldLog("") {
		test.Fatalf("unresolvable caller must not log under a script origin")
	}
}

func TestInteractiveLogsEverything(test *testing.T) {
	policy := InteractivePolicy()
	if !policy.ShouldLog("/anything/at/all.go") || !policy.ShouldLog("") {
		test.Fatalf("interactive policy must log unconditionally")
	}
}

func TestCallerFileResolvesCurrentFrame(test *testing.T) {
	file := CallerFile(0)
	if !strings.HasSuffix(file, "callsite_test.go") {
		test.Fatalf("unexpected caller file %s", file)
	}
}
