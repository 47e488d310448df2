package app

import (
	"strings"
	"testing"

	"diamondbot/pkg/domain"
)

func TestImprovementAdviceForWeakGrades(t *testing.T) {
	advice := improvementAdvice(domain.Diamond{
		CertificateNumber: "2141438171",
		Cut:               "fair",
		Polish:            "good",
		Symmetry:          "excellent",
		Fluorescence:      "strong",
		Clarity:           "SI2",
	})
	for _, want := range []string{"recut", "Repolishing", "fluorescence", "laser"} {
		if !strings.Contains(advice, want) {
			t.Errorf("advice missing %q:\n%s", want, advice)
		}
	}
	if strings.Contains(advice, "symmetry") {
		t.Errorf("excellent symmetry should not be flagged:\n%s", advice)
	}
}

func TestImprovementAdviceForTopGrades(t *testing.T) {
	advice := improvementAdvice(domain.Diamond{
		CertificateNumber: "2141438171",
		Cut:               "excellent",
		Polish:            "excellent",
		Symmetry:          "very good",
		Fluorescence:      "none",
		Clarity:           "VVS1",
	})
	if !strings.Contains(advice, "already grades very well") {
		t.Fatalf("advice = %q", advice)
	}
}

func TestImproveDiamondFromMenu(t *testing.T) {
	env := newTestEnv(t)
	env.seedDiamond(t)

	env.press(t, string(domain.ActionImproveDiamond))

	if !env.channel.lastTextContains("2141438171") {
		t.Fatalf("expected advice referencing the certificate, got %v", env.channel.texts())
	}
}

func TestImproveDiamondWithoutDiamond(t *testing.T) {
	env := newTestEnv(t)
	env.text(t, "hi")
	env.channel.sent = nil

	env.press(t, string(domain.ActionImproveDiamond))

	if !env.channel.lastTextContains("GIA certificate") {
		t.Fatalf("expected prerequisite message, got %v", env.channel.texts())
	}
}
