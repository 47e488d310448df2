package app

import (
	"testing"

	"diamondbot/pkg/domain"
)

func TestRouteContinuationBeatsStep(t *testing.T) {
	session := domain.Session{Step: domain.StepListingPrice, LastDesignID: "design-1"}
	if got := route(domain.IntentDesignEdit, 0.9, session); got != refDesignEdit {
		t.Fatalf("route = %v, want refDesignEdit", got)
	}
	if got := route(domain.IntentDesignVariation, 0.9, session); got != refDesignVariation {
		t.Fatalf("route = %v, want refDesignVariation", got)
	}
}

func TestRouteMissingPrerequisite(t *testing.T) {
	idle := domain.Session{Step: domain.StepIdle}
	if got := route(domain.IntentDesignEdit, 0.9, idle); got != refMissingDesign {
		t.Fatalf("edit without design = %v, want refMissingDesign", got)
	}
	if got := route(domain.IntentDesignVariation, 0.9, idle); got != refMissingDesign {
		t.Fatalf("variation without design = %v, want refMissingDesign", got)
	}
	if got := route(domain.IntentDesignWithGIA, 0.9, idle); got != refMissingDiamond {
		t.Fatalf("gia design without diamond = %v, want refMissingDiamond", got)
	}
	if got := route(domain.IntentListing, 0.9, idle); got != refMissingDiamond {
		t.Fatalf("listing without diamond = %v, want refMissingDiamond", got)
	}
}

// An open collection step must consume free text even when it reads like
// an unrelated request.
func TestRouteOpenStepOverridesFreshIntent(t *testing.T) {
	cases := []struct {
		step domain.SessionStep
		want handlerRef
	}{
		{domain.StepListingPrice, refListingPrice},
		{domain.StepListingContact, refListingContact},
		{domain.StepListingMedia, refListingMedia},
	}
	for _, tc := range cases {
		session := domain.Session{Step: tc.step, LastDiamondID: "diamond-1"}
		// "show me oval diamonds" classifies as search
		if got := route(domain.IntentSearch, 0.9, session); got != tc.want {
			t.Errorf("step %s: route(search) = %v, want %v", tc.step, got, tc.want)
		}
	}
}

func TestRouteDirectDispatch(t *testing.T) {
	session := domain.Session{Step: domain.StepIdle, LastDiamondID: "diamond-1"}
	cases := []struct {
		intent domain.Intent
		want   handlerRef
	}{
		{domain.IntentSearch, refSearch},
		{domain.IntentDesignFreeInput, refDesignFree},
		{domain.IntentDesignWithGIA, refDesignWithGIA},
		{domain.IntentListing, refListingStart},
		{domain.IntentGreeting, refGreeting},
		{domain.IntentGeneralInquiry, refGeneralInquiry},
	}
	for _, tc := range cases {
		if got := route(tc.intent, 0.9, session); got != tc.want {
			t.Errorf("route(%s) = %v, want %v", tc.intent, got, tc.want)
		}
	}
}

func TestRouteLowConfidenceFallsBackToMenu(t *testing.T) {
	session := domain.Session{Step: domain.StepIdle}
	if got := route(domain.IntentSearch, 0.2, session); got != refMainMenu {
		t.Fatalf("route = %v, want refMainMenu", got)
	}
}

func TestRouteUnknownIntentFallsBackToMenu(t *testing.T) {
	session := domain.Session{Step: domain.StepIdle}
	if got := route(domain.Intent("garbage"), 0.9, session); got != refMainMenu {
		t.Fatalf("route = %v, want refMainMenu", got)
	}
}
