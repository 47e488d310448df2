package app

import (
	"strings"
	"testing"

	"diamondbot/pkg/domain"
	"diamondbot/pkg/store"
)

func startListing(t *testing.T, env *testEnv) {
	t.Helper()
	env.seedDiamond(t)
	env.press(t, string(domain.ActionListForSale))
	if got := env.session(t).Step; got != domain.StepListingPrice {
		t.Fatalf("step after start = %q, want listing_price", got)
	}
}

func TestListingFlowCreatesRecord(t *testing.T) {
	env := newTestEnv(t)
	startListing(t, env)

	env.text(t, "12500")
	if got := env.session(t).Step; got != domain.StepListingContact {
		t.Fatalf("step after price = %q, want listing_contact", got)
	}

	env.text(t, "call 055-1234567")
	if got := env.session(t).Step; got != domain.StepListingMedia {
		t.Fatalf("step after contact = %q, want listing_media", got)
	}

	env.media(t, domain.MessageImage)
	env.media(t, domain.MessageImage)
	if !env.channel.lastTextContains("Photo 2") {
		t.Fatalf("expected progress count, got %v", env.channel.texts())
	}

	env.text(t, "done")

	sess := env.session(t)
	if sess.Step != domain.StepIdle {
		t.Fatalf("step after done = %q, want idle", sess.Step)
	}
	if sess.Listing != nil {
		t.Fatal("draft should be cleared after commit")
	}

	listings, err := env.store.ListListingsByUser(env.user(t).ID, store.ListOptions{})
	if err != nil {
		t.Fatalf("list listings: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("listings = %d, want 1", len(listings))
	}
	listing := listings[0]
	if listing.Status != domain.ListingPendingReview {
		t.Fatalf("status = %q, want pending_review", listing.Status)
	}
	if listing.Price != "12500" || listing.ContactInfo != "call 055-1234567" {
		t.Fatalf("listing = %+v", listing)
	}
	if len(listing.Images) != 2 {
		t.Fatalf("images = %v", listing.Images)
	}
	if listing.DiamondID != "diamond-1" {
		t.Fatalf("diamondID = %q", listing.DiamondID)
	}
}

func TestListingContactSentinel(t *testing.T) {
	env := newTestEnv(t)
	startListing(t, env)

	env.text(t, "contact")

	sess := env.session(t)
	if sess.Step != domain.StepListingContact {
		t.Fatalf("step = %q, want listing_contact", sess.Step)
	}
	if sess.Listing == nil || sess.Listing.Price != domain.PriceOnRequest {
		t.Fatalf("price = %+v, want sentinel", sess.Listing)
	}
}

func TestListingDoneWithoutImagesStaysOpen(t *testing.T) {
	env := newTestEnv(t)
	startListing(t, env)
	env.text(t, "9000")
	env.text(t, "mail@example.com")

	env.text(t, "done")

	if got := env.session(t).Step; got != domain.StepListingMedia {
		t.Fatalf("step = %q, want listing_media", got)
	}
	if !env.channel.lastTextContains("at least one photo") {
		t.Fatalf("expected image warning, got %v", env.channel.texts())
	}
	listings, err := env.store.ListListingsByUser(env.user(t).ID, store.ListOptions{})
	if err != nil {
		t.Fatalf("list listings: %v", err)
	}
	if len(listings) != 0 {
		t.Fatalf("no record should exist, got %d", len(listings))
	}
}

// Mid-flow free text must never be re-read as a fresh request.
func TestListingPriceStepSwallowsSearchText(t *testing.T) {
	env := newTestEnv(t)
	startListing(t, env)

	env.text(t, "show me oval diamonds")

	sess := env.session(t)
	if sess.Step != domain.StepListingContact {
		t.Fatalf("step = %q, want listing_contact", sess.Step)
	}
	if sess.Listing == nil || sess.Listing.Price != "show me oval diamonds" {
		t.Fatalf("draft = %+v", sess.Listing)
	}
	for _, text := range env.channel.texts() {
		if strings.Contains(text, "No diamonds matched") {
			t.Fatal("search handler ran during listing flow")
		}
	}
}

func TestListingStartRequiresDiamond(t *testing.T) {
	env := newTestEnv(t)
	env.text(t, "hi")
	env.channel.sent = nil

	env.text(t, "I want to sell my diamond")

	if got := env.session(t).Step; got != domain.StepIdle {
		t.Fatalf("step = %q, want idle", got)
	}
	if !env.channel.lastTextContains("GIA certificate") {
		t.Fatalf("expected prerequisite message, got %v", env.channel.texts())
	}
}
