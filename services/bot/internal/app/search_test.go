package app

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"diamondbot/pkg/domain"
)

// seedListings installs n approved round listings owned by a seller.
func (env *testEnv) seedListings(t *testing.T, n int) {
	t.Helper()
	seller := domain.User{ID: uuid.NewString(), ChannelAddress: "972500000001", CreatedAt: time.Now().UTC()}
	if err := env.store.CreateUser(seller); err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	for i := 0; i < n; i++ {
		diamond := domain.Diamond{
			ID: uuid.NewString(), UserID: seller.ID, Shape: "round",
			Carat: 1.0 + float64(i)*0.1, ColorType: "white", PrimaryHue: "G",
			Clarity: "VS2", CertificateNumber: fmt.Sprintf("600000000%d", i),
			CreatedAt: time.Now().UTC(),
		}
		if err := env.store.CreateDiamond(diamond); err != nil {
			t.Fatalf("seed diamond: %v", err)
		}
		listing := domain.Listing{
			ID: uuid.NewString(), UserID: seller.ID, DiamondID: diamond.ID,
			Price: fmt.Sprintf("%d", 5000+i*1000), ContactInfo: "055-0000000",
			Images: []string{fmt.Sprintf("https://media.test/l%d.jpg", i)},
			Status: domain.ListingApproved, CreatedAt: time.Now().UTC(),
		}
		if err := env.store.CreateListing(listing); err != nil {
			t.Fatalf("seed listing: %v", err)
		}
	}
}

func TestSearchSendsTopThreeWithViewMore(t *testing.T) {
	env := newTestEnv(t)
	env.seedListings(t, 5)

	env.text(t, "show me round diamonds")

	var images int
	var viewMore bool
	for _, m := range env.channel.sent {
		if m.kind == "image" {
			images++
		}
		if m.kind == "buttons" {
			for _, b := range m.buttons {
				if b.ID == string(domain.ActionViewMoreResults) {
					viewMore = true
				}
			}
		}
	}
	if images != 3 {
		t.Fatalf("result images = %d, want 3", images)
	}
	if !viewMore {
		t.Fatal("expected a view-more button after a full page")
	}
}

func TestViewMorePagesForward(t *testing.T) {
	env := newTestEnv(t)
	env.seedListings(t, 5)
	env.text(t, "show me round diamonds")
	env.channel.sent = nil

	env.press(t, string(domain.ActionViewMoreResults))

	var images int
	for _, m := range env.channel.sent {
		if m.kind == "image" {
			images++
		}
	}
	if images != 2 {
		t.Fatalf("second page images = %d, want 2", images)
	}
}

func TestPriceBoundedSearchPagesWithoutRepeats(t *testing.T) {
	env := newTestEnv(t)
	// prices 5000..10000; the bound keeps four of the six
	env.seedListings(t, 6)

	env.text(t, "show me round diamonds under $8,500")
	env.press(t, string(domain.ActionViewMoreResults))

	seen := map[string]int{}
	for _, m := range env.channel.sent {
		if m.kind == "image" {
			seen[m.imageURL]++
		}
	}
	if len(seen) != 4 {
		t.Fatalf("distinct results = %d, want all 4 within the bound", len(seen))
	}
	for url, count := range seen {
		if count != 1 {
			t.Fatalf("listing %s shown %d times", url, count)
		}
	}
}

func TestViewMoreWithoutSearchAsksForCriteria(t *testing.T) {
	env := newTestEnv(t)
	env.text(t, "hi")
	env.channel.sent = nil

	env.press(t, string(domain.ActionViewMoreResults))

	if !env.channel.lastTextContains("what you're looking for") {
		t.Fatalf("expected criteria prompt, got %v", env.channel.texts())
	}
}

func TestSearchNoResults(t *testing.T) {
	env := newTestEnv(t)
	env.text(t, "show me pear diamonds")

	if !env.channel.lastTextContains("No diamonds matched") {
		t.Fatalf("expected empty result message, got %v", env.channel.texts())
	}
}

func TestSearchCaptionIncludesPrice(t *testing.T) {
	env := newTestEnv(t)
	env.seedListings(t, 1)

	env.text(t, "show me round diamonds")

	var caption string
	for _, m := range env.channel.sent {
		if m.kind == "image" {
			caption = m.body
		}
	}
	if !strings.Contains(caption, "$5000") {
		t.Fatalf("caption = %q, want price", caption)
	}
	if !strings.Contains(caption, "round") {
		t.Fatalf("caption = %q, want shape", caption)
	}
}
