package store

import (
	"fmt"
	"testing"
	"time"

	"diamondbot/pkg/domain"
)

func seedSearchData(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	diamonds := []domain.Diamond{
		{ID: "d1", UserID: "u1", Shape: "round", PrimaryHue: "G", Clarity: "VS1", Carat: 1.2},
		{ID: "d2", UserID: "u1", Shape: "oval", PrimaryHue: "D", Clarity: "VVS2", Carat: 2.5},
		{ID: "d3", UserID: "u2", Shape: "round", PrimaryHue: "H", Clarity: "SI1", Carat: 0.8},
	}
	for _, d := range diamonds {
		if err := m.CreateDiamond(d); err != nil {
			t.Fatalf("create diamond: %v", err)
		}
	}
	listings := []domain.Listing{
		{ID: "l1", UserID: "u1", DiamondID: "d1", Price: "5000", Status: domain.ListingApproved, CreatedAt: base},
		{ID: "l2", UserID: "u1", DiamondID: "d2", Price: "30000", Status: domain.ListingApproved, CreatedAt: base.Add(time.Hour)},
		{ID: "l3", UserID: "u2", DiamondID: "d3", Price: "2000", Status: domain.ListingPendingReview, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, l := range listings {
		if err := m.CreateListing(l); err != nil {
			t.Fatalf("create listing: %v", err)
		}
	}
	return m
}

func TestSearchListingsOnlyApproved(t *testing.T) {
	m := seedSearchData(t)

	got, err := m.SearchListings(ListingSearch{}, ListOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want the two approved listings", ids(got))
	}
	if got[0].ID != "l2" || got[1].ID != "l1" {
		t.Fatalf("order = %v, want newest first [l2 l1]", ids(got))
	}
}

func TestSearchListingsFiltersByAttributes(t *testing.T) {
	m := seedSearchData(t)

	got, err := m.SearchListings(ListingSearch{Shape: "Round"}, ListOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Fatalf("shape filter = %v, want [l1]", ids(got))
	}

	min := 2.0
	got, err = m.SearchListings(ListingSearch{CaratMin: &min}, ListOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l2" {
		t.Fatalf("carat filter = %v, want [l2]", ids(got))
	}

	maxPrice := 10000.0
	got, err = m.SearchListings(ListingSearch{PriceMax: &maxPrice}, ListOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Fatalf("price filter = %v, want [l1]", ids(got))
	}
}

func TestSearchListingsPriceFilteredPaging(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// l0 newest .. l5 oldest; l1 and l2 fall outside the price bound
	prices := []string{"5000", "20000", domain.PriceOnRequest, "6000", "7000", "8000"}
	for i, price := range prices {
		d := domain.Diamond{ID: fmt.Sprintf("d%d", i), UserID: "u1", Shape: "round"}
		if err := m.CreateDiamond(d); err != nil {
			t.Fatalf("create diamond: %v", err)
		}
		l := domain.Listing{
			ID:        fmt.Sprintf("l%d", i),
			UserID:    "u1",
			DiamondID: d.ID,
			Price:     price,
			Status:    domain.ListingApproved,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
		if err := m.CreateListing(l); err != nil {
			t.Fatalf("create listing: %v", err)
		}
	}

	maxPrice := 10000.0
	search := ListingSearch{PriceMax: &maxPrice}

	page1, err := m.SearchListings(search, ListOptions{Skip: 0, Limit: 3})
	if err != nil {
		t.Fatalf("search page 1: %v", err)
	}
	if len(page1) != 3 || page1[0].ID != "l0" || page1[1].ID != "l3" || page1[2].ID != "l4" {
		t.Fatalf("page 1 = %v, want [l0 l3 l4]", ids(page1))
	}

	// skip counts filtered rows, so page 2 holds only the last match
	page2, err := m.SearchListings(search, ListOptions{Skip: 3, Limit: 3})
	if err != nil {
		t.Fatalf("search page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != "l5" {
		t.Fatalf("page 2 = %v, want [l5]", ids(page2))
	}
}

func TestListPagination(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		l := domain.Listing{
			ID:        fmt.Sprintf("l%d", i),
			UserID:    "u1",
			DiamondID: "d1",
			Status:    domain.ListingPendingReview,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := m.CreateListing(l); err != nil {
			t.Fatalf("create listing: %v", err)
		}
	}

	got, err := m.ListListingsByUser("u1", ListOptions{Skip: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "l3" || got[1].ID != "l2" {
		t.Fatalf("page = %v, want [l3 l2]", ids(got))
	}

	got, err = m.ListListingsByUser("u1", ListOptions{Skip: 10, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("out-of-range page = %v, want empty", ids(got))
	}
}
