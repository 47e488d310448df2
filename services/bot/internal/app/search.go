package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"diamondbot/internal/util"
	"diamondbot/pkg/ai"
	"diamondbot/pkg/domain"
	"diamondbot/pkg/store"
)

const searchPageSize = 3

// searchListings runs an attribute search over approved listings and
// replies with up to three results. The query is remembered so "view
// more" can page forward.
func (a *App) searchListings(ctx context.Context, user domain.User, entities ai.Entities, offset int) {
	search := store.ListingSearch{
		Shape:    entities.Shape,
		Color:    entities.Color,
		Clarity:  entities.Clarity,
		CaratMin: entities.CaratMin,
		CaratMax: entities.CaratMax,
		PriceMin: entities.PriceMin,
		PriceMax: entities.PriceMax,
	}
	a.runSearch(ctx, user, search, offset)
}

// searchMore pages forward through the user's last search. Paging state
// is in-process only; after a restart the user simply searches again.
func (a *App) searchMore(ctx context.Context, user domain.User) {
	a.mu.Lock()
	page, ok := a.lastSearch[user.ID]
	a.mu.Unlock()
	if !ok {
		a.sendText(ctx, user, msgAskSearchCriteria)
		return
	}
	a.runSearch(ctx, user, page.search, page.offset)
}

func (a *App) runSearch(ctx context.Context, user domain.User, search store.ListingSearch, offset int) {
	logger := util.LoggerFromContext(ctx)

	listings, err := a.store.SearchListings(search, store.ListOptions{Skip: offset, Limit: searchPageSize})
	if err != nil {
		logger.Error("listing search failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	if len(listings) == 0 {
		if offset > 0 {
			a.sendText(ctx, user, "That's everything matching your search.")
			return
		}
		a.sendText(ctx, user, msgSearchNoResults)
		return
	}

	for i, listing := range listings {
		caption := a.listingCaption(listing, offset+i+1)
		if len(listing.Images) > 0 {
			a.sendImage(ctx, user, listing.Images[0], caption)
		} else {
			a.sendText(ctx, user, caption)
		}
	}

	a.mu.Lock()
	a.lastSearch[user.ID] = searchPage{search: search, offset: offset + len(listings)}
	a.mu.Unlock()

	if len(listings) == searchPageSize {
		a.sendButtons(ctx, user, "Want to see more?", []domain.Button{
			{ID: string(domain.ActionViewMoreResults), Title: "View more"},
		})
	}
}

func (a *App) listingCaption(listing domain.Listing, position int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💎 Diamond #%d\n", position))

	diamond, ok, err := a.store.GetDiamond(listing.DiamondID)
	if err == nil && ok {
		if diamond.Carat > 0 {
			sb.WriteString(fmt.Sprintf("%.2f carat", diamond.Carat))
			if diamond.Shape != "" {
				sb.WriteString(" " + diamond.Shape)
			}
			sb.WriteString("\n")
		}
		if color := colorLabel(diamond); color != "" {
			sb.WriteString(fmt.Sprintf("Color %s", color))
			if diamond.Clarity != "" {
				sb.WriteString(fmt.Sprintf(", clarity %s", diamond.Clarity))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("Price: %s\n", displayPrice(listing.Price)))
	sb.WriteString(fmt.Sprintf("Contact: %s", listing.ContactInfo))
	return sb.String()
}

func displayPrice(price string) string {
	if price == domain.PriceOnRequest {
		return price
	}
	if _, ok := store.ParsePrice(price); ok && !strings.HasPrefix(price, "$") {
		return "$" + price
	}
	return price
}
