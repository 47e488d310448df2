package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"diamondbot/internal/util"
	"diamondbot/pkg/domain"
)

// listingStart opens the listing flow. The caller guarantees a diamond
// exists; the draft is cleared so stale input never leaks into a new run.
func (a *App) listingStart(ctx context.Context, user domain.User, session domain.Session) {
	if session.LastDiamondID == "" {
		a.sendText(ctx, user, msgNoDiamondYet)
		return
	}
	_, err := a.sessions.Save(user.ID, domain.SessionUpdate{
		Step:         stepPtr(domain.StepListingPrice),
		ClearListing: true,
	})
	if err != nil {
		util.LoggerFromContext(ctx).Error("open listing flow failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	a.sendText(ctx, user, msgListingAskPrice)
}

// listingPrice stores the asking price and advances to contact collection.
// Typing "contact" stores the price-on-request sentinel.
func (a *App) listingPrice(ctx context.Context, user domain.User, session domain.Session, text string) {
	price := strings.TrimSpace(text)
	if strings.EqualFold(price, "contact") {
		price = domain.PriceOnRequest
	}
	draft := draftOf(session)
	draft.Price = price
	_, err := a.sessions.Save(user.ID, domain.SessionUpdate{
		Step:    stepPtr(domain.StepListingContact),
		Listing: &draft,
	})
	if err != nil {
		util.LoggerFromContext(ctx).Error("store listing price failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	a.sendText(ctx, user, msgListingAskContact)
}

// listingContact stores contact info and advances to media collection.
func (a *App) listingContact(ctx context.Context, user domain.User, session domain.Session, text string) {
	draft := draftOf(session)
	draft.ContactInfo = strings.TrimSpace(text)
	_, err := a.sessions.Save(user.ID, domain.SessionUpdate{
		Step:    stepPtr(domain.StepListingMedia),
		Listing: &draft,
	})
	if err != nil {
		util.LoggerFromContext(ctx).Error("store listing contact failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	a.sendText(ctx, user, msgListingAskMedia)
}

// listingMediaText handles free text while photos are being collected.
// "done" commits the listing; anything else is a nudge.
func (a *App) listingMediaText(ctx context.Context, user domain.User, session domain.Session, text string) {
	if !strings.EqualFold(strings.TrimSpace(text), "done") {
		a.sendText(ctx, user, msgListingMediaNudge)
		return
	}
	draft := draftOf(session)
	if len(draft.Images) == 0 {
		// commit refused, flow stays open so the user can still send photos
		a.sendText(ctx, user, msgListingNeedImages)
		return
	}
	listing := domain.Listing{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		DiamondID:   session.LastDiamondID,
		Price:       draft.Price,
		ContactInfo: draft.ContactInfo,
		Images:      draft.Images,
		Status:      domain.ListingPendingReview,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.CreateListing(listing); err != nil {
		util.LoggerFromContext(ctx).Error("create listing failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	_, err := a.sessions.Save(user.ID, domain.SessionUpdate{
		Step:         stepPtr(domain.StepIdle),
		ClearListing: true,
	})
	if err != nil {
		util.LoggerFromContext(ctx).Error("reset session after listing failed", slog.String("error", err.Error()))
	}
	a.sendText(ctx, user, msgListingSubmitted)
}

// listingImage appends one uploaded photo to the draft and reports
// progress. The step does not change.
func (a *App) listingImage(ctx context.Context, user domain.User, session domain.Session, imageURL string) {
	draft := draftOf(session)
	draft.Images = append(draft.Images, imageURL)
	_, err := a.sessions.Save(user.ID, domain.SessionUpdate{Listing: &draft})
	if err != nil {
		util.LoggerFromContext(ctx).Error("store listing image failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	a.sendText(ctx, user, fmt.Sprintf("Photo %d saved. Send more, or type \"done\".", len(draft.Images)))
}

func draftOf(session domain.Session) domain.ListingDraft {
	if session.Listing == nil {
		return domain.ListingDraft{}
	}
	return *session.Listing
}
