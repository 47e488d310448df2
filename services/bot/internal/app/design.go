package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"diamondbot/internal/util"
	"diamondbot/pkg/ai"
	"diamondbot/pkg/domain"
)

// designAuto renders jewelry matched automatically to the user's last
// parsed diamond.
func (a *App) designAuto(ctx context.Context, user domain.User, session domain.Session) {
	diamond, ok := a.loadDiamond(ctx, user, session.LastDiamondID)
	if !ok {
		return
	}
	res := a.generator.DesignFromDiamond(ctx, diamond)
	a.finishDesign(ctx, user, domain.Design{
		DiamondID: diamond.ID,
		Kind:      domain.DesignAuto,
	}, res)
}

// designFree renders jewelry from the user's own description.
func (a *App) designFree(ctx context.Context, user domain.User, input string) {
	res := a.generator.DesignFromText(ctx, input)
	a.finishDesign(ctx, user, domain.Design{
		Kind:      domain.DesignFreeInput,
		UserInput: input,
	}, res)
}

// designWithGIA renders the user's idea built around their graded stone.
func (a *App) designWithGIA(ctx context.Context, user domain.User, session domain.Session, input string) {
	diamond, ok := a.loadDiamond(ctx, user, session.LastDiamondID)
	if !ok {
		return
	}
	res := a.generator.DesignWithDiamond(ctx, diamond, input)
	a.finishDesign(ctx, user, domain.Design{
		DiamondID: diamond.ID,
		Kind:      domain.DesignGIACustom,
		UserInput: input,
	}, res)
}

// designEdit applies a change on top of the last design. The new record
// chains to its predecessor by both id and prompt text.
func (a *App) designEdit(ctx context.Context, user domain.User, session domain.Session, change string) {
	prev, ok := a.loadDesign(ctx, user, session.LastDesignID)
	if !ok {
		return
	}
	res := a.generator.EditDesign(ctx, prev.Prompt, change)
	a.finishDesign(ctx, user, domain.Design{
		DiamondID:      prev.DiamondID,
		ParentID:       prev.ID,
		Kind:           domain.DesignEdit,
		UserInput:      change,
		PreviousPrompt: prev.Prompt,
	}, res)
}

// designVariation reinterprets the last design in a fresh style.
func (a *App) designVariation(ctx context.Context, user domain.User, session domain.Session) {
	prev, ok := a.loadDesign(ctx, user, session.LastDesignID)
	if !ok {
		return
	}
	res := a.generator.DesignVariation(ctx, prev.Prompt)
	a.finishDesign(ctx, user, domain.Design{
		DiamondID:      prev.DiamondID,
		ParentID:       prev.ID,
		Kind:           domain.DesignVariation,
		PreviousPrompt: prev.Prompt,
	}, res)
}

// design360 sends a multi-angle showcase of an existing design. No new
// record is created and the session is untouched.
func (a *App) design360(ctx context.Context, user domain.User, designID string) {
	design, ok := a.loadDesign(ctx, user, designID)
	if !ok {
		return
	}
	res := a.generator.Design360View(ctx, design.Prompt)
	if !res.Success {
		util.LoggerFromContext(ctx).Error("360 view generation failed", slog.String("error", res.Error))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	a.sendImage(ctx, user, res.ImageURL, "Here's your design from every angle. ✨")
}

// finishDesign persists a successful render, advances last_design_id and
// sends the artifact with follow-up choices. Generator failure leaves the
// session untouched.
func (a *App) finishDesign(ctx context.Context, user domain.User, design domain.Design, res ai.DesignResult) {
	logger := util.LoggerFromContext(ctx)
	if !res.Success {
		logger.Error("design generation failed", slog.String("error", res.Error))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	design.ID = uuid.NewString()
	design.UserID = user.ID
	design.Prompt = res.Prompt
	design.ImageURL = res.ImageURL
	design.Status = domain.DesignStatusGenerated
	design.CreatedAt = time.Now().UTC()

	if err := a.store.CreateDesign(design); err != nil {
		logger.Error("persist design failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return
	}
	if _, err := a.sessions.Save(user.ID, domain.SessionUpdate{LastDesignID: strPtr(design.ID)}); err != nil {
		logger.Error("update last design failed", slog.String("error", err.Error()))
	}

	a.sendImage(ctx, user, design.ImageURL, "Here's your design! 💍")
	a.sendButtons(ctx, user, "What would you like to do next?", []domain.Button{
		{ID: string(domain.ActionTryVariation), Title: "Try a variation"},
		{ID: domain.View360ID(design.ID), Title: "360° view"},
	})
}

func (a *App) loadDiamond(ctx context.Context, user domain.User, id string) (domain.Diamond, bool) {
	if id == "" {
		a.sendText(ctx, user, msgNoDiamondYet)
		return domain.Diamond{}, false
	}
	diamond, ok, err := a.store.GetDiamond(id)
	if err != nil {
		util.LoggerFromContext(ctx).Error("load diamond failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return domain.Diamond{}, false
	}
	if !ok || diamond.UserID != user.ID {
		a.sendText(ctx, user, msgNoDiamondYet)
		return domain.Diamond{}, false
	}
	return diamond, true
}

func (a *App) loadDesign(ctx context.Context, user domain.User, id string) (domain.Design, bool) {
	if id == "" {
		a.sendText(ctx, user, msgNoDesignYet)
		return domain.Design{}, false
	}
	design, ok, err := a.store.GetDesign(id)
	if err != nil {
		util.LoggerFromContext(ctx).Error("load design failed", slog.String("error", err.Error()))
		a.sendText(ctx, user, msgGenericFailure)
		return domain.Design{}, false
	}
	// ids can arrive from interactive reply payloads, so a record owned
	// by someone else reads as not found
	if !ok || design.UserID != user.ID {
		a.sendText(ctx, user, msgNoDesignYet)
		return domain.Design{}, false
	}
	return design, true
}
