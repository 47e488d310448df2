package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"diamondbot/internal/util"
	"diamondbot/pkg/domain"
)

// sendMainMenu offers the top level services as an interactive list.
func (a *App) sendMainMenu(ctx context.Context, user domain.User) {
	sections := []domain.ListSection{
		{
			Title: "Services",
			Rows: []domain.ListRow{
				{ID: string(domain.ActionUploadCertificate), Title: "Upload GIA certificate", Description: "Read your diamond's grading report"},
				{ID: string(domain.ActionDesignJewelry), Title: "Design jewelry", Description: "Custom designs around your stone"},
				{ID: string(domain.ActionSearchDiamonds), Title: "Search diamonds", Description: "Browse diamonds for sale"},
				{ID: string(domain.ActionListForSale), Title: "Sell your diamond", Description: "List your diamond for buyers"},
				{ID: string(domain.ActionGeneralInquiry), Title: "Ask a question", Description: "Anything diamonds and jewelry"},
			},
		},
	}
	a.sendList(ctx, user, "Here's what I can do for you:", "Menu", sections)
}

// sendGIAMenu offers the follow-ups after a certificate was parsed.
// Providers cap interactive replies at three buttons.
func (a *App) sendGIAMenu(ctx context.Context, user domain.User) {
	a.sendButtons(ctx, user, "What would you like to do with your diamond?", []domain.Button{
		{ID: string(domain.ActionListForSale), Title: "List for sale"},
		{ID: string(domain.ActionDesignJewelry), Title: "Design jewelry"},
		{ID: string(domain.ActionImproveDiamond), Title: "Improve diamond"},
	})
}

func (a *App) greet(ctx context.Context, user domain.User) {
	a.sendText(ctx, user, msgGreeting)
	a.sendMainMenu(ctx, user)
}

// generalInquiry answers through the assistant, falling back to the menu
// when the model is unavailable.
func (a *App) generalInquiry(ctx context.Context, user domain.User, question string) {
	if a.assistant != nil {
		answer, err := a.assistant.Reply(ctx, question)
		if err == nil && strings.TrimSpace(answer) != "" {
			a.sendText(ctx, user, answer)
			return
		}
		if err != nil {
			util.LoggerFromContext(ctx).Warn("assistant reply failed", slog.String("error", err.Error()))
		}
	}
	a.sendMainMenu(ctx, user)
}

// improveDiamond builds upgrade advice from the stored grading data.
func (a *App) improveDiamond(ctx context.Context, user domain.User, session domain.Session) {
	diamond, ok := a.loadDiamond(ctx, user, session.LastDiamondID)
	if !ok {
		return
	}
	a.sendText(ctx, user, improvementAdvice(diamond))
}

// improvementAdvice is deterministic so the guidance never contradicts
// the certificate.
func improvementAdvice(d domain.Diamond) string {
	var tips []string
	if isBelowGood(d.Cut) {
		tips = append(tips, "A recut could raise the cut grade and noticeably improve brilliance, at the cost of some carat weight.")
	}
	if isBelowGood(d.Polish) {
		tips = append(tips, "Repolishing would remove surface blemishes and lift the polish grade with minimal weight loss.")
	}
	if isBelowGood(d.Symmetry) {
		tips = append(tips, "Faceting adjustments could improve symmetry, which helps light performance.")
	}
	if strings.EqualFold(d.Fluorescence, "strong") || strings.EqualFold(d.Fluorescence, "very strong") {
		tips = append(tips, "Strong fluorescence can lower resale value; a setting in warm metal downplays the effect.")
	}
	switch strings.ToUpper(d.Clarity) {
	case "SI1", "SI2", "I1", "I2", "I3":
		tips = append(tips, "Inclusions in this clarity range can sometimes be reduced by laser treatment; a gemologist should assess whether it pays off.")
	}

	header := fmt.Sprintf("Here's my assessment of GIA %s:\n\n", d.CertificateNumber)
	if len(tips) == 0 {
		return header + "Your diamond already grades very well across the board. The best way to add value is a certified appraisal and a quality setting. ✨"
	}
	var sb strings.Builder
	sb.WriteString(header)
	for _, tip := range tips {
		sb.WriteString("• " + tip + "\n")
	}
	sb.WriteString("\nAlways have treatments done by a certified workshop, and re-certify afterwards.")
	return sb.String()
}

func isBelowGood(grade string) bool {
	switch strings.ToLower(strings.TrimSpace(grade)) {
	case "good", "fair", "poor":
		return true
	}
	return false
}
