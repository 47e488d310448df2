package domain

import "strings"

// MenuAction is an enumerated interactive-reply action. Raw button ids are
// resolved into MenuAction at the webhook boundary; handler logic never
// sees provider id strings.
type MenuAction string

const (
	ActionUploadCertificate MenuAction = "upload_gia"
	ActionDesignJewelry     MenuAction = "design_jewelry"
	ActionSearchDiamonds    MenuAction = "search_diamonds"
	ActionGeneralInquiry    MenuAction = "general_inquiry"
	ActionListForSale       MenuAction = "list_for_sale"
	ActionImproveDiamond    MenuAction = "improve_diamond"
	ActionTryVariation      MenuAction = "design_variation"
	ActionView360           MenuAction = "design_360"
	ActionViewMoreResults   MenuAction = "view_more_results"
	ActionUnknown           MenuAction = "unknown"
)

const view360Prefix = "design_360_"

// ParseMenuAction maps a raw interactive reply id to an action plus an
// optional argument (the design id for 360 views).
func ParseMenuAction(id string) (MenuAction, string) {
	id = strings.TrimSpace(id)
	if rest, ok := strings.CutPrefix(id, view360Prefix); ok && rest != "" {
		return ActionView360, rest
	}
	switch MenuAction(id) {
	case ActionUploadCertificate, ActionDesignJewelry, ActionSearchDiamonds,
		ActionGeneralInquiry, ActionListForSale, ActionImproveDiamond,
		ActionTryVariation, ActionViewMoreResults:
		return MenuAction(id), ""
	}
	return ActionUnknown, ""
}

// View360ID builds the reply id carrying a design id for 360 view buttons.
func View360ID(designID string) string {
	return view360Prefix + designID
}

// Button is one interactive reply button (providers cap these at three).
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRow is one selectable row in an interactive list message.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows in an interactive list message.
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}
