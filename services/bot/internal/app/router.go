package app

import "diamondbot/pkg/domain"

// handlerRef names the flow handler the router selected. Pure data so the
// decision table can be tested without I/O.
type handlerRef int

const (
	refMainMenu handlerRef = iota
	refGreeting
	refGeneralInquiry
	refSearch
	refDesignFree
	refDesignWithGIA
	refDesignEdit
	refDesignVariation
	refListingStart
	refListingPrice
	refListingContact
	refListingMedia
	refMissingDesign
	refMissingDiamond
)

// Below this confidence the verdict is treated as noise and the main menu
// is offered instead.
const minRouteConfidence = 0.4

// route maps a classified intent plus the current session to a handler.
// Precedence, in order:
//  1. edit/variation continuations run when a prior design exists,
//     even mid-flow.
//  2. intents whose prerequisite is absent get the corrective handler.
//  3. an open collection step consumes free text before fresh intents,
//     so a price or phone number is never re-read as a new request.
//  4. direct dispatch by intent; low confidence falls back to the menu.
func route(intent domain.Intent, confidence float64, session domain.Session) handlerRef {
	switch intent {
	case domain.IntentDesignEdit:
		if session.LastDesignID != "" {
			return refDesignEdit
		}
		return refMissingDesign
	case domain.IntentDesignVariation:
		if session.LastDesignID != "" {
			return refDesignVariation
		}
		return refMissingDesign
	case domain.IntentDesignWithGIA:
		if session.LastDiamondID == "" {
			return refMissingDiamond
		}
	case domain.IntentListing:
		if session.LastDiamondID == "" {
			return refMissingDiamond
		}
	}

	switch session.Step {
	case domain.StepListingPrice:
		return refListingPrice
	case domain.StepListingContact:
		return refListingContact
	case domain.StepListingMedia:
		return refListingMedia
	}

	if confidence < minRouteConfidence {
		return refMainMenu
	}
	switch intent {
	case domain.IntentSearch:
		return refSearch
	case domain.IntentDesignFreeInput:
		return refDesignFree
	case domain.IntentDesignWithGIA:
		return refDesignWithGIA
	case domain.IntentListing:
		return refListingStart
	case domain.IntentGreeting:
		return refGreeting
	case domain.IntentGeneralInquiry:
		return refGeneralInquiry
	}
	return refMainMenu
}
