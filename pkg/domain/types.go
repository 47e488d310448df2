package domain

import "time"

// SessionStep identifies which flow (if any) is currently open for a user.
type SessionStep string

const (
	StepIdle           SessionStep = "idle"
	StepGIAMenu        SessionStep = "gia_menu"
	StepListingPrice   SessionStep = "listing_price"
	StepListingContact SessionStep = "listing_contact"
	StepListingMedia   SessionStep = "listing_media"
)

// Intent names produced by the classifier.
type Intent string

const (
	IntentSearch          Intent = "search"
	IntentDesignFreeInput Intent = "design_free_input"
	IntentDesignWithGIA   Intent = "design_with_gia"
	IntentDesignEdit      Intent = "design_edit"
	IntentDesignVariation Intent = "design_variation"
	IntentListing         Intent = "listing_intent"
	IntentGeneralInquiry  Intent = "general_inquiry"
	IntentGreeting        Intent = "greeting"
)

type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "uploaded"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusFailed     UploadStatus = "failed"
)

type DesignKind string

const (
	DesignAuto      DesignKind = "auto"
	DesignFreeInput DesignKind = "free_input"
	DesignGIACustom DesignKind = "gia_custom"
	DesignEdit      DesignKind = "edit"
	DesignVariation DesignKind = "variation"
)

type DesignStatus string

const (
	DesignStatusCreated   DesignStatus = "created"
	DesignStatusGenerated DesignStatus = "generated"
	DesignStatusApproved  DesignStatus = "approved"
	DesignStatusRejected  DesignStatus = "rejected"
)

type ListingStatus string

const (
	ListingPendingReview ListingStatus = "pending_review"
	ListingApproved      ListingStatus = "approved"
)

// PriceOnRequest is the sentinel price stored when a seller types "contact"
// instead of a number.
const PriceOnRequest = "Contact for Price"

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type MessageKind string

const (
	MessageText        MessageKind = "text"
	MessageImage       MessageKind = "image"
	MessageDocument    MessageKind = "document"
	MessageAudio       MessageKind = "audio"
	MessageInteractive MessageKind = "interactive"
)

// User is an identity keyed by its channel address (WhatsApp number).
type User struct {
	ID              string    `json:"id"`
	ChannelAddress  string    `json:"channelAddress"`
	DisplayName     string    `json:"displayName,omitempty"`
	LastIntent      string    `json:"lastIntent,omitempty"`
	LastInteraction time.Time `json:"lastInteraction"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ListingDraft accumulates listing-flow input before the final commit.
// The draft is always replaced wholesale when the session is saved.
type ListingDraft struct {
	Price       string   `json:"price,omitempty"`
	ContactInfo string   `json:"contactInfo,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// Session tracks where a user is in a multi-turn flow. One per user,
// created with the user and reset to idle on flow completion.
type Session struct {
	UserID        string        `json:"userId"`
	Step          SessionStep   `json:"step"`
	Listing       *ListingDraft `json:"listing,omitempty"`
	LastDiamondID string        `json:"lastDiamondId,omitempty"`
	LastDesignID  string        `json:"lastDesignId,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// DefaultSession is what Load returns for a user with no stored session.
func DefaultSession(userID string) Session {
	return Session{UserID: userID, Step: StepIdle}
}

// SessionUpdate is a partial session mutation. Only non-nil fields are
// applied; Listing is replaced wholesale (set ClearListing to drop it).
type SessionUpdate struct {
	Step          *SessionStep
	Listing       *ListingDraft
	ClearListing  bool
	LastDiamondID *string
	LastDesignID  *string
}

// IsZero reports whether the update would change nothing.
func (u SessionUpdate) IsZero() bool {
	return u.Step == nil && u.Listing == nil && !u.ClearListing &&
		u.LastDiamondID == nil && u.LastDesignID == nil
}

// Upload records an inbound media file. The file URL is immutable once set.
type Upload struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	FileURL      string       `json:"fileUrl"`
	FileType     string       `json:"fileType"`
	Status       UploadStatus `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Diamond holds the graded attributes extracted from a certificate.
// CertificateNumber is the natural key for external lookup and never
// changes after creation.
type Diamond struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	UploadID          string    `json:"uploadId,omitempty"`
	Shape             string    `json:"shape,omitempty"`
	Carat             float64   `json:"carat,omitempty"`
	ColorType         string    `json:"colorType,omitempty"`
	PrimaryHue        string    `json:"primaryHue,omitempty"`
	Modifier          string    `json:"modifier,omitempty"`
	Intensity         string    `json:"intensity,omitempty"`
	Clarity           string    `json:"clarity,omitempty"`
	Cut               string    `json:"cut,omitempty"`
	Polish            string    `json:"polish,omitempty"`
	Symmetry          string    `json:"symmetry,omitempty"`
	Fluorescence      string    `json:"fluorescence,omitempty"`
	CertificateNumber string    `json:"certificateNumber"`
	ParsedConfidence  float64   `json:"parsedConfidence,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Design is one generated jewelry artifact. Edits and variations chain to
// their predecessor twice: ParentID references the prior record, and
// PreviousPrompt carries the prior prompt text verbatim for consumers that
// reconstruct lineage by prompt.
type Design struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	DiamondID      string       `json:"diamondId,omitempty"`
	ParentID       string       `json:"parentId,omitempty"`
	Kind           DesignKind   `json:"kind"`
	UserInput      string       `json:"userInput,omitempty"`
	PreviousPrompt string       `json:"previousPrompt,omitempty"`
	Prompt         string       `json:"prompt"`
	ImageURL       string       `json:"imageUrl"`
	Status         DesignStatus `json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Message is one entry in the append-only conversation audit log.
type Message struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Direction MessageDirection  `json:"direction"`
	Kind      MessageKind       `json:"kind"`
	Content   string            `json:"content,omitempty"`
	MediaURL  string            `json:"mediaUrl,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Listing is a diamond offered for sale. Listings start pending review and
// become visible to search once approved.
type Listing struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	DiamondID   string        `json:"diamondId"`
	Price       string        `json:"price"`
	ContactInfo string        `json:"contactInfo"`
	Images      []string      `json:"images"`
	Status      ListingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}
