package store

import "diamondbot/pkg/domain"

// ListOptions paginates list queries. Zero Limit means the store default.
type ListOptions struct {
	Skip  int
	Limit int
}

// ListingSearch filters approved listings by the graded attributes of the
// listed diamond. String fields are exact (case-insensitive) matches; nil
// range bounds are open.
type ListingSearch struct {
	Shape    string
	Color    string
	Clarity  string
	Cut      string
	CaratMin *float64
	CaratMax *float64
	PriceMin *float64
	PriceMax *float64
}

// Store is the record-store collaborator: typed CRUD over users, sessions,
// uploads, diamonds, designs, messages, and listings. List results are
// ordered by creation time descending unless stated otherwise.
type Store interface {
	// Ping reports whether the backing database is reachable.
	Ping() error

	// users
	CreateUser(domain.User) error
	GetUser(id string) (domain.User, bool, error)
	GetUserByAddress(address string) (domain.User, bool, error)
	TouchUser(id string, lastIntent string) error
	DeleteUser(id string) error

	// sessions
	GetSession(userID string) (domain.Session, bool, error)
	UpsertSession(domain.Session) error

	// uploads
	CreateUpload(domain.Upload) error
	SetUploadStatus(id string, status domain.UploadStatus, errMsg string) error
	ListUploadsByUser(userID string, opts ListOptions) ([]domain.Upload, error)

	// diamonds
	CreateDiamond(domain.Diamond) error
	GetDiamond(id string) (domain.Diamond, bool, error)
	GetDiamondByCertificate(certificateNumber string) (domain.Diamond, bool, error)
	ListDiamondsByUser(userID string, opts ListOptions) ([]domain.Diamond, error)

	// designs
	CreateDesign(domain.Design) error
	GetDesign(id string) (domain.Design, bool, error)
	SetDesignStatus(id string, status domain.DesignStatus) error
	ListDesignsByUser(userID string, opts ListOptions) ([]domain.Design, error)

	// messages (append-only audit log)
	AppendMessage(domain.Message) error
	ListMessagesByUser(userID string, opts ListOptions) ([]domain.Message, error)

	// listings
	CreateListing(domain.Listing) error
	GetListing(id string) (domain.Listing, bool, error)
	SetListingStatus(id string, status domain.ListingStatus) error
	ListListingsByUser(userID string, opts ListOptions) ([]domain.Listing, error)
	SearchListings(search ListingSearch, opts ListOptions) ([]domain.Listing, error)
}
