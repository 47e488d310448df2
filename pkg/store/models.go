package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID              string `gorm:"primaryKey"`
	ChannelAddress  string `gorm:"uniqueIndex;not null"`
	DisplayName     string
	LastIntent      string
	LastInteraction time.Time `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

type SessionModel struct {
	UserID        string         `gorm:"primaryKey"`
	Step          string         `gorm:"not null"`
	Listing       datatypes.JSON `gorm:"type:jsonb"`
	LastDiamondID string
	LastDesignID  string
	UpdatedAt     time.Time `gorm:"not null"`
}

type UploadModel struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"not null;index"`
	FileURL      string `gorm:"not null"`
	FileType     string `gorm:"not null"`
	Status       string `gorm:"not null"`
	ErrorMessage string
	CreatedAt    time.Time `gorm:"not null;index"`
}

type DiamondModel struct {
	ID                string `gorm:"primaryKey"`
	UserID            string `gorm:"not null;index"`
	UploadID          string
	Shape             string
	Carat             float64
	ColorType         string
	PrimaryHue        string
	Modifier          string
	Intensity         string
	Clarity           string
	Cut               string
	Polish            string
	Symmetry          string
	Fluorescence      string
	CertificateNumber string `gorm:"index;not null"`
	ParsedConfidence  float64
	CreatedAt         time.Time `gorm:"not null;index"`
}

type DesignModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"not null;index"`
	DiamondID      string
	ParentID       string
	Kind           string `gorm:"not null"`
	UserInput      string `gorm:"type:text"`
	PreviousPrompt string `gorm:"type:text"`
	Prompt         string `gorm:"type:text;not null"`
	ImageURL       string
	Status         string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	Direction string `gorm:"not null"`
	Kind      string `gorm:"not null"`
	Content   string `gorm:"type:text"`
	MediaURL  string
	Meta      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

type ListingModel struct {
	ID          string         `gorm:"primaryKey"`
	UserID      string         `gorm:"not null;index"`
	DiamondID   string         `gorm:"not null;index"`
	Price       string         `gorm:"not null"`
	ContactInfo string         `gorm:"not null"`
	Images      datatypes.JSON `gorm:"type:jsonb"`
	Status      string         `gorm:"not null;index"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}
