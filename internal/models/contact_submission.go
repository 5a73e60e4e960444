package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContactSubmission stores a message sent through the public contact form.
type ContactSubmission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	FirstName string `gorm:"type:text;not null" json:"firstName"`
	LastName  string `gorm:"type:text;not null" json:"lastName"`
	Email     string `gorm:"type:text;not null;index" json:"email"`
	Subject   string `gorm:"type:text;not null" json:"subject"`
	Message   string `gorm:"type:text;not null" json:"message"`

	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"` // Submitter IP and user agent.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"` // Creation timestamp.
}
