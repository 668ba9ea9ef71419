// Package models defines the data models for the broadcast application.
package models

// Contact is an address book entry imported by the login executable.
type Contact struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"` // Phone number as stored by the importer, without the @c.us suffix
}

// Group is a named broadcast list.
type Group struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `json:"name"`
}

// GroupContact links one group to one contact.
// The pair is not unique in the schema; CreateGroup collapses duplicates.
type GroupContact struct {
	GroupID   uint `gorm:"index" json:"groupId"`
	ContactID uint `gorm:"index" json:"contactId"`
}

// TableName overrides the table name used by GroupContact to 'group_contacts'
func (GroupContact) TableName() string {
	return "group_contacts"
}

// GroupRequest is the validated input of group creation.
type GroupRequest struct {
	Name       string `validate:"required"`
	ContactIDs []uint `validate:"required,min=1,dive,gt=0"`
}

// SessionStatus is the content of the status file written by the login executable.
type SessionStatus struct {
	LoggedIn *bool `json:"loggedIn"` // nil when the field is missing
}

// SendRequest is the JSON handed to the sender executable.
type SendRequest struct {
	Contacts []string `json:"contacts"` // Normalized recipient ids (e.g., "15551234567@c.us")
	Message  string   `json:"message"`  // Plain text, markup already stripped
}
