package models

import "time"

// Contact is a person attached to exactly one suite, service or utility.
// PropertyYardi is copied from the parent when the contact is created.
type Contact struct {
	ContactID     uint64    `gorm:"primaryKey;autoIncrement" json:"contact_id"`
	SuiteID       *uint64   `gorm:"index" json:"suite_id"`
	ServiceID     *uint64   `gorm:"index" json:"service_id"`
	UtilityID     *uint64   `gorm:"index" json:"utility_id"`
	PropertyYardi string    `gorm:"size:64;index" json:"property_yardi"`
	Name          string    `gorm:"size:255;not null" json:"name" validate:"required"`
	Title         string    `gorm:"size:255" json:"title"`
	Phone         string    `gorm:"size:64" json:"phone"`
	Email         string    `gorm:"size:255" json:"email" validate:"omitempty,email"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}

// ParentCount reports how many parent references are set.
func (c Contact) ParentCount() int {
	n := 0
	for _, p := range []*uint64{c.SuiteID, c.ServiceID, c.UtilityID} {
		if p != nil && *p != 0 {
			n++
		}
	}
	return n
}

// NormalizeParents clears parent references that point at id zero.
func (c *Contact) NormalizeParents() {
	for _, p := range []**uint64{&c.SuiteID, &c.ServiceID, &c.UtilityID} {
		if *p != nil && **p == 0 {
			*p = nil
		}
	}
}
