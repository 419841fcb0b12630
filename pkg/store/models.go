package store

import "time"

const (
	contactEmailIndex = "idx_contacts_email"
	contactPhoneIndex = "idx_contacts_phone"
)

// ContactModel is the GORM model for the contacts table.
// The composite phone index leads with area_code, so it also serves area code filters.
type ContactModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"not null;index:idx_contacts_name"`
	AreaCode    string    `gorm:"not null;uniqueIndex:idx_contacts_phone,priority:1"`
	PhoneNumber string    `gorm:"not null;uniqueIndex:idx_contacts_phone,priority:2"`
	Email       string    `gorm:"not null;uniqueIndex:idx_contacts_email"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName pins the table name independently of GORM's naming strategy.
func (ContactModel) TableName() string {
	return "contacts"
}
