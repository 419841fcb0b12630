package store

import (
	"context"
	"errors"
	"iter"

	"fiapcontacts/pkg/domain"
)

var (
	// ErrDuplicateEmail is returned when a write collides with the unique email index.
	ErrDuplicateEmail = errors.New("store: duplicate contact email")
	// ErrDuplicatePhone is returned when a write collides with the unique (area code, phone) index.
	ErrDuplicatePhone = errors.New("store: duplicate contact phone")
	// ErrContactNotFound is returned by SaveContact when no row matches the id.
	ErrContactNotFound = errors.New("store: contact not found")
)

// ContactStore defines persistence operations for contacts.
type ContactStore interface {
	// Transaction runs fn against a store bound to a single database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx ContactStore) error) error

	CreateContact(ctx context.Context, c *domain.Contact) error
	GetContact(ctx context.Context, id int64) (domain.Contact, bool, error)
	SaveContact(ctx context.Context, c *domain.Contact) error
	DeleteContact(ctx context.Context, id int64) (bool, error)

	ContactEmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
	ContactPhoneExists(ctx context.Context, areaCode, phoneNumber string, excludeID int64) (bool, error)

	// ListContacts streams contacts ordered by name, then id.
	// An empty areaCode selects every contact.
	ListContacts(ctx context.Context, areaCode string) iter.Seq2[domain.Contact, error]
}

// Pinger is an optional capability used by readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}
