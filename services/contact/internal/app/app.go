package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fiapcontacts/pkg/domain"
	"fiapcontacts/pkg/store"
)

const tracerName = "fiapcontacts/services/contact/app"

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.ContactStore
}

// App owns the contact lifecycle: required fields, uniqueness and persistence.
type App struct {
	store    store.ContactStore
	validate *validator.Validate
	tracer   trace.Tracer
}

// New constructs the application with a database-backed contact store.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init contact store: %w", err)
		}
	}
	return &App{
		store:    dataStore,
		validate: newValidator(),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Insert persists a new contact after the required-field, email format and uniqueness checks.
// The id of c is ignored; the returned contact carries the id assigned by the store.
func (a *App) Insert(ctx context.Context, c domain.Contact) (_ domain.Contact, err error) {
	ctx, span := a.tracer.Start(ctx, "contacts.insert")
	defer func() { endSpan(span, err) }()

	if verr := a.validationError(c); verr != nil {
		return domain.Contact{}, verr
	}
	c.ID = 0
	err = a.store.Transaction(ctx, func(tx store.ContactStore) error {
		taken, err := tx.ContactEmailExists(ctx, c.Email, 0)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			return ErrDuplicateEmail
		}
		taken, err = tx.ContactPhoneExists(ctx, c.AreaCode, c.PhoneNumber, 0)
		if err != nil {
			return fmt.Errorf("check phone: %w", err)
		}
		if taken {
			return ErrDuplicatePhone
		}
		if err := tx.CreateContact(ctx, &c); err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Contact{}, translateStoreError(err)
	}
	span.SetAttributes(attribute.Int64("contact.id", c.ID))
	return c, nil
}

// Update applies the non-empty fields of patch to the stored contact.
// It returns found=false when no contact has patch.ID. The stored record is
// written only after the resulting contact passes every check.
func (a *App) Update(ctx context.Context, patch domain.ContactPatch) (_ domain.Contact, found bool, err error) {
	ctx, span := a.tracer.Start(ctx, "contacts.update", trace.WithAttributes(attribute.Int64("contact.id", patch.ID)))
	defer func() { endSpan(span, err) }()

	var updated domain.Contact
	found = true
	err = a.store.Transaction(ctx, func(tx store.ContactStore) error {
		current, ok, err := tx.GetContact(ctx, patch.ID)
		if err != nil {
			return fmt.Errorf("load contact: %w", err)
		}
		if !ok {
			found = false
			return nil
		}

		candidate := domain.ContactPatch{
			Name:        patch.Name,
			AreaCode:    patch.AreaCode,
			PhoneNumber: patch.PhoneNumber,
		}.Apply(current)

		if patch.Email != "" {
			taken, err := tx.ContactEmailExists(ctx, patch.Email, current.ID)
			if err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if taken {
				return ErrDuplicateEmail
			}
			candidate.Email = patch.Email
		}

		if candidate.AreaCode != current.AreaCode || candidate.PhoneNumber != current.PhoneNumber {
			taken, err := tx.ContactPhoneExists(ctx, candidate.AreaCode, candidate.PhoneNumber, current.ID)
			if err != nil {
				return fmt.Errorf("check phone: %w", err)
			}
			if taken {
				return ErrDuplicatePhone
			}
		}

		if msgs := a.Validate(candidate); len(msgs) > 0 {
			return &ValidationError{Messages: msgs, kind: ErrValidationFailed}
		}
		if err := tx.SaveContact(ctx, &candidate); err != nil {
			return fmt.Errorf("update contact: %w", err)
		}
		updated = candidate
		return nil
	})
	if errors.Is(err, store.ErrContactNotFound) {
		return domain.Contact{}, false, nil
	}
	if err != nil {
		return domain.Contact{}, true, translateStoreError(err)
	}
	if !found {
		return domain.Contact{}, false, nil
	}
	return updated, true, nil
}

// Delete removes a contact and reports whether it existed.
func (a *App) Delete(ctx context.Context, id int64) (_ bool, err error) {
	ctx, span := a.tracer.Start(ctx, "contacts.delete", trace.WithAttributes(attribute.Int64("contact.id", id)))
	defer func() { endSpan(span, err) }()

	deleted, err := a.store.DeleteContact(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete contact: %w", err)
	}
	return deleted, nil
}

// Get returns a contact by id.
func (a *App) Get(ctx context.Context, id int64) (domain.Contact, bool, error) {
	return a.store.GetContact(ctx, id)
}

// Query lazily yields contacts ordered by name (database collation), then id.
// A non-empty areaCode restricts the result to that area code.
// The sequence holds a database cursor until iteration ends; callers must not
// issue other store calls from inside the loop.
func (a *App) Query(ctx context.Context, areaCode string) iter.Seq2[domain.Contact, error] {
	return func(yield func(domain.Contact, error) bool) {
		ctx, span := a.tracer.Start(ctx, "contacts.query", trace.WithAttributes(attribute.String("contact.area_code", areaCode)))
		var err error
		defer func() { endSpan(span, err) }()

		for c, rowErr := range a.store.ListContacts(ctx, areaCode) {
			if rowErr != nil {
				err = fmt.Errorf("query contacts: %w", rowErr)
				yield(domain.Contact{}, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

// ExistsByEmail reports whether a contact other than excludeID uses email.
func (a *App) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return a.store.ContactEmailExists(ctx, email, excludeID)
}

// ExistsByPhone reports whether any contact uses the area code and phone pair.
func (a *App) ExistsByPhone(ctx context.Context, areaCode, phoneNumber string) (bool, error) {
	return a.store.ContactPhoneExists(ctx, areaCode, phoneNumber, 0)
}

// Ready checks that the backing store is reachable.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.store.(store.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backing store when it owns resources.
func (a *App) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// translateStoreError maps storage-level unique violations onto the app errors.
func translateStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return ErrDuplicateEmail
	case errors.Is(err, store.ErrDuplicatePhone):
		return ErrDuplicatePhone
	}
	return err
}

// endSpan marks unexpected failures on the span; rejected input is only recorded as an event.
func endSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	var verr *ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicatePhone):
		span.AddEvent("contact rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
