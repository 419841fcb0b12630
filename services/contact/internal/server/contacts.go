package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"fiapcontacts/pkg/domain"
)

// Contact is the API representation of a stored contact.
type Contact struct {
	ID          int64     `json:"id" readOnly:"true" example:"1"`
	Name        string    `json:"name" example:"Ana Souza"`
	AreaCode    string    `json:"areaCode" example:"11"`
	PhoneNumber string    `json:"phoneNumber" example:"912345678"`
	Email       string    `json:"email" format:"email" example:"ana@example.com"`
	CreatedAt   time.Time `json:"createdAt" readOnly:"true"`
	UpdatedAt   time.Time `json:"updatedAt" readOnly:"true"`
}

// ContactInput is the create body. Presence of every field is enforced by
// the core so a missing field yields CONTACT_MISSING_FIELD.
type ContactInput struct {
	Name        string `json:"name,omitempty" doc:"Required" example:"Ana Souza"`
	AreaCode    string `json:"areaCode,omitempty" doc:"Required" example:"11"`
	PhoneNumber string `json:"phoneNumber,omitempty" doc:"Required" example:"912345678"`
	Email       string `json:"email,omitempty" doc:"Required, must be a valid address" example:"ana@example.com"`
}

// ContactUpdate is the partial update body; empty fields keep their stored value.
type ContactUpdate struct {
	Name        string `json:"name,omitempty" example:"Ana Paula Souza"`
	AreaCode    string `json:"areaCode,omitempty" example:"21"`
	PhoneNumber string `json:"phoneNumber,omitempty" example:"998765432"`
	Email       string `json:"email,omitempty" example:"ana.paula@example.com"`
}

// ContactList wraps a query result.
type ContactList struct {
	Items []Contact `json:"items"`
	Count int       `json:"count" example:"1"`
}

type contactIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Contact id"`
}

type listContactsInput struct {
	AreaCode string `query:"areaCode" doc:"Only contacts with this area code" example:"11"`
}

type listContactsOutput struct {
	Body ContactList
}

type contactOutput struct {
	Body Contact
}

type createContactInput struct {
	Body ContactInput
}

type createContactOutput struct {
	Location string `header:"Location"`
	Body     Contact
}

type updateContactInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Contact id"`
	Body ContactUpdate
}

func (s *Server) registerContacts(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-contacts",
		Method:      http.MethodGet,
		Path:        "/contacts",
		Summary:     "List contacts",
		Description: "Contacts ordered by name, optionally restricted to one area code.",
		Tags:        []string{"Contacts"},
		Errors:      []int{http.StatusInternalServerError},
	}, s.listContacts)

	huma.Register(api, huma.Operation{
		OperationID: "get-contact",
		Method:      http.MethodGet,
		Path:        "/contacts/{id}",
		Summary:     "Get a contact",
		Tags:        []string{"Contacts"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.getContact)

	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          "/contacts",
		Summary:       "Create a contact",
		Tags:          []string{"Contacts"},
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
		},
	}, s.createContact)

	huma.Register(api, huma.Operation{
		OperationID: "update-contact",
		Method:      http.MethodPut,
		Path:        "/contacts/{id}",
		Summary:     "Update a contact",
		Description: "Partial update: only non-empty fields replace the stored values.",
		Tags:        []string{"Contacts"},
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
		},
	}, s.updateContact)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-contact",
		Method:        http.MethodDelete,
		Path:          "/contacts/{id}",
		Summary:       "Delete a contact",
		Tags:          []string{"Contacts"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusInternalServerError},
	}, s.deleteContact)
}

func (s *Server) listContacts(ctx context.Context, input *listContactsInput) (*listContactsOutput, error) {
	items := []Contact{}
	for c, err := range s.app.Query(ctx, input.AreaCode) {
		if err != nil {
			return nil, contactError(ctx, err)
		}
		items = append(items, toContact(c))
	}
	return &listContactsOutput{Body: ContactList{Items: items, Count: len(items)}}, nil
}

func (s *Server) getContact(ctx context.Context, input *contactIDInput) (*contactOutput, error) {
	c, ok, err := s.app.Get(ctx, input.ID)
	if err != nil {
		return nil, contactError(ctx, err)
	}
	if !ok {
		return nil, contactNotFound(ctx, input.ID)
	}
	return &contactOutput{Body: toContact(c)}, nil
}

func (s *Server) createContact(ctx context.Context, input *createContactInput) (*createContactOutput, error) {
	created, err := s.app.Insert(ctx, domain.Contact{
		Name:        input.Body.Name,
		AreaCode:    input.Body.AreaCode,
		PhoneNumber: input.Body.PhoneNumber,
		Email:       input.Body.Email,
	})
	if err != nil {
		return nil, contactError(ctx, err)
	}
	return &createContactOutput{
		Location: "/contacts/" + strconv.FormatInt(created.ID, 10),
		Body:     toContact(created),
	}, nil
}

func (s *Server) updateContact(ctx context.Context, input *updateContactInput) (*contactOutput, error) {
	updated, found, err := s.app.Update(ctx, domain.ContactPatch{
		ID:          input.ID,
		Name:        input.Body.Name,
		AreaCode:    input.Body.AreaCode,
		PhoneNumber: input.Body.PhoneNumber,
		Email:       input.Body.Email,
	})
	if !found {
		return nil, contactNotFound(ctx, input.ID)
	}
	if err != nil {
		return nil, contactError(ctx, err)
	}
	return &contactOutput{Body: toContact(updated)}, nil
}

func (s *Server) deleteContact(ctx context.Context, input *contactIDInput) (*struct{}, error) {
	deleted, err := s.app.Delete(ctx, input.ID)
	if err != nil {
		return nil, contactError(ctx, err)
	}
	if !deleted {
		return nil, contactNotFound(ctx, input.ID)
	}
	return nil, nil
}

func toContact(c domain.Contact) Contact {
	return Contact{
		ID:          c.ID,
		Name:        c.Name,
		AreaCode:    c.AreaCode,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
