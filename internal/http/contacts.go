package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cardfile/cardfile/internal/domain"
	"github.com/cardfile/cardfile/internal/service"
	"github.com/cardfile/cardfile/pkg/httpx"
	"github.com/cardfile/cardfile/pkg/slogx"
)

// dateOnly marshals as "2006-01-02", the wire format for birthdays.
type dateOnly time.Time

func (d dateOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(time.DateOnly))
}

func (d *dateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	*d = dateOnly(t)
	return nil
}

type phoneNumberPayload struct {
	ID          string `json:"id,omitempty"`
	PhoneNumber string `json:"phone_number"`
}

type emailPayload struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
}

type contactRequest struct {
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	DateOfBirthday dateOnly             `json:"date_of_birthday"`
	AdditionalData string               `json:"additional_data"`
	PhoneNumbers   []phoneNumberPayload `json:"phone_numbers"`
	Emails         []emailPayload       `json:"emails"`
}

type contactResponse struct {
	ID             string               `json:"id"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	DateOfBirthday dateOnly             `json:"date_of_birthday"`
	AdditionalData string               `json:"additional_data"`
	PhoneNumbers   []phoneNumberPayload `json:"phone_numbers"`
	Emails         []emailPayload       `json:"emails"`
}

func (req contactRequest) toDomain() domain.Contact {
	c := domain.Contact{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Birthday:  time.Time(req.DateOfBirthday),
		Notes:     req.AdditionalData,
	}
	for _, p := range req.PhoneNumbers {
		c.Phones = append(c.Phones, domain.PhoneNumber{Number: p.PhoneNumber})
	}
	for _, e := range req.Emails {
		c.Emails = append(c.Emails, domain.EmailAddress{Address: e.Email})
	}
	return c
}

func toContactResponse(c domain.Contact) contactResponse {
	resp := contactResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		DateOfBirthday: dateOnly(c.Birthday),
		AdditionalData: c.Notes,
		PhoneNumbers:   []phoneNumberPayload{},
		Emails:         []emailPayload{},
	}
	for _, p := range c.Phones {
		resp.PhoneNumbers = append(resp.PhoneNumbers, phoneNumberPayload{ID: p.ID, PhoneNumber: p.Number})
	}
	for _, e := range c.Emails {
		resp.Emails = append(resp.Emails, emailPayload{ID: e.ID, Email: e.Address})
	}
	return resp
}

// ContactsHandler serves the per-user contact book.
type ContactsHandler struct {
	ContactService *service.ContactService
}

func (h *ContactsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := userFromCtx(ctx)
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	contacts, err := h.ContactService.ListContacts(ctx, user.ID, skip, limit)
	if err != nil {
		slogx.FromContext(ctx).Error("contact list failed", "user_id", user.ID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, toContactResponse(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *ContactsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := userFromCtx(ctx)
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	contact, err := h.ContactService.GetContact(ctx, user.ID, r.PathValue("id"))
	if err != nil {
		h.writeContactError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContactResponse(contact))
}

func (h *ContactsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := userFromCtx(ctx)
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	created, err := h.ContactService.CreateContact(ctx, user.ID, req.toDomain())
	if err != nil {
		h.writeContactError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toContactResponse(created))
}

func (h *ContactsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := userFromCtx(ctx)
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	updated, err := h.ContactService.UpdateContact(ctx, user.ID, r.PathValue("id"), req.toDomain())
	if err != nil {
		h.writeContactError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContactResponse(updated))
}

func (h *ContactsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := userFromCtx(ctx)
	if !ok {
		unauthorized(w, "Not authenticated")
		return
	}

	if err := h.ContactService.DeleteContact(ctx, user.ID, r.PathValue("id")); err != nil {
		h.writeContactError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"detail": "Contact successfully deleted"})
}

func (h *ContactsHandler) decode(w http.ResponseWriter, r *http.Request) (contactRequest, bool) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return contactRequest{}, false
	}
	if req.FirstName == "" {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "first_name is required")
		return contactRequest{}, false
	}
	return req, true
}

func (h *ContactsHandler) writeContactError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrContactNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "Contact not found")
		return
	}
	slogx.FromContext(r.Context()).Error("contact operation failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
}
