package acculynx

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Ref is an id-only reference to another AccuLynx resource
type Ref struct {
	ID string `json:"id"`
}

// NumericRef references AccuLynx lookup tables keyed by integer ids
type NumericRef struct {
	ID int `json:"id"`
}

type PhoneNumber struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

type EmailAddress struct {
	Address string `json:"address"`
	Type    string `json:"type"`
}

type Address struct {
	Street1 string     `json:"street1"`
	City    string     `json:"city"`
	State   NumericRef `json:"state"`
	ZipCode string     `json:"zipCode"`
	Country NumericRef `json:"country"`
}

// CreateContactRequest is the body of POST /contacts
type CreateContactRequest struct {
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	PhoneNumbers   []PhoneNumber  `json:"phoneNumbers,omitempty"`
	EmailAddresses []EmailAddress `json:"emailAddresses,omitempty"`
	MailingAddress *Address       `json:"mailingAddress,omitempty"`
}

// CreateJobRequest is the body of POST /jobs
type CreateJobRequest struct {
	Contact         Ref     `json:"contact"`
	LeadSource      *Ref    `json:"leadSource,omitempty"`
	LocationAddress Address `json:"locationAddress"`
	TradeTypes      []Ref   `json:"tradeTypes"`
	Notes           string  `json:"notes"`
}

// UploadPhotoRequest carries one photo for POST /jobs/{jobId}/photos-videos
type UploadPhotoRequest struct {
	JobID       string
	FileName    string
	Description string
	Data        []byte
}

// ContactCreated is the success variant of POST /contacts
type ContactCreated struct {
	ID string
}

// JobCreated is the success variant of POST /jobs
type JobCreated struct {
	ID string
}

// PhotoUploaded is the success variant of POST /jobs/{jobId}/photos-videos
type PhotoUploaded struct {
	ID string
}

// createdBody accepts the id as either a JSON string or number
type createdBody struct {
	ID json.RawMessage `json:"id"`
}

// errorBody covers the error shapes AccuLynx returns
type errorBody struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Detail  string `json:"detail"`
}

func (b errorBody) summary() string {
	for _, s := range []string{b.Message, b.Detail, b.Title} {
		if s != "" {
			return s
		}
	}
	return ""
}

// parseID normalizes a raw JSON id into a non-empty string
func parseID(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return n.String(), true
		}
	}
	return "", false
}
