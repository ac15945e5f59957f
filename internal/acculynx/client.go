package acculynx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	opCreateContact = "create_contact"
	opCreateJob     = "create_job"
	opUploadPhoto   = "upload_photo"

	// Contact entries are typed; bookings only collect one of each
	phoneTypeMobile   = "Mobile"
	emailTypePersonal = "Personal"
)

// Config holds the AccuLynx client settings
type Config struct {
	BaseURL           string
	APIKey            string
	LeadSourceID      string
	StateID           int
	CountryID         int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client calls the AccuLynx v2 REST API
type Client struct {
	http      *resty.Client
	limiter   *rate.Limiter
	apiKey    string
	leadSrcID string
	stateID   int
	countryID int
	logger    *zap.Logger
	observe   func(op string, d time.Duration)
}

// NewClient creates an AccuLynx client. Requests are paced by a token bucket
// when RequestsPerSecond is positive; resty's own retries stay disabled so
// every failure surfaces to the sync state machine.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		http:      httpClient,
		limiter:   limiter,
		apiKey:    cfg.APIKey,
		leadSrcID: cfg.LeadSourceID,
		stateID:   cfg.StateID,
		countryID: cfg.CountryID,
		logger:    logger,
	}
}

// OnResponse registers a callback invoked with the duration of every completed call
func (c *Client) OnResponse(fn func(op string, d time.Duration)) {
	c.observe = fn
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// NewAddress builds an address using the configured state and country codes
func (c *Client) NewAddress(street, city, zip string) Address {
	return Address{
		Street1: street,
		City:    city,
		State:   NumericRef{ID: c.stateID},
		ZipCode: zip,
		Country: NumericRef{ID: c.countryID},
	}
}

// LeadSource returns the configured lead source reference, if any
func (c *Client) LeadSource() *Ref {
	if c.leadSrcID == "" {
		return nil
	}
	return &Ref{ID: c.leadSrcID}
}

// ContactEntries builds the typed phone and email lists for a contact
func ContactEntries(phone, email string) ([]PhoneNumber, []EmailAddress) {
	var phones []PhoneNumber
	var emails []EmailAddress
	if phone != "" {
		phones = append(phones, PhoneNumber{Number: phone, Type: phoneTypeMobile})
	}
	if email != "" {
		emails = append(emails, EmailAddress{Address: email, Type: emailTypePersonal})
	}
	return phones, emails
}

// CreateContact creates a contact and returns its id
func (c *Client) CreateContact(ctx context.Context, req CreateContactRequest) (*ContactCreated, error) {
	id, err := c.postJSON(ctx, opCreateContact, "/contacts", req, nil)
	if err != nil {
		return nil, err
	}
	return &ContactCreated{ID: id}, nil
}

// CreateJob creates a job. idempotencyKey is sent as the Idempotency-Key header
// so a replayed request after a lost response does not create a second job.
func (c *Client) CreateJob(ctx context.Context, req CreateJobRequest, idempotencyKey string) (*JobCreated, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	id, err := c.postJSON(ctx, opCreateJob, "/jobs", req, headers)
	if err != nil {
		return nil, err
	}
	return &JobCreated{ID: id}, nil
}

// UploadPhoto attaches one photo to a job as multipart form data
func (c *Client) UploadPhoto(ctx context.Context, req UploadPhotoRequest) (*PhotoUploaded, error) {
	if err := c.before(ctx, opUploadPhoto); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("jobId", req.JobID).
		SetFileReader("file", req.FileName, bytes.NewReader(req.Data)).
		SetFormData(map[string]string{"description": req.Description}).
		Post("/jobs/{jobId}/photos-videos")
	if err != nil {
		return nil, &TransportError{Op: opUploadPhoto, Err: err}
	}
	c.logResponse(opUploadPhoto, resp)

	id, err := decodeCreated(opUploadPhoto, resp)
	if err != nil {
		return nil, err
	}
	return &PhotoUploaded{ID: id}, nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body interface{}, headers map[string]string) (string, error) {
	if err := c.before(ctx, op); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(headers).
		SetBody(body).
		Post(path)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	c.logResponse(op, resp)

	return decodeCreated(op, resp)
}

// before checks credentials and waits for a rate limiter token
func (c *Client) before(ctx context.Context, op string) error {
	if c.apiKey == "" {
		return ErrMissingCredentials
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Op: op, Err: err}
		}
	}
	return nil
}

func (c *Client) logResponse(op string, resp *resty.Response) {
	c.logger.Debug("AccuLynx response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", resp.Time()),
	)
	if c.observe != nil {
		c.observe(op, resp.Time())
	}
}

// decodeCreated maps a response onto its success or error variant
func decodeCreated(op string, resp *resty.Response) (string, error) {
	body := resp.Body()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return "", &APIError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Message:    eb.summary(),
			Body:       string(body),
		}
	}

	var created createdBody
	if err := json.Unmarshal(body, &created); err != nil {
		return "", &InvalidResponseError{Op: op, Reason: "malformed JSON: " + err.Error(), Body: truncate(string(body), 500)}
	}
	id, ok := parseID(created.ID)
	if !ok {
		return "", &InvalidResponseError{Op: op, Reason: "missing id", Body: truncate(string(body), 500)}
	}
	return id, nil
}
