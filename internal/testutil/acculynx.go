package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// RecordedJob is a job-create request received by FakeAccuLynx
type RecordedJob struct {
	Body           map[string]interface{}
	IdempotencyKey string
}

// RecordedPhoto is a photo upload received by FakeAccuLynx
type RecordedPhoto struct {
	JobID       string
	FileName    string
	Description string
	Size        int
}

// FakeAccuLynx is an in-process stand-in for the AccuLynx API
type FakeAccuLynx struct {
	Server *httptest.Server
	APIKey string

	mu            sync.Mutex
	nextID        int
	contactStatus int
	jobStatus     int
	failPhotos    map[string]bool
	contacts      []map[string]interface{}
	jobs          []RecordedJob
	photos        []RecordedPhoto
}

// NewFakeAccuLynx starts a fake server that accepts the given bearer key
func NewFakeAccuLynx(t *testing.T) *FakeAccuLynx {
	t.Helper()

	f := &FakeAccuLynx{
		APIKey:     "test-acculynx-key",
		failPhotos: make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Use(f.requireBearer)
	r.Post("/contacts", f.handleContact)
	r.Post("/jobs", f.handleJob)
	r.Post("/jobs/{jobId}/photos-videos", f.handlePhoto)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeAccuLynx) URL() string {
	return f.Server.URL
}

// SetContactStatus makes contact creation answer with status (0 restores success)
func (f *FakeAccuLynx) SetContactStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contactStatus = status
}

// SetJobStatus makes job creation answer with status (0 restores success)
func (f *FakeAccuLynx) SetJobStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatus = status
}

// FailPhoto makes uploads of the named file fail with a 500
func (f *FakeAccuLynx) FailPhoto(fileName string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPhotos[fileName] = fail
}

func (f *FakeAccuLynx) Contacts() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.contacts...)
}

func (f *FakeAccuLynx) Jobs() []RecordedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedJob(nil), f.jobs...)
}

func (f *FakeAccuLynx) Photos() []RecordedPhoto {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedPhoto(nil), f.photos...)
}

func (f *FakeAccuLynx) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAccuLynx) handleContact(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	f.mu.Lock()
	status := f.contactStatus
	f.contacts = append(f.contacts, body)
	id := f.newID("contact")
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"message": "contact rejected"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (f *FakeAccuLynx) handleJob(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	f.mu.Lock()
	status := f.jobStatus
	f.jobs = append(f.jobs, RecordedJob{Body: body, IdempotencyKey: r.Header.Get("Idempotency-Key")})
	id := f.newID("job")
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"message": "job rejected"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (f *FakeAccuLynx) handlePhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "file is required"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	f.mu.Lock()
	fail := f.failPhotos[header.Filename]
	f.photos = append(f.photos, RecordedPhoto{
		JobID:       chi.URLParam(r, "jobId"),
		FileName:    header.Filename,
		Description: r.FormValue("description"),
		Size:        len(data),
	})
	id := f.newID("file")
	f.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// newID must be called with f.mu held
func (f *FakeAccuLynx) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
