// Package remote calls the authoritative attendance store over HTTP. Only
// the logical CRUD contract matters to the core; timeout and retry policy
// for these calls lives here, not in the orchestrator.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"classtrack/internal/domain"
)

// TokenSource supplies the bearer token for authenticated calls.
// auth.Session satisfies it.
type TokenSource interface {
	BearerToken() string
}

// Client calls the remote attendance store.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource
}

// New creates a client with a conservative timeout.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Tokens:  tokens,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Health checks if the remote store is reachable.
func (c *Client) Health(ctx context.Context) error {
	var out struct{}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return fmt.Errorf("remote store unavailable: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		if tok := c.Tokens.BearerToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("remote store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote store error %s: %s", resp.Status, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Subjects returns the subjects service.
func (c *Client) Subjects() *SubjectsService { return &SubjectsService{c: c} }

// Slots returns the lecture slots service.
func (c *Client) Slots() *SlotsService { return &SlotsService{c: c} }

// Records returns the attendance records service.
func (c *Client) Records() *RecordsService { return &RecordsService{c: c} }

// SubjectsService covers subject CRUD.
type SubjectsService struct {
	c *Client
}

// List fetches all subjects owned by the authenticated user.
func (s *SubjectsService) List(ctx context.Context) ([]domain.Subject, error) {
	var out struct {
		Subjects []domain.Subject `json:"subjects"`
	}
	if err := s.c.do(ctx, http.MethodGet, "/v1/subjects", nil, &out); err != nil {
		return nil, err
	}
	return out.Subjects, nil
}

// Create creates a subject and returns the server-assigned entity, or nil
// when the server accepted the call without producing one.
func (s *SubjectsService) Create(ctx context.Context, subject domain.Subject) (*domain.Subject, error) {
	var out struct {
		Subject *domain.Subject `json:"subject"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/v1/subjects", subject, &out); err != nil {
		return nil, err
	}
	return out.Subject, nil
}

// Update updates a subject in place.
func (s *SubjectsService) Update(ctx context.Context, subject domain.Subject) error {
	return s.c.do(ctx, http.MethodPatch, "/v1/subjects/"+url.PathEscape(subject.ID.String()), subject, nil)
}

// Delete removes a subject.
func (s *SubjectsService) Delete(ctx context.Context, id domain.ID) error {
	return s.c.do(ctx, http.MethodDelete, "/v1/subjects/"+url.PathEscape(id.String()), nil, nil)
}

// SlotsService covers lecture slot CRUD.
type SlotsService struct {
	c *Client
}

// ListOwned fetches the slots for every subject the user owns.
func (s *SlotsService) ListOwned(ctx context.Context) ([]domain.LectureSlot, error) {
	var out struct {
		Slots []domain.LectureSlot `json:"lecture_slots"`
	}
	if err := s.c.do(ctx, http.MethodGet, "/v1/lecture-slots", nil, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// CreateMany creates a batch of slots and returns the server-assigned
// entities in input order.
func (s *SlotsService) CreateMany(ctx context.Context, slots []domain.LectureSlot) ([]domain.LectureSlot, error) {
	in := struct {
		Slots []domain.LectureSlot `json:"lecture_slots"`
	}{Slots: slots}
	var out struct {
		Slots []domain.LectureSlot `json:"lecture_slots"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/v1/lecture-slots/batch", in, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

// Update updates a slot in place.
func (s *SlotsService) Update(ctx context.Context, slot domain.LectureSlot) error {
	return s.c.do(ctx, http.MethodPatch, "/v1/lecture-slots/"+url.PathEscape(slot.ID.String()), slot, nil)
}

// Delete removes a slot.
func (s *SlotsService) Delete(ctx context.Context, id domain.ID) error {
	return s.c.do(ctx, http.MethodDelete, "/v1/lecture-slots/"+url.PathEscape(id.String()), nil, nil)
}

// RecordsService covers attendance record operations.
type RecordsService struct {
	c *Client
}

// ListForSubjects fetches records scoped to the given subject ids.
func (s *RecordsService) ListForSubjects(ctx context.Context, subjectIDs []domain.ID) ([]domain.AttendanceRecord, error) {
	ids := make([]string, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		ids = append(ids, id.String())
	}
	in := struct {
		SubjectIDs []string `json:"subject_ids"`
	}{SubjectIDs: ids}
	var out struct {
		Records []domain.AttendanceRecord `json:"attendance_records"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/v1/attendance/query", in, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// Upsert creates or replaces the record for a subject+date (or slot+date)
// and returns the server's view of it, or nil on an empty server result.
func (s *RecordsService) Upsert(ctx context.Context, record domain.AttendanceRecord) (*domain.AttendanceRecord, error) {
	var out struct {
		Record *domain.AttendanceRecord `json:"attendance_record"`
	}
	if err := s.c.do(ctx, http.MethodPut, "/v1/attendance", record, &out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

// MarkDutyLeave requests (and optionally approves) duty leave for a
// subject+date on the server.
func (s *RecordsService) MarkDutyLeave(ctx context.Context, subjectID domain.ID, date, reason string, approved bool) (*domain.AttendanceRecord, error) {
	in := struct {
		SubjectID string `json:"subject_id"`
		Date      string `json:"date"`
		Reason    string `json:"reason"`
		Approved  bool   `json:"approved"`
	}{SubjectID: subjectID.String(), Date: date, Reason: reason, Approved: approved}
	var out struct {
		Record *domain.AttendanceRecord `json:"attendance_record"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/v1/attendance/duty-leave", in, &out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

// CancelDutyLeave reverts a duty request for a subject+date on the server.
func (s *RecordsService) CancelDutyLeave(ctx context.Context, subjectID domain.ID, date string) (*domain.AttendanceRecord, error) {
	in := struct {
		SubjectID string `json:"subject_id"`
		Date      string `json:"date"`
	}{SubjectID: subjectID.String(), Date: date}
	var out struct {
		Record *domain.AttendanceRecord `json:"attendance_record"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/v1/attendance/duty-leave/cancel", in, &out); err != nil {
		return nil, err
	}
	return out.Record, nil
}

// Update patches a record's fields by id.
func (s *RecordsService) Update(ctx context.Context, record domain.AttendanceRecord) error {
	return s.c.do(ctx, http.MethodPatch, "/v1/attendance/"+url.PathEscape(record.ID.String()), record, nil)
}
