package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/app/repository"
)

// MemStore is an in-memory stand-in for the MySQL-backed repositories. It
// enforces the same unique keys and reports violations with
// gorm.ErrDuplicatedKey, as gorm does with TranslateError enabled.
type MemStore struct {
	mu sync.Mutex

	events       map[uint]*models.WebhookEvent
	eventsByExt  map[string]uint
	submissions  map[uint]*models.Submission
	subsByExt    map[string]uint
	answers      map[uint][]models.SubmissionAnswer
	templates    map[string]models.Template
	assignments  []models.Assignment
	auditEntries []models.AuditLog

	nextID uint

	// Failure injection. Nil means no failure.
	TemplateLookupErr    error
	UpsertErr            error
	MarkProcessedErr     error
	GetSubmissionErr     map[uint]error
	CreateEventErr       error
	MarkCompletedErr     error
	AuditErr             error
	CreateAssignmentHook func(a *models.Assignment) error
}

func NewMemStore() *MemStore {
	return &MemStore{
		events:           map[uint]*models.WebhookEvent{},
		eventsByExt:      map[string]uint{},
		submissions:      map[uint]*models.Submission{},
		subsByExt:        map[string]uint{},
		answers:          map[uint][]models.SubmissionAnswer{},
		templates:        map[string]models.Template{},
		GetSubmissionErr: map[uint]error{},
	}
}

// Repositories returns repository implementations backed by the store.
func (s *MemStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		WebhookEvent: memEvents{s},
		Submission:   memSubmissions{s},
		Template:     memTemplates{s},
		Assignment:   memAssignments{s},
		AuditLog:     memAudit{s},
	}
}

func (s *MemStore) id() uint {
	s.nextID++
	return s.nextID
}

// SeedTemplates stores one template per slug and returns them in order.
func (s *MemStore) SeedTemplates(slugs ...string) []models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Template, 0, len(slugs))
	for _, slug := range slugs {
		t := models.Template{ID: s.id(), Slug: slug, Name: slug}
		s.templates[slug] = t
		out = append(out, t)
	}
	return out
}

// SeedSubmission stores a submission with its answers as-is.
func (s *MemStore) SeedSubmission(sub models.Submission) *models.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = s.id()
	answers := sub.Answers
	sub.Answers = nil
	for i := range answers {
		answers[i].ID = s.id()
		answers[i].SubmissionID = sub.ID
	}
	stored := sub
	s.submissions[sub.ID] = &stored
	s.subsByExt[sub.ExternalID] = sub.ID
	s.answers[sub.ID] = answers
	out := stored
	out.Answers = append([]models.SubmissionAnswer(nil), answers...)
	return &out
}

// AssignmentSlugs lists the template slugs assigned to a submission, sorted.
func (s *MemStore) AssignmentSlugs(submissionID uint) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := map[uint]string{}
	for _, t := range s.templates {
		byID[t.ID] = t.Slug
	}
	out := []string{}
	for _, a := range s.assignments {
		if a.SubmissionID == submissionID {
			out = append(out, byID[a.TemplateID])
		}
	}
	sort.Strings(out)
	return out
}

// AssignmentCount returns the number of stored assignments.
func (s *MemStore) AssignmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assignments)
}

// Event returns a copy of the webhook event with the given external id.
func (s *MemStore) Event(externalID string) (models.WebhookEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.eventsByExt[externalID]
	if !ok {
		return models.WebhookEvent{}, false
	}
	return *s.events[id], true
}

// EventCount returns the number of stored webhook events.
func (s *MemStore) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// SubmissionByExternalID returns a copy of the submission with its answers.
func (s *MemStore) SubmissionByExternalID(externalID string) (models.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.subsByExt[externalID]
	if !ok {
		return models.Submission{}, false
	}
	out := *s.submissions[id]
	out.Answers = append([]models.SubmissionAnswer(nil), s.answers[id]...)
	return out, true
}

// SubmissionCount returns the number of stored submissions.
func (s *MemStore) SubmissionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submissions)
}

// AuditEntries returns the recorded audit rows.
func (s *MemStore) AuditEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.auditEntries...)
}

type memEvents struct{ s *MemStore }

func (r memEvents) GetByExternalID(_ context.Context, externalEventID string) (*models.WebhookEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.eventsByExt[externalEventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *r.s.events[id]
	return &out, nil
}

func (r memEvents) CreateIfNotExists(_ context.Context, event *models.WebhookEvent) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CreateEventErr != nil {
		return false, r.s.CreateEventErr
	}
	if id, ok := r.s.eventsByExt[event.ExternalEventID]; ok {
		*event = *r.s.events[id]
		return false, nil
	}
	event.ID = r.s.id()
	if event.Attempts == 0 {
		event.Attempts = 1
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	stored := *event
	r.s.events[event.ID] = &stored
	r.s.eventsByExt[event.ExternalEventID] = event.ID
	return true, nil
}

func (r memEvents) ClaimFailedForRetry(_ context.Context, id uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.events[id]
	if !ok || ev.Status != models.WebhookEventStatusFailed {
		return false, nil
	}
	ev.Status = models.WebhookEventStatusProcessing
	ev.ErrorMessage = nil
	ev.ProcessedAt = nil
	ev.Attempts++
	return true, nil
}

func (r memEvents) MarkCompleted(_ context.Context, id uint, processedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.MarkCompletedErr != nil {
		return r.s.MarkCompletedErr
	}
	ev, ok := r.s.events[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	ev.Status = models.WebhookEventStatusCompleted
	ev.ProcessedAt = &processedAt
	return nil
}

func (r memEvents) MarkFailed(_ context.Context, id uint, message string, processedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.events[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	ev.Status = models.WebhookEventStatusFailed
	ev.ErrorMessage = &message
	ev.ProcessedAt = &processedAt
	return nil
}

func (r memEvents) matching(filter repository.WebhookEventFilter, withStatus bool) []models.WebhookEvent {
	out := []models.WebhookEvent{}
	for _, ev := range r.s.events {
		if withStatus && filter.Status != "" && ev.Status != filter.Status {
			continue
		}
		if filter.From != nil && ev.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && ev.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r memEvents) List(_ context.Context, filter repository.WebhookEventFilter) ([]models.WebhookEvent, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.matching(filter, true)
	total := int64(len(all))
	if filter.Offset >= len(all) {
		return []models.WebhookEvent{}, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (r memEvents) Stats(_ context.Context, filter repository.WebhookEventFilter) (*repository.WebhookEventStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &repository.WebhookEventStats{}
	var latency float64
	var timed int
	for _, ev := range r.matching(filter, false) {
		stats.Total++
		if ev.Status != models.WebhookEventStatusCompleted {
			continue
		}
		stats.Completed++
		if ev.ProcessedAt != nil {
			latency += float64(ev.ProcessedAt.Sub(ev.CreatedAt).Microseconds()) / 1000
			timed++
		}
	}
	if timed > 0 {
		stats.AvgLatencyMs = latency / float64(timed)
	}
	return stats, nil
}

// SeedEvent stores an event as-is, keeping its CreatedAt when set.
func (s *MemStore) SeedEvent(ev models.WebhookEvent) *models.WebhookEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = s.id()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	stored := ev
	s.events[ev.ID] = &stored
	s.eventsByExt[ev.ExternalEventID] = ev.ID
	return &ev
}

type memSubmissions struct{ s *MemStore }

func (r memSubmissions) Upsert(_ context.Context, submission *models.Submission, answers []models.SubmissionAnswer) (bool, *models.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.UpsertErr != nil {
		return false, nil, r.s.UpsertErr
	}

	var (
		created  bool
		previous *models.Submission
	)
	if id, ok := r.s.subsByExt[submission.ExternalID]; ok {
		existing := r.s.submissions[id]
		snapshot := *existing
		previous = &snapshot

		existing.Email = submission.Email
		existing.FirstName = submission.FirstName
		existing.LastName = submission.LastName
		existing.Phone = submission.Phone
		existing.LocationType = submission.LocationType
		existing.City = submission.City
		existing.Country = submission.Country
		existing.Church = submission.Church
		existing.RawData = submission.RawData
		existing.UpdatedAt = time.Now()
	} else {
		stored := *submission
		stored.ID = r.s.id()
		stored.Answers = nil
		if stored.Status == "" {
			stored.Status = models.SubmissionStatusPending
		}
		stored.CreatedAt = time.Now()
		stored.UpdatedAt = stored.CreatedAt
		r.s.submissions[stored.ID] = &stored
		r.s.subsByExt[stored.ExternalID] = stored.ID
		created = true
	}

	id := r.s.subsByExt[submission.ExternalID]
	*submission = *r.s.submissions[id]
	for i := range answers {
		answers[i].ID = r.s.id()
		answers[i].SubmissionID = id
	}
	r.s.answers[id] = append([]models.SubmissionAnswer(nil), answers...)
	submission.Answers = answers
	return created, previous, nil
}

func (r memSubmissions) GetWithAnswers(_ context.Context, id uint) (*models.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.GetSubmissionErr[id]; err != nil {
		return nil, err
	}
	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *sub
	out.Answers = append([]models.SubmissionAnswer(nil), r.s.answers[id]...)
	return &out, nil
}

func (r memSubmissions) MarkProcessed(_ context.Context, id uint, processedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.MarkProcessedErr != nil {
		return r.s.MarkProcessedErr
	}
	sub, ok := r.s.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.Status = models.SubmissionStatusProcessed
	sub.ProcessedAt = &processedAt
	return nil
}

type memTemplates struct{ s *MemStore }

func (r memTemplates) FindBySlugs(_ context.Context, slugs []string) ([]models.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.TemplateLookupErr != nil {
		return nil, r.s.TemplateLookupErr
	}
	out := []models.Template{}
	for _, slug := range slugs {
		if t, ok := r.s.templates[slug]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type memAssignments struct{ s *MemStore }

func (r memAssignments) Exists(_ context.Context, submissionID, templateID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.hasAssignment(submissionID, templateID), nil
}

func (r memAssignments) Create(_ context.Context, assignment *models.Assignment) error {
	r.s.mu.Lock()
	hook := r.s.CreateAssignmentHook
	r.s.mu.Unlock()
	if hook != nil {
		if err := hook(assignment); err != nil {
			return err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.hasAssignment(assignment.SubmissionID, assignment.TemplateID) {
		return gorm.ErrDuplicatedKey
	}
	assignment.ID = r.s.id()
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = assignment.CreatedAt
	r.s.assignments = append(r.s.assignments, *assignment)
	return nil
}

func (r memAssignments) ListBySubmission(_ context.Context, submissionID uint) ([]models.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Assignment{}
	for _, a := range r.s.assignments {
		if a.SubmissionID == submissionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemStore) hasAssignment(submissionID, templateID uint) bool {
	for _, a := range s.assignments {
		if a.SubmissionID == submissionID && a.TemplateID == templateID {
			return true
		}
	}
	return false
}

// InsertAssignment stores an assignment directly, bypassing hooks. Tests use
// it to simulate a concurrent writer.
func (s *MemStore) InsertAssignment(submissionID, templateID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, models.Assignment{
		ID:           s.id(),
		SubmissionID: submissionID,
		TemplateID:   templateID,
		Status:       models.AssignmentStatusPending,
	})
}

type memAudit struct{ s *MemStore }

func (r memAudit) Create(_ context.Context, entry *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AuditErr != nil {
		return r.s.AuditErr
	}
	entry.ID = r.s.id()
	entry.CreatedAt = time.Now()
	r.s.auditEntries = append(r.s.auditEntries, *entry)
	return nil
}
