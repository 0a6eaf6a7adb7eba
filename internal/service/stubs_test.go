package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/clinic-records-api/internal/models"
	"github.com/noah-isme/clinic-records-api/internal/repository"
)

type auditStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditStub) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

// alertRepoStub is an in-memory alertStore.
type alertRepoStub struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (r *alertRepoStub) Create(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	copy := *alert
	r.alerts = append(r.alerts, &copy)
	return nil
}

func (r *alertRepoStub) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id {
			copy := *a
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func visibleTo(a *models.Alert, viewerID string) bool {
	return a.RecipientUserID == nil || *a.RecipientUserID == viewerID
}

var severityRank = map[models.AlertSeverity]int{
	models.SeverityCritical: 4, models.SeverityHigh: 3, models.SeverityMedium: 2, models.SeverityLow: 1,
}

func (r *alertRepoStub) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Alert, 0)
	for _, a := range r.alerts {
		if !visibleTo(a, filter.ViewerID) {
			continue
		}
		if filter.UnreadOnly && a.IsRead {
			continue
		}
		if filter.Type != "" && a.AlertType != filter.Type {
			continue
		}
		out = append(out, *a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if severityRank[out[i].Severity] != severityRank[out[j].Severity] {
			return severityRank[out[i].Severity] > severityRank[out[j].Severity]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *alertRepoStub) CountUnread(ctx context.Context, viewerID string) (int, error) {
	list, _ := r.List(ctx, models.AlertFilter{ViewerID: viewerID, UnreadOnly: true})
	return len(list), nil
}

func (r *alertRepoStub) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id {
			a.IsRead = true
			if a.ReadAt == nil {
				a.ReadAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

func (r *alertRepoStub) MarkAllRead(ctx context.Context, viewerID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.alerts {
		if visibleTo(a, viewerID) && !a.IsRead {
			a.IsRead = true
			a.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (r *alertRepoStub) Resolve(ctx context.Context, id, resolverID string, notes *string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id {
			a.IsResolved = true
			a.ResolvedByID = &resolverID
			a.ResolutionNotes = notes
			a.ResolvedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *alertRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.alerts {
		if a.ID == id {
			r.alerts = append(r.alerts[:i], r.alerts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *alertRepoStub) ExistsRecent(ctx context.Context, alertType models.AlertType, key models.AlertCorrelation, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.AlertType != alertType || a.CreatedAt.Before(since) {
			continue
		}
		if key.Disease != "" && (a.RelatedDisease == nil || !strings.EqualFold(*a.RelatedDisease, key.Disease)) {
			continue
		}
		if key.StudentID != "" && (a.RelatedStudentID == nil || *a.RelatedStudentID != key.StudentID) {
			continue
		}
		if key.RecordID != "" && (a.RelatedRecordID == nil || *a.RelatedRecordID != key.RecordID) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (r *alertRepoStub) snapshot() []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Alert, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = *a
	}
	return out
}

func (r *alertRepoStub) privateFor(userID string) []models.Alert {
	out := make([]models.Alert, 0)
	for _, a := range r.snapshot() {
		if a.RecipientUserID != nil && *a.RecipientUserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// pendingRepoStub applies the same PENDING predicate as the SQL repository.
type pendingRepoStub struct {
	mu      sync.Mutex
	actions map[string]models.PendingAction
	filter  models.PendingActionFilter
}

func newPendingRepoStub() *pendingRepoStub {
	return &pendingRepoStub{actions: make(map[string]models.PendingAction)}
}

func (r *pendingRepoStub) Create(ctx context.Context, action *models.PendingAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	r.actions[action.ID] = *action
	return nil
}

func (r *pendingRepoStub) GetByID(ctx context.Context, id string) (*models.PendingAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	action, ok := r.actions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &action, nil
}

func (r *pendingRepoStub) List(ctx context.Context, filter models.PendingActionFilter) ([]models.PendingAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = filter
	out := make([]models.PendingAction, 0, len(r.actions))
	for _, a := range r.actions {
		if filter.RequestedBy != "" && a.RequestedByID != filter.RequestedBy {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *pendingRepoStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	action, ok := r.actions[params.ID]
	if !ok || action.Status != models.PendingActionPending {
		return sql.ErrNoRows
	}
	reviewer := params.ReviewedBy
	at := params.ReviewedAt
	action.Status = params.Status
	action.ReviewedByID = &reviewer
	action.ReviewedAt = &at
	action.ReviewNotes = params.Notes
	if len(params.ActionData) > 0 {
		action.ActionData = params.ActionData
	}
	r.actions[params.ID] = action
	return nil
}

func (r *pendingRepoStub) DeletePending(ctx context.Context, id, requesterID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	action, ok := r.actions[id]
	if !ok || action.RequestedByID != requesterID || action.Status != models.PendingActionPending {
		return false, nil
	}
	delete(r.actions, id)
	return true, nil
}

func (r *pendingRepoStub) state() map[string]models.PendingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]models.PendingAction, len(r.actions))
	for k, v := range r.actions {
		out[k] = v
	}
	return out
}

func (r *pendingRepoStub) restore(state map[string]models.PendingAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = state
}

type txStubKey struct{}

// txStub serialises units of work and undoes pending-action writes on error, which is
// how row locks plus rollback behave for this workload.
type txStub struct {
	mu      sync.Mutex
	pending *pendingRepoStub
	commits int
	aborts  int
}

func (t *txStub) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txStubKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var before map[string]models.PendingAction
	if t.pending != nil {
		before = t.pending.state()
	}
	if err := fn(context.WithValue(ctx, txStubKey{}, true)); err != nil {
		if t.pending != nil {
			t.pending.restore(before)
		}
		t.aborts++
		return err
	}
	t.commits++
	return nil
}

// userRepoStub backs both the registration and the user admin services.
type userRepoStub struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	r := &userRepoStub{users: make(map[string]*models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *userRepoStub) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return nil
}

func (r *userRepoStub) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (r *userRepoStub) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return false, nil
	}
	u.Active = false
	return true, nil
}

func (r *userRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

type studentRepoStub struct {
	mu       sync.Mutex
	students []*models.Student
	err      error
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	r.students = append(r.students, student)
	return nil
}

func (r *studentRepoStub) ExistsByID(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type candidateStub struct {
	candidates []models.PatientIdentity
	err        error
	calls      int
}

func (c *candidateStub) FindCandidates(ctx context.Context, subject models.PatientIdentity) ([]models.PatientIdentity, error) {
	c.calls++
	return c.candidates, c.err
}

type detectionRepoStub struct {
	detections []models.DuplicateDetection
}

func (r *detectionRepoStub) Create(ctx context.Context, detection *models.DuplicateDetection) error {
	detection.ID = uuid.NewString()
	r.detections = append(r.detections, *detection)
	return nil
}

func (r *detectionRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.DuplicateDetection, error) {
	var out []models.DuplicateDetection
	for _, detection := range r.detections {
		if detection.StudentID == studentID {
			out = append(out, detection)
		}
	}
	return out, nil
}

// visitCounterStub answers counts keyed by the window start.
type visitCounterStub struct {
	mu     sync.Mutex
	counts map[time.Time]int
	ranges [][2]time.Time
	err    error
}

func (v *visitCounterStub) CountByDisease(ctx context.Context, disease string, from, to time.Time) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ranges = append(v.ranges, [2]time.Time{from, to})
	if v.err != nil {
		return 0, v.err
	}
	return v.counts[from], nil
}

type thresholdLookupStub struct {
	threshold *models.DiseaseThreshold
}

func (t *thresholdLookupStub) ActiveFor(ctx context.Context, disease string) (*models.DiseaseThreshold, error) {
	if t.threshold == nil || !strings.EqualFold(t.threshold.DiseaseName, disease) {
		return nil, nil
	}
	return t.threshold, nil
}

type lockStub struct {
	held     bool
	busy     int
	err      error
	calls    int
	acquired int
	released int
}

func (l *lockStub) Acquire(ctx context.Context, key string) (func(), bool, error) {
	l.calls++
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	if l.busy > 0 {
		l.busy--
		return nil, false, nil
	}
	l.acquired++
	return func() { l.released++ }, true, nil
}

type metricsStub struct {
	mu       sync.Mutex
	failures []string
}

func (m *metricsStub) RecordDetectorFailure(detector string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, detector)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
