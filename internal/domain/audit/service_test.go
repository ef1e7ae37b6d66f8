package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/middleware"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

// -- Mock Repositories --

type mockRepo struct {
	mu          sync.Mutex
	logs        []*Log
	access      []*AccessLog
	counts      map[string]int
	accessCount map[string]int
	countErr    error
	insertErr   error
	lastFilter  Filter
	lastLimit   int
}

func (m *mockRepo) Insert(_ context.Context, l *Log) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	m.logs = append(m.logs, l)
	return nil
}

func (m *mockRepo) Search(_ context.Context, f Filter, limit, offset int) ([]*Log, int, error) {
	m.lastFilter = f
	m.lastLimit = limit
	total := len(m.logs)
	if offset >= total {
		return []*Log{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return m.logs[offset:end], total, nil
}

func (m *mockRepo) InsertAccess(_ context.Context, l *AccessLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = append(m.access, l)
	return nil
}

func (m *mockRepo) SearchAccess(_ context.Context, _ AccessFilter, limit, offset int) ([]*AccessLog, int, error) {
	return m.access, len(m.access), nil
}

func (m *mockRepo) CountAction(_ context.Context, action string, _ time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.counts[action], nil
}

func (m *mockRepo) CountAccess(_ context.Context, accessType string, _ time.Time) (int, error) {
	return m.accessCount[accessType], nil
}

func (m *mockRepo) RecentByAction(_ context.Context, action string, _ time.Time, n int) ([]*Log, error) {
	var out []*Log
	for _, l := range m.logs {
		if l.Action == action && len(out) < n {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockRoles struct {
	roles map[uuid.UUID]string
	err   error
	calls int
}

func (m *mockRoles) RolesByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if r, ok := m.roles[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func TestService_Search_EnrichesAdminRoles(t *testing.T) {
	superID := uuid.New()
	missingID := uuid.New()
	repo := &mockRepo{logs: []*Log{
		{ID: "1", ActorType: ActorAdmin, ActorID: superID.String(), Action: ActionSettingUpdated},
		{ID: "2", ActorType: ActorAdmin, ActorID: missingID.String(), Action: ActionLoginSuccess},
		{ID: "3", ActorType: ActorPatient, ActorID: uuid.NewString(), Action: ActionLoginSuccess},
		{ID: "4", ActorType: ActorAdmin, ActorID: superID.String(), Action: ActionLoginSuccess},
	}}
	roles := &mockRoles{roles: map[uuid.UUID]string{superID: "SUPER_ADMIN"}}
	svc := NewService(repo, roles, zerolog.Nop())

	logs, total, err := svc.Search(context.Background(), Filter{}, pagination.New("1", "20"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 || len(logs) != 4 {
		t.Fatalf("expected 4 logs, got %d/%d", len(logs), total)
	}
	if roles.calls != 1 {
		t.Errorf("expected one batched role lookup, got %d", roles.calls)
	}
	if logs[0].ActorRole != "SUPER_ADMIN" || logs[3].ActorRole != "SUPER_ADMIN" {
		t.Errorf("expected SUPER_ADMIN role, got %q and %q", logs[0].ActorRole, logs[3].ActorRole)
	}
	if logs[1].ActorRole != "ADMIN" {
		t.Errorf("expected missing admin to default to ADMIN, got %q", logs[1].ActorRole)
	}
	if logs[2].ActorRole != "" {
		t.Errorf("expected no role on patient row, got %q", logs[2].ActorRole)
	}
}

func TestService_Search_RoleLookupFailureDegrades(t *testing.T) {
	id := uuid.New()
	repo := &mockRepo{logs: []*Log{{ID: "1", ActorType: ActorAdmin, ActorID: id.String()}}}
	roles := &mockRoles{err: errors.New("db down")}
	svc := NewService(repo, roles, zerolog.Nop())

	logs, _, err := svc.Search(context.Background(), Filter{}, pagination.New("", ""))
	if err != nil {
		t.Fatalf("role lookup failure must not fail the search: %v", err)
	}
	if logs[0].ActorRole != "ADMIN" {
		t.Errorf("expected ADMIN, got %q", logs[0].ActorRole)
	}
}

func TestService_Search_SkipsLookupWithoutAdmins(t *testing.T) {
	repo := &mockRepo{logs: []*Log{{ID: "1", ActorType: ActorSystem}}}
	roles := &mockRoles{}
	svc := NewService(repo, roles, zerolog.Nop())
	if _, _, err := svc.Search(context.Background(), Filter{}, pagination.New("", "")); err != nil {
		t.Fatal(err)
	}
	if roles.calls != 0 {
		t.Errorf("expected no role lookup, got %d", roles.calls)
	}
}

func TestService_Export_CapsRows(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil, zerolog.Nop())
	if _, err := svc.Export(context.Background(), Filter{Action: ActionLoginFailed}); err != nil {
		t.Fatal(err)
	}
	if repo.lastLimit != MaxExportRows {
		t.Errorf("expected limit %d, got %d", MaxExportRows, repo.lastLimit)
	}
	if repo.lastFilter.Action != ActionLoginFailed {
		t.Errorf("expected filter to pass through, got %+v", repo.lastFilter)
	}
}

func TestService_Stats(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		counts: map[string]int{
			ActionLoginSuccess:        40,
			ActionLoginFailed:         3,
			ActionPrescriptionCreated: 12,
			ActionPaymentConfirmed:    9,
		},
		accessCount: map[string]int{AccessReveal: 2},
		logs: []*Log{
			{ID: "a", Action: ActionLoginFailed},
			{ID: "b", Action: ActionLoginSuccess},
			{ID: "c", Action: ActionLoginFailed},
		},
	}
	svc := NewService(repo, nil, zerolog.Nop())
	svc.now = func() time.Time { return now }

	st, err := svc.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Period.Days != 7 || !st.Period.Since.Equal(now.AddDate(0, 0, -7)) {
		t.Errorf("unexpected period %+v", st.Period)
	}
	if st.Logins != 40 || st.FailedLogins != 3 || st.PrescriptionsCreated != 12 || st.PaymentsConfirmed != 9 {
		t.Errorf("unexpected counters %+v", st)
	}
	if st.SensitiveReveals != 2 {
		t.Errorf("expected 2 reveals, got %d", st.SensitiveReveals)
	}
	if len(st.RecentFailedLogins) != 2 {
		t.Errorf("expected 2 recent failed logins, got %d", len(st.RecentFailedLogins))
	}
}

func TestService_Stats_Error(t *testing.T) {
	repo := &mockRepo{countErr: errors.New("timeout")}
	svc := NewService(repo, nil, zerolog.Nop())
	if _, err := svc.Stats(context.Background(), 30); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecorder_Record(t *testing.T) {
	repo := &mockRepo{}
	rec := NewRecorder(repo, zerolog.Nop())

	rec.Record(context.Background(), Event{
		ActorID:   "p-1",
		ActorType: ActorPatient,
		Action:    ActionLoginSuccess,
		Details:   map[string]any{"method": "PIN"},
		Origin:    Origin{IPAddress: "10.0.0.1", UserAgent: "test"},
		Success:   true,
	})
	rec.Record(context.Background(), Event{Action: ActionMedicineApproved})

	if len(repo.logs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(repo.logs))
	}
	if string(repo.logs[0].Details) != `{"method":"PIN"}` {
		t.Errorf("unexpected details %s", repo.logs[0].Details)
	}
	if repo.logs[0].IPAddress != "10.0.0.1" {
		t.Errorf("expected ip to be copied, got %q", repo.logs[0].IPAddress)
	}
	if repo.logs[1].ActorType != ActorSystem {
		t.Errorf("expected empty actor type to default to SYSTEM, got %q", repo.logs[1].ActorType)
	}
}

func TestRecorder_RecordSwallowsErrors(t *testing.T) {
	repo := &mockRepo{insertErr: errors.New("insert failed")}
	rec := NewRecorder(repo, zerolog.Nop())
	rec.Record(context.Background(), Event{Action: ActionLoginFailed})
}

func TestRecorder_RecordAccess(t *testing.T) {
	repo := &mockRepo{}
	var recorder middleware.AccessRecorder = NewRecorder(repo, zerolog.Nop())
	err := recorder.RecordAccess(context.Background(), middleware.AccessEntry{
		AdminID:      uuid.NewString(),
		AdminEmail:   "root@bhishak.test",
		AccessType:   AccessExport,
		ResourceType: "audit-logs",
		Reason:       "quarterly review",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(repo.access) != 1 || repo.access[0].AccessType != AccessExport || repo.access[0].Reason != "quarterly review" {
		t.Errorf("unexpected access rows %+v", repo.access)
	}
}
