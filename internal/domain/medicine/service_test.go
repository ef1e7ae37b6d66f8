package medicine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/domain/audit"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/blobstore"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

// -- Mocks --

type mockRepo struct {
	items map[uuid.UUID]*Medicine
	order []uuid.UUID
}

func newMockRepo(seed ...*Medicine) *mockRepo {
	r := &mockRepo{items: map[uuid.UUID]*Medicine{}}
	for _, m := range seed {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		r.items[m.ID] = m
		r.order = append(r.order, m.ID)
	}
	return r
}

func (r *mockRepo) duplicate(m *Medicine) bool {
	for _, other := range r.items {
		if other.ID != m.ID && strings.EqualFold(other.Name, m.Name) && strings.EqualFold(other.Strength, m.Strength) {
			return true
		}
	}
	return false
}

func (r *mockRepo) Create(_ context.Context, m *Medicine) error {
	if r.duplicate(m) {
		return ErrExists
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	r.items[m.ID] = m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *mockRepo) Get(_ context.Context, id uuid.UUID) (*Medicine, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Medicine, int, error) {
	var all []*Medicine
	for _, id := range r.order {
		m, ok := r.items[id]
		if !ok {
			continue
		}
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Category != "" && !strings.EqualFold(m.Category, f.Category) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Search)) {
			continue
		}
		cp := *m
		all = append(all, &cp)
	}
	total := len(all)
	if offset >= total {
		return []*Medicine{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *mockRepo) Update(_ context.Context, m *Medicine) error {
	if _, ok := r.items[m.ID]; !ok {
		return ErrNotFound
	}
	if r.duplicate(m) {
		return ErrExists
	}
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *mockRepo) SetStatus(_ context.Context, id uuid.UUID, rv Review) (*Medicine, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	allowed := false
	for _, s := range rv.From {
		if m.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return nil, ErrWrongState
	}
	now := time.Now()
	reviewer := rv.Reviewer
	m.Status = rv.To
	m.ReviewedBy = &reviewer
	m.ReviewedAt = &now
	m.RejectionReason = rv.Reason
	cp := *m
	return &cp, nil
}

func (r *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type mockAudit struct {
	events []audit.Event
}

func (m *mockAudit) Record(_ context.Context, e audit.Event) {
	m.events = append(m.events, e)
}

type fakePresigner struct{}

func (fakePresigner) PresignPut(_ context.Context, key, _ string) (string, error) {
	return "https://s3.test/media/" + key + "?put", nil
}

func (fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	return "https://s3.test/media/" + key + "?get", nil
}

func (fakePresigner) Bucket() string { return "media" }

var admin = auth.Admin{ID: uuid.New(), Email: "mod@bhishak.test", Name: "Mod", Role: auth.RoleAdmin}

func newTestService(repo *mockRepo, presigner blobstore.Presigner) (*Service, *mockAudit) {
	rec := &mockAudit{}
	urls := blobstore.NewURLResolver("https://api.bhishak.test", presigner)
	return NewService(repo, rec, urls, presigner, 15*time.Minute, zerolog.Nop()), rec
}

// -- Tests --

func TestService_Create_StartsApproved(t *testing.T) {
	repo := newMockRepo()
	svc, rec := newTestService(repo, nil)

	m, err := svc.Create(context.Background(), admin, audit.Origin{}, CreateRequest{Name: " Paracetamol ", Strength: "500mg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Status != StatusApproved || m.Name != "Paracetamol" {
		t.Errorf("unexpected medicine %+v", m)
	}
	if m.ReviewedBy == nil || *m.ReviewedBy != admin.ID {
		t.Error("expected creating admin as reviewer")
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionMedicineCreated || rec.events[0].ResourceType != "Medicine" {
		t.Errorf("unexpected audit events %+v", rec.events)
	}

	_, err = svc.Create(context.Background(), admin, audit.Origin{}, CreateRequest{Name: "paracetamol", Strength: "500MG"})
	if !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists for duplicate name and strength, got %v", err)
	}
	if _, err := svc.Create(context.Background(), admin, audit.Origin{}, CreateRequest{Name: "  "}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for blank name, got %v", err)
	}
}

func TestService_Moderation(t *testing.T) {
	pending := &Medicine{Name: "Azithral", Strength: "250mg", Status: StatusPending}
	repo := newMockRepo(pending)
	svc, rec := newTestService(repo, nil)
	ctx := context.Background()

	if _, err := svc.Reject(ctx, admin, audit.Origin{}, pending.ID, "   "); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid without a reason, got %v", err)
	}

	m, err := svc.Reject(ctx, admin, audit.Origin{}, pending.ID, "Duplicate of an existing brand")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if m.Status != StatusRejected || m.RejectionReason != "Duplicate of an existing brand" {
		t.Errorf("unexpected rejected medicine %+v", m)
	}
	if _, err := svc.Reject(ctx, admin, audit.Origin{}, pending.ID, "again"); !errors.Is(err, ErrWrongState) {
		t.Errorf("expected ErrWrongState rejecting twice, got %v", err)
	}

	m, err = svc.Approve(ctx, admin, audit.Origin{}, pending.ID)
	if err != nil {
		t.Fatalf("approve from rejected: %v", err)
	}
	if m.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", m.Status)
	}
	if _, err := svc.Approve(ctx, admin, audit.Origin{}, pending.ID); !errors.Is(err, ErrWrongState) {
		t.Errorf("expected ErrWrongState approving twice, got %v", err)
	}
	if _, err := svc.Approve(ctx, admin, audit.Origin{}, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var actions []string
	for _, e := range rec.events {
		actions = append(actions, e.Action)
	}
	if strings.Join(actions, ",") != "MEDICINE_REJECTED,MEDICINE_APPROVED" {
		t.Errorf("unexpected audit actions %v", actions)
	}
}

func TestService_Catalog_OnlyApproved(t *testing.T) {
	repo := newMockRepo(
		&Medicine{Name: "Amoxicillin", Status: StatusApproved, Category: "Antibiotic", ImageKey: "medicines/2025/01/01/a.png"},
		&Medicine{Name: "Amlodipine", Status: StatusPending, Category: "Cardiac"},
		&Medicine{Name: "Atorvastatin", Status: StatusRejected, Category: "Cardiac"},
		&Medicine{Name: "Cetirizine", Status: StatusApproved, Category: "Antihistamine"},
	)
	svc, _ := newTestService(repo, fakePresigner{})

	items, total, err := svc.Catalog(context.Background(), "am", "", pagination.Params{Page: 1, Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Name != "Amoxicillin" {
		t.Fatalf("expected only the approved match, got %d items", total)
	}
	if items[0].ImageURL != "https://s3.test/media/medicines/2025/01/01/a.png?get" {
		t.Errorf("expected presigned image url, got %q", items[0].ImageURL)
	}

	_, total, _ = svc.Catalog(context.Background(), "", "", pagination.Params{Page: 1, Limit: 1})
	if total != 2 {
		t.Errorf("expected 2 approved medicines, got %d", total)
	}
}

func TestService_List_StatusFilter(t *testing.T) {
	repo := newMockRepo(
		&Medicine{Name: "A", Status: StatusPending},
		&Medicine{Name: "B", Status: StatusApproved},
	)
	svc, _ := newTestService(repo, nil)

	items, total, err := svc.List(context.Background(), Filter{Status: "pending"}, pagination.Params{Page: 1, Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || items[0].Name != "A" {
		t.Errorf("expected the pending medicine, got %d", total)
	}
	if _, _, err := svc.List(context.Background(), Filter{Status: "ARCHIVED"}, pagination.Params{Page: 1, Limit: 20}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unknown status, got %v", err)
	}
}

func TestService_Update(t *testing.T) {
	m := &Medicine{Name: "Dolo", Strength: "650mg", Status: StatusApproved}
	other := &Medicine{Name: "Dolo", Strength: "500mg", Status: StatusApproved}
	repo := newMockRepo(m, other)
	svc, rec := newTestService(repo, fakePresigner{})
	ctx := context.Background()

	desc := "Fever and mild pain"
	key := "medicines/2025/02/03/x.webp"
	out, err := svc.Update(ctx, admin, audit.Origin{}, m.ID, UpdateRequest{Description: &desc, ImageKey: &key})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Description != desc || out.ImageURL == "" || out.Status != StatusApproved {
		t.Errorf("unexpected update result %+v", out)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionMedicineUpdated {
		t.Errorf("expected MEDICINE_UPDATED audit, got %+v", rec.events)
	}

	strength := "500mg"
	if _, err := svc.Update(ctx, admin, audit.Origin{}, m.ID, UpdateRequest{Strength: &strength}); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}

	foreign := "doctors/photo.png"
	if _, err := svc.Update(ctx, admin, audit.Origin{}, m.ID, UpdateRequest{ImageKey: &foreign}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for foreign image key, got %v", err)
	}
}

func TestService_DeleteAndImageUpload(t *testing.T) {
	m := &Medicine{Name: "Pan", Strength: "40mg", Status: StatusApproved}
	repo := newMockRepo(m)
	ctx := context.Background()

	disabled, _ := newTestService(repo, nil)
	if _, err := disabled.ImageUpload(ctx, m.ID, "image/png"); !errors.Is(err, blobstore.ErrDisabled) {
		t.Errorf("expected ErrDisabled without storage, got %v", err)
	}

	svc, rec := newTestService(repo, fakePresigner{})
	up, err := svc.ImageUpload(ctx, m.ID, "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(up.Key, "medicines/") || !strings.HasSuffix(up.Key, ".jpg") || up.Method != "PUT" {
		t.Errorf("unexpected upload %+v", up)
	}
	if _, err := svc.ImageUpload(ctx, m.ID, "application/pdf"); !errors.Is(err, blobstore.ErrInvalidContentType) {
		t.Errorf("expected ErrInvalidContentType, got %v", err)
	}
	if _, err := svc.ImageUpload(ctx, uuid.New(), "image/png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, admin, audit.Origin{}, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionMedicineDeleted {
		t.Errorf("expected MEDICINE_DELETED audit, got %+v", rec.events)
	}
	if err := svc.Delete(ctx, admin, audit.Origin{}, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
