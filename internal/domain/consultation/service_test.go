package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/blobstore"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/httpx"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

type mockRepo struct {
	consultations map[uuid.UUID][]*Consultation
	prescriptions map[uuid.UUID][]*Prescription
	err           error
}

func (m *mockRepo) ListByPatient(_ context.Context, id uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	all := m.consultations[id]
	return page(all, limit, offset), len(all), nil
}

func (m *mockRepo) PrescriptionsByPatient(_ context.Context, id uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	all := m.prescriptions[id]
	return page(all, limit, offset), len(all), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

func TestService_MedicalRecords_ResolvesPDFs(t *testing.T) {
	patientID := uuid.New()
	repo := &mockRepo{prescriptions: map[uuid.UUID][]*Prescription{
		patientID: {
			{ID: uuid.New(), Diagnosis: "Migraine", PDFPath: "/uploads/prescriptions/a.pdf", Medications: json.RawMessage(`[{"name":"Paracetamol"}]`)},
			{ID: uuid.New(), Diagnosis: "Cold", PDFPath: ""},
		},
	}}
	svc := NewService(repo, blobstore.NewURLResolver("https://api.bhishak.test", nil))

	items, total, err := svc.MedicalRecords(context.Background(), patientID, pagination.New("1", "10"))
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Fatalf("expected 2, got %d", total)
	}
	if items[0].PDFURL != "https://api.bhishak.test/uploads/prescriptions/a.pdf" {
		t.Errorf("unexpected pdf url %q", items[0].PDFURL)
	}
	if items[1].PDFURL != "" {
		t.Errorf("expected empty pdf url, got %q", items[1].PDFURL)
	}
	if string(items[1].Medications) != "[]" {
		t.Errorf("expected empty medication list, got %s", items[1].Medications)
	}
}

func TestService_Consultations_Error(t *testing.T) {
	svc := NewService(&mockRepo{err: errors.New("db down")}, blobstore.NewURLResolver("", nil))
	if _, _, err := svc.Consultations(context.Background(), uuid.New(), pagination.New("", "")); err == nil {
		t.Fatal("expected error")
	}
}

func TestHandler_Consultations_ScopedToPatient(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	now := time.Now()
	repo := &mockRepo{consultations: map[uuid.UUID][]*Consultation{
		me:    {{ID: uuid.New(), PatientID: me, Status: "COMPLETED", CreatedAt: now}},
		other: {{ID: uuid.New(), PatientID: other}, {ID: uuid.New(), PatientID: other}},
	}}
	h := NewHandler(NewService(repo, blobstore.NewURLResolver("", nil)))

	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler(zerolog.Nop())
	g := e.Group("/api/v1/patient-auth", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth.SetPatient(c, auth.Patient{ID: me, Phone: "+919800000001"})
			return next(c)
		}
	})
	h.RegisterRoutes(g)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patient-auth/consultations", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Consultations []Consultation  `json:"consultations"`
			Pagination    pagination.Meta `json:"pagination"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Data.Consultations) != 1 || body.Data.Consultations[0].PatientID != me {
		t.Errorf("expected only own consultations, got %+v", body.Data.Consultations)
	}
	if body.Data.Pagination.TotalPages != 1 {
		t.Errorf("expected 1 page, got %d", body.Data.Pagination.TotalPages)
	}
}

func TestHandler_RequiresIdentity(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{}, blobstore.NewURLResolver("", nil)))
	e := echo.New()
	e.HTTPErrorHandler = httpx.ErrorHandler(zerolog.Nop())
	h.RegisterRoutes(e.Group("/api/v1/patient-auth"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patient-auth/medical-records", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a verified patient, got %d", rec.Code)
	}
}
