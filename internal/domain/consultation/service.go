package consultation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/pkg/pagination"
)

// URLResolver turns a stored file reference into a fetchable URL.
type URLResolver interface {
	ResolveOrEmpty(ctx context.Context, stored string) string
}

type Service struct {
	repo Repository
	urls URLResolver
}

func NewService(repo Repository, urls URLResolver) *Service {
	return &Service{repo: repo, urls: urls}
}

func (s *Service) Consultations(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*Consultation, int, error) {
	items, total, err := s.repo.ListByPatient(ctx, patientID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list consultations: %w", err)
	}
	return items, total, nil
}

// MedicalRecords lists a patient's prescriptions with downloadable PDF URLs.
func (s *Service) MedicalRecords(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*Prescription, int, error) {
	items, total, err := s.repo.PrescriptionsByPatient(ctx, patientID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list prescriptions: %w", err)
	}
	for _, rx := range items {
		if len(rx.Medications) == 0 {
			rx.Medications = []byte("[]")
		}
		rx.PDFURL = s.urls.ResolveOrEmpty(ctx, rx.PDFPath)
	}
	return items, total, nil
}
