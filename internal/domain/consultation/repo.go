package consultation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error)
	PrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
}
