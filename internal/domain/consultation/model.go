package consultation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Consultation is a patient's visit with a doctor.
type Consultation struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patientId"`
	DoctorID       uuid.UUID  `json:"doctorId"`
	DoctorName     string     `json:"doctorName"`
	Specialization string     `json:"specialization"`
	Status         string     `json:"status"`
	ChiefComplaint string     `json:"chiefComplaint"`
	ScheduledAt    *time.Time `json:"scheduledAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Prescription is issued by a doctor, usually within a consultation.
type Prescription struct {
	ID             uuid.UUID       `json:"id"`
	ConsultationID *uuid.UUID      `json:"consultationId,omitempty"`
	DoctorID       uuid.UUID       `json:"doctorId"`
	DoctorName     string          `json:"doctorName"`
	Diagnosis      string          `json:"diagnosis"`
	Medications    json.RawMessage `json:"medications"`
	Notes          string          `json:"notes"`
	PDFPath        string          `json:"-"`
	PDFURL         string          `json:"pdfUrl,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}
