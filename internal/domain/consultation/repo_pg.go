package consultation

import (
	"context"

	"github.com/google/uuid"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

type repoPG struct {
	q db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{q: q}
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM consultations WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT c.id, c.patient_id, c.doctor_id, d.full_name, d.specialization, c.status,
			c.chief_complaint, c.scheduled_at, c.completed_at, c.created_at
		FROM consultations c
		JOIN doctors d ON d.id = c.doctor_id
		WHERE c.patient_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*Consultation{}
	for rows.Next() {
		var c Consultation
		if err := rows.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.DoctorName, &c.Specialization, &c.Status,
			&c.ChiefComplaint, &c.ScheduledAt, &c.CompletedAt, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &c)
	}
	return out, total, rows.Err()
}

func (r *repoPG) PrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT p.id, p.consultation_id, p.doctor_id, d.full_name, p.diagnosis, p.medications,
			p.notes, p.pdf_path, p.created_at
		FROM prescriptions p
		JOIN doctors d ON d.id = p.doctor_id
		WHERE p.patient_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []*Prescription{}
	for rows.Next() {
		var p Prescription
		var meds []byte
		if err := rows.Scan(&p.ID, &p.ConsultationID, &p.DoctorID, &p.DoctorName, &p.Diagnosis, &meds,
			&p.Notes, &p.PDFPath, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		p.Medications = meds
		out = append(out, &p)
	}
	return out, total, rows.Err()
}
