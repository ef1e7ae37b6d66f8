package medicine

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Known() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// ImagePrefix is the object key prefix for medicine images.
const ImagePrefix = "medicines"

// Medicine is a catalog entry. Admin-created entries start APPROVED; doctor
// submissions start PENDING until moderated.
type Medicine struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	GenericName         string     `json:"genericName"`
	Manufacturer        string     `json:"manufacturer"`
	Category            string     `json:"category"`
	DosageForm          string     `json:"dosageForm"`
	Strength            string     `json:"strength"`
	Description         string     `json:"description"`
	ImageKey            string     `json:"-"`
	ImageURL            string     `json:"imageUrl,omitempty"`
	Status              Status     `json:"status"`
	SubmittedByDoctorID *uuid.UUID `json:"submittedByDoctorId,omitempty"`
	ReviewedBy          *uuid.UUID `json:"reviewedBy,omitempty"`
	ReviewedAt          *time.Time `json:"reviewedAt,omitempty"`
	RejectionReason     string     `json:"rejectionReason,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type Filter struct {
	Status   Status
	Category string
	Search   string
}

type CreateRequest struct {
	Name         string `json:"name"`
	GenericName  string `json:"genericName"`
	Manufacturer string `json:"manufacturer"`
	Category     string `json:"category"`
	DosageForm   string `json:"dosageForm"`
	Strength     string `json:"strength"`
	Description  string `json:"description"`
}

// UpdateRequest carries optional changes; nil fields are kept. ImageKey must
// be a key previously issued by the image upload endpoint, or "" to clear.
type UpdateRequest struct {
	Name         *string `json:"name"`
	GenericName  *string `json:"genericName"`
	Manufacturer *string `json:"manufacturer"`
	Category     *string `json:"category"`
	DosageForm   *string `json:"dosageForm"`
	Strength     *string `json:"strength"`
	Description  *string `json:"description"`
	ImageKey     *string `json:"imageKey"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type ImageUploadRequest struct {
	ContentType string `json:"contentType"`
}
