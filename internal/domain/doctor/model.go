package doctor

import (
	"time"

	"github.com/google/uuid"
)

// StatusVerified is the only doctor status visible to patients.
const StatusVerified = "VERIFIED"

// Doctor is the public profile of a verified doctor.
type Doctor struct {
	ID                 uuid.UUID `json:"id"`
	FullName           string    `json:"fullName"`
	Specialization     string    `json:"specialization"`
	Qualification      string    `json:"qualification"`
	ExperienceYears    int       `json:"experienceYears"`
	ConsultationFee    float64   `json:"consultationFee"`
	Languages          []string  `json:"languages"`
	Bio                string    `json:"bio"`
	ProfilePhoto       string    `json:"-"`
	PhotoURL           string    `json:"profilePhotoUrl,omitempty"`
	RegistrationNumber string    `json:"registrationNumber"`
	IsAvailable        bool      `json:"isAvailable"`
	Rating             float64   `json:"rating"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Sort orders for discovery.
const (
	SortRating     = "rating"
	SortExperience = "experience"
	SortFee        = "fee"
	SortName       = "name"
)

var orderBy = map[string]string{
	SortRating:     "rating DESC, experience_years DESC",
	SortExperience: "experience_years DESC, rating DESC",
	SortFee:        "consultation_fee ASC, rating DESC",
	SortName:       "full_name ASC",
}

type Filter struct {
	Search         string
	Specialization string
	Language       string
	Available      *bool
	Sort           string
}

// Specialization is a discovery facet.
type Specialization struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
