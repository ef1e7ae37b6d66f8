package audit

import (
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"
)

// Actor types.
const (
	ActorAdmin   = "ADMIN"
	ActorDoctor  = "DOCTOR"
	ActorPatient = "PATIENT"
	ActorSystem  = "SYSTEM"
)

// Actions written by this service or counted by the stats endpoint.
const (
	ActionLoginSuccess        = "LOGIN_SUCCESS"
	ActionLoginFailed         = "LOGIN_FAILED"
	ActionPatientSignup       = "PATIENT_SIGNUP"
	ActionPINChanged          = "PIN_CHANGED"
	ActionProfileUpdated      = "PROFILE_UPDATED"
	ActionSettingCreated      = "SETTING_CREATED"
	ActionSettingUpdated      = "SETTING_UPDATED"
	ActionSettingDeleted      = "SETTING_DELETED"
	ActionMedicineCreated     = "MEDICINE_CREATED"
	ActionMedicineUpdated     = "MEDICINE_UPDATED"
	ActionMedicineApproved    = "MEDICINE_APPROVED"
	ActionMedicineRejected    = "MEDICINE_REJECTED"
	ActionMedicineDeleted     = "MEDICINE_DELETED"
	ActionPrescriptionCreated = "PRESCRIPTION_CREATED"
	ActionPaymentConfirmed    = "PAYMENT_CONFIRMED"
)

// Admin access types.
const (
	AccessView   = "VIEW"
	AccessCreate = "CREATE"
	AccessUpdate = "UPDATE"
	AccessDelete = "DELETE"
	AccessExport = "EXPORT"
	AccessReveal = "REVEAL"
)

var (
	actorTypes  = map[string]bool{ActorAdmin: true, ActorDoctor: true, ActorPatient: true, ActorSystem: true}
	accessTypes = map[string]bool{AccessView: true, AccessCreate: true, AccessUpdate: true, AccessDelete: true, AccessExport: true, AccessReveal: true}
)

// Log is one audit_logs row.
type Log struct {
	ID           string          `json:"id"`
	ActorID      string          `json:"actorId"`
	ActorType    string          `json:"actorType"`
	ActorName    string          `json:"actorName"`
	ActorRole    string          `json:"actorRole,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ipAddress"`
	UserAgent    string          `json:"userAgent"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// AccessLog is one admin_access_logs row.
type AccessLog struct {
	ID           string    `json:"id"`
	AdminID      string    `json:"adminId"`
	AdminEmail   string    `json:"adminEmail"`
	AccessType   string    `json:"accessType"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId"`
	Reason       string    `json:"reason"`
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Filter narrows an audit log search. Zero values are ignored; From and To
// are inclusive bounds on created_at.
type Filter struct {
	ActorType string
	Action    string
	Search    string
	From      *time.Time
	To        *time.Time
}

// AccessFilter narrows an admin access log search.
type AccessFilter struct {
	AdminID      string
	AccessType   string
	ResourceType string
	Reason       string
	From         *time.Time
	To           *time.Time
}

// Stats summarises security-relevant activity over a period.
type Stats struct {
	Period struct {
		Days  int       `json:"days"`
		Since time.Time `json:"since"`
	} `json:"period"`
	Logins               int    `json:"logins"`
	FailedLogins         int    `json:"failedLogins"`
	PrescriptionsCreated int    `json:"prescriptionsCreated"`
	PaymentsConfirmed    int    `json:"paymentsConfirmed"`
	SensitiveReveals     int    `json:"sensitiveReveals"`
	RecentFailedLogins   []*Log `json:"recentFailedLogins"`
}

// Origin is the client network identity attached to an event.
type Origin struct {
	IPAddress string
	UserAgent string
}

// OriginFrom reads the client identity from an echo request.
func OriginFrom(c echo.Context) Origin {
	return Origin{IPAddress: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

// Event is an audit trail entry to be written.
type Event struct {
	ActorID      string
	ActorType    string
	ActorName    string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	Origin       Origin
	Success      bool
	ErrorMessage string
}
