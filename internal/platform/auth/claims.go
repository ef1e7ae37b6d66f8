package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PatientClaims is the access token payload for patients.
type PatientClaims struct {
	jwt.RegisteredClaims
	PatientID   string `json:"patientId"`
	Phone       string `json:"phone"`
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
	Type        string `json:"type"`
}

func (c *PatientClaims) TokenType() string                 { return c.Type }
func (c *PatientClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

// PatientRefreshClaims is the refresh token payload for patients.
type PatientRefreshClaims struct {
	jwt.RegisteredClaims
	PatientID string `json:"patientId"`
	Type      string `json:"type"`
}

func (c *PatientRefreshClaims) TokenType() string                 { return c.Type }
func (c *PatientRefreshClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

// AdminClaims is the access token payload for platform administrators.
type AdminClaims struct {
	jwt.RegisteredClaims
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Type    string `json:"type"`
}

func (c *AdminClaims) TokenType() string                 { return c.Type }
func (c *AdminClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

// Patient is the verified identity of a patient request.
type Patient struct {
	ID          uuid.UUID
	Phone       string
	Name        string
	AccountType string
}

// Admin is the verified identity of an admin request.
type Admin struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  string
}

// TokenPair is returned to patients on login, signup and refresh.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresIn        int       `json:"expiresIn"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// PatientTokens issues and verifies patient access and refresh tokens.
type PatientTokens struct {
	access  *Signer
	refresh *Signer
}

func NewPatientTokens(access, refresh *Signer) *PatientTokens {
	return &PatientTokens{access: access, refresh: refresh}
}

// Issue signs a new access/refresh pair for p.
func (t *PatientTokens) Issue(p Patient) (*TokenPair, error) {
	access, _, err := t.access.Sign(&PatientClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.ID.String()},
		PatientID:        p.ID.String(),
		Phone:            p.Phone,
		Name:             p.Name,
		AccountType:      p.AccountType,
		Type:             TypePatient,
	})
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := t.refresh.Sign(&PatientRefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.ID.String()},
		PatientID:        p.ID.String(),
		Type:             TypePatientRefresh,
	})
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int(t.access.TTL().Seconds()),
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks a patient access token and returns its identity.
func (t *PatientTokens) VerifyAccess(token string) (Patient, error) {
	claims := &PatientClaims{}
	if err := t.access.Parse(token, claims, TypePatient); err != nil {
		return Patient{}, err
	}
	id, err := uuid.Parse(claims.PatientID)
	if err != nil {
		return Patient{}, fmt.Errorf("%w: bad patient id", ErrInvalidToken)
	}
	return Patient{ID: id, Phone: claims.Phone, Name: claims.Name, AccountType: claims.AccountType}, nil
}

// VerifyRefresh checks a patient refresh token and returns the patient id.
func (t *PatientTokens) VerifyRefresh(token string) (uuid.UUID, error) {
	claims := &PatientRefreshClaims{}
	if err := t.refresh.Parse(token, claims, TypePatientRefresh); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(claims.PatientID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad patient id", ErrInvalidToken)
	}
	return id, nil
}

// AdminTokens issues and verifies admin tokens.
type AdminTokens struct {
	signer *Signer
}

func NewAdminTokens(signer *Signer) *AdminTokens {
	return &AdminTokens{signer: signer}
}

// Issue signs an admin token and returns it with its expiry.
func (t *AdminTokens) Issue(a Admin) (string, time.Time, error) {
	return t.signer.Sign(&AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: a.ID.String()},
		AdminID:          a.ID.String(),
		Email:            a.Email,
		Name:             a.Name,
		Role:             a.Role,
		Type:             TypeAdmin,
	})
}

// Verify checks an admin token and returns its identity.
func (t *AdminTokens) Verify(token string) (Admin, error) {
	claims := &AdminClaims{}
	if err := t.signer.Parse(token, claims, TypeAdmin); err != nil {
		return Admin{}, err
	}
	id, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return Admin{}, fmt.Errorf("%w: bad admin id", ErrInvalidToken)
	}
	return Admin{ID: id, Email: claims.Email, Name: claims.Name, Role: claims.Role}, nil
}
