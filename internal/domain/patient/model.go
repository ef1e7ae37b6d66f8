package patient

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
)

const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"

	AccountIndividual = "INDIVIDUAL"
	AccountFamily     = "FAMILY"
)

// OTP purposes.
const (
	PurposeSignup = "SIGNUP"
	PurposeLogin  = "LOGIN"
)

// Patient is a registered patient account, keyed by phone number.
type Patient struct {
	ID            uuid.UUID  `json:"id"`
	Phone         string     `json:"phone"`
	FullName      string     `json:"fullName"`
	Age           int        `json:"age"`
	Gender        string     `json:"gender"`
	AccountType   string     `json:"accountType"`
	Email         *string    `json:"email,omitempty"`
	PINHash       string     `json:"-"`
	PhoneVerified bool       `json:"phoneVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Identity is the token identity of p.
func (p *Patient) Identity() auth.Patient {
	return auth.Patient{ID: p.ID, Phone: p.Phone, Name: p.FullName, AccountType: p.AccountType}
}

// OTP is a one-time code sent to a phone number. Only its hash is stored.
type OTP struct {
	ID         uuid.UUID
	Phone      string
	Purpose    string
	CodeHash   string
	ExpiresAt  time.Time
	Attempts   int
	VerifiedAt *time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

type SendOTPRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
}

type SendOTPResponse struct {
	Phone     string `json:"phone"`
	Purpose   string `json:"purpose"`
	ExpiresIn int    `json:"expiresIn"`
}

type VerifyOTPRequest struct {
	Phone   string `json:"phone"`
	Code    string `json:"otp"`
	Purpose string `json:"purpose"`
}

type VerifyOTPResponse struct {
	Verified bool            `json:"verified"`
	Purpose  string          `json:"purpose"`
	Patient  *Patient        `json:"patient,omitempty"`
	Tokens   *auth.TokenPair `json:"tokens,omitempty"`
}

type SignupRequest struct {
	Phone       string  `json:"phone"`
	FullName    string  `json:"fullName"`
	Age         int     `json:"age"`
	Gender      string  `json:"gender"`
	AccountType string  `json:"accountType"`
	Email       *string `json:"email"`
	PIN         string  `json:"pin"`
}

type LoginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest carries optional profile changes; nil fields are kept.
type UpdateProfileRequest struct {
	FullName    *string `json:"fullName"`
	Age         *int    `json:"age"`
	Gender      *string `json:"gender"`
	AccountType *string `json:"accountType"`
	Email       *string `json:"email"`
}

type ChangePINRequest struct {
	CurrentPIN string `json:"currentPin"`
	NewPIN     string `json:"newPin"`
}

// AuthResponse is returned by signup, login and refresh.
type AuthResponse struct {
	Patient *Patient        `json:"patient"`
	Tokens  *auth.TokenPair `json:"tokens"`
}

var (
	e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	pinPattern  = regexp.MustCompile(`^[0-9]{4,6}$`)
)

// NormalizePhone strips separators and returns an E.164 number. Ten-digit
// numbers without a country code are taken as Indian (+91).
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("phone number contains invalid character %q", r)
		}
	}
	phone := b.String()
	if len(phone) == 10 && !strings.HasPrefix(phone, "+") {
		phone = "+91" + phone
	} else if len(phone) == 12 && strings.HasPrefix(phone, "91") {
		phone = "+" + phone
	}
	if !e164Pattern.MatchString(phone) {
		return "", fmt.Errorf("phone number must be a valid mobile number")
	}
	return phone, nil
}

// ValidPIN reports whether pin is 4 to 6 digits.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

func validGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

func validAccountType(t string) bool {
	return t == AccountIndividual || t == AccountFamily
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validPurpose(p string) bool {
	return p == PurposeSignup || p == PurposeLogin
}
