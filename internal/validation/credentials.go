package validation

import (
	"strings"

	"github.com/sakif/halfbake/internal/apperror"
)

// Field-level messages. Clients match on these strings, so they are part
// of the API.
const (
	MsgInvalidEmail     = "Please enter a valid email"
	MsgPasswordMin      = "Password must be at least 8 characters"
	MsgPasswordLower    = "Password must include a lowercase letter"
	MsgPasswordUpper    = "Password must include an uppercase letter"
	MsgPasswordDigit    = "Password must include a number"
	MsgPasswordSymbol   = "Password must include a special character"
	MsgPasswordTooLong  = "Password must be at most 72 bytes"
	MsgPasswordRequired = "Password is required"
	MsgNameMin          = "Name must be at least 2 characters"
)

var (
	emailRules = []rule{{"required,email", MsgInvalidEmail}}

	// Order matters: messages are reported in this order.
	passwordRules = []rule{
		{"min=8", MsgPasswordMin},
		{"haslower", MsgPasswordLower},
		{"hasupper", MsgPasswordUpper},
		{"hasdigit", MsgPasswordDigit},
		{"hassymbol", MsgPasswordSymbol},
		{"bcryptmax", MsgPasswordTooLong},
	}

	loginPasswordRules = []rule{{"required", MsgPasswordRequired}}

	nameRules = []rule{{"min=2", MsgNameMin}}
)

// RegisterRequest is the raw body of POST /api/auth/register. Name is a
// pointer so an omitted name can be told apart from an empty one.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

// LoginRequest is the raw body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is a validated, normalized credential record. Name is empty
// when the caller did not supply one.
type Credentials struct {
	Email    string
	Password string
	Name     string
}

// Registration validates a registration request. The email is trimmed and
// lower-cased; the password is checked as given.
func (v *Validator) Registration(req RegisterRequest) (Credentials, error) {
	email := normalizeEmail(req.Email)
	fields := apperror.FieldErrors{}

	for _, msg := range v.check(email, emailRules) {
		fields.Add("email", msg)
	}
	for _, msg := range v.check(req.Password, passwordRules) {
		fields.Add("password", msg)
	}

	var name string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		for _, msg := range v.check(name, nameRules) {
			fields.Add("name", msg)
		}
	}

	if !fields.Empty() {
		return Credentials{}, apperror.Invalid(fields)
	}
	return Credentials{Email: email, Password: req.Password, Name: name}, nil
}

// Login validates a login request. Password composition is not checked
// here: accounts must still be able to log in if the rules tighten.
func (v *Validator) Login(req LoginRequest) (Credentials, error) {
	email := normalizeEmail(req.Email)
	fields := apperror.FieldErrors{}

	for _, msg := range v.check(email, emailRules) {
		fields.Add("email", msg)
	}
	for _, msg := range v.check(req.Password, loginPasswordRules) {
		fields.Add("password", msg)
	}

	if !fields.Empty() {
		return Credentials{}, apperror.Invalid(fields)
	}
	return Credentials{Email: email, Password: req.Password}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
