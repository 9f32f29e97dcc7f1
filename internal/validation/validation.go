// Package validation checks raw request input and turns it into normalized
// values the service layer can trust.
//
// Every check runs, and every failure is reported. A caller never gets a
// partially valid record: the result is either a normalized value or an
// *apperror.AppError carrying the complete apperror.FieldErrors map.
//
// Rules are expressed as go-playground/validator tags. Custom tags
// (haslower, hasupper, hasdigit, hassymbol, bcryptmax) are registered once
// in New.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/halfbake/internal/auth"
)

// rule pairs a validator tag with the message reported when it fails.
type rule struct {
	tag     string
	message string
}

// Validator wraps a configured *validator.Validate. It is safe for
// concurrent use once constructed.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the custom password rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report struct fields by their JSON names so error maps match the
	// request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// The error return only fires for an empty tag or a nil func.
	mustRegister(v, "haslower", runeCheck(isASCIILower))
	mustRegister(v, "hasupper", runeCheck(isASCIIUpper))
	mustRegister(v, "hasdigit", runeCheck(isASCIIDigit))
	mustRegister(v, "hassymbol", runeCheck(isSymbol))
	mustRegister(v, "bcryptmax", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: registering %q: %v", tag, err))
	}
}

// runeCheck builds a validator.Func that passes when at least one rune of
// the field satisfies pred.
func runeCheck(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if pred(r) {
				return true
			}
		}
		return false
	}
}

// Only ASCII letters count toward the case rules; "é" is neither.
func isASCIILower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func isASCIIUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isSymbol reports whether r is neither a word character ([A-Za-z0-9_])
// nor whitespace.
func isSymbol(r rune) bool {
	switch {
	case isASCIILower(r), isASCIIUpper(r), isASCIIDigit(r), r == '_':
		return false
	case unicode.IsSpace(r):
		return false
	}
	return true
}

// check runs each rule against value independently and returns the
// messages of the rules that failed, in rule order.
func (v *Validator) check(value any, rules []rule) []string {
	var failed []string
	for _, r := range rules {
		if err := v.v.Var(value, r.tag); err != nil {
			failed = append(failed, r.message)
		}
	}
	return failed
}
