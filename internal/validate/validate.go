// Package validate applies per-field rules to untrusted request input
// before any trust is extended to a value. Values are trimmed, length-
// checked against their raw (pre-escape) form, then HTML-escaped for
// safe storage and transport.
package validate

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/me/blogd/pkg/model"
)

const (
	UsernameMin = 3
	UsernameMax = 50
	PasswordMin = 6
	TitleMax    = 255
	SearchMax   = 100
	ReflectMax  = 500
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Registration holds validated, normalized registration fields. The
// password passes through untouched; it is only ever hashed, never
// stored or escaped.
type Registration struct {
	Username string
	Email    string
	Password string
}

// RegistrationInput validates and normalizes the register request fields.
func RegistrationInput(username, email, password string) (Registration, *model.APIError) {
	if username == "" || email == "" || password == "" {
		return Registration{}, model.NewValidationError("", "All fields are required")
	}

	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < UsernameMin || n > UsernameMax {
		return Registration{}, model.NewValidationError("username", "Username must be between 3 and 50 characters")
	}

	email = NormalizeEmail(email)
	if !emailRe.MatchString(email) {
		return Registration{}, model.NewValidationError("email", "Invalid email format")
	}

	if utf8.RuneCountInString(password) < PasswordMin {
		return Registration{}, model.NewValidationError("password", "Password must be at least 6 characters")
	}

	return Registration{
		Username: Escape(username),
		Email:    email,
		Password: password,
	}, nil
}

// PostFields holds validated post input.
type PostFields struct {
	Title   string
	Content string
}

// PostInput validates and escapes the create-post request fields.
func PostInput(title, content string) (PostFields, *model.APIError) {
	if title == "" || content == "" {
		return PostFields{}, model.NewValidationError("", "Title and content are required")
	}

	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(title); n < 1 || n > TitleMax {
		return PostFields{}, model.NewValidationError("title", "Title must be between 1 and 255 characters")
	}
	if content == "" {
		return PostFields{}, model.NewValidationError("content", "Title and content are required")
	}

	return PostFields{Title: Escape(title), Content: Escape(content)}, nil
}

// SearchTerm checks a search query. ok is false when the term is absent
// or out of bounds; the caller treats that as an empty result set, not
// an error.
func SearchTerm(q string) (term string, ok bool) {
	if q == "" {
		return "", false
	}
	if utf8.RuneCountInString(q) > SearchMax {
		return "", false
	}
	return q, true
}

// ReflectInput validates free text that will be echoed back, escaping it
// before any reflection.
func ReflectInput(input string) (string, *model.APIError) {
	if n := utf8.RuneCountInString(input); n < 1 || n > ReflectMax {
		return "", model.NewValidationError("input", "Input length must be between 1 and 500 characters")
	}
	return Escape(strings.TrimSpace(input)), nil
}

// Escape HTML-escapes a value for safe storage and transport.
func Escape(s string) string {
	return html.EscapeString(s)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
