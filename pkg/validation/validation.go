package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	phonePattern      = regexp.MustCompile(`^[1-9][0-9]{5,15}$`)
	nonDigitPattern   = regexp.MustCompile(`[^0-9]`)
	newsletterPattern = regexp.MustCompile(`^[0-9]+@newsletter$`)

	ErrEmptyNumber   = errors.New("phone number cannot be empty")
	ErrInvalidNumber = errors.New("phone number must be in international format, digits only, 6-16 characters")
)

// SanitizeNumber strips everything that is not a digit.
func SanitizeNumber(number string) string {
	return nonDigitPattern.ReplaceAllString(number, "")
}

// NormalizePhone sanitizes and validates a number in one step.
func NormalizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyNumber
	}
	sanitized := SanitizeNumber(phone)
	if err := ValidatePhone(sanitized); err != nil {
		return "", err
	}
	return sanitized, nil
}

// ValidatePhone ensures international format (no leading 0, digits only, length 6-16).
func ValidatePhone(phone string) error {
	trimmed := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if trimmed == "" {
		return ErrEmptyNumber
	}
	if !phonePattern.MatchString(trimmed) {
		return ErrInvalidNumber
	}
	return nil
}

// ValidateNewsletterJID accepts channel identifiers like 120363397100406773@newsletter.
func ValidateNewsletterJID(jid string) error {
	if !newsletterPattern.MatchString(strings.TrimSpace(jid)) {
		return errors.New("newsletter JID must end with @newsletter")
	}
	return nil
}

// ValidateURL ensures a valid http(s) URL, optionally restricted to a host suffix.
func ValidateURL(raw string, hostSuffix string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url cannot be empty")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("url must be valid")
	}
	if hostSuffix != "" && !strings.HasSuffix(strings.ToLower(u.Hostname()), hostSuffix) {
		return errors.New("url must point to " + hostSuffix)
	}
	return nil
}
