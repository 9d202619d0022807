package credentials

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxSSIDLength is the IEEE 802.11 SSID limit in bytes
	MaxSSIDLength = 32

	// MaxPasswordLength is the IEEE 802.11 passphrase/PSK limit in bytes
	MaxPasswordLength = 64
)

// Credentials is a station SSID/password pair.
type Credentials struct {
	SSID     string `yaml:"ssid" json:"ssid"`
	Password string `yaml:"password" json:"password"`
}

// String never includes the password.
func (c Credentials) String() string {
	if c.Password == "" {
		return fmt.Sprintf("%s (open)", c.SSID)
	}
	return fmt.Sprintf("%s (%d-char password)", c.SSID, len(c.Password))
}

// IsZero reports whether no SSID is set.
func (c Credentials) IsZero() bool {
	return c.SSID == ""
}

// ValidateSSID validates a station SSID.
// SSIDs must be non-empty and at most MaxSSIDLength bytes.
func ValidateSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("ssid", "WiFi SSID cannot be empty")
	}
	if len(ssid) > MaxSSIDLength {
		return NewValidationError("ssid", fmt.Sprintf("WiFi SSID too long (max %d bytes): %d bytes", MaxSSIDLength, len(ssid)))
	}
	return nil
}

// ValidatePassword validates a station password.
// An empty password selects an open network.
func ValidatePassword(password string) error {
	if len(password) > MaxPasswordLength {
		return NewValidationError("password", fmt.Sprintf("WiFi password too long (max %d bytes): %d bytes", MaxPasswordLength, len(password)))
	}
	return nil
}

// ValidateErrors validates both fields and returns every problem found.
func ValidateErrors(c Credentials) []error {
	var errs []error

	if err := ValidateSSID(c.SSID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidatePassword(c.Password); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// Validate validates both fields and joins the problems into one error.
func Validate(c Credentials) error {
	return errors.Join(ValidateErrors(c)...)
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Credentials validation failed with %d error(s):\n", len(errs)))

	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}

	return sb.String()
}
