package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode"

	"github.com/ttacon/libphonenumber"
)

// DefaultPhoneRegion is used for numbers without a leading +country code.
func DefaultPhoneRegion() string {
	region := strings.ToUpper(strings.TrimSpace(os.Getenv("PHONE_REGION")))
	if region == "" {
		return "US"
	}
	return region
}

// FormatPhoneNumber returns the E164 form of a valid number.
func FormatPhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]bool, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

// execute given template string and return generated string
func ExecTemplate(tString string, data any) (string, error) {
	t, err := template.New("doc").Option("missingkey=zero").Parse(tString)
	if err != nil {
		return "", errors.New("error parsing template: " + err.Error())
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", errors.New("failed to execute template: " + err.Error())
	}
	return b.String(), nil
}

// CheckTemplate parses a template string without executing it.
func CheckTemplate(tString string) error {
	if _, err := template.New("doc").Parse(tString); err != nil {
		return errors.New("error parsing template: " + err.Error())
	}
	return nil
}

func NilIfEmpty[T comparable](v T) *T {
	var defaultZero T
	if v == defaultZero {
		return nil
	}
	return &v
}

// SanitizeText trims s and drops control characters other than tab/newline.
func SanitizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

