package lookup

import (
	"net/netip"
	"strings"
	"unicode"
	"unicode/utf8"

	apierrors "github.com/olgasafonova/snusbase-mcp-server/internal/errors"
	"github.com/olgasafonova/snusbase-mcp-server/internal/snusbase"
)

// MaxTermLength caps a lookup term, in characters
const MaxTermLength = 512

// ValidateTerm trims term and checks it is present and not oversized.
// The value is left out of errors because terms may be passwords.
func ValidateTerm(field, term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", apierrors.NewValidationError(field, "", "is required")
	}
	if utf8.RuneCountInString(term) > MaxTermLength {
		return "", apierrors.NewValidationError(field, "", "must be at most 512 characters")
	}
	return term, nil
}

// ValidateSearchType parses a category name, accepting "ip" for lastip
func ValidateSearchType(s string) (snusbase.SearchType, error) {
	if strings.TrimSpace(s) == "" {
		return "", apierrors.NewValidationError("type", "", "is required")
	}
	st, err := snusbase.ParseSearchType(s)
	if err != nil {
		return "", apierrors.NewValidationError("type", s,
			"must be one of username, password, email, lastip, name, hash, wildcard")
	}
	return st, nil
}

// ValidateIP checks that ip is a literal IPv4 or IPv6 address. The trimmed
// input is returned as written, not in canonical form.
func ValidateIP(ip string) (string, error) {
	ip, err := ValidateTerm("ip", ip)
	if err != nil {
		return "", err
	}
	if _, err := netip.ParseAddr(ip); err != nil {
		return "", apierrors.NewValidationError("ip", ip, "must be an IPv4 or IPv6 address")
	}
	return ip, nil
}

// ValidateHash checks that hash is a single token
func ValidateHash(hash string) (string, error) {
	hash, err := ValidateTerm("hash", hash)
	if err != nil {
		return "", err
	}
	if strings.IndexFunc(hash, unicode.IsSpace) >= 0 {
		return "", apierrors.NewValidationError("hash", hash, "must not contain whitespace")
	}
	return hash, nil
}
