// Package domain validates the DNS identifiers accepted on the issue
// command line.
package domain

import "fmt"

// Validate reports an error if s is not an acceptable DNS identifier:
// every character must be in [A-Za-z0-9._-], "." may not appear first,
// "*" is only allowed as the exact two-character prefix "*.", and the
// name must contain at least one character that isn't a separator.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("empty name is not allowed")
	}

	var significant int
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if i == 0 {
				return fmt.Errorf("%q: '.' not allowed at beginning", s)
			}
		case c == '_' || c == '-':
			significant++
		case c == '*':
			if i != 0 || len(s) < 2 || s[1] != '.' {
				return fmt.Errorf("%q: '*.' only allowed at beginning", s)
			}
		case isAlphaNumeric(c):
			significant++
		default:
			return fmt.Errorf("%q: invalid character %q", s, c)
		}
	}

	if significant == 0 {
		return fmt.Errorf("empty name is not allowed")
	}
	return nil
}

func isAlphaNumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// StripWildcard removes a leading "*." prefix from s, if present,
// returning the bare domain name used as the certificate's primary
// subject.
func StripWildcard(s string) string {
	if len(s) > 2 && s[0] == '*' && s[1] == '.' {
		return s[2:]
	}
	return s
}
