package catalog

import "strings"

// FixBareEmail completes an address without a domain: "jdoe@" and "jdoe" both become
// "jdoe@<domain>". Complete addresses and empty input are returned trimmed.
func FixBareEmail(email, domain string) string {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return email
	case strings.HasSuffix(email, "@"):
		return email + domain
	case !strings.Contains(email, "@"):
		return email + "@" + domain
	}
	return email
}
