package credential

import (
	"net/url"
)

// redactedPassword replaces passwords in URIs written to logs or status text.
const redactedPassword = "xxxxx"

// ExtractPasswordFromURI extracts and removes the password from a MongoDB URI.
// Returns the clean URI (without password) and the extracted password.
func ExtractPasswordFromURI(uri string) (cleanURI, password string) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri, "" // Return original if parsing fails
	}

	if parsed.User == nil {
		return uri, ""
	}

	password, hasPassword := parsed.User.Password()
	if !hasPassword || password == "" {
		return uri, ""
	}

	parsed.User = url.User(parsed.User.Username())
	return parsed.String(), password
}

// RedactURI masks an embedded password so the URI is safe to log.
func RedactURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.User == nil {
		return uri
	}
	if _, hasPassword := parsed.User.Password(); !hasPassword {
		return uri
	}
	parsed.User = url.UserPassword(parsed.User.Username(), redactedPassword)
	return parsed.String()
}
