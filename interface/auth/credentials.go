package auth

import (
	"fmt"
	"os"
	"strings"
)

// Credentials of one service account.
// The fields are unexported so the password can neither be logged nor serialized.
type Credentials struct {
	username string
	password string
}

// NewCredentials creates credentials from a username/password pair
func NewCredentials(username, password string) Credentials {
	return Credentials{username: username, password: password}
}

// Username of the account
func (c Credentials) Username() string {
	return c.username
}

// Empty returns whether the credentials are unset
func (c Credentials) Empty() bool {
	return c.username == "" && c.password == ""
}

// CredentialsFromEnv reads the credentials of the service from the
// <SERVICE>_USERNAME and <SERVICE>_PASSWORD environment variables.
func CredentialsFromEnv(serviceID string) (Credentials, error) {
	prefix := strings.ToUpper(serviceID)
	username, password := os.Getenv(prefix+"_USERNAME"), os.Getenv(prefix+"_PASSWORD")
	if username == "" {
		return Credentials{}, fmt.Errorf("CredentialsFromEnv: missing environment variable %s_USERNAME", prefix)
	}
	if password == "" {
		return Credentials{}, fmt.Errorf("CredentialsFromEnv: missing environment variable %s_PASSWORD", prefix)
	}
	return Credentials{username: username, password: password}, nil
}
