package auth

import (
	"net/url"

	"github.com/pkg/errors"
)

const (
	DefaultDisplayName = "Guest"
	DefaultEmail       = "Unknown"
)

// Identity is what the identity provider hands back on the return redirect.
// It is read once when a Session Screen mounts and never changes afterwards.
type Identity struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	UserID      string `json:"sub"`
}

// FromQuery reads name, email and sub from the return-redirect query.
// Missing or empty values fall back to their defaults; nothing is validated.
func FromQuery(q url.Values) Identity {
	return Identity{
		DisplayName: valueOr(q, "name", DefaultDisplayName),
		Email:       valueOr(q, "email", DefaultEmail),
		UserID:      valueOr(q, "sub", ""),
	}
}

// FromURL extracts the identity from a full return-redirect URL.
func FromURL(raw string) (Identity, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Identity{}, errors.Wrap(err, "parse return url")
	}
	return FromQuery(u.Query()), nil
}

// Guest reports whether the identity carries no user id.
func (i Identity) Guest() bool {
	return i.UserID == ""
}

func valueOr(q url.Values, key, fallback string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return fallback
}
