package utils

import (
	"net/url"
	"strings"
)

// BuildURL joins base and path and appends the encoded query, if any.
// Keys with empty values are kept, so user_id= survives for guests.
func BuildURL(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// UserQuery returns the user_id query used by every user-scoped backend route.
func UserQuery(userID string) url.Values {
	return url.Values{"user_id": {userID}}
}
