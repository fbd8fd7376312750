package session

import "github.com/google/uuid"

// newSessionID mints an opaque session identifier. Sessions are
// reconnect-addressable by this value, so it must be unguessable enough to
// not be worth enumerating, which is why it's a random v4 UUID rather than
// a counter (grounded on the saisudhir14 backend's use of google/uuid for
// resource IDs).
func newSessionID() string {
	return uuid.NewString()
}
