package sink

import "github.com/rs/xid"

// newTag returns a new opaque instance tag, assigned once per Sink at
// construction. It carries no meaning beyond uniqueness.
func newTag() string {
	return xid.New().String()
}
