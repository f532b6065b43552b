// Package sessionid generates a short, globally-distinguishing tag for a
// client.Session, for use as a log-line prefix and a metrics label when a
// single process holds several sessions open at once.
//
// Tag generation is delegated to xid, the same globally-unique ID library
// used to label a connection for export in the exporter's ConnState
// handler: this is the same role, a short opaque label attached to a
// logical connection for observability.
package sessionid

import "github.com/rs/xid"

// New returns a tag unique across processes and time, suitable as a log
// prefix or metrics label for one client.Session.
func New() string {
	return xid.New().String()
}
