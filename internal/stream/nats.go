// Package stream bridges the analysis engine onto NATS subjects.
package stream

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Connect dials a NATS server and keeps reconnecting forever once connected.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("gymbro"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Conn is the subset of *nats.Conn used by this package.
type Conn interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subj string, data []byte) error
}

// Subjects names the subjects the bridge reads from and writes to.
type Subjects struct {
	Frames   string
	Results  string
	Feedback string
}
