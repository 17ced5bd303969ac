package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/feedback"
	"github.com/ayusman/gymbro/internal/pose"
)

// Processor analyzes one frame. It must be safe for concurrent use.
type Processor interface {
	Process(frame pose.Frame) exercise.Result
}

// Bridge consumes frames from the frames subject, runs them through a
// Processor and publishes each result on the results subject. When the frame
// message carries a reply subject the result is also sent there.
type Bridge struct {
	conn     Conn
	proc     Processor
	subjects Subjects

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewBridge creates a Bridge. Call Start to begin consuming.
func NewBridge(conn Conn, proc Processor, subjects Subjects) *Bridge {
	return &Bridge{
		conn:     conn,
		proc:     proc,
		subjects: subjects,
	}
}

// Start subscribes to the frames subject.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, err := b.conn.Subscribe(b.subjects.Frames, b.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subjects.Frames, err)
	}
	b.sub = sub

	log.WithFields(log.Fields{
		"frames":  b.subjects.Frames,
		"results": b.subjects.Results,
	}).Info("nats bridge running")
	return nil
}

// Stop unsubscribes from the frames subject.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub == nil {
		return nil
	}
	err := b.sub.Unsubscribe()
	b.sub = nil
	return err
}

func (b *Bridge) handle(msg *nats.Msg) {
	frame, err := pose.ParseFrame(msg.Data)
	if err != nil {
		log.WithField("subject", msg.Subject).Warnf("dropping frame: %v", err)
		return
	}

	result := b.proc.Process(frame)

	data, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to encode result: %v", err)
		return
	}

	if err := b.conn.Publish(b.subjects.Results, data); err != nil {
		log.WithField("subject", b.subjects.Results).Warnf("publish failed: %v", err)
	}
	if msg.Reply != "" {
		if err := b.conn.Publish(msg.Reply, data); err != nil {
			log.WithField("subject", msg.Reply).Warnf("reply failed: %v", err)
		}
	}
}

// FeedbackPublisher is a feedback sink that publishes events as JSON.
type FeedbackPublisher struct {
	conn    Conn
	subject string
}

// NewFeedbackPublisher creates a sink publishing to subject.
func NewFeedbackPublisher(conn Conn, subject string) *FeedbackPublisher {
	return &FeedbackPublisher{conn: conn, subject: subject}
}

// Notify publishes ev.
func (p *FeedbackPublisher) Notify(_ context.Context, ev feedback.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return p.conn.Publish(p.subject, data)
}

var _ feedback.Sink = (*FeedbackPublisher)(nil)
