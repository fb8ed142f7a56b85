package http

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

const (
	topicSession = "session.events"
	queueSize    = 256
	metaEvent    = "event"
	metaSeq      = "seq"
)

// SSE event names.
const (
	EventUpload  = "upload"
	EventReady   = "ready"
	EventMessage = "message"
)

// eventBus fans session notifications out to every open event stream.
// Session listeners only enqueue; a single pump publishes, so a stalled
// stream can delay or drop events but never block the session.
type eventBus struct {
	pubSub *gochannel.GoChannel
	seq    atomic.Uint64
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan *message.Message
	done   chan struct{}
}

func newEventBus(logger *zap.Logger) *eventBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true, // keeps per-stream order
		},
		watermill.NopLogger{},
	)
	b := &eventBus{
		pubSub: pubSub,
		logger: logger,
		queue:  make(chan *message.Message, queueSize),
		done:   make(chan struct{}),
	}
	go b.pump()
	return b
}

func (b *eventBus) pump() {
	defer close(b.done)
	for msg := range b.queue {
		if err := b.pubSub.Publish(topicSession, msg); err != nil {
			b.logger.Warn("publishing event failed", zap.String("event", msg.Metadata.Get(metaEvent)), zap.Error(err))
		}
	}
}

func (b *eventBus) publish(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("encoding event failed", zap.String("event", event), zap.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metaEvent, event)
	msg.Metadata.Set(metaSeq, fmt.Sprint(b.seq.Add(1)))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- msg:
	default:
		b.logger.Warn("event queue full, dropping event", zap.String("event", event))
	}
}

func (b *eventBus) subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topicSession)
}

// close stops the pump. Closing the pub/sub first releases a publish
// stuck on a stream that never acks.
func (b *eventBus) close() error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	err := b.pubSub.Close()
	<-b.done
	return err
}

// UploadStateChanged implements usecases.IntakeListener.
func (b *eventBus) UploadStateChanged(state entities.UploadState) {
	b.publish(EventUpload, newUploadView(state))
}

// ReadyForChat implements usecases.IntakeListener.
func (b *eventBus) ReadyForChat(doc entities.Document) {
	b.publish(EventReady, documentView{
		Name:       doc.Name,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		UploadedAt: doc.UploadedAt,
	})
}

func (b *eventBus) messageAppended(msg entities.Message) {
	b.publish(EventMessage, newMessageView(msg))
}
