package jobs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Ananth-NQI/personbot/internal/services"
)

// UpdateSource delivers batches of chat updates
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]services.Update, int64, error)
}

// UpdateHandler turns one update into at most one reply
type UpdateHandler interface {
	Handle(update services.Update) (*services.Reply, error)
}

// TelegramPoller long-polls the Bot API and feeds updates, one at a time and
// in arrival order, to the conversation handler
type TelegramPoller struct {
	source      UpdateSource
	sink        services.ReplySink
	handler     UpdateHandler
	pollTimeout time.Duration
	retryDelay  time.Duration

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewTelegramPoller creates a poller; call Start to begin polling
func NewTelegramPoller(source UpdateSource, sink services.ReplySink, handler UpdateHandler, pollTimeout time.Duration) *TelegramPoller {
	return &TelegramPoller{
		source:      source,
		sink:        sink,
		handler:     handler,
		pollTimeout: pollTimeout,
		retryDelay:  time.Second,
	}
}

// Start begins polling in the background
func (p *TelegramPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		log.Println("Telegram poller already running")
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.isRunning = true

	log.Println("Starting Telegram poller...")
	go p.run(pollCtx, p.done)
}

// Stop halts polling and waits for the in-flight update to finish
func (p *TelegramPoller) Stop() {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return
	}
	p.isRunning = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	log.Println("Stopping Telegram poller...")
	cancel()
	<-done
}

func (p *TelegramPoller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		updates, next, err := p.source.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("⚠️  Telegram getUpdates failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}
		offset = next

		for _, update := range updates {
			p.processUpdate(ctx, update)
		}
	}
}

// processUpdate is the top-level error handler: failures are logged and the
// operator gets a generic apology
func (p *TelegramPoller) processUpdate(ctx context.Context, update services.Update) {
	reply, err := p.handler.Handle(update)
	if err != nil {
		log.Printf("❌ Update %d from chat %s failed: %v", update.UpdateID, update.ChatID, err)
		reply = services.FailureReply()
	}
	if reply == nil {
		return
	}
	if err := p.sink.SendReply(ctx, update.ChatID, reply); err != nil {
		log.Printf("❌ Failed to send Telegram reply to %s: %v", update.ChatID, err)
	}
}
