package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yamagen/frontdesk/internal/agents"
	"github.com/yamagen/frontdesk/internal/config"
	"github.com/yamagen/frontdesk/internal/intent"
	"github.com/yamagen/frontdesk/internal/ledger"
	"github.com/yamagen/frontdesk/internal/registry"
	"github.com/yamagen/frontdesk/pkg/models"
)

// Inbound is one user message entering the dispatcher.
type Inbound struct {
	// ConversationID identifies the conversation, and therefore the task.
	ConversationID string
	// Channel is where replies go.
	Channel string
	// Text is the raw message.
	Text string
}

// Poster delivers outbound messages to the user.
type Poster interface {
	Post(conversationID, channel, text string) error
}

// Archiver records the message exchange. The transcript store satisfies it.
type Archiver interface {
	Append(conversationID, direction, text string) error
}

// Options configures a Dispatcher. Registry, Ledger, Catalog, Executors,
// Classifier and Poster are required.
type Options struct {
	Registry   *registry.Registry
	Ledger     *ledger.Ledger
	Catalog    *agents.Catalog
	Executors  *agents.ExecutorSet
	Classifier intent.Classifier
	Poster     Poster

	// Vocab defaults to the built-in keyword sets.
	Vocab *config.Vocabulary
	// Monitor defaults to a no-op.
	Monitor Monitor
	// Archive is optional; when nil no transcript is kept.
	Archive Archiver
	// Pricing derives phase cost from token counts when an executor reports
	// tokens but no dollar figure.
	Pricing ledger.Pricing
	// PhaseTimeout bounds one executor call. Defaults to 10 minutes.
	PhaseTimeout time.Duration
	// ClassifyTimeout bounds one classifier call. Defaults to 30 seconds.
	ClassifyTimeout time.Duration
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Dispatcher routes inbound messages to the per-task state machine.
type Dispatcher struct {
	registry   *registry.Registry
	ledger     *ledger.Ledger
	catalog    *agents.Catalog
	execs      *agents.ExecutorSet
	classifier intent.Classifier
	poster     Poster
	monitor    Monitor
	archive    Archiver
	pricing    ledger.Pricing

	phaseTimeout    time.Duration
	classifyTimeout time.Duration
	now             func() time.Time

	vocabMu sync.RWMutex
	vocab   *config.Vocabulary

	// locks serializes message handling per conversation.
	locks sync.Map // conversation ID -> *sync.Mutex
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Registry == nil:
		return nil, fmt.Errorf("dispatcher requires a registry")
	case opts.Ledger == nil:
		return nil, fmt.Errorf("dispatcher requires a ledger")
	case opts.Catalog == nil:
		return nil, fmt.Errorf("dispatcher requires an agent catalog")
	case opts.Executors == nil:
		return nil, fmt.Errorf("dispatcher requires an executor set")
	case opts.Classifier == nil:
		return nil, fmt.Errorf("dispatcher requires a classifier")
	case opts.Poster == nil:
		return nil, fmt.Errorf("dispatcher requires a poster")
	}

	d := &Dispatcher{
		registry:        opts.Registry,
		ledger:          opts.Ledger,
		catalog:         opts.Catalog,
		execs:           opts.Executors,
		classifier:      opts.Classifier,
		poster:          opts.Poster,
		monitor:         opts.Monitor,
		archive:         opts.Archive,
		pricing:         opts.Pricing,
		phaseTimeout:    opts.PhaseTimeout,
		classifyTimeout: opts.ClassifyTimeout,
		now:             opts.Clock,
		vocab:           opts.Vocab,
	}
	if d.monitor == nil {
		d.monitor = NopMonitor{}
	}
	if d.vocab == nil {
		d.vocab = config.DefaultVocabulary()
	}
	if d.phaseTimeout <= 0 {
		d.phaseTimeout = 10 * time.Minute
	}
	if d.classifyTimeout <= 0 {
		d.classifyTimeout = 30 * time.Second
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// SetVocabulary swaps the keyword sets, typically from a config file watcher.
func (d *Dispatcher) SetVocabulary(v *config.Vocabulary) {
	if v == nil {
		return
	}
	d.vocabMu.Lock()
	d.vocab = v
	d.vocabMu.Unlock()
}

func (d *Dispatcher) vocabulary() *config.Vocabulary {
	d.vocabMu.RLock()
	defer d.vocabMu.RUnlock()
	return d.vocab
}

// HandleMessage processes one inbound message to completion of whatever work
// it triggers: a reply, a full phase run up to the next checkpoint, or a
// terminal transition. Messages for the same conversation serialize on a
// per-conversation lock; the caller may invoke this from many goroutines.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg Inbound) error {
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}

	lock := d.lockFor(msg.ConversationID)
	lock.Lock()
	defer lock.Unlock()

	d.record(msg.ConversationID, DirIn, msg.Text)

	task, err := d.registry.Get(msg.ConversationID)
	if err != nil {
		return d.handleNew(ctx, msg)
	}

	switch task.State.Kind {
	case models.StateConfirm:
		return d.handleConfirm(ctx, msg, task)
	case models.StateClarify:
		return d.handleClarify(ctx, msg, task)
	case models.StateReview:
		return d.handleReview(ctx, msg, task)
	case models.StateExecuting:
		// Same-conversation messages serialize on the lock, so this is only
		// reachable if an executor is driven outside HandleMessage.
		d.post(msg, busyMessage(task))
		return nil
	default:
		// Terminal or unknown states never belong in the registry. Reset the
		// conversation rather than wedging it.
		d.registry.Delete(msg.ConversationID)
		d.monitor.Remove(msg.ConversationID)
		d.post(msg, resetMessage())
		return fmt.Errorf("conversation %s had unexpected state %s", msg.ConversationID, task.State)
	}
}

func (d *Dispatcher) lockFor(conversationID string) *sync.Mutex {
	actual, _ := d.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Transcript directions.
const (
	DirIn  = "in"
	DirOut = "out"
)

// record archives a message. Archiving is best effort; a broken transcript
// store must not block conversation handling.
func (d *Dispatcher) record(conversationID, direction, text string) {
	if d.archive == nil {
		return
	}
	_ = d.archive.Append(conversationID, direction, text)
}

// post sends a reply and archives it.
func (d *Dispatcher) post(msg Inbound, text string) {
	d.record(msg.ConversationID, DirOut, text)
	if err := d.poster.Post(msg.ConversationID, msg.Channel, text); err != nil {
		d.monitor.Note(fmt.Sprintf("post to %s failed: %v", msg.ConversationID, err))
	}
}

// classify runs the intent classifier under its timeout.
func (d *Dispatcher) classify(ctx context.Context, text string) (intent.Intent, error) {
	cctx, cancel := context.WithTimeout(ctx, d.classifyTimeout)
	defer cancel()
	return d.classifier.Classify(cctx, text)
}
