// Package session orchestrates one logical conversation: it routes inbound
// frames through the VAD gate and the utterance assembler, invokes the intent
// resolver on completed utterances, and commits results through the control
// state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/audio"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/resolver"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/store"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/utterance"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/vad"
)

var (
	// ErrOutOfOrder is returned for frames whose sequence index does not
	// advance; the frame is rejected and assembly is unaffected.
	ErrOutOfOrder = errors.New("frame out of order")
	// ErrSessionClosed is returned once a session has been torn down.
	ErrSessionClosed = errors.New("session closed")
	// ErrResolver wraps resolver failures and timeouts. The caller may retry
	// the utterance; this pipeline never retries on its own to avoid
	// double-committing a control change.
	ErrResolver = errors.New("resolver failure")
)

// Config tunes one session's pipeline.
type Config struct {
	VAD             vad.Config
	Assembler       utterance.Config
	ResolverTimeout time.Duration
	MinConfidence   float64
	// HistoryWindow bounds how many recent turns ride along on resolver calls.
	HistoryWindow int
	// LanguageCode is optional; empty lets the resolver auto-detect.
	LanguageCode string
}

// DefaultConfig mirrors the production tuning.
func DefaultConfig() Config {
	return Config{
		VAD:             vad.DefaultConfig(),
		Assembler:       utterance.DefaultConfig(),
		ResolverTimeout: 20 * time.Second,
		MinConfidence:   0.25,
		HistoryWindow:   16,
	}
}

// Chunk is one inbound audio delivery.
type Chunk struct {
	Seq     uint32
	Samples []int16
	// Final triggers an implicit flush after the samples are absorbed.
	Final bool
}

// Result is what the caller (transport/UI) sees after each chunk.
type Result struct {
	PWM          int    `json:"currentControlValue"`
	Response     string `json:"latestResponseText"`
	TurnAppended bool   `json:"turnAppended"`
	HistoryLen   int    `json:"sessionHistoryLength"`
}

// Coordinator owns exactly one assembler and one session state. All work for
// a session is serialized on its mutex: frames arriving while a resolver call
// is outstanding queue behind the lock and are applied, in order, only after
// the in-flight commit resolves. Distinct sessions share nothing.
type Coordinator struct {
	id  string
	cfg Config
	res resolver.Resolver
	st  store.Store // optional, best-effort write-behind

	closed atomic.Bool

	mu        sync.Mutex
	gate      *vad.Gate
	asm       *utterance.Assembler
	state     control.State
	lastSeq   uint32
	seenFrame bool
	lastReply string
}

func newCoordinator(id string, initial control.State, res resolver.Resolver, st store.Store, cfg Config) *Coordinator {
	return &Coordinator{
		id:    id,
		cfg:   cfg,
		res:   res,
		st:    st,
		gate:  vad.NewGate(cfg.VAD),
		asm:   utterance.New(cfg.Assembler),
		state: initial,
	}
}

// ID returns the session identifier.
func (c *Coordinator) ID() string { return c.id }

// HandleChunk processes one frame end to end. Sequence indexes must strictly
// increase; duplicates and reordered frames are rejected, not reordered — an
// ordered transport is assumed beneath this API.
func (c *Coordinator) HandleChunk(ctx context.Context, chunk Chunk) (Result, error) {
	if c.closed.Load() {
		return Result{}, ErrSessionClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seenFrame && chunk.Seq <= c.lastSeq {
		return c.snapshot(), fmt.Errorf("%w: seq %d after %d", ErrOutOfOrder, chunk.Seq, c.lastSeq)
	}
	c.lastSeq = chunk.Seq
	c.seenFrame = true

	ev := utterance.Event{Kind: utterance.Continuing}
	if len(chunk.Samples) > 0 {
		frame := audio.Frame{Seq: chunk.Seq, Samples: chunk.Samples}
		voiced := c.gate.Classify(frame)
		ev = c.asm.Feed(frame, voiced)
	}
	if chunk.Final && ev.Kind != utterance.Completed {
		ev = c.asm.Flush()
	}

	switch ev.Kind {
	case utterance.Completed:
		return c.resolveAndCommit(ctx, ev.Utterance)
	case utterance.TimedOutEmpty:
		// silence-only; short-circuit without the resolver, no turn appended
		r := c.snapshot()
		r.Response = control.NoSpeech().Response
		return r, nil
	default:
		return c.snapshot(), nil
	}
}

// Flush force-completes any in-progress utterance (end of session or forced
// cutoff) and runs the usual resolution path.
func (c *Coordinator) Flush(ctx context.Context) (Result, error) {
	if c.closed.Load() {
		return Result{}, ErrSessionClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := c.asm.Flush()
	if ev.Kind == utterance.Completed {
		return c.resolveAndCommit(ctx, ev.Utterance)
	}
	r := c.snapshot()
	r.Response = control.NoSpeech().Response
	return r, nil
}

// resolveAndCommit is the sole blocking step. It runs with the session mutex
// held so no newer frame can race the in-flight decision. Commit is
// all-or-nothing: any failure leaves state exactly as it was.
func (c *Coordinator) resolveAndCommit(ctx context.Context, u *utterance.Utterance) (Result, error) {
	if u.VoicedFrames == 0 {
		r := c.snapshot()
		r.Response = control.NoSpeech().Response
		return r, nil
	}

	req := resolver.Request{
		Audio:        u.PCM16LE(),
		SampleRate:   audio.SampleRate,
		LanguageCode: c.cfg.LanguageCode,
		CurrentPWM:   c.state.PWM,
		History:      resolver.HistoryFromTurns(c.state.RecentTurns(c.cfg.HistoryWindow)),
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.ResolverTimeout)
	defer cancel()
	resp, err := c.res.Resolve(rctx, req)

	if c.closed.Load() {
		// torn down while the call was outstanding: discard the result,
		// never mutate state for a dead session
		return Result{}, ErrSessionClosed
	}
	if err != nil {
		return c.snapshot(), fmt.Errorf("%w: %v", ErrResolver, err)
	}

	next, turn := control.Commit(resp.Outcome(), c.state, c.cfg.MinConfidence)
	c.state = next
	c.lastReply = turn.Reply
	c.persist(next)

	return Result{
		PWM:          next.PWM,
		Response:     turn.Reply,
		TurnAppended: true,
		HistoryLen:   len(next.Turns),
	}, nil
}

// persist writes the committed state behind the commit, best-effort.
func (c *Coordinator) persist(state control.State) {
	if c.st == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.st.Save(ctx, state); err != nil {
			log.Printf("[%s] persist failed: %v", state.SessionID, err)
		}
	}()
}

func (c *Coordinator) snapshot() Result {
	return Result{
		PWM:        c.state.PWM,
		Response:   c.lastReply,
		HistoryLen: len(c.state.Turns),
	}
}

// State returns a copy of the current session state.
func (c *Coordinator) State() control.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := c.state
	cp.Turns = make([]control.Turn, len(c.state.Turns))
	copy(cp.Turns, c.state.Turns)
	return cp
}

// Reset returns the control value to rest without touching history.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = control.Reset(c.state)
	c.persist(c.state)
}

// Close tears the session down. An outstanding resolver call is allowed to
// complete but its result is discarded.
func (c *Coordinator) Close() {
	c.closed.Store(true)
}
