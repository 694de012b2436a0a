// Package engine runs the podcfgd settings pipeline. Every settings change
// goes through one goroutine that merges it over the stored overrides,
// resolves it against the defaults, renders the Prosody configuration,
// installs it, persists the overrides and only then publishes the new state.
// Readers get the published state through an atomic pointer and never block
// on an update in progress.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/lc/podcfg/internal/dialect"
	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/log"
	"github.com/lc/podcfg/internal/podconfig"
	"github.com/lc/podcfg/internal/prosody"
	"github.com/lc/podcfg/internal/store"
)

const (
	// DefaultReconcileInterval is how often the installed file is checked
	// against the published state and rewritten if it was edited by hand.
	DefaultReconcileInterval = time.Minute
	_commandBufferSize       = 10
)

var (
	// ErrNotRunning is returned for requests made before Run or after Close.
	ErrNotRunning = errors.New("engine not running")
	// ErrStatic is returned when the deployment sections cannot be built for
	// the requested domain.
	ErrStatic = errors.New("invalid deployment sections")
)

// StaticFunc builds the deployment sections for the pod domain.
type StaticFunc func(domain jid.Domain) (dialect.Static, error)

// State is a published, applied configuration.
type State struct {
	Revision  string
	UpdatedAt time.Time
	Overrides podconfig.Overrides
	Entity    podconfig.Entity

	text []byte
}

// Status summarizes the engine's activity.
type Status struct {
	Revision  string
	UpdatedAt time.Time
	Applies   int64
	Failures  int64
	Reloads   int64
	LastError string
}

// Engine serializes settings updates.
type Engine struct {
	defaults  podconfig.Entity
	emitter   *dialect.Emitter
	static    StaticFunc
	store     store.Store
	mgr       prosody.Manager
	reconcile time.Duration
	now       func() time.Time

	state     atomic.Pointer[State]
	applies   atomic.Int64
	failures  atomic.Int64
	reloads   atomic.Int64
	lastError atomic.String

	cmdChan  chan command
	done     chan struct{}
	wg       sync.WaitGroup
	cancelFn context.CancelFunc
}

// Opt configures an Engine.
type Opt func(e *Engine)

// WithDefaults replaces podconfig.Defaults as the default table.
func WithDefaults(d podconfig.Entity) Opt {
	return func(e *Engine) { e.defaults = d }
}

// WithEmitter replaces the default dialect emitter.
func WithEmitter(em *dialect.Emitter) Opt {
	return func(e *Engine) { e.emitter = em }
}

// WithReconcileInterval sets how often the installed file is re-checked.
// Zero disables the check.
func WithReconcileInterval(d time.Duration) Opt {
	return func(e *Engine) { e.reconcile = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Opt {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine. Call Run before sending updates.
func New(st store.Store, mgr prosody.Manager, static StaticFunc, opts ...Opt) *Engine {
	e := &Engine{
		defaults:  podconfig.Defaults(),
		emitter:   dialect.New(),
		static:    static,
		store:     st,
		mgr:       mgr,
		reconcile: DefaultReconcileInterval,
		now:       time.Now,
		cmdChan:   make(chan command, _commandBufferSize),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run loads the stored overrides, installs the configuration they describe
// and starts the background loops. It fails if the stored overrides no
// longer resolve or render.
func (e *Engine) Run(ctx context.Context) error {
	rec, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	next, err := e.build(rec.Overrides)
	if err != nil {
		return fmt.Errorf("stored settings: %w", err)
	}
	next.Revision = rec.Revision
	next.UpdatedAt = rec.UpdatedAt
	if next.Revision == "" {
		next.Revision = uuid.NewString()
		next.UpdatedAt = e.now()
	}

	if err := e.install(ctx, next.text); err != nil {
		// The server keeps its current file; the next reconcile retries.
		log.Warn("engine: initial apply failed", "error", err)
	}
	e.state.Store(next)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancelFn = cancel
	e.wg.Add(2)
	go e.runLoop(runCtx)
	go e.runTicker(runCtx)

	log.Info("engine: started", "revision", next.Revision, "domain", next.Entity.Domain.String())
	return nil
}

// Close stops the background loops.
func (e *Engine) Close() {
	if e.cancelFn != nil {
		e.cancelFn()
	}
	e.wg.Wait()
	log.Info("engine: stopped")
}

// Current returns the published state, nil before Run.
func (e *Engine) Current() *State {
	return e.state.Load()
}

// Status returns counters and the published revision.
func (e *Engine) Status() Status {
	st := Status{
		Applies:   e.applies.Load(),
		Failures:  e.failures.Load(),
		Reloads:   e.reloads.Load(),
		LastError: e.lastError.Load(),
	}
	if cur := e.state.Load(); cur != nil {
		st.Revision = cur.Revision
		st.UpdatedAt = cur.UpdatedAt
	}
	return st
}

// Update merges patch over the stored overrides and applies the result.
// On error the published state is unchanged.
func (e *Engine) Update(ctx context.Context, patch podconfig.Overrides) (*State, error) {
	return e.send(ctx, updateCmd{patch: patch})
}

// Reset drops every override and applies the defaults.
func (e *Engine) Reset(ctx context.Context) (*State, error) {
	return e.send(ctx, updateCmd{reset: true})
}

func (e *Engine) send(ctx context.Context, cmd updateCmd) (*State, error) {
	select {
	case <-e.done:
		return nil, ErrNotRunning
	default:
	}
	if e.state.Load() == nil {
		return nil, ErrNotRunning
	}

	cmd.reply = make(chan updateResult, 1)
	select {
	case e.cmdChan <- cmd:
	case <-e.done:
		return nil, ErrNotRunning
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-cmd.reply:
		return r.state, r.err
	case <-ctx.Done():
		// The update still runs to completion in the loop.
		return nil, ctx.Err()
	}
}

func (e *Engine) runLoop(ctx context.Context) {
	defer e.wg.Done()
	defer close(e.done)

	for {
		select {
		case cmd := <-e.cmdChan:
			switch c := cmd.(type) {
			case updateCmd:
				st, err := e.handleUpdate(ctx, c)
				c.reply <- updateResult{state: st, err: err}
			case reconcileCmd:
				e.handleReconcile(ctx)
			default:
				log.Warnf("engine: unknown command type %T", cmd)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) runTicker(ctx context.Context) {
	defer e.wg.Done()
	if e.reconcile <= 0 {
		return
	}

	ticker := time.NewTicker(e.reconcile)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case e.cmdChan <- reconcileCmd{}:
			case <-ctx.Done():
				return
			default:
				log.Debug("engine: command queue full, skipping reconcile")
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleUpdate runs only inside runLoop.
func (e *Engine) handleUpdate(ctx context.Context, cmd updateCmd) (*State, error) {
	cur := e.state.Load()

	merged := podconfig.Overrides{}
	if !cmd.reset {
		merged = cur.Overrides.Merge(cmd.patch)
	}

	next, err := e.build(merged)
	if err != nil {
		return nil, e.fail(err)
	}
	next.Revision = uuid.NewString()
	next.UpdatedAt = e.now()

	if err := e.install(ctx, next.text); err != nil {
		e.rollback(ctx, cur)
		return nil, e.fail(err)
	}

	rec := store.Record{Revision: next.Revision, UpdatedAt: next.UpdatedAt, Overrides: next.Overrides}
	if err := e.store.Save(rec); err != nil {
		e.rollback(ctx, cur)
		return nil, e.fail(fmt.Errorf("saving settings: %w", err))
	}

	e.state.Store(next)
	e.lastError.Store("")
	log.Info("engine: settings applied", "revision", next.Revision, "reset", cmd.reset)
	return next, nil
}

func (e *Engine) handleReconcile(ctx context.Context) {
	cur := e.state.Load()
	if err := e.install(ctx, cur.text); err != nil {
		e.failures.Inc()
		e.lastError.Store(err.Error())
		log.Warn("engine: reconcile failed", "error", err)
	}
}

// build resolves and renders o without side effects.
func (e *Engine) build(o podconfig.Overrides) (*State, error) {
	ent, err := podconfig.Resolve(e.defaults, o)
	if err != nil {
		return nil, err
	}
	static, err := e.static(ent.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatic, err)
	}
	text, err := e.emitter.Render(ent, static)
	if err != nil {
		return nil, err
	}
	return &State{Overrides: podconfig.Overrides{}.Merge(o), Entity: ent, text: text}, nil
}

func (e *Engine) install(ctx context.Context, text []byte) error {
	res, err := e.mgr.Apply(ctx, text)
	if res.Changed {
		e.applies.Inc()
	}
	if res.Reloaded {
		e.reloads.Inc()
	}
	return err
}

// rollback puts the previously published file back after a failed update.
func (e *Engine) rollback(ctx context.Context, prev *State) {
	if err := e.install(ctx, prev.text); err != nil {
		log.Error("engine: rollback failed", "revision", prev.Revision, "error", err)
	}
}

func (e *Engine) fail(err error) error {
	e.failures.Inc()
	e.lastError.Store(err.Error())
	log.Warn("engine: settings update rejected", "error", err)
	return err
}

type command interface {
	isCommand()
}

type updateCmd struct {
	patch podconfig.Overrides
	reset bool
	reply chan updateResult
}

func (updateCmd) isCommand() {}

type updateResult struct {
	state *State
	err   error
}

type reconcileCmd struct{}

func (reconcileCmd) isCommand() {}
