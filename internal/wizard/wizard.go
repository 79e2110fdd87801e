// Package wizard implements the step-graph interpreter that drives every
// multi-step interaction: guided data entry with single-step back
// navigation, per-step validation, and draft accumulation.
//
// A wizard is a directed path graph of named steps. Each step declares a
// prompt, an accept function, a successor and a predecessor. The engine
// owns the transition algorithm; wizards are pure data.
package wizard

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// Draft is the partially-accumulated set of field values for a record
// under construction. It belongs to exactly one session.
type Draft map[string]interface{}

// Input is one user event fed to the engine.
type Input struct {
	Text     string
	PhotoRef string // non-empty for photo inputs
}

// Rejection explains why a step did not accept an input.
type Rejection struct {
	Reason string
}

// AcceptFunc validates an input for a step. It returns the value to merge
// into the draft, or a rejection that re-renders the step unchanged.
type AcceptFunc func(in Input, d Draft) (interface{}, *Rejection)

// Step is one node of a wizard's step graph.
type Step struct {
	Name   string
	Field  string              // draft key for the accepted value
	Prompt func(d Draft) string
	Accept AcceptFunc

	// NextName is the static successor; Next, when set, computes it from
	// the draft instead (the find wizard branches on record kind this
	// way). An empty successor means the terminal commit pseudo-step.
	NextName string
	Next     func(d Draft) string

	// Prev is the predecessor reached by the back signal. Empty at the
	// first step, where back exits the wizard and discards the draft.
	// PrevFn, when set, computes the predecessor from the draft instead
	// (needed after a branch, where the predecessor depends on the path
	// taken).
	Prev   string
	PrevFn func(d Draft) string

	// Keyboard rows offered with the prompt (closed-set steps list their
	// options here). Nil keeps the current keyboard.
	Keyboard [][]string

	// Repeatable marks the photo-collection step: a photo input is
	// appended under Field (bounded by MaxRepeat) and the step
	// re-prompts; any non-photo input completes the step.
	Repeatable   bool
	MaxRepeat    int
	RepeatAck    string // fmt pattern with (count, max), e.g. "Фото добавлено (%d/%d)"
	RepeatReject string // shown when the cap is already reached
}

// Handoff names a follow-up wizard started right after a commit, seeded
// with draft values (my-records uses it to chain into the edit wizards).
type Handoff struct {
	Wizard *Wizard
	Seed   Draft
}

// CommitResult is what a wizard's commit function produces on success.
type CommitResult struct {
	Text string   // completion message
	Next *Handoff // optional follow-up wizard
}

// CommitFunc persists the assembled draft. It runs exactly once, at the
// terminal step; the session is cleared whether or not it fails.
type CommitFunc func(ctx context.Context, userID int64, d Draft) (CommitResult, error)

// Wizard is a declarative multi-step flow.
type Wizard struct {
	Name     string
	Start    string
	Steps    map[string]*Step
	Commit   CommitFunc
	ExitText string // rendered when back at the first step discards the draft
	FailText string // rendered when commit fails
}

// Validate checks the step graph for dangling references. Wizards are
// static data, so this is called once at wiring time.
func (w *Wizard) Validate() error {
	if w.Start == "" || w.Steps[w.Start] == nil {
		return fmt.Errorf("wizard %s: missing start step %q", w.Name, w.Start)
	}
	if w.Commit == nil {
		return fmt.Errorf("wizard %s: commit is required", w.Name)
	}
	names := make([]string, 0, len(w.Steps))
	for name := range w.Steps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := w.Steps[name]
		if s.NextName != "" && w.Steps[s.NextName] == nil {
			return fmt.Errorf("wizard %s: step %s: unknown successor %q", w.Name, name, s.NextName)
		}
		if s.Prev != "" && w.Steps[s.Prev] == nil {
			return fmt.Errorf("wizard %s: step %s: unknown predecessor %q", w.Name, name, s.Prev)
		}
	}
	return nil
}

// Result is what the engine renders back to the user after one input.
type Result struct {
	Text     string
	Keyboard [][]string
	Done     bool // the session ended (commit or exit)
	Exited   bool // ended via back at the first step, draft discarded
}

// Engine interprets wizards against the session store. One engine serves
// all users; sessions are fully independent per user identity.
type Engine struct {
	sessions *SessionStore
	backText string
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	Sessions *SessionStore
	BackText string // the literal back signal, e.g. "⬅️ Назад"
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("wizard: engine: session store is required")
	}
	if opts.BackText == "" {
		return nil, fmt.Errorf("wizard: engine: back text is required")
	}
	return &Engine{
		sessions: opts.Sessions,
		backText: opts.BackText,
	}, nil
}

// Active reports whether the user has a wizard session in progress.
func (e *Engine) Active(userID int64) bool {
	_, ok := e.sessions.Get(userID)
	return ok
}

// Start begins a wizard run for the user, discarding any session already
// in progress, and renders the first step's prompt. The seed pre-fills
// draft fields (record ids for the edit flows).
func (e *Engine) Start(userID int64, w *Wizard, seed Draft) Result {
	draft := Draft{}
	for k, v := range seed {
		draft[k] = v
	}
	sess := e.sessions.Put(userID, w, w.Start, draft)
	return e.render(w.Steps[w.Start], sess.Draft, "")
}

// Handle feeds one input to the user's session. The second return value
// is false when no session is active, leaving routing to the caller.
//
// Transition rules, in order: the back signal moves to the predecessor
// (or exits at the first step); on a repeatable step a photo input
// appends and re-prompts while any other input completes the step; an
// accepted value merges into the draft and advances; a rejected input
// re-renders the same step with the reason. Reaching the terminal
// successor commits the draft and clears the session either way.
func (e *Engine) Handle(ctx context.Context, userID int64, in Input) (Result, bool) {
	sess, ok := e.sessions.Get(userID)
	if !ok {
		return Result{}, false
	}
	w := sess.Wizard
	step := w.Steps[sess.State]
	e.sessions.Touch(userID)

	// Back signal.
	if in.Text == e.backText {
		prev := step.Prev
		if step.PrevFn != nil {
			prev = step.PrevFn(sess.Draft)
		}
		if prev == "" {
			e.sessions.Delete(userID)
			return Result{Text: w.ExitText, Done: true, Exited: true}, true
		}
		sess.State = prev
		return e.renderBack(w.Steps[prev], sess.Draft), true
	}

	// Repeatable (photo) step.
	if step.Repeatable {
		if in.PhotoRef != "" {
			refs, _ := sess.Draft[step.Field].([]string)
			max := step.MaxRepeat
			if max <= 0 {
				max = 1
			}
			if len(refs) >= max {
				// Over the cap: reject, no state change.
				return Result{Text: step.RepeatReject}, true
			}
			refs = append(refs, in.PhotoRef)
			sess.Draft[step.Field] = refs
			return Result{Text: fmt.Sprintf(step.RepeatAck, len(refs), max)}, true
		}
		// Any non-photo input completes the step.
		return e.advance(ctx, userID, sess, step), true
	}

	// Ordinary step: validate and merge.
	value, rej := step.Accept(in, sess.Draft)
	if rej != nil {
		return e.render(step, sess.Draft, rej.Reason), true
	}
	sess.Draft[step.Field] = value
	return e.advance(ctx, userID, sess, step), true
}

// Abort discards the user's session without committing.
func (e *Engine) Abort(userID int64) {
	e.sessions.Delete(userID)
}

// advance moves the session to the step's successor, committing when the
// successor is the terminal pseudo-step.
func (e *Engine) advance(ctx context.Context, userID int64, sess *Session, step *Step) Result {
	w := sess.Wizard
	successor := step.NextName
	if step.Next != nil {
		successor = step.Next(sess.Draft)
	}

	if successor == "" {
		return e.commit(ctx, userID, sess)
	}

	sess.State = successor
	return e.render(w.Steps[successor], sess.Draft, "")
}

// commit invokes the wizard's commit function and clears the session.
// The session is cleared even when the commit fails: the wizard does not
// retry, the user restarts.
func (e *Engine) commit(ctx context.Context, userID int64, sess *Session) Result {
	w := sess.Wizard
	e.sessions.Delete(userID)

	res, err := w.Commit(ctx, userID, sess.Draft)
	if err != nil {
		log.Printf("wizard: %s: commit for user %d: %v", w.Name, userID, err)
		return Result{Text: w.FailText, Done: true}
	}

	out := Result{Text: res.Text, Done: true}
	if res.Next != nil {
		started := e.Start(userID, res.Next.Wizard, res.Next.Seed)
		out.Done = false
		out.Text = res.Text + "\n\n" + started.Text
		out.Keyboard = started.Keyboard
	}
	return out
}

// render builds the prompt for a step; a rejection reason is prefixed as
// an error annotation.
func (e *Engine) render(step *Step, d Draft, reason string) Result {
	text := step.Prompt(d)
	if reason != "" {
		text = "⚠️ " + reason + "\n\n" + text
	}
	return Result{Text: text, Keyboard: step.Keyboard}
}

// renderBack builds the prompt for a step reached via back navigation,
// appending the previously-entered value for its field as context.
func (e *Engine) renderBack(step *Step, d Draft) Result {
	text := step.Prompt(d)
	if prev, ok := d[step.Field].(string); ok && prev != "" {
		text += fmt.Sprintf("\n(текущее значение: %s)", prev)
	}
	return Result{Text: text, Keyboard: step.Keyboard}
}
