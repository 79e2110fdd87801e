package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const testBack = "⬅️ Назад"

// newTestEngine builds an engine over a fresh session store.
func newTestEngine(t *testing.T) (*Engine, *SessionStore) {
	t.Helper()
	sessions := NewSessionStore()
	engine, err := NewEngine(EngineOpts{Sessions: sessions, BackText: testBack})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, sessions
}

// linearWizard is a three-step path: name → city → commit. Commits are
// recorded into got.
func linearWizard(got *Draft) *Wizard {
	return &Wizard{
		Name:     "linear",
		Start:    "name",
		ExitText: "exited",
		FailText: "failed",
		Steps: map[string]*Step{
			"name": {
				Name:     "name",
				Field:    "name",
				Prompt:   func(Draft) string { return "Your name?" },
				Accept:   NonEmpty("name must not be empty"),
				NextName: "city",
			},
			"city": {
				Name:   "city",
				Field:  "city",
				Prompt: func(Draft) string { return "Your city?" },
				Accept: NonEmpty("city must not be empty"),
				Prev:   "name",
			},
		},
		Commit: func(_ context.Context, _ int64, d Draft) (CommitResult, error) {
			copied := Draft{}
			for k, v := range d {
				copied[k] = v
			}
			*got = copied
			return CommitResult{Text: "done"}, nil
		},
	}
}

func TestNewEngine_Validation(t *testing.T) {
	if _, err := NewEngine(EngineOpts{BackText: "x"}); err == nil {
		t.Fatal("expected error for nil session store")
	}
	if _, err := NewEngine(EngineOpts{Sessions: NewSessionStore()}); err == nil {
		t.Fatal("expected error for empty back text")
	}
}

func TestWizardValidate(t *testing.T) {
	var got Draft
	w := linearWizard(&got)
	if err := w.Validate(); err != nil {
		t.Fatalf("valid wizard rejected: %v", err)
	}

	w.Steps["name"].NextName = "nowhere"
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for dangling successor")
	}
}

func TestEngine_LinearFlow(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := linearWizard(&got)

	res := engine.Start(7, w, nil)
	if res.Text != "Your name?" {
		t.Fatalf("start prompt = %q", res.Text)
	}

	res, ok := engine.Handle(context.Background(), 7, Input{Text: "Ivan"})
	if !ok {
		t.Fatal("expected active session")
	}
	if res.Text != "Your city?" {
		t.Fatalf("after name, prompt = %q", res.Text)
	}

	res, _ = engine.Handle(context.Background(), 7, Input{Text: "Tver"})
	if !res.Done {
		t.Fatal("expected wizard to finish")
	}
	if res.Text != "done" {
		t.Fatalf("commit text = %q", res.Text)
	}
	if got["name"] != "Ivan" || got["city"] != "Tver" {
		t.Fatalf("committed draft = %v", got)
	}
	if engine.Active(7) {
		t.Fatal("session must be cleared after commit")
	}
}

func TestEngine_RejectionKeepsState(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := linearWizard(&got)

	engine.Start(7, w, nil)
	res, _ := engine.Handle(context.Background(), 7, Input{Text: "   "})
	if !strings.Contains(res.Text, "name must not be empty") {
		t.Fatalf("expected rejection annotation, got %q", res.Text)
	}
	if !strings.Contains(res.Text, "Your name?") {
		t.Fatalf("rejection must re-render the same prompt, got %q", res.Text)
	}

	// A valid input still advances afterwards.
	res, _ = engine.Handle(context.Background(), 7, Input{Text: "Ivan"})
	if res.Text != "Your city?" {
		t.Fatalf("after retry, prompt = %q", res.Text)
	}
}

func TestEngine_BackShowsPreviousValue(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := linearWizard(&got)

	engine.Start(7, w, nil)
	engine.Handle(context.Background(), 7, Input{Text: "Ivan"})

	res, _ := engine.Handle(context.Background(), 7, Input{Text: testBack})
	if !strings.Contains(res.Text, "Your name?") {
		t.Fatalf("back must re-render predecessor prompt, got %q", res.Text)
	}
	if !strings.Contains(res.Text, "Ivan") {
		t.Fatalf("back must include the previously-entered value, got %q", res.Text)
	}
}

func TestEngine_BackAtFirstStepExits(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := linearWizard(&got)

	engine.Start(7, w, nil)
	engine.Handle(context.Background(), 7, Input{Text: "Ivan"})
	engine.Handle(context.Background(), 7, Input{Text: testBack})

	res, _ := engine.Handle(context.Background(), 7, Input{Text: testBack})
	if !res.Done || !res.Exited {
		t.Fatalf("expected exit, got %+v", res)
	}
	if res.Text != "exited" {
		t.Fatalf("exit text = %q", res.Text)
	}
	if engine.Active(7) {
		t.Fatal("session must be discarded on exit")
	}
	if got != nil {
		t.Fatal("commit must not run on exit")
	}
}

func TestEngine_CommitFailureClearsSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	w := &Wizard{
		Name:     "failing",
		Start:    "only",
		ExitText: "exited",
		FailText: "failed",
		Steps: map[string]*Step{
			"only": {
				Name:   "only",
				Field:  "v",
				Prompt: func(Draft) string { return "?" },
				Accept: NonEmpty("empty"),
			},
		},
		Commit: func(context.Context, int64, Draft) (CommitResult, error) {
			return CommitResult{}, errors.New("store exploded")
		},
	}

	engine.Start(7, w, nil)
	res, _ := engine.Handle(context.Background(), 7, Input{Text: "x"})
	if !res.Done {
		t.Fatal("expected wizard to finish despite commit failure")
	}
	if res.Text != "failed" {
		t.Fatalf("failure text = %q", res.Text)
	}
	if engine.Active(7) {
		t.Fatal("session must be cleared even when commit fails")
	}
}

// photoWizard has one repeatable photo step followed by a contact step.
func photoWizard(got *Draft) *Wizard {
	return &Wizard{
		Name:     "photo",
		Start:    "photos",
		ExitText: "exited",
		FailText: "failed",
		Steps: map[string]*Step{
			"photos": {
				Name:         "photos",
				Field:        "photos",
				Prompt:       func(Draft) string { return "Upload photos" },
				NextName:     "contact",
				Repeatable:   true,
				MaxRepeat:    3,
				RepeatAck:    "added (%d/%d)",
				RepeatReject: "at most 3",
			},
			"contact": {
				Name:   "contact",
				Field:  "contact",
				Prompt: func(Draft) string { return "Contact?" },
				Accept: NonEmpty("empty"),
				Prev:   "photos",
			},
		},
		Commit: func(_ context.Context, _ int64, d Draft) (CommitResult, error) {
			copied := Draft{}
			for k, v := range d {
				copied[k] = v
			}
			*got = copied
			return CommitResult{Text: "done"}, nil
		},
	}
}

func TestEngine_PhotoStepCollectsAndCaps(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := photoWizard(&got)

	engine.Start(7, w, nil)
	for i := 1; i <= 3; i++ {
		res, _ := engine.Handle(context.Background(), 7, Input{PhotoRef: fmt.Sprintf("p%d", i)})
		want := fmt.Sprintf("added (%d/3)", i)
		if res.Text != want {
			t.Fatalf("photo %d ack = %q, want %q", i, res.Text, want)
		}
	}

	// Fourth photo is rejected with no state change.
	res, _ := engine.Handle(context.Background(), 7, Input{PhotoRef: "p4"})
	if res.Text != "at most 3" {
		t.Fatalf("over-cap response = %q", res.Text)
	}

	// Any non-photo input completes the step.
	res, _ = engine.Handle(context.Background(), 7, Input{Text: "Далее"})
	if res.Text != "Contact?" {
		t.Fatalf("after photos, prompt = %q", res.Text)
	}

	engine.Handle(context.Background(), 7, Input{Text: "@me"})
	photos, _ := got["photos"].([]string)
	if len(photos) != 3 {
		t.Fatalf("committed photos = %v, want 3", photos)
	}
	if photos[0] != "p1" || photos[1] != "p2" || photos[2] != "p3" {
		t.Fatalf("photo order = %v", photos)
	}
}

func TestEngine_PhotoStepAdvancesWithoutPhotos(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := photoWizard(&got)

	engine.Start(7, w, nil)
	res, _ := engine.Handle(context.Background(), 7, Input{Text: "skip"})
	if res.Text != "Contact?" {
		t.Fatalf("prompt = %q", res.Text)
	}

	engine.Handle(context.Background(), 7, Input{Text: "@me"})
	if photos, _ := got["photos"].([]string); len(photos) != 0 {
		t.Fatalf("expected no photos, got %v", photos)
	}
}

// branchWizard branches at the first step on the chosen kind.
func branchWizard(got *Draft) *Wizard {
	return &Wizard{
		Name:     "branch",
		Start:    "kind",
		ExitText: "exited",
		FailText: "failed",
		Steps: map[string]*Step{
			"kind": {
				Name:   "kind",
				Field:  "kind",
				Prompt: func(Draft) string { return "Kind?" },
				Accept: OneOf([]string{"found", "lost"}, "pick one"),
				Next: func(d Draft) string {
					if d["kind"] == "lost" {
						return "item_lost"
					}
					return "item_found"
				},
			},
			"item_found": {
				Name:     "item_found",
				Field:    "item",
				Prompt:   func(Draft) string { return "What did you find?" },
				Accept:   NonEmpty("empty"),
				NextName: "done",
				Prev:     "kind",
			},
			"item_lost": {
				Name:     "item_lost",
				Field:    "item",
				Prompt:   func(Draft) string { return "What did you lose?" },
				Accept:   NonEmpty("empty"),
				NextName: "done",
				Prev:     "kind",
			},
			"done": {
				Name:   "done",
				Field:  "confirm",
				Prompt: func(Draft) string { return "Confirm?" },
				Accept: NonEmpty("empty"),
				PrevFn: func(d Draft) string {
					if d["kind"] == "lost" {
						return "item_lost"
					}
					return "item_found"
				},
			},
		},
		Commit: func(_ context.Context, _ int64, d Draft) (CommitResult, error) {
			copied := Draft{}
			for k, v := range d {
				copied[k] = v
			}
			*got = copied
			return CommitResult{Text: "done"}, nil
		},
	}
}

func TestEngine_BranchAndComputedBack(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := branchWizard(&got)

	engine.Start(7, w, nil)
	res, _ := engine.Handle(context.Background(), 7, Input{Text: "lost"})
	if res.Text != "What did you lose?" {
		t.Fatalf("branch prompt = %q", res.Text)
	}

	res, _ = engine.Handle(context.Background(), 7, Input{Text: "keys"})
	if res.Text != "Confirm?" {
		t.Fatalf("prompt = %q", res.Text)
	}

	// Back from the shared step returns to the branch actually taken.
	res, _ = engine.Handle(context.Background(), 7, Input{Text: testBack})
	if !strings.Contains(res.Text, "What did you lose?") {
		t.Fatalf("computed back prompt = %q", res.Text)
	}
	if !strings.Contains(res.Text, "keys") {
		t.Fatalf("computed back must show previous value, got %q", res.Text)
	}
}

func TestEngine_ClosedSetRejectsUnknown(t *testing.T) {
	engine, _ := newTestEngine(t)
	var got Draft
	w := branchWizard(&got)

	engine.Start(7, w, nil)
	res, _ := engine.Handle(context.Background(), 7, Input{Text: "stolen"})
	if !strings.Contains(res.Text, "pick one") {
		t.Fatalf("expected rejection, got %q", res.Text)
	}
	// Still at the kind step: a valid option advances.
	res, _ = engine.Handle(context.Background(), 7, Input{Text: "found"})
	if res.Text != "What did you find?" {
		t.Fatalf("prompt = %q", res.Text)
	}
}

func TestEngine_DraftIsolationBetweenUsers(t *testing.T) {
	engine, _ := newTestEngine(t)
	var gotA, gotB Draft
	wa := linearWizard(&gotA)
	wb := linearWizard(&gotB)

	engine.Start(1, wa, nil)
	engine.Start(2, wb, nil)

	engine.Handle(context.Background(), 1, Input{Text: "Anna"})
	engine.Handle(context.Background(), 2, Input{Text: "Boris"})
	engine.Handle(context.Background(), 1, Input{Text: "Pskov"})
	engine.Handle(context.Background(), 2, Input{Text: "Omsk"})

	if gotA["name"] != "Anna" || gotA["city"] != "Pskov" {
		t.Fatalf("user A draft = %v", gotA)
	}
	if gotB["name"] != "Boris" || gotB["city"] != "Omsk" {
		t.Fatalf("user B draft = %v", gotB)
	}
}

func TestEngine_StartReplacesSession(t *testing.T) {
	engine, sessions := newTestEngine(t)
	var got Draft
	w := linearWizard(&got)

	engine.Start(7, w, nil)
	engine.Handle(context.Background(), 7, Input{Text: "Ivan"})

	// Restarting discards the old draft atomically.
	engine.Start(7, w, nil)
	sess, _ := sessions.Get(7)
	if len(sess.Draft) != 0 {
		t.Fatalf("restart must discard the previous draft, got %v", sess.Draft)
	}
	if sess.State != "name" {
		t.Fatalf("restart state = %q", sess.State)
	}
}

func TestEngine_CommitHandoff(t *testing.T) {
	engine, _ := newTestEngine(t)
	var second Draft
	next := linearWizard(&second)

	first := &Wizard{
		Name:     "first",
		Start:    "only",
		ExitText: "exited",
		FailText: "failed",
		Steps: map[string]*Step{
			"only": {
				Name:   "only",
				Field:  "v",
				Prompt: func(Draft) string { return "?" },
				Accept: NonEmpty("empty"),
			},
		},
		Commit: func(context.Context, int64, Draft) (CommitResult, error) {
			return CommitResult{
				Text: "first done",
				Next: &Handoff{Wizard: next, Seed: Draft{"seeded": "yes"}},
			}, nil
		},
	}

	engine.Start(7, first, nil)
	res, _ := engine.Handle(context.Background(), 7, Input{Text: "x"})
	if res.Done {
		t.Fatal("handoff must keep the session alive")
	}
	if !strings.Contains(res.Text, "first done") || !strings.Contains(res.Text, "Your name?") {
		t.Fatalf("handoff text = %q", res.Text)
	}
	if !engine.Active(7) {
		t.Fatal("expected the follow-up session to be active")
	}

	engine.Handle(context.Background(), 7, Input{Text: "Ivan"})
	engine.Handle(context.Background(), 7, Input{Text: "Tver"})
	if second["seeded"] != "yes" {
		t.Fatalf("seed not carried into the follow-up wizard: %v", second)
	}
}

func TestEngine_NoSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, ok := engine.Handle(context.Background(), 7, Input{Text: "hi"}); ok {
		t.Fatal("expected no active session")
	}
}
