// internal/studio/session_test.go
package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
	"github.com/Corphon/ShortsArchitect/internal/models"
)

// blockingGenerator 在 release 关闭前阻塞
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	result  *models.Blueprint
	err     error
}

func newBlockingGenerator(result *models.Blueprint, err error) *blockingGenerator {
	return &blockingGenerator{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  result,
		err:     err,
	}
}

func (g *blockingGenerator) Generate(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error) {
	g.started <- struct{}{}
	<-g.release
	return g.result, g.err
}

type generatorFunc func(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error)

func (f generatorFunc) Generate(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error) {
	return f(ctx, brief)
}

func sampleBlueprint() *models.Blueprint {
	return &models.Blueprint{
		Title:        "Save 10 Hours",
		Hook:         "Stop doing this by hand.",
		Script:       []models.ScriptBeat{{Timestamp: "0:00", Narration: "Open", OnScreen: "Desk"}},
		ShotPlan:     []models.Shot{{Label: "Wide", Duration: "3s", Description: "desk setup"}},
		CallToAction: "Link in bio",
		Caption:      "Automate it",
		Hashtags:     []string{"#ai", "automation"},
	}
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.snaps))
	for _, s := range r.snaps {
		out = append(out, s.State)
	}
	return out
}

func okClipboard() Clipboard {
	return ClipboardFunc(func(context.Context, string) error { return nil })
}

func TestNewSessionStartsIdleWithDefaultBrief(t *testing.T) {
	s := NewSession(generatorFunc(nil), okClipboard())
	defer s.Close()

	snap := s.Snapshot()
	if snap.State != StateIdle || snap.Brief != DefaultBrief() || snap.Blueprint != nil {
		t.Errorf("unexpected initial snapshot: %+v", snap)
	}
}

func TestSubmitRejectsSecondSubmissionWhileInFlight(t *testing.T) {
	gen := newBlockingGenerator(sampleBlueprint(), nil)
	s := NewSession(gen, okClipboard())
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background()) }()
	<-gen.started

	if s.State() != StateSubmitting {
		t.Fatalf("state = %s, want submitting", s.State())
	}
	if err := s.Submit(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("second submit = %v, want ErrSubmissionInFlight", err)
	}

	close(gen.release)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap := s.Snapshot(); snap.State != StateSuccess || snap.Blueprint == nil {
		t.Errorf("unexpected final snapshot: %+v", snap)
	}
}

func TestSubmitClearsPreviousResultBeforeCalling(t *testing.T) {
	first := true
	var sawBlueprint bool
	s := NewSession(generatorFunc(func(ctx context.Context, brief models.CreativeBrief) (*models.Blueprint, error) {
		if first {
			first = false
			return sampleBlueprint(), nil
		}
		return nil, apperrors.NewSynthesisError("No content returned from model.", nil)
	}), okClipboard())
	defer s.Close()

	rec := &recorder{}
	s.OnChange(rec.record)

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	s.OnChange(func(snap Snapshot) {
		if snap.State == StateSubmitting && snap.Blueprint != nil {
			sawBlueprint = true
		}
	})
	if err := s.Submit(context.Background()); err == nil {
		t.Fatal("second submit should fail")
	}
	if sawBlueprint {
		t.Error("previous blueprint visible while submitting")
	}

	snap := s.Snapshot()
	if snap.State != StateFailed || snap.Blueprint != nil || snap.Package != "" {
		t.Errorf("failed state must not carry a blueprint: %+v", snap)
	}
	if snap.Error != "No content returned from model." {
		t.Errorf("error = %q", snap.Error)
	}

	want := []State{StateSubmitting, StateSuccess, StateSubmitting, StateFailed}
	got := rec.states()
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}
}

func TestEditBriefReturnsSettledSessionToIdle(t *testing.T) {
	s := NewSession(generatorFunc(func(context.Context, models.CreativeBrief) (*models.Blueprint, error) {
		return sampleBlueprint(), nil
	}), okClipboard())
	defer s.Close()

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := s.EditBrief("topic", "A new topic"); err != nil {
		t.Fatalf("EditBrief: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateIdle || snap.Brief.Topic != "A new topic" {
		t.Errorf("unexpected snapshot after edit: %+v", snap)
	}
	if snap.Blueprint == nil {
		t.Error("last result should stay visible until the next submission")
	}

	if err := s.EditBrief("mood", "x"); err == nil {
		t.Error("unknown field should be rejected")
	}

	s.ResetBrief()
	if s.Snapshot().Brief != DefaultBrief() {
		t.Error("ResetBrief should restore the default brief")
	}
}

func TestFailedSubmissionUsesUserMessage(t *testing.T) {
	s := NewSession(generatorFunc(func(context.Context, models.CreativeBrief) (*models.Blueprint, error) {
		return nil, apperrors.NewValidationError("invalid brief", map[string][]string{"topic": {"String must contain at least 4 character(s)"}})
	}), okClipboard())
	defer s.Close()

	_ = s.Submit(context.Background())
	snap := s.Snapshot()
	if snap.State != StateFailed || !strings.Contains(snap.Error, "topic:") {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestPackageFollowsBlueprint(t *testing.T) {
	s := NewSession(generatorFunc(func(context.Context, models.CreativeBrief) (*models.Blueprint, error) {
		return sampleBlueprint(), nil
	}), okClipboard())
	defer s.Close()

	if s.Package() != "" {
		t.Error("package should be empty before a result exists")
	}
	_ = s.Submit(context.Background())

	pkg := s.Package()
	if !strings.HasPrefix(pkg, "Title: Save 10 Hours\n") || !strings.HasSuffix(pkg, "Hashtags: #ai #automation") {
		t.Errorf("unexpected package:\n%s", pkg)
	}
}

func TestCopyPackageNotices(t *testing.T) {
	var copied string
	fail := false
	s := NewSession(generatorFunc(func(context.Context, models.CreativeBrief) (*models.Blueprint, error) {
		return sampleBlueprint(), nil
	}), ClipboardFunc(func(_ context.Context, text string) error {
		if fail {
			return errors.New("permission denied")
		}
		copied = text
		return nil
	}))
	defer s.Close()

	if err := s.CopyPackage(context.Background()); err != nil || s.Snapshot().Notice != "" {
		t.Fatal("copy without a result should be a no-op")
	}

	_ = s.Submit(context.Background())
	if err := s.CopyPackage(context.Background()); err != nil {
		t.Fatalf("CopyPackage: %v", err)
	}
	snap := s.Snapshot()
	if snap.Notice != NoticeCopied || copied != snap.Package {
		t.Errorf("unexpected notice %q or copied text", snap.Notice)
	}
	if snap.State != StateSuccess {
		t.Errorf("copy must not change the state, got %s", snap.State)
	}

	fail = true
	if err := s.CopyPackage(context.Background()); err == nil {
		t.Fatal("expected clipboard error")
	}
	if s.Snapshot().Notice != NoticeCopyFailed {
		t.Errorf("notice = %q", s.Snapshot().Notice)
	}
}

func TestNoticeClearsAfterDelayAndNewerNoticeWins(t *testing.T) {
	s := NewSession(generatorFunc(func(context.Context, models.CreativeBrief) (*models.Blueprint, error) {
		return sampleBlueprint(), nil
	}), okClipboard())
	defer s.Close()
	s.SetNoticeDelay(80 * time.Millisecond)
	_ = s.Submit(context.Background())

	_ = s.CopyPackage(context.Background())
	time.Sleep(50 * time.Millisecond)
	// 第二次复制重新计时
	_ = s.CopyPackage(context.Background())
	time.Sleep(50 * time.Millisecond)

	if s.Snapshot().Notice != NoticeCopied {
		t.Fatal("older timer cleared a newer notice")
	}

	deadline := time.Now().Add(time.Second)
	for s.Snapshot().Notice != "" {
		if time.Now().After(deadline) {
			t.Fatal("notice was never cleared")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStateText(t *testing.T) {
	for state, want := range map[State]string{
		StateIdle:       "idle",
		StateSubmitting: "submitting",
		StateSuccess:    "success",
		StateFailed:     "failed",
	} {
		text, err := state.MarshalText()
		if err != nil || string(text) != want {
			t.Errorf("%d.MarshalText() = %q, %v", int(state), text, err)
		}
	}
	if _, err := State(42).MarshalText(); err == nil {
		t.Error("unknown state should not marshal")
	}
}
