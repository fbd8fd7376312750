package session

import (
	"testing"
	"time"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
)

type fakeTransport struct {
	sent []protocol.Outbound
}

func (f *fakeTransport) WriteJSON(v protocol.Outbound) error {
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func TestSendAssignsStrictlyMonotonicSeq(t *testing.T) {
	s := NewSession("sess-1", "Nova")
	var last uint64
	for i := 0; i < 5; i++ {
		env := protocol.NewStatusOut(protocol.StatusThinking)
		s.Send(env)
		if env.Seq() <= last {
			t.Fatalf("seq %d not strictly greater than previous %d", env.Seq(), last)
		}
		last = env.Seq()
	}
}

func TestReplayBufferExcludesEphemeral(t *testing.T) {
	s := NewSession("sess-2", "Nova")

	s.Send(protocol.NewStatusOut(protocol.StatusThinking))
	s.Send(protocol.NewPongOut())
	s.Send(protocol.NewSmartStatusOut(protocol.SmartStatusListening))
	s.Send(protocol.NewStatusOut(protocol.StatusSpeaking))

	_, replay := s.Attach(NewConnection("sess-2", &fakeTransport{}), 0)
	if len(replay) != 2 {
		t.Fatalf("expected 2 non-ephemeral envelopes replayed, got %d", len(replay))
	}
	for _, env := range replay {
		if env.Kind() == protocol.OutPong || env.Kind() == protocol.OutSmartStatus {
			t.Fatalf("ephemeral kind %v leaked into replay buffer", env.Kind())
		}
	}
}

func TestAttachOnlyReplaysEnvelopesAfterLastServerSeq(t *testing.T) {
	s := NewSession("sess-3", "Nova")
	for i := 0; i < 4; i++ {
		s.Send(protocol.NewStatusOut(protocol.StatusThinking))
	}
	_, replay := s.Attach(NewConnection("sess-3", &fakeTransport{}), 2)
	if len(replay) != 2 {
		t.Fatalf("expected 2 envelopes after seq 2, got %d", len(replay))
	}
	for _, env := range replay {
		if env.Seq() <= 2 {
			t.Fatalf("replayed envelope with seq %d <= lastServerSeq 2", env.Seq())
		}
	}
}

func TestHistoryBoundedToTwiceMaxTurns(t *testing.T) {
	s := NewSession("sess-4", "Nova")
	for i := 0; i < MaxHistoryTurns*2+10; i++ {
		s.AddTurn("user", "hi")
		s.AddTurn("assistant", "hello")
	}
	hist := s.HistoryCopy()
	if len(hist) != 2*MaxHistoryTurns {
		t.Fatalf("history length = %d, want %d", len(hist), 2*MaxHistoryTurns)
	}
}

func TestAmbientContextBoundedByCountAndAge(t *testing.T) {
	s := NewSession("sess-5", "Nova")
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < MaxAmbientEntries+5; i++ {
		s.AddAmbientEntry(AmbientEntry{Text: "hi", Timestamp: now.Add(time.Duration(i) * time.Second)})
	}
	entries := s.AmbientContextCopy()
	if len(entries) != MaxAmbientEntries {
		t.Fatalf("ambient entries = %d, want %d", len(entries), MaxAmbientEntries)
	}

	s2 := NewSession("sess-6", "Nova")
	s2.AddAmbientEntry(AmbientEntry{Text: "old", Timestamp: now})
	s2.AddAmbientEntry(AmbientEntry{Text: "new", Timestamp: now.Add(AmbientWindow + time.Second)})
	entries2 := s2.AmbientContextCopy()
	if len(entries2) != 1 || entries2[0].Text != "new" {
		t.Fatalf("expected stale entry pruned, got %+v", entries2)
	}
}

func TestAcceptCSeqRejectsDuplicatesAndOutOfOrder(t *testing.T) {
	s := NewSession("sess-7", "Nova")
	if !s.AcceptCSeq(1) {
		t.Fatal("first cseq should be accepted")
	}
	if !s.AcceptCSeq(2) {
		t.Fatal("increasing cseq should be accepted")
	}
	if s.AcceptCSeq(2) {
		t.Fatal("duplicate cseq should be rejected")
	}
	if s.AcceptCSeq(1) {
		t.Fatal("stale cseq should be rejected")
	}
	if !s.AcceptCSeq(0) {
		t.Fatal("cseq 0 (absent) should always be accepted")
	}
}

func TestBeginRunCancelsPriorRun(t *testing.T) {
	s := NewSession("sess-8", "Nova")
	var firstCancelled bool
	var genA uint64
	genA = s.BeginRun(func() {
		firstCancelled = true
		s.EndRun(genA) // cancel notification doubles as the run's own cleanup here
	})
	s.BeginRun(func() {})
	if !firstCancelled {
		t.Fatal("starting a second run must cancel the first (exactly one active run invariant)")
	}
}

func TestEndRunIgnoresStaleGeneration(t *testing.T) {
	s := NewSession("sess-9", "Nova")
	var genA uint64
	genA = s.BeginRun(func() { s.EndRun(genA) })
	var secondCancelled bool
	s.BeginRun(func() { secondCancelled = true })

	s.EndRun(genA) // stale/duplicate: must not clear the second run's handle
	s.CancelActiveRun()
	if !secondCancelled {
		t.Fatal("EndRun with a superseded generation must not clear the active run's cancel handle")
	}
}

// TestBeginRunWaitsForPriorRunToFinish covers invariant (iii): cancelling one
// run must complete — including its interrupted-commit cleanup — before the
// next run is allowed to proceed, not just be told to stop.
func TestBeginRunWaitsForPriorRunToFinish(t *testing.T) {
	s := NewSession("sess-10", "Nova")
	unblock := make(chan struct{})

	genA := s.BeginRun(func() {}) // cancel is a no-op; the run "finishes" only when unblocked below
	go func() {
		<-unblock
		s.EndRun(genA)
	}()

	secondReturned := make(chan struct{})
	go func() {
		s.BeginRun(func() {})
		close(secondReturned)
	}()

	select {
	case <-secondReturned:
		t.Fatal("BeginRun returned before the prior run's EndRun was called")
	case <-time.After(20 * time.Millisecond):
	}

	close(unblock)

	select {
	case <-secondReturned:
	case <-time.After(time.Second):
		t.Fatal("BeginRun never returned after the prior run finished")
	}
}
