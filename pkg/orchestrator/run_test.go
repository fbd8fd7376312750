package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/session"
)

type fakeStreamingLLM struct {
	deltas []LLMDelta
	err    error
}

func (f *fakeStreamingLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	return "", nil
}
func (f *fakeStreamingLLM) Name() string { return "fake-llm" }

func (f *fakeStreamingLLM) StreamComplete(ctx context.Context, messages []Message, onDelta func(LLMDelta) error) error {
	for _, d := range f.deltas {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return f.err
}

type fakeTTS struct{}

func (f *fakeTTS) Synthesize(ctx context.Context, text string, voice Voice, lang Language) ([]byte, error) {
	return []byte("audio:" + text), nil
}
func (f *fakeTTS) StreamSynthesize(ctx context.Context, text string, voice Voice, lang Language, onChunk func([]byte) error) error {
	return onChunk([]byte("audio:" + text))
}
func (f *fakeTTS) Name() string { return "fake-tts" }

type recordingTransport struct {
	mu  sync.Mutex
	out []protocol.Outbound
}

func (r *recordingTransport) WriteJSON(env protocol.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, env)
	return nil
}

func (r *recordingTransport) Close() error { return nil }
func (r *recordingTransport) kinds() []protocol.OutboundKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ks []protocol.OutboundKind
	for _, o := range r.out {
		ks = append(ks, o.Kind())
	}
	return ks
}

func TestRunTextHappyPathEmitsOrderedEnvelopes(t *testing.T) {
	sess := session.NewSession("sess-1", "Nova")
	tr := &recordingTransport{}
	conn := session.NewConnection("sess-1", tr)
	sess.Attach(conn, 0)

	llm := &fakeStreamingLLM{deltas: []LLMDelta{
		{Text: "[[emotion:happy]] Hello there. "},
		{Text: "How are you?", Final: true},
	}}
	runner := NewRunner(llm, &fakeTTS{}, nil, nil)
	runner.RunText(context.Background(), sess, "hi", "", false)

	kinds := tr.kinds()
	if len(kinds) == 0 {
		t.Fatal("expected envelopes to be sent")
	}
	if kinds[0] != protocol.OutStatus {
		t.Fatalf("first envelope should be status(thinking), got %v", kinds[0])
	}
	last := kinds[len(kinds)-1]
	if last != protocol.OutStatus {
		t.Fatalf("last envelope should be status(idle), got %v", last)
	}

	foundStreamDone := false
	for _, k := range kinds {
		if k == protocol.OutStreamDone {
			foundStreamDone = true
		}
	}
	if !foundStreamDone {
		t.Error("expected stream_done on successful completion")
	}

	hist := sess.HistoryCopy()
	if len(hist) != 2 {
		t.Fatalf("expected user+assistant turns committed, got %d", len(hist))
	}
}

func TestRunTextEmptyResponseRetriesOnceWithPrefixStripped(t *testing.T) {
	sess := session.NewSession("sess-2", "Nova")
	tr := &recordingTransport{}
	sess.Attach(session.NewConnection("sess-2", tr), 0)

	llm := &fakeStreamingLLM{deltas: []LLMDelta{{Text: "", Final: true}}}
	runner := NewRunner(llm, &fakeTTS{}, nil, nil)
	runner.RunText(context.Background(), sess, "hello", "some-prefix", false)

	if len(sess.HistoryCopy()) != 0 {
		t.Fatal("an empty reply on both attempts should not commit any history")
	}
}

func TestRunTextCancelledBeforeStreamSkipsStreamDone(t *testing.T) {
	sess := session.NewSession("sess-3", "Nova")
	tr := &recordingTransport{}
	sess.Attach(session.NewConnection("sess-3", tr), 0)

	ctx, cancel := context.WithCancel(context.Background())
	llm := &fakeStreamingLLM{deltas: []LLMDelta{{Text: "[[emotion:neutral]] Partial thought."}}}

	// The fake LLM offers no hook to cancel mid-stream, so the context is
	// cancelled up front: the run sees no deltas and must still not emit
	// stream_done.
	cancel()
	runner := NewRunner(llm, &fakeTTS{}, nil, nil)
	runner.RunText(ctx, sess, "hi", "", false)

	for _, k := range tr.kinds() {
		if k == protocol.OutStreamDone {
			t.Error("a cancelled run must not emit stream_done")
		}
	}
}

func TestRunTextLLMErrorMidStreamStillSignalsCompletion(t *testing.T) {
	sess := session.NewSession("sess-4", "Nova")
	tr := &recordingTransport{}
	sess.Attach(session.NewConnection("sess-4", tr), 0)

	llm := &fakeStreamingLLM{
		deltas: []LLMDelta{{Text: "[[emotion:sad]] Something went wrong."}},
		err:    errors.New("upstream exploded"),
	}
	runner := NewRunner(llm, &fakeTTS{}, nil, nil)
	runner.RunText(context.Background(), sess, "hi", "", false)

	kinds := tr.kinds()
	var hasError, hasDone bool
	for _, k := range kinds {
		if k == protocol.OutError {
			hasError = true
		}
		if k == protocol.OutStreamDone {
			hasDone = true
		}
	}
	if !hasError {
		t.Error("expected an error envelope for the mid-stream LLM failure")
	}
	if !hasDone {
		t.Error("LLM error mid-stream must still signal completion (stream_done)")
	}
}

func TestRunTextAmbientWrappedSkipsEmptyResponseRetry(t *testing.T) {
	sess := session.NewSession("sess-5", "Nova")
	tr := &recordingTransport{}
	sess.Attach(session.NewConnection("sess-5", tr), 0)

	calls := 0
	llm := &countingEmptyLLM{calls: &calls}
	runner := NewRunner(llm, &fakeTTS{}, nil, nil)
	runner.RunText(context.Background(), sess, AmbientContextMarker+" x]\n[Speaker just said: hi]", "", true)

	if calls != 1 {
		t.Fatalf("ambient-wrapped empty response should not retry, got %d calls", calls)
	}
}

func TestRunTextStripsTrailingButtonsTagFromSpeechAndHistory(t *testing.T) {
	sess := session.NewSession("sess-6", "Nova")
	tr := &recordingTransport{}
	sess.Attach(session.NewConnection("sess-6", tr), 0)

	// No terminal punctuation follows the tag, so it never matches
	// sentenceBoundary and only surfaces in the final stream tail.
	llm := &fakeStreamingLLM{deltas: []LLMDelta{
		{Text: "Pick one [[buttons:Yes|No]]", Final: true},
	}}
	runner := NewRunner(llm, &fakeTTS{}, nil, nil)
	runner.RunText(context.Background(), sess, "choose", "", false)

	for _, o := range tr.out {
		if chunk, ok := o.(*protocol.ReplyChunkOut); ok && strings.Contains(chunk.Text, "[[buttons") {
			t.Errorf("reply_chunk spoke the raw buttons tag: %q", chunk.Text)
		}
	}

	foundButtonsOut := false
	for _, k := range tr.kinds() {
		if k == protocol.OutButtons {
			foundButtonsOut = true
		}
	}
	if !foundButtonsOut {
		t.Error("expected a buttons envelope extracted from the trailing tag")
	}

	hist := sess.HistoryCopy()
	if len(hist) != 2 {
		t.Fatalf("expected user+assistant turns committed, got %d", len(hist))
	}
	if strings.Contains(hist[1].Content, "[[buttons") {
		t.Errorf("assistant history turn still contains the raw tag: %q", hist[1].Content)
	}
}

type countingEmptyLLM struct{ calls *int }

func (c *countingEmptyLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	return "", nil
}
func (c *countingEmptyLLM) Name() string { return "counting-empty" }
func (c *countingEmptyLLM) StreamComplete(ctx context.Context, messages []Message, onDelta func(LLMDelta) error) error {
	*c.calls++
	return onDelta(LLMDelta{Text: "", Final: true})
}
