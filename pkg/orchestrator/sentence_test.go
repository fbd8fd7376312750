package orchestrator

import "testing"

func TestSplitSentencesBasicBoundary(t *testing.T) {
	sentences, rest := SplitSentences("", "Hello there. How are you")
	if len(sentences) != 1 || sentences[0] != "Hello there." {
		t.Fatalf("sentences = %v", sentences)
	}
	if rest != "How are you" {
		t.Fatalf("rest = %q", rest)
	}
}

func TestSplitSentencesAcrossMultipleDeltas(t *testing.T) {
	buf := ""
	var all []string

	deltas := []string{"Hel", "lo there. How ", "are you? I'm", " fine!"}
	for _, d := range deltas {
		var s []string
		s, buf = SplitSentences(buf, d)
		all = append(all, s...)
	}
	final := FlushTail(buf)
	if final != "" {
		all = append(all, final)
	}

	want := []string{"Hello there.", "How are you?", "I'm fine!"}
	if len(all) != len(want) {
		t.Fatalf("got %v, want %v", all, want)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, all[i], want[i])
		}
	}
}

func TestSplitSentencesBoundaryBeforeEmotionTag(t *testing.T) {
	sentences, rest := SplitSentences("", "All done.[[emotion:happy]] Next one")
	if len(sentences) != 1 || sentences[0] != "All done." {
		t.Fatalf("sentences = %v", sentences)
	}
	if rest != "[[emotion:happy]] Next one" {
		t.Fatalf("rest = %q", rest)
	}
}

func TestFlushTailOnEmptyOrWhitespaceIsEmpty(t *testing.T) {
	if FlushTail("") != "" {
		t.Error("empty buffer should flush to empty")
	}
	if FlushTail("   \n\t ") != "" {
		t.Error("whitespace-only buffer should flush to empty")
	}
	if FlushTail("trailing fragment") != "trailing fragment" {
		t.Error("non-empty tail should be returned verbatim (trimmed)")
	}
}

func TestSplitSentencesConcatenationRoundTrip(t *testing.T) {
	full := "First sentence. Second sentence! Third one?"
	sentences, rest := SplitSentences("", full)
	sentences = append(sentences, FlushTail(rest))
	joined := ""
	for i, s := range sentences {
		if i > 0 {
			joined += " "
		}
		joined += s
	}
	if joined != full {
		t.Fatalf("round trip mismatch: got %q, want %q", joined, full)
	}
}
