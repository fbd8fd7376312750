package ambient

import "testing"

func pcmTone(n int, amplitude int16) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

func TestEchoGuardDisabledByDefaultNeverFlags(t *testing.T) {
	g := NewEchoGuard(false)
	tone := pcmTone(2000, 8000)
	g.RecordPlayback("sess-1", tone)
	if g.IsEcho("sess-1", tone) {
		t.Fatal("a disabled guard must never report an echo")
	}
}

func TestEchoGuardFlagsRecentlyPlayedAudio(t *testing.T) {
	g := NewEchoGuard(true)
	tone := pcmTone(4000, 9000)
	g.RecordPlayback("sess-1", tone)
	if !g.IsEcho("sess-1", tone) {
		t.Fatal("expected recently-played audio fed straight back in to be flagged as echo")
	}
}

func TestEchoGuardIgnoresUnrelatedSession(t *testing.T) {
	g := NewEchoGuard(true)
	tone := pcmTone(4000, 9000)
	g.RecordPlayback("sess-1", tone)
	if g.IsEcho("sess-2", tone) {
		t.Fatal("playback recorded for one session must not flag echo for another")
	}
}

func TestEchoGuardIgnoresSilence(t *testing.T) {
	g := NewEchoGuard(true)
	g.RecordPlayback("sess-1", pcmTone(4000, 9000))
	silence := make([]byte, 4000*2)
	if g.IsEcho("sess-1", silence) {
		t.Fatal("silent input should never correlate as echo")
	}
}

func TestEchoGuardClearDropsPlaybackHistory(t *testing.T) {
	g := NewEchoGuard(true)
	tone := pcmTone(4000, 9000)
	g.RecordPlayback("sess-1", tone)
	g.Clear("sess-1")
	if g.IsEcho("sess-1", tone) {
		t.Fatal("expected Clear to drop recorded playback so the same audio no longer correlates")
	}
}
