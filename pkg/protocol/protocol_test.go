package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeInboundKnownTypes(t *testing.T) {
	raw := `{"type":"text","text":"hola","cseq":5}`
	msg, err := DecodeInbound([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeInbound: %v", err)
	}
	textMsg, ok := msg.(*TextIn)
	if !ok {
		t.Fatalf("got %T, want *TextIn", msg)
	}
	if textMsg.Text != "hola" || textMsg.CSeq() != 5 {
		t.Errorf("got %+v", textMsg)
	}
	if textMsg.Kind() != InText {
		t.Errorf("Kind() = %v, want %v", textMsg.Kind(), InText)
	}
}

func TestDecodeInboundUnknownIsDroppableNotError(t *testing.T) {
	raw := `{"type":"future_message_type","whatever":1}`
	msg, err := DecodeInbound([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeInbound should not error on unknown type: %v", err)
	}
	unk, ok := msg.(*UnknownIn)
	if !ok {
		t.Fatalf("got %T, want *UnknownIn", msg)
	}
	if unk.RawType != "future_message_type" {
		t.Errorf("RawType = %q", unk.RawType)
	}
}

func TestOutboundStampAndSerialize(t *testing.T) {
	env := NewReplyChunkOut(0, "hola", EmotionHappy)
	env.Stamp(3, false)

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["type"] != "reply_chunk" {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["sseq"] != float64(3) {
		t.Errorf("sseq = %v", decoded["sseq"])
	}
	if _, present := decoded["replay"]; present {
		t.Errorf("replay should be omitted when false, got %v", decoded["replay"])
	}
}

func TestIsEphemeral(t *testing.T) {
	if !IsEphemeral(OutPong) || !IsEphemeral(OutSmartStatus) {
		t.Error("pong and smart_status must be ephemeral")
	}
	if IsEphemeral(OutReplyChunk) {
		t.Error("reply_chunk must not be ephemeral")
	}
}

func TestStripEmotionTag(t *testing.T) {
	cases := []struct {
		in, wantText string
		wantEmotion  Emotion
	}{
		{"[[emotion:happy]] Hola que tal!", "Hola que tal!", EmotionHappy},
		{"no tag here", "no tag here", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		emotion, text := StripEmotionTag(c.in)
		if emotion != c.wantEmotion || text != c.wantText {
			t.Errorf("StripEmotionTag(%q) = (%q,%q), want (%q,%q)", c.in, emotion, text, c.wantEmotion, c.wantText)
		}
	}
}

func TestDeriveEmotionFallsBackToNeutral(t *testing.T) {
	if got := DeriveEmotion("just a plain statement"); got != EmotionNeutral {
		t.Errorf("DeriveEmotion = %v, want neutral", got)
	}
	if got := DeriveEmotion("that's amazing!"); got != EmotionHappy {
		t.Errorf("DeriveEmotion(!) = %v, want happy", got)
	}
}
