package protocol

import "encoding/json"

// InboundKind is the closed set of client-to-server envelope tags. An
// envelope with a type outside this set decodes to *UnknownIn, never a raw
// string switch further down the pipeline.
type InboundKind string

const (
	InAuth           InboundKind = "auth"
	InAudio          InboundKind = "audio"
	InAmbientAudio   InboundKind = "ambient_audio"
	InText           InboundKind = "text"
	InImage          InboundKind = "image"
	InFile           InboundKind = "file"
	InCancel         InboundKind = "cancel"
	InBargeIn        InboundKind = "barge_in"
	InClearHistory   InboundKind = "clear_history"
	InReplay         InboundKind = "replay"
	InSetBotName     InboundKind = "set_bot_name"
	InEnrollAudio    InboundKind = "enroll_audio"
	InGetProfiles    InboundKind = "get_profiles"
	InRenameSpeaker  InboundKind = "rename_speaker"
	InResetSpeakers  InboundKind = "reset_speakers"
	InSetTTSEngine   InboundKind = "set_tts_engine"
	InGetSettings    InboundKind = "get_settings"
	InPing           InboundKind = "ping"
	InCapabilities   InboundKind = "capabilities"
	InDeviceResponse InboundKind = "device_response"
	InUnknown        InboundKind = "unknown"
)

// Inbound is implemented by every concrete client-to-server message. CSeq
// returns the client's dedup hint (0 if absent).
type Inbound interface {
	Kind() InboundKind
	CSeq() int64
}

// base carries the deduplication hint shared by every inbound variant.
type base struct {
	Seq int64 `json:"cseq,omitempty"`
}

func (b base) CSeq() int64 { return b.Seq }

type AuthIn struct {
	base
	Token         string  `json:"token"`
	SessionID     string  `json:"sessionId,omitempty"`
	LastServerSeq *uint64 `json:"lastServerSeq,omitempty"`
}

func (AuthIn) Kind() InboundKind { return InAuth }

type AudioIn struct {
	base
	Audio  string `json:"audio"`
	Prefix string `json:"prefix,omitempty"`
}

func (AudioIn) Kind() InboundKind { return InAudio }

type AmbientAudioIn struct {
	base
	Audio string `json:"audio"`
}

func (AmbientAudioIn) Kind() InboundKind { return InAmbientAudio }

type TextIn struct {
	base
	Text   string `json:"text"`
	Prefix string `json:"prefix,omitempty"`
}

func (TextIn) Kind() InboundKind { return InText }

type ImageIn struct {
	base
	Data    string `json:"data"`
	Mime    string `json:"mime"`
	Caption string `json:"caption,omitempty"`
}

func (ImageIn) Kind() InboundKind { return InImage }

type FileIn struct {
	base
	Data string `json:"data"`
	Name string `json:"name"`
}

func (FileIn) Kind() InboundKind { return InFile }

type CancelIn struct{ base }

func (CancelIn) Kind() InboundKind { return InCancel }

type BargeInIn struct{ base }

func (BargeInIn) Kind() InboundKind { return InBargeIn }

type ClearHistoryIn struct{ base }

func (ClearHistoryIn) Kind() InboundKind { return InClearHistory }

type ReplayIn struct{ base }

func (ReplayIn) Kind() InboundKind { return InReplay }

type SetBotNameIn struct {
	base
	Name string `json:"name"`
}

func (SetBotNameIn) Kind() InboundKind { return InSetBotName }

type EnrollAudioIn struct {
	base
	Data   string `json:"data"`
	Name   string `json:"name"`
	Append bool   `json:"append,omitempty"`
}

func (EnrollAudioIn) Kind() InboundKind { return InEnrollAudio }

type GetProfilesIn struct{ base }

func (GetProfilesIn) Kind() InboundKind { return InGetProfiles }

type RenameSpeakerIn struct {
	base
	Old string `json:"old"`
	New string `json:"new"`
}

func (RenameSpeakerIn) Kind() InboundKind { return InRenameSpeaker }

type ResetSpeakersIn struct{ base }

func (ResetSpeakersIn) Kind() InboundKind { return InResetSpeakers }

type SetTTSEngineIn struct {
	base
	Engine string `json:"engine"`
}

func (SetTTSEngineIn) Kind() InboundKind { return InSetTTSEngine }

type GetSettingsIn struct{ base }

func (GetSettingsIn) Kind() InboundKind { return InGetSettings }

type PingIn struct{ base }

func (PingIn) Kind() InboundKind { return InPing }

// Capabilities describes what a mobile/web client declares it can do, e.g.
// render images, play audio, display buttons.
type Capabilities struct {
	Audio   bool `json:"audio,omitempty"`
	Images  bool `json:"images,omitempty"`
	Buttons bool `json:"buttons,omitempty"`
	Files   bool `json:"files,omitempty"`
}

type CapabilitiesIn struct {
	base
	Capabilities Capabilities `json:"capabilities"`
}

func (CapabilitiesIn) Kind() InboundKind { return InCapabilities }

type DeviceResponseIn struct {
	base
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
}

func (DeviceResponseIn) Kind() InboundKind { return InDeviceResponse }

// UnknownIn is the residual case for an envelope type outside the closed set.
// Callers are expected to log and drop it, never resurrect a string switch.
type UnknownIn struct {
	base
	RawType string `json:"-"`
}

func (UnknownIn) Kind() InboundKind { return InUnknown }

type inboundHeader struct {
	Type InboundKind `json:"type"`
}

// DecodeInbound reads the envelope's "type" tag and unmarshals into the
// matching concrete variant. An unrecognized type decodes to *UnknownIn
// instead of erroring, so a single malformed/future message type cannot take
// down the connection's read loop.
func DecodeInbound(data []byte) (Inbound, error) {
	var head inboundHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	decodeAs := func(v Inbound) (Inbound, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	switch head.Type {
	case InAuth:
		return decodeAs(&AuthIn{})
	case InAudio:
		return decodeAs(&AudioIn{})
	case InAmbientAudio:
		return decodeAs(&AmbientAudioIn{})
	case InText:
		return decodeAs(&TextIn{})
	case InImage:
		return decodeAs(&ImageIn{})
	case InFile:
		return decodeAs(&FileIn{})
	case InCancel:
		return decodeAs(&CancelIn{})
	case InBargeIn:
		return decodeAs(&BargeInIn{})
	case InClearHistory:
		return decodeAs(&ClearHistoryIn{})
	case InReplay:
		return decodeAs(&ReplayIn{})
	case InSetBotName:
		return decodeAs(&SetBotNameIn{})
	case InEnrollAudio:
		return decodeAs(&EnrollAudioIn{})
	case InGetProfiles:
		return decodeAs(&GetProfilesIn{})
	case InRenameSpeaker:
		return decodeAs(&RenameSpeakerIn{})
	case InResetSpeakers:
		return decodeAs(&ResetSpeakersIn{})
	case InSetTTSEngine:
		return decodeAs(&SetTTSEngineIn{})
	case InGetSettings:
		return decodeAs(&GetSettingsIn{})
	case InPing:
		return decodeAs(&PingIn{})
	case InCapabilities:
		return decodeAs(&CapabilitiesIn{})
	case InDeviceResponse:
		return decodeAs(&DeviceResponseIn{})
	default:
		u := &UnknownIn{RawType: string(head.Type)}
		_, _ = decodeAs(u)
		return u, nil
	}
}
