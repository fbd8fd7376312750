package protocol

// OutboundKind is the closed set of server-to-client envelope tags.
type OutboundKind string

const (
	OutAuth             OutboundKind = "auth"
	OutStatus           OutboundKind = "status"
	OutTranscript       OutboundKind = "transcript"
	OutReplyChunk       OutboundKind = "reply_chunk"
	OutAudioChunk       OutboundKind = "audio_chunk"
	OutStreamDone       OutboundKind = "stream_done"
	OutStopPlayback     OutboundKind = "stop_playback"
	OutHistoryCleared   OutboundKind = "history_cleared"
	OutEmotion          OutboundKind = "emotion"
	OutAmbientTranscript OutboundKind = "ambient_transcript"
	OutSmartStatus      OutboundKind = "smart_status"
	OutArtifact         OutboundKind = "artifact"
	OutButtons          OutboundKind = "buttons"
	OutSettings         OutboundKind = "settings"
	OutTTSEngine        OutboundKind = "tts_engine"
	OutProfiles         OutboundKind = "profiles"
	OutEnrollResult     OutboundKind = "enroll_result"
	OutRenameResult     OutboundKind = "rename_result"
	OutResetResult      OutboundKind = "reset_result"
	OutError            OutboundKind = "error"
	OutPong             OutboundKind = "pong"
	OutDeviceCommand    OutboundKind = "device_command"
)

// IsEphemeral reports whether envelopes of this kind are excluded from the
// replay buffer (pong and smart_status per the outbound send contract).
func IsEphemeral(kind OutboundKind) bool {
	return kind == OutPong || kind == OutSmartStatus
}

// Envelope carries the wire-level fields every outbound message is stamped
// with: its type tag, the session-monotonic sequence number, and whether
// this is a reconnect replay of a previously emitted envelope.
type Envelope struct {
	Type   OutboundKind `json:"type"`
	SSeq   uint64       `json:"sseq"`
	Replay bool         `json:"replay,omitempty"`
}

func (e Envelope) Kind() OutboundKind { return e.Type }

// Stamp assigns the sequence number and replay flag at send time. It is
// called exactly once per envelope, by the session's outbound send path.
func (e *Envelope) Stamp(seq uint64, replay bool) {
	e.SSeq = seq
	e.Replay = replay
}

func (e Envelope) Seq() uint64 { return e.SSeq }

// Outbound is implemented by every concrete server-to-client message.
type Outbound interface {
	Kind() OutboundKind
	Stamp(seq uint64, replay bool)
	Seq() uint64
}

type Status string

const (
	StatusTranscribing Status = "transcribing"
	StatusThinking     Status = "thinking"
	StatusSpeaking     Status = "speaking"
	StatusIdle         Status = "idle"
)

type AuthOut struct {
	Envelope
	Status    string `json:"status"`
	SessionID string `json:"sessionId"`
	ServerSeq uint64 `json:"serverSeq"`
}

func NewAuthOut(status, sessionID string, serverSeq uint64) *AuthOut {
	return &AuthOut{Envelope: Envelope{Type: OutAuth}, Status: status, SessionID: sessionID, ServerSeq: serverSeq}
}

type StatusOut struct {
	Envelope
	Status Status `json:"status"`
}

func NewStatusOut(status Status) *StatusOut {
	return &StatusOut{Envelope: Envelope{Type: OutStatus}, Status: status}
}

type TranscriptOut struct {
	Envelope
	Text string `json:"text"`
}

func NewTranscriptOut(text string) *TranscriptOut {
	return &TranscriptOut{Envelope: Envelope{Type: OutTranscript}, Text: text}
}

type ReplyChunkOut struct {
	Envelope
	Index   int     `json:"index"`
	Text    string  `json:"text"`
	Emotion Emotion `json:"emotion"`
}

func NewReplyChunkOut(index int, text string, emotion Emotion) *ReplyChunkOut {
	return &ReplyChunkOut{Envelope: Envelope{Type: OutReplyChunk}, Index: index, Text: text, Emotion: emotion}
}

type AudioChunkOut struct {
	Envelope
	Index   int     `json:"index"`
	Emotion Emotion `json:"emotion"`
	Text    string  `json:"text"`
	Data    string  `json:"data"`
}

func NewAudioChunkOut(index int, emotion Emotion, text, base64Data string) *AudioChunkOut {
	return &AudioChunkOut{Envelope: Envelope{Type: OutAudioChunk}, Index: index, Emotion: emotion, Text: text, Data: base64Data}
}

type StreamDoneOut struct{ Envelope }

func NewStreamDoneOut() *StreamDoneOut { return &StreamDoneOut{Envelope{Type: OutStreamDone}} }

type StopPlaybackOut struct{ Envelope }

func NewStopPlaybackOut() *StopPlaybackOut { return &StopPlaybackOut{Envelope{Type: OutStopPlayback}} }

type HistoryClearedOut struct{ Envelope }

func NewHistoryClearedOut() *HistoryClearedOut {
	return &HistoryClearedOut{Envelope{Type: OutHistoryCleared}}
}

type EmotionOut struct {
	Envelope
	Emotion Emotion `json:"emotion"`
}

func NewEmotionOut(emotion Emotion) *EmotionOut {
	return &EmotionOut{Envelope: Envelope{Type: OutEmotion}, Emotion: emotion}
}

type AmbientTranscriptOut struct {
	Envelope
	Text     string `json:"text"`
	Speaker  string `json:"speaker"`
	IsOwner  bool   `json:"isOwner"`
	IsKnown  bool   `json:"isKnown"`
}

func NewAmbientTranscriptOut(text, speaker string, isOwner, isKnown bool) *AmbientTranscriptOut {
	return &AmbientTranscriptOut{Envelope: Envelope{Type: OutAmbientTranscript}, Text: text, Speaker: speaker, IsOwner: isOwner, IsKnown: isKnown}
}

type SmartStatus string

const (
	SmartStatusListening     SmartStatus = "listening"
	SmartStatusTranscribing SmartStatus = "transcribing"
)

type SmartStatusOut struct {
	Envelope
	Status SmartStatus `json:"status"`
}

func NewSmartStatusOut(status SmartStatus) *SmartStatusOut {
	return &SmartStatusOut{Envelope: Envelope{Type: OutSmartStatus}, Status: status}
}

type ArtifactOut struct {
	Envelope
	ArtifactType string `json:"artifactType"`
	Content      string `json:"content"`
	Language     string `json:"language,omitempty"`
	Title        string `json:"title,omitempty"`
}

func NewArtifactOut(artifactType, content, language, title string) *ArtifactOut {
	return &ArtifactOut{Envelope: Envelope{Type: OutArtifact}, ArtifactType: artifactType, Content: content, Language: language, Title: title}
}

type ButtonOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

type ButtonsOut struct {
	Envelope
	Options []ButtonOption `json:"options"`
}

func NewButtonsOut(options []ButtonOption) *ButtonsOut {
	return &ButtonsOut{Envelope: Envelope{Type: OutButtons}, Options: options}
}

type SettingsOut struct {
	Envelope
	WakeName  string `json:"wakeName"`
	Voice     string `json:"voice"`
	Language  string `json:"language"`
	TTSEngine string `json:"ttsEngine"`
}

func NewSettingsOut(wakeName, voice, language, ttsEngine string) *SettingsOut {
	return &SettingsOut{Envelope: Envelope{Type: OutSettings}, WakeName: wakeName, Voice: voice, Language: language, TTSEngine: ttsEngine}
}

type TTSEngineOut struct {
	Envelope
	Engine string `json:"engine"`
	Status string `json:"status"`
}

func NewTTSEngineOut(engine, status string) *TTSEngineOut {
	return &TTSEngineOut{Envelope: Envelope{Type: OutTTSEngine}, Engine: engine, Status: status}
}

type Profile struct {
	Label string `json:"label"`
	Known bool   `json:"known"`
}

type ProfilesOut struct {
	Envelope
	Profiles []Profile `json:"profiles"`
}

func NewProfilesOut(profiles []Profile) *ProfilesOut {
	return &ProfilesOut{Envelope: Envelope{Type: OutProfiles}, Profiles: profiles}
}

type EnrollResultOut struct {
	Envelope
	OK      bool   `json:"ok"`
	Label   string `json:"label,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewEnrollResultOut(ok bool, label, message string) *EnrollResultOut {
	return &EnrollResultOut{Envelope: Envelope{Type: OutEnrollResult}, OK: ok, Label: label, Message: message}
}

type RenameResultOut struct {
	Envelope
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewRenameResultOut(ok bool, message string) *RenameResultOut {
	return &RenameResultOut{Envelope: Envelope{Type: OutRenameResult}, OK: ok, Message: message}
}

type ResetResultOut struct {
	Envelope
	OK bool `json:"ok"`
}

func NewResetResultOut(ok bool) *ResetResultOut {
	return &ResetResultOut{Envelope: Envelope{Type: OutResetResult}, OK: ok}
}

type ErrorOut struct {
	Envelope
	Message string `json:"message"`
}

func NewErrorOut(message string) *ErrorOut {
	return &ErrorOut{Envelope: Envelope{Type: OutError}, Message: message}
}

type PongOut struct{ Envelope }

func NewPongOut() *PongOut { return &PongOut{Envelope{Type: OutPong}} }

type DeviceCommandOut struct {
	Envelope
	ID      string                 `json:"id"`
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

func NewDeviceCommandOut(id, command string, params map[string]interface{}) *DeviceCommandOut {
	return &DeviceCommandOut{Envelope: Envelope{Type: OutDeviceCommand}, ID: id, Command: command, Params: params}
}
