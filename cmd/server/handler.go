package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/lokutor-ai/lokutor-orchestrator/internal/obslog"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/ambient"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/protocol"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/tts"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/session"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/worker"
)

// server bundles every dependency the HTTP and websocket handlers need.
// One instance lives for the process lifetime.
type server struct {
	sessions *session.Manager
	runner   *orchestrator.Runner
	stt      orchestrator.STTProvider
	ambient  *ambient.Listener
	speaker  orchestrator.SpeakerIDProvider
	ttsSel   *tts.Selector

	worker *worker.Orchestrator

	authToken     string
	ttsEngineName atomic.Value // string
}

func (s *server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/ws", s.handleWS)

	r.Post("/join", s.handleJoinMeeting)
	r.Post("/leave", s.handleLeaveMeeting)
	r.Get("/status", s.handleStatus)
	r.Get("/meetings", s.handleListMeetings)
	r.Get("/dashboard", s.handleDashboard)
	return r
}

func (s *server) currentTTSEngineName() string {
	if v, ok := s.ttsEngineName.Load().(string); ok && v != "" {
		return v
	}
	return string(tts.EngineCloud)
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type joinMeetingRequest struct {
	MeetLink string `json:"meetLink"`
	BotName  string `json:"botName"`
}

// handleJoinMeeting implements §6's `POST /join {meetLink, botName?}`,
// accepting the request (202) rather than confirming the container is
// actually up — JoinMeeting's container launch happens synchronously here,
// but the worker itself reports readiness through its own status endpoint.
func (s *server) handleJoinMeeting(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		http.Error(w, "worker orchestration unavailable", http.StatusServiceUnavailable)
		return
	}
	var req joinMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.MeetLink == "" {
		http.Error(w, "meetLink is required", http.StatusBadRequest)
		return
	}

	id, err := s.worker.JoinMeeting(r.Context(), req.MeetLink, req.BotName)
	if err != nil {
		if err == orchestrator.ErrWorkerCapacity {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"meetingId": id})
}

type leaveMeetingRequest struct {
	MeetingID string `json:"meetingId"`
}

// handleLeaveMeeting implements §6's `POST /leave {meetingId}`.
func (s *server) handleLeaveMeeting(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		http.Error(w, "worker orchestration unavailable", http.StatusServiceUnavailable)
		return
	}
	var req leaveMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.MeetingID == "" {
		http.Error(w, "meetingId is required", http.StatusBadRequest)
		return
	}
	if err := s.worker.LeaveMeeting(r.Context(), req.MeetingID); err != nil {
		if err == orchestrator.ErrMeetingNotFound {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.worker == nil {
		_ = json.NewEncoder(w).Encode([]worker.Snapshot{})
		return
	}
	_ = json.NewEncoder(w).Encode(s.worker.ListMeetings())
}

// statusResponse is the aggregate capacity summary GET /status reports,
// distinct from GET /meetings' per-meeting snapshots.
type statusResponse struct {
	WorkerAvailable bool `json:"workerAvailable"`
	ActiveMeetings  int  `json:"activeMeetings"`
	MaxConcurrent   int  `json:"maxConcurrent"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := statusResponse{WorkerAvailable: s.worker != nil}
	if s.worker != nil {
		resp.ActiveMeetings = s.worker.ActiveCount()
		resp.MaxConcurrent = s.worker.MaxConcurrent()
	}
	_ = json.NewEncoder(w).Encode(resp)
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>Lokutor meetings</title></head>
<body>
<h1>Meeting workers</h1>
<p>{{.Active}} active / {{.MaxConcurrent}} max concurrent</p>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>ID</th><th>URL</th><th>Bot</th><th>State</th><th>Transcripts</th><th>Started</th></tr>
{{range .Meetings}}<tr><td>{{.ID}}</td><td>{{.ExternalURL}}</td><td>{{.BotName}}</td><td>{{.State}}</td><td>{{.TranscriptCount}}</td><td>{{.StartedAt}}</td></tr>
{{else}}<tr><td colspan="6">no meetings</td></tr>
{{end}}</table>
</body>
</html>
`))

// handleDashboard renders the §6 GET /dashboard HTML summary page.
func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Active        int
		MaxConcurrent int
		Meetings      []worker.Snapshot
	}{}
	if s.worker != nil {
		data.Active = s.worker.ActiveCount()
		data.MaxConcurrent = s.worker.MaxConcurrent()
		data.Meetings = s.worker.ListMeetings()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = dashboardTmpl.Execute(w, data)
}

// handleWS upgrades the request and runs the duplex protocol loop described
// in §4.1 until the connection drops: auth handshake within the grace
// period, then dispatch every decoded envelope by kind until the read
// fails.
func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	ctx := r.Context()
	transport := newWSTransport(conn)

	auth, authed := s.awaitAuth(ctx, conn, transport)
	if !authed {
		return
	}

	sessionID, sess := s.sessions.GetOrCreate(auth.SessionID)
	pconn := session.NewConnection(sessionID, transport)
	pconn.MarkAuthenticated()

	lastServerSeq := uint64(0)
	if auth.LastServerSeq != nil {
		lastServerSeq = *auth.LastServerSeq
	}
	currentSeq, replay := sess.Attach(pconn, lastServerSeq)
	_ = pconn.Send(protocol.NewAuthOut("ok", sessionID, currentSeq))
	for _, env := range replay {
		_ = pconn.Send(env)
	}

	log := obslog.WithSessionID(sessionID)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		in, err := protocol.DecodeInbound(data)
		if err != nil {
			log.Warn().Err(err).Msg("failed to decode inbound envelope")
			continue
		}
		if !sess.AcceptCSeq(in.CSeq()) {
			continue
		}
		s.dispatch(ctx, sess, pconn, in)
	}

	sess.Detach(s.sessions.Expire)
}

// awaitAuth blocks until an auth envelope arrives or the grace period
// elapses, per §4.1's connection handshake. It only validates the token; the
// caller resolves the session and sends the auth reply once attached, so the
// reported serverSeq reflects the session's actual replay cursor.
func (s *server) awaitAuth(ctx context.Context, conn *websocket.Conn, transport *wsTransport) (*protocol.AuthIn, bool) {
	type result struct {
		in  protocol.Inbound
		err error
	}
	ch := make(chan result, 1)
	go func() {
		_, data, err := conn.Read(ctx)
		if err != nil {
			ch <- result{err: err}
			return
		}
		in, err := protocol.DecodeInbound(data)
		ch <- result{in: in, err: err}
	}()

	select {
	case <-time.After(session.AuthGracePeriod):
		_ = transport.WriteJSON(protocol.NewErrorOut("auth timeout"))
		return nil, false
	case res := <-ch:
		if res.err != nil {
			return nil, false
		}
		auth, ok := res.in.(*protocol.AuthIn)
		if !ok || auth.Token != s.authToken {
			_ = transport.WriteJSON(protocol.NewErrorOut("unauthorized"))
			return nil, false
		}
		return auth, true
	}
}

// dispatch routes one decoded inbound envelope to its handler. Kinds not
// needing any reply beyond a side effect fall through with no response.
func (s *server) dispatch(ctx context.Context, sess *session.Session, pconn *session.Connection, in protocol.Inbound) {
	switch v := in.(type) {
	case *protocol.TextIn:
		go s.runner.RunText(ctx, sess, v.Text, v.Prefix, false)
	case *protocol.AudioIn:
		s.handleAudio(ctx, sess, v)
	case *protocol.AmbientAudioIn:
		s.handleAmbientAudio(ctx, sess, v)
	case *protocol.CancelIn:
		sess.CancelActiveRun()
	case *protocol.BargeInIn:
		sess.CancelActiveRun()
		sess.Send(protocol.NewStopPlaybackOut())
	case *protocol.ClearHistoryIn:
		sess.ClearHistory()
		sess.Send(protocol.NewHistoryClearedOut())
	case *protocol.SetBotNameIn:
		sess.SetWakeName(v.Name)
	case *protocol.EnrollAudioIn:
		s.handleEnroll(ctx, sess, v)
	case *protocol.GetProfilesIn:
		s.handleGetProfiles(ctx, sess)
	case *protocol.RenameSpeakerIn:
		s.handleRenameSpeaker(ctx, sess, v)
	case *protocol.ResetSpeakersIn:
		s.handleResetSpeakers(ctx, sess)
	case *protocol.SetTTSEngineIn:
		s.ttsSel.SetDefaultEngine(tts.Engine(v.Engine))
		s.ttsEngineName.Store(v.Engine)
		sess.Send(protocol.NewTTSEngineOut(v.Engine, "ok"))
	case *protocol.GetSettingsIn:
		sess.Send(protocol.NewSettingsOut(sess.WakeName(), string(orchestrator.VoiceF1), string(orchestrator.LanguageEn), s.currentTTSEngineName()))
	case *protocol.PingIn:
		sess.Send(protocol.NewPongOut())
	case *protocol.CapabilitiesIn:
		pconn.SetCapabilities(v.Capabilities)
	case *protocol.DeviceResponseIn:
		pconn.ResolveDeviceResponse(*v)
	case *protocol.ReplayIn:
		// Replay on reconnect is served from Session.Attach; a mid-connection
		// replay request has nothing further to resend.
	default:
		// Unknown/unrecognized inbound kinds are logged and dropped.
		obslog.WithSessionID(sess.ID).Debug().Str("kind", string(in.Kind())).Msg("dropping unhandled inbound envelope")
	}
}

// handleAudio transcribes an uploaded audio blob (§4.5) and re-enters the
// text flavour with the transcript and declared prefix, per §4.1's audio
// input flavour.
func (s *server) handleAudio(ctx context.Context, sess *session.Session, in *protocol.AudioIn) {
	raw, err := base64.StdEncoding.DecodeString(in.Audio)
	if err != nil {
		sess.Send(protocol.NewErrorOut("invalid audio encoding"))
		return
	}
	sess.Send(protocol.NewStatusOut(protocol.StatusTranscribing))

	go func() {
		text, err := s.stt.Transcribe(ctx, raw, orchestrator.LanguageEn)
		if err != nil {
			sess.Send(protocol.NewErrorOut(fmt.Errorf("%w: %v", orchestrator.ErrTranscriptionFailed, err).Error()))
			sess.Send(protocol.NewStatusOut(protocol.StatusIdle))
			return
		}
		sess.Send(protocol.NewTranscriptOut(text))
		s.runner.RunText(ctx, sess, text, in.Prefix, false)
	}()
}

func (s *server) handleAmbientAudio(ctx context.Context, sess *session.Session, in *protocol.AmbientAudioIn) {
	raw, err := base64.StdEncoding.DecodeString(in.Audio)
	if err != nil {
		return
	}
	go s.ambient.HandleSegment(ctx, sess, raw)
}

func (s *server) handleEnroll(ctx context.Context, sess *session.Session, in *protocol.EnrollAudioIn) {
	raw, err := base64.StdEncoding.DecodeString(in.Data)
	if err != nil {
		sess.Send(protocol.NewEnrollResultOut(false, "", "invalid audio encoding"))
		return
	}
	if err := s.speaker.Enroll(ctx, sess.ID, raw, in.Name, in.Append); err != nil {
		sess.Send(protocol.NewEnrollResultOut(false, in.Name, err.Error()))
		return
	}
	sess.Send(protocol.NewEnrollResultOut(true, in.Name, ""))
}

func (s *server) handleGetProfiles(ctx context.Context, sess *session.Session) {
	profiles, err := s.speaker.Profiles(ctx, sess.ID)
	if err != nil {
		sess.Send(protocol.NewProfilesOut(nil))
		return
	}
	out := make([]protocol.Profile, len(profiles))
	for i, p := range profiles {
		out[i] = protocol.Profile{Label: p.Label, Known: p.Known}
	}
	sess.Send(protocol.NewProfilesOut(out))
}

func (s *server) handleRenameSpeaker(ctx context.Context, sess *session.Session, in *protocol.RenameSpeakerIn) {
	if err := s.speaker.Rename(ctx, sess.ID, in.Old, in.New); err != nil {
		sess.Send(protocol.NewRenameResultOut(false, err.Error()))
		return
	}
	sess.Send(protocol.NewRenameResultOut(true, ""))
}

func (s *server) handleResetSpeakers(ctx context.Context, sess *session.Session) {
	err := s.speaker.Reset(ctx, sess.ID)
	sess.Send(protocol.NewResetResultOut(err == nil))
}
