package orch

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/frank005/broadcastaway-sub000/internal/core"
	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// fakeMediaSession implements core.MediaSession without a real connection.
type fakeMediaSession struct {
	mu        sync.Mutex
	joined    bool
	publisher bool
	published bool

	onJoined func(domain.MediaID)
	onLeft   func(domain.MediaID)
	onClosed func()
}

func (f *fakeMediaSession) Join(ctx context.Context, channel, token string, id domain.MediaID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = true
	return nil
}

func (f *fakeMediaSession) Leave(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = false
	f.published = false
	return nil
}

func (f *fakeMediaSession) SetPublisher(ctx context.Context, publisher bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publisher = publisher
	return nil
}

func (f *fakeMediaSession) Publish(tracks ...*webrtc.TrackLocalStaticRTP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = true
	return nil
}

func (f *fakeMediaSession) Unpublish() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = false
	return nil
}

func (f *fakeMediaSession) OnUserJoined(fn func(domain.MediaID)) { f.onJoined = fn }
func (f *fakeMediaSession) OnUserLeft(fn func(domain.MediaID))   { f.onLeft = fn }
func (f *fakeMediaSession) OnClosed(fn func())                   { f.onClosed = fn }

func (f *fakeMediaSession) isPublishing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published
}

// msgHub connects fake messaging sessions like a shared channel: published
// control messages fan out to every member, sender included, and logins and
// logouts produce presence events.
type msgHub struct {
	mu      sync.Mutex
	members map[domain.MessagingID]*fakeMsgSession
	msgs    []core.ControlMessage
}

func newMsgHub() *msgHub {
	return &msgHub{members: make(map[domain.MessagingID]*fakeMsgSession)}
}

func (h *msgHub) broadcast(msg core.ControlMessage) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	members := make([]*fakeMsgSession, 0, len(h.members))
	for _, m := range h.members {
		members = append(members, m)
	}
	h.mu.Unlock()
	for _, m := range members {
		if m.onMessage != nil {
			m.onMessage(msg)
		}
	}
}

func (h *msgHub) history() []core.ControlMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]core.ControlMessage, len(h.msgs))
	copy(out, h.msgs)
	return out
}

func (h *msgHub) login(s *fakeMsgSession) {
	h.mu.Lock()
	existing := make([]*fakeMsgSession, 0, len(h.members))
	for _, m := range h.members {
		existing = append(existing, m)
	}
	h.members[s.id] = s
	h.mu.Unlock()

	for _, m := range existing {
		if m.onPresence != nil {
			m.onPresence(core.PresenceEvent{ID: s.id, DisplayName: s.name, Joined: true})
		}
		if s.onPresence != nil {
			s.onPresence(core.PresenceEvent{ID: m.id, DisplayName: m.name, Joined: true})
		}
	}
}

func (h *msgHub) logout(s *fakeMsgSession) {
	h.mu.Lock()
	delete(h.members, s.id)
	members := make([]*fakeMsgSession, 0, len(h.members))
	for _, m := range h.members {
		members = append(members, m)
	}
	h.mu.Unlock()
	for _, m := range members {
		if m.onPresence != nil {
			m.onPresence(core.PresenceEvent{ID: s.id, Joined: false})
		}
	}
}

// fakeMsgSession implements core.MessagingSession against a msgHub. The
// display name is what the hub announces in presence events.
type fakeMsgSession struct {
	hub  *msgHub
	name string

	mu     sync.Mutex
	id     domain.MessagingID
	logged bool

	onMessage  func(core.ControlMessage)
	onPresence func(core.PresenceEvent)
	onClosed   func()
}

func newFakeMsgSession(hub *msgHub, name string) *fakeMsgSession {
	return &fakeMsgSession{hub: hub, name: name}
}

func (f *fakeMsgSession) Login(ctx context.Context, token string, id domain.MessagingID) error {
	f.mu.Lock()
	f.id = id
	f.logged = true
	f.mu.Unlock()
	f.hub.login(f)
	return nil
}

func (f *fakeMsgSession) Logout(ctx context.Context) error {
	f.mu.Lock()
	wasLogged := f.logged
	f.logged = false
	f.mu.Unlock()
	if wasLogged {
		f.hub.logout(f)
	}
	return nil
}

func (f *fakeMsgSession) Publish(ctx context.Context, msg core.ControlMessage) error {
	f.mu.Lock()
	logged := f.logged
	f.mu.Unlock()
	if !logged {
		return core.ErrConnectionLost
	}
	f.hub.broadcast(msg)
	return nil
}

func (f *fakeMsgSession) OnMessage(fn func(core.ControlMessage)) { f.onMessage = fn }
func (f *fakeMsgSession) OnPresence(fn func(core.PresenceEvent)) { f.onPresence = fn }
func (f *fakeMsgSession) OnClosed(fn func())                     { f.onClosed = fn }

// fakeTokens never rejects.
type fakeTokens struct{}

func (fakeTokens) Token(ctx context.Context, channel string, id domain.MediaID,
	role domain.Role, messagingID domain.MessagingID, kind core.TokenKind) (string, error) {
	return "token", nil
}

// fakeConverters records converter calls.
type fakeConverters struct {
	mu      sync.Mutex
	next    int
	active  map[core.ConverterID]domain.Layout
	updates int
}

func newFakeConverters() *fakeConverters {
	return &fakeConverters{active: make(map[core.ConverterID]domain.Layout)}
}

func (f *fakeConverters) Create(ctx context.Context, channel string, layout domain.Layout) (core.ConverterID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := core.ConverterID(string(rune('a' + f.next - 1)))
	f.active[id] = layout
	return id, nil
}

func (f *fakeConverters) UpdateLayout(ctx context.Context, id core.ConverterID, layout domain.Layout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.active[id]; !ok {
		return errors.New("unknown converter")
	}
	f.active[id] = layout
	f.updates++
	return nil
}

func (f *fakeConverters) Delete(ctx context.Context, id core.ConverterID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, id)
	return nil
}

func (f *fakeConverters) layout(id core.ConverterID) domain.Layout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[id]
}

func (f *fakeConverters) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

// fakeCaptionBackend records caption session calls.
type fakeCaptionBackend struct {
	mu      sync.Mutex
	started int
	stopped int
	langs   []string
}

func (f *fakeCaptionBackend) Start(ctx context.Context, channel string, langs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	f.langs = langs
	return "cap-1", nil
}

func (f *fakeCaptionBackend) Update(ctx context.Context, sessionID string, langs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.langs = langs
	return nil
}

func (f *fakeCaptionBackend) Stop(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

// fakeEvictor records eviction calls.
type fakeEvictor struct {
	mu       sync.Mutex
	channels []string
}

func (f *fakeEvictor) Evict(ctx context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	return nil
}

func (f *fakeEvictor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

// fakeCapture implements core.Capture.
type fakeCapture struct {
	mu       sync.Mutex
	acquired bool
	fail     bool
}

func (f *fakeCapture) Acquire(ctx context.Context) ([]*webrtc.TrackLocalStaticRTP, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("device busy")
	}
	f.acquired = true
	return nil, nil
}

func (f *fakeCapture) Release() {
	f.mu.Lock()
	f.acquired = false
	f.mu.Unlock()
}

// member bundles one orchestrator with its fakes for a test scenario.
type member struct {
	orch       *Orchestrator
	media      *fakeMediaSession
	messaging  *fakeMsgSession
	converters *fakeConverters
	captions   *fakeCaptionBackend
	evictor    *fakeEvictor
	capture    *fakeCapture
}

func newMember(hub *msgHub, name string) *member {
	m := &member{
		media:      &fakeMediaSession{},
		messaging:  newFakeMsgSession(hub, name),
		converters: newFakeConverters(),
		captions:   &fakeCaptionBackend{},
		evictor:    &fakeEvictor{},
		capture:    &fakeCapture{},
	}
	m.orch = New(Deps{
		Media:         m.media,
		NewMedia:      func() core.MediaSession { return &fakeMediaSession{} },
		Messaging:     m.messaging,
		Tokens:        fakeTokens{},
		Converters:    m.converters,
		Captions:      m.captions,
		Evictor:       m.evictor,
		Capture:       m.capture,
		ScreenCapture: &fakeCapture{},
		CanvasW:       1280,
		CanvasH:       720,
	})
	return m
}
