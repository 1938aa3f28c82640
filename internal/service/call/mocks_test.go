package call

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"callcenter-core/internal/config"
	"callcenter-core/internal/domain"
	"callcenter-core/internal/engine"
	"callcenter-core/internal/eventbus"
	"callcenter-core/internal/repository/memory"
	"callcenter-core/internal/transport"
)

// mockEngine is a testify mock of the media engine.
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Start(conversationID uuid.UUID, callType engine.CallType, conversationType engine.ConversationType, useCBR bool) bool {
	args := m.Called(conversationID, callType, conversationType, useCBR)
	return args.Bool(0)
}

func (m *mockEngine) Answer(conversationID uuid.UUID, callType engine.CallType, useCBR bool) bool {
	args := m.Called(conversationID, callType, useCBR)
	return args.Bool(0)
}

func (m *mockEngine) End(conversationID uuid.UUID) {
	m.Called(conversationID)
}

func (m *mockEngine) Reject(conversationID uuid.UUID) {
	m.Called(conversationID)
}

func (m *mockEngine) SetVideoState(conversationID uuid.UUID, state domain.VideoState) {
	m.Called(conversationID, state)
}

func (m *mockEngine) Received(event domain.CallEvent) {
	m.Called(event)
}

func (m *mockEngine) Members(conversationID uuid.UUID) []domain.CallMember {
	args := m.Called(conversationID)
	members, _ := args.Get(0).([]domain.CallMember)
	return members
}

func (m *mockEngine) Respond(httpStatus int, token engine.MessageToken) {
	m.Called(httpStatus, token)
}

func (m *mockEngine) UpdateConfig(config string, httpStatus int) {
	m.Called(config, httpStatus)
}

func (m *mockEngine) Close() {
	m.Called()
}

// fakeTransport records payloads and completes synchronously.
type fakeTransport struct {
	mu           sync.Mutex
	sent         [][]byte
	sendStatus   int
	config       string
	configStatus int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sendStatus: 200, config: `{"ice_servers":[]}`, configStatus: 200}
}

func (t *fakeTransport) Send(payload []byte, conversationID, userID uuid.UUID, completion transport.SendCompletion) {
	t.mu.Lock()
	t.sent = append(t.sent, payload)
	status := t.sendStatus
	t.mu.Unlock()
	completion(status)
}

func (t *fakeTransport) RequestCallConfig(completion transport.ConfigCompletion) {
	t.mu.Lock()
	config, status := t.config, t.configStatus
	t.mu.Unlock()
	completion(config, status)
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

// recorder collects bus notifications. Handlers run on the center's
// dispatcher; the lock makes reads from the test goroutine safe.
type recorder struct {
	mu           sync.Mutex
	states       []StateChanged
	participants []ParticipantsChanged
	missed       []MissedCall
	cbr          []ConstantBitRateChanged
	quality      []NetworkQualityChanged
	muted        []MutedChanged
}

func (r *recorder) subscribe(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, func(event StateChanged) {
		r.mu.Lock()
		r.states = append(r.states, event)
		r.mu.Unlock()
	})
	eventbus.Subscribe(bus, func(event ParticipantsChanged) {
		r.mu.Lock()
		r.participants = append(r.participants, event)
		r.mu.Unlock()
	})
	eventbus.Subscribe(bus, func(event MissedCall) {
		r.mu.Lock()
		r.missed = append(r.missed, event)
		r.mu.Unlock()
	})
	eventbus.Subscribe(bus, func(event ConstantBitRateChanged) {
		r.mu.Lock()
		r.cbr = append(r.cbr, event)
		r.mu.Unlock()
	})
	eventbus.Subscribe(bus, func(event NetworkQualityChanged) {
		r.mu.Lock()
		r.quality = append(r.quality, event)
		r.mu.Unlock()
	})
	eventbus.Subscribe(bus, func(event MutedChanged) {
		r.mu.Lock()
		r.muted = append(r.muted, event)
		r.mu.Unlock()
	})
}

func (r *recorder) stateEvents() []StateChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make([]StateChanged, len(r.states))
	copy(states, r.states)
	return states
}

func (r *recorder) lastState() (StateChanged, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return StateChanged{}, false
	}
	return r.states[len(r.states)-1], true
}

func (r *recorder) participantEvents() []ParticipantsChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]ParticipantsChanged, len(r.participants))
	copy(events, r.participants)
	return events
}

// fixture wires a center to a mock engine and an in-memory directory.
type fixture struct {
	t          *testing.T
	center     *Center
	engine     *mockEngine
	transport  *fakeTransport
	directory  *memory.Directory
	bus        *eventbus.Bus
	recorded   *recorder
	selfUserID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engineMock := &mockEngine{}
	engineMock.On("End", mock.Anything).Maybe()
	engineMock.On("Reject", mock.Anything).Maybe()
	engineMock.On("SetVideoState", mock.Anything, mock.Anything).Maybe()
	engineMock.On("Received", mock.Anything).Maybe()
	engineMock.On("Respond", mock.Anything, mock.Anything).Maybe()
	engineMock.On("UpdateConfig", mock.Anything, mock.Anything).Maybe()
	engineMock.On("Close").Maybe()

	f := &fixture{
		t:          t,
		engine:     engineMock,
		transport:  newFakeTransport(),
		directory:  memory.NewDirectory(),
		bus:        eventbus.New(),
		recorded:   &recorder{},
		selfUserID: uuid.New(),
	}
	f.recorded.subscribe(f.bus)

	center, err := NewCenter(Params{
		SelfUserID:   f.selfUserID,
		SelfClientID: "self-client",
		Config: &config.Config{
			AudioOnlyParticipantLimit: 4,
		},
		NewEngine: func(engine.EventHandler) engine.Engine {
			return engineMock
		},
		Transport: f.transport,
		Directory: f.directory,
		Bus:       f.bus,
	})
	if err != nil {
		t.Fatalf("failed to create center: %v", err)
	}
	f.center = center
	t.Cleanup(center.Close)

	return f
}

func (f *fixture) expectStart(accepted bool) {
	f.engine.On("Start", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(accepted).Once()
}

func (f *fixture) expectAnswer(accepted bool) {
	f.engine.On("Answer", mock.Anything, mock.Anything, mock.Anything).
		Return(accepted).Once()
}

func (f *fixture) addOneToOne(remoteUserID uuid.UUID, level domain.SecurityLevel) uuid.UUID {
	conversationID := uuid.New()
	f.directory.AddUser(domain.User{ID: remoteUserID, Name: "Remote"})
	f.directory.AddConversation(domain.Conversation{
		ID:               conversationID,
		Type:             domain.ConversationTypeOneToOne,
		SecurityLevel:    level,
		ParticipantCount: 2,
		ConnectedUserID:  remoteUserID,
	})
	return conversationID
}

func (f *fixture) addGroup(participantCount int, level domain.SecurityLevel) uuid.UUID {
	conversationID := uuid.New()
	f.directory.AddConversation(domain.Conversation{
		ID:               conversationID,
		Type:             domain.ConversationTypeGroup,
		SecurityLevel:    level,
		ParticipantCount: participantCount,
	})
	return conversationID
}

func (f *fixture) addUser(name string) uuid.UUID {
	id := uuid.New()
	f.directory.AddUser(domain.User{ID: id, Name: name})
	return id
}
