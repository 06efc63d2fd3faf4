package orchestrator

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/event"
	"github.com/danmuck/assurance/internal/plugins"
	"github.com/danmuck/assurance/internal/session"
	"github.com/danmuck/assurance/internal/testutil/fakes"
	"github.com/danmuck/assurance/internal/testutil/testlog"
	"github.com/danmuck/assurance/internal/transport"
)

type fixture struct {
	o     *Orchestrator
	tr    *fakes.Transport
	pres  *fakes.Presentation
	state *fakes.State
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tr:    &fakes.Transport{},
		pres:  &fakes.Presentation{},
		state: &fakes.State{Org: "org@AdobeOrg"},
	}
	o, err := New(Options{
		Session:      session.DefaultConfig(),
		Transport:    f.tr.Factory(),
		Presentation: f.pres,
		State:        f.state,
		Plugins:      func() []plugins.Plugin { return plugins.Builtins(plugins.Dependencies{}) },
	})
	require.NoError(t, err)
	t.Cleanup(o.Close)
	f.o = o
	return f
}

// settle waits for tasks queued by already-queued tasks.
func (f *fixture) settle() {
	f.o.Snapshot()
	f.o.Snapshot()
}

func pendingDetails(t *testing.T) session.Details {
	t.Helper()
	d, err := session.NewDetails(uuid.NewString(), session.EnvProd)
	require.NoError(t, err)
	return d
}

func authenticatedDetails(t *testing.T) session.Details {
	t.Helper()
	d := pendingDetails(t)
	d.Authenticate("1111", "org@AdobeOrg")
	return d
}

func TestNewRequiresCollaborators(t *testing.T) {
	testlog.Start(t)
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrMissingTransport)
	_, err = New(Options{Transport: (&fakes.Transport{}).Factory()})
	assert.ErrorIs(t, err, ErrMissingState)
}

func TestCreateSessionTwiceKeepsOneSession(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	first := pendingDetails(t)
	f.o.CreateSession(first)
	f.o.CreateSession(pendingDetails(t))

	st := f.o.Snapshot()
	require.True(t, st.Active)
	assert.Equal(t, first.SessionID, st.Session.SessionID)
	assert.Equal(t, 1, f.tr.Built())
	assert.Equal(t, []string{first.SessionID}, f.state.Shared())
}

func TestIntakeBufferIsHandedToSessionOnce(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	assert.True(t, f.o.CanProcessSDKEvents())

	a := event.NewMobile(event.TypeGeneric, map[string]any{"n": 1.0})
	b := event.NewMobile(event.TypeGeneric, map[string]any{"n": 2.0})
	f.o.QueueEvent(a)
	f.o.QueueEvent(b)
	assert.Equal(t, 2, f.o.Snapshot().Intake)

	f.o.CreateSession(authenticatedDetails(t))
	st := f.o.Snapshot()
	assert.Zero(t, st.Intake)
	assert.True(t, st.CanProcessEvents)
	require.Len(t, f.tr.Connects(), 1)

	f.tr.Open()
	f.settle()
	c := event.NewMobile(event.TypeGeneric, map[string]any{"n": 3.0})
	f.o.QueueEvent(c)
	f.settle()

	sent := f.tr.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, event.TypeClient, sent[0].Type)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{sent[1].ID, sent[2].ID, sent[3].ID})
	assert.Equal(t, f.tr.URL(), f.state.ConnectedURL())
}

func TestTerminateStopsAllProcessing(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.QueueEvent(event.NewMobile(event.TypeGeneric, map[string]any{"n": 1.0}))
	f.o.TerminateSession()

	assert.False(t, f.o.CanProcessSDKEvents())
	f.o.QueueEvent(event.NewMobile(event.TypeGeneric, map[string]any{"n": 2.0}))
	st := f.o.Snapshot()
	assert.Zero(t, st.Intake)
	assert.False(t, st.Active)
	assert.True(t, st.HasEverTerminated)
	assert.Equal(t, 1, f.state.Cleared())

	// A later session never receives the dropped events.
	f.o.CreateSession(authenticatedDetails(t))
	f.tr.Open()
	f.settle()
	sent := f.tr.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, event.TypeClient, sent[0].Type)
}

func TestTerminateDisconnectsActiveSession(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.CreateSession(authenticatedDetails(t))
	f.tr.Open()
	f.settle()

	f.o.DisconnectClicked()
	st := f.o.Snapshot()
	assert.False(t, st.Active)
	assert.False(t, st.CanProcessEvents)
	assert.Equal(t, transport.StateClosed, f.tr.State())
	assert.True(t, f.pres.Has("removeStatus"))
}

func TestPinConnectAuthenticatesAndConnects(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	d := pendingDetails(t)
	f.o.CreateSession(d)
	f.settle()
	require.True(t, f.pres.Has("showAuthorization"))
	assert.Empty(t, f.tr.Connects())

	f.o.PinScreenConnectClicked("2468")
	f.settle()
	connects := f.tr.Connects()
	require.Len(t, connects, 1)
	assert.True(t, strings.Contains(connects[0], "sessionId="+d.SessionID+"&token=2468&orgId=org%40AdobeOrg"), connects[0])
	assert.True(t, f.pres.Has("initialized"))
}

func TestPinConnectValidation(t *testing.T) {
	cases := []struct {
		name    string
		pin     string
		org     string
		wantErr session.ConnectionError
	}{
		{name: "empty pin", pin: "", org: "org@AdobeOrg", wantErr: session.ErrNoPincode},
		{name: "missing org", pin: "1234", org: "", wantErr: session.ErrNoOrgID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			testlog.Start(t)
			f := newFixture(t)
			f.state.Org = tc.org
			f.o.CreateSession(pendingDetails(t))
			f.o.PinScreenConnectClicked(tc.pin)
			f.settle()

			assert.True(t, f.pres.Has("failed:"+tc.wantErr.Name))
			assert.Empty(t, f.tr.Connects())
			st := f.o.Snapshot()
			assert.False(t, st.Active)
			assert.True(t, st.HasEverTerminated)
		})
	}
}

func TestPinConnectWithoutSessionTerminates(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.PinScreenConnectClicked("1234")
	assert.False(t, f.o.CanProcessSDKEvents())
	assert.True(t, f.o.Snapshot().HasEverTerminated)
}

func TestPinCancelTerminates(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.CreateSession(pendingDetails(t))
	f.o.PinScreenCancelClicked()
	assert.False(t, f.o.Snapshot().Active)
}

func TestTerminalCloseDiscardsSession(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.CreateSession(authenticatedDetails(t))
	f.tr.Open()
	f.settle()
	f.tr.Close(transport.CloseEventLimit)
	f.settle()

	st := f.o.Snapshot()
	assert.False(t, st.Active)
	assert.False(t, st.CanProcessEvents)
	assert.True(t, f.pres.Has("error:"+session.ErrEventLimit.Name))

	f.o.CreateSession(authenticatedDetails(t))
	assert.True(t, f.o.Snapshot().Active)
	assert.Equal(t, 2, f.tr.Built())
}

func TestAbnormalCloseKeepsSessionActive(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.CreateSession(authenticatedDetails(t))
	f.tr.Open()
	f.settle()
	f.tr.Close(transport.CloseAbnormal)
	f.settle()

	st := f.o.Snapshot()
	require.True(t, st.Active)
	assert.True(t, st.Session.Reconnecting)
	assert.Len(t, f.tr.Connects(), 2)
}

func TestAddClientLogRoutesToSession(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.AddClientLog("dropped, no session", clientlog.Normal)
	f.o.CreateSession(authenticatedDetails(t))
	f.o.AddClientLog("visible", clientlog.High)
	f.settle()

	logs := f.pres.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "visible", logs[0].Text)
}

func TestClearQueuedEventsEmptiesIntake(t *testing.T) {
	testlog.Start(t)
	f := newFixture(t)
	f.o.QueueEvent(event.NewMobile(event.TypeGeneric, map[string]any{"n": 1.0}))
	f.o.ClearQueuedEvents()
	st := f.o.Snapshot()
	assert.Zero(t, st.Intake)
	assert.True(t, st.CanProcessEvents)
}
