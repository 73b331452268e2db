package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twitch_indicator/internal/models"
)

func TestSetAndGet(t *testing.T) {
	st := NewState()

	assert.Nil(t, st.User())
	assert.True(t, st.FirstRun())

	st.SetUser(&models.ValidationInfo{UserId: "1", Login: "a"})
	require.NotNil(t, st.User())
	assert.Equal(t, "a", st.User().Login)

	st.SetLiveStreams([]models.Stream{{UserId: "1"}})
	assert.Len(t, st.LiveStreams(), 1)

	st.SetFirstRun(false)
	assert.False(t, st.FirstRun())
}

func TestHandlersInvokedInRegistrationOrder(t *testing.T) {
	st := NewState()

	var order []string
	st.AddHandler(SlotLiveStreams, func(interface{}) { order = append(order, "first") })
	st.AddHandler(SlotLiveStreams, func(interface{}) { order = append(order, "second") })

	st.SetLiveStreams(nil)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHandlerReceivesNewValue(t *testing.T) {
	st := NewState()

	var got []models.Stream
	st.AddHandler(SlotLiveStreams, func(value interface{}) {
		got = value.([]models.Stream)
	})

	streams := []models.Stream{{UserId: "1"}, {UserId: "2"}}
	st.SetLiveStreams(streams)

	assert.Equal(t, streams, got)
}

func TestRemoveHandler(t *testing.T) {
	st := NewState()

	calls := 0
	remove := st.AddHandler(SlotFirstRun, func(interface{}) { calls++ })

	st.SetFirstRun(false)
	remove()
	st.SetFirstRun(true)

	assert.Equal(t, 1, calls)
}

func TestHandlerMayReadSlot(t *testing.T) {
	st := NewState()

	// Handlers run outside the slot lock, reading back must not deadlock.
	var seen int
	st.AddHandler(SlotLiveStreams, func(interface{}) {
		seen = len(st.LiveStreams())
	})

	st.SetLiveStreams([]models.Stream{{UserId: "1"}})

	assert.Equal(t, 1, seen)
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	st := NewState()

	st.AddHandler(SlotUser, func(interface{}) { panic("boom") })

	called := false
	st.AddHandler(SlotUser, func(interface{}) { called = true })

	assert.NotPanics(t, func() {
		st.SetUser(nil)
	})
	assert.True(t, called)
}

func TestEnabledChannelsCopied(t *testing.T) {
	st := NewState()

	enabled := map[string]models.ChannelState{"1": models.ChannelEnabled}
	st.SetEnabledChannels(enabled)

	// Mutating the caller's map must not leak into the state.
	enabled["2"] = models.ChannelDisabled
	assert.Len(t, st.EnabledChannels(), 1)

	// Mutating a returned copy must not either.
	got := st.EnabledChannels()
	got["3"] = models.ChannelDisabled
	assert.Len(t, st.EnabledChannels(), 1)
}
