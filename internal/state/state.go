package state

import (
	"sync"

	"github.com/sirupsen/logrus"

	"twitch_indicator/internal/models"
)

// Slot names a shared state value. Each slot has its own lock and its own
// handler list.
type Slot string

const (
	SlotUser             Slot = "user"
	SlotFollowedChannels Slot = "followed_channels"
	SlotLiveStreams      Slot = "live_streams"
	SlotEnabledChannels  Slot = "enabled_channel_ids"
	SlotFirstRun         Slot = "first_run"
)

type Handler func(value interface{})

type registration struct {
	id      uint64
	handler Handler
}

// State holds the values the background poller publishes for GUI consumers.
// Values are swapped as whole objects under the slot lock; handlers run after
// the lock is released so a handler may read the slot again without
// deadlocking.
type State struct {
	locks map[Slot]*sync.Mutex

	user             *models.ValidationInfo
	followedChannels []models.FollowedChannel
	liveStreams      []models.Stream
	enabledChannels  map[string]models.ChannelState
	firstRun         bool

	handlersMu sync.Mutex
	handlers   map[Slot][]registration
	nextID     uint64
}

func NewState() *State {
	locks := make(map[Slot]*sync.Mutex)
	for _, slot := range []Slot{SlotUser, SlotFollowedChannels, SlotLiveStreams, SlotEnabledChannels, SlotFirstRun} {
		locks[slot] = &sync.Mutex{}
	}

	return &State{
		locks:           locks,
		enabledChannels: make(map[string]models.ChannelState),
		firstRun:        true,
		handlers:        make(map[Slot][]registration),
	}
}

// AddHandler registers a change handler for a slot. Handlers are invoked in
// registration order. The returned function unregisters the handler.
func (st *State) AddHandler(slot Slot, handler Handler) func() {
	st.handlersMu.Lock()
	defer st.handlersMu.Unlock()

	st.nextID++
	id := st.nextID
	st.handlers[slot] = append(st.handlers[slot], registration{id: id, handler: handler})

	return func() {
		st.handlersMu.Lock()
		defer st.handlersMu.Unlock()

		regs := st.handlers[slot]
		for i, reg := range regs {
			if reg.id == id {
				st.handlers[slot] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

func (st *State) SetUser(user *models.ValidationInfo) {
	st.locks[SlotUser].Lock()
	st.user = user
	st.locks[SlotUser].Unlock()

	st.triggerHandlers(SlotUser, user)
}

func (st *State) User() *models.ValidationInfo {
	st.locks[SlotUser].Lock()
	defer st.locks[SlotUser].Unlock()

	return st.user
}

func (st *State) SetFollowedChannels(channels []models.FollowedChannel) {
	st.locks[SlotFollowedChannels].Lock()
	st.followedChannels = channels
	st.locks[SlotFollowedChannels].Unlock()

	st.triggerHandlers(SlotFollowedChannels, channels)
}

func (st *State) FollowedChannels() []models.FollowedChannel {
	st.locks[SlotFollowedChannels].Lock()
	defer st.locks[SlotFollowedChannels].Unlock()

	return st.followedChannels
}

func (st *State) SetLiveStreams(streams []models.Stream) {
	st.locks[SlotLiveStreams].Lock()
	st.liveStreams = streams
	st.locks[SlotLiveStreams].Unlock()

	st.triggerHandlers(SlotLiveStreams, streams)
}

func (st *State) LiveStreams() []models.Stream {
	st.locks[SlotLiveStreams].Lock()
	defer st.locks[SlotLiveStreams].Unlock()

	return st.liveStreams
}

// SetEnabledChannels replaces the enablement map. The map is copied so the
// caller may keep mutating its own copy.
func (st *State) SetEnabledChannels(enabled map[string]models.ChannelState) {
	copied := make(map[string]models.ChannelState, len(enabled))
	for id, val := range enabled {
		copied[id] = val
	}

	st.locks[SlotEnabledChannels].Lock()
	st.enabledChannels = copied
	st.locks[SlotEnabledChannels].Unlock()

	st.triggerHandlers(SlotEnabledChannels, copied)
}

// EnabledChannels returns a copy of the enablement map.
func (st *State) EnabledChannels() map[string]models.ChannelState {
	st.locks[SlotEnabledChannels].Lock()
	defer st.locks[SlotEnabledChannels].Unlock()

	copied := make(map[string]models.ChannelState, len(st.enabledChannels))
	for id, val := range st.enabledChannels {
		copied[id] = val
	}

	return copied
}

func (st *State) SetFirstRun(firstRun bool) {
	st.locks[SlotFirstRun].Lock()
	st.firstRun = firstRun
	st.locks[SlotFirstRun].Unlock()

	st.triggerHandlers(SlotFirstRun, firstRun)
}

func (st *State) FirstRun() bool {
	st.locks[SlotFirstRun].Lock()
	defer st.locks[SlotFirstRun].Unlock()

	return st.firstRun
}

func (st *State) triggerHandlers(slot Slot, value interface{}) {
	st.handlersMu.Lock()
	regs := make([]registration, len(st.handlers[slot]))
	copy(regs, st.handlers[slot])
	st.handlersMu.Unlock()

	for _, reg := range regs {
		st.invokeHandler(slot, reg.handler, value)
	}
}

// invokeHandler shields the publisher from handler panics.
func (st *State) invokeHandler(slot Slot, handler Handler, value interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("state handler for %s panicked: %v", slot, r)
		}
	}()

	handler(value)
}
