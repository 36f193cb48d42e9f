package hyperate

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestListeners_CallsEveryCallbackInRegistrationOrder(t *testing.T) {
	c := &Client{}
	var calls []string

	c.OnHeartbeat(func(hb Heartbeat) { calls = append(calls, "first "+hb.DeviceID) })
	c.OnHeartbeat(func(hb Heartbeat) { calls = append(calls, "second "+hb.DeviceID) })
	c.OnChannelJoined(func(topic string) { calls = append(calls, "joined "+topic) })
	c.OnChannelLeft(func(topic string) { calls = append(calls, "left "+topic) })
	c.OnClip(func(clip Clip) { calls = append(calls, "clip "+clip.Slug) })
	c.OnConnect(func() { calls = append(calls, "connect") })

	c.listeners.connected()
	c.listeners.channelJoined("hr:A")
	c.listeners.heartbeatReceived(Heartbeat{DeviceID: "A", BPM: 60})
	c.listeners.clipCreated(Clip{DeviceID: "A", Slug: "S"})
	c.listeners.channelLeft("hr:A")

	assert.Equal(t, []string{"connect", "joined hr:A", "first A", "second A", "clip S", "left hr:A"}, calls)
}

func TestListeners_DisconnectCause(t *testing.T) {
	c := &Client{}
	var causes []error
	c.OnDisconnect(func(cause error) { causes = append(causes, cause) })

	lost := errors.New("read: connection reset")
	c.listeners.disconnected(nil)
	c.listeners.disconnected(lost)

	assert.Equal(t, []error{nil, lost}, causes)
}

func TestListeners_NoneRegistered(t *testing.T) {
	var l listeners
	assert.NotPanics(t, func() {
		l.connected()
		l.disconnected(nil)
		l.heartbeatReceived(Heartbeat{})
	})
}
