package hyperate

import "sync"

// listeners holds the notification callbacks registered on a Client.
// Callbacks run on the goroutine that raises the event, so events of one
// kind arrive in the order they happened.
type listeners struct {
	mu         sync.RWMutex
	connect    []func()
	disconnect []func(error)
	joined     []func(topic string)
	left       []func(topic string)
	heartbeat  []func(Heartbeat)
	clip       []func(Clip)
}

func (l *listeners) connected() {
	l.mu.RLock()
	fns := l.connect
	l.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (l *listeners) disconnected(cause error) {
	l.mu.RLock()
	fns := l.disconnect
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(cause)
	}
}

func (l *listeners) channelJoined(topic string) {
	l.mu.RLock()
	fns := l.joined
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(topic)
	}
}

func (l *listeners) channelLeft(topic string) {
	l.mu.RLock()
	fns := l.left
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(topic)
	}
}

func (l *listeners) heartbeatReceived(hb Heartbeat) {
	l.mu.RLock()
	fns := l.heartbeat
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(hb)
	}
}

func (l *listeners) clipCreated(clip Clip) {
	l.mu.RLock()
	fns := l.clip
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(clip)
	}
}

// OnConnect registers a callback invoked after each successful Connect.
func (c *Client) OnConnect(fn func()) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.connect = append(c.listeners.connect, fn)
}

// OnDisconnect registers a callback invoked once per lost or closed connection.
// The cause is nil when the connection was closed by Disconnect.
func (c *Client) OnDisconnect(fn func(cause error)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.disconnect = append(c.listeners.disconnect, fn)
}

// OnChannelJoined registers a callback invoked when the server acknowledges a join.
func (c *Client) OnChannelJoined(fn func(topic string)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.joined = append(c.listeners.joined, fn)
}

// OnChannelLeft registers a callback invoked when the server acknowledges a leave.
func (c *Client) OnChannelLeft(fn func(topic string)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.left = append(c.listeners.left, fn)
}

// OnHeartbeat registers a callback invoked for every hr_update.
func (c *Client) OnHeartbeat(fn func(Heartbeat)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.heartbeat = append(c.listeners.heartbeat, fn)
}

// OnClip registers a callback invoked for every clip:created.
func (c *Client) OnClip(fn func(Clip)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.clip = append(c.listeners.clip, fn)
}
