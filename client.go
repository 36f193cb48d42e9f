package hyperate

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Client owns one socket connection at a time and the channel membership
// that belongs to it.
type Client struct {
	cfg       Config
	opts      options
	log       logrus.FieldLogger
	metrics   *metrics
	tracer    trace.Tracer
	dial      dialer
	listeners listeners

	mu     sync.Mutex
	cur    *link
	closed bool

	loopsStarted bool
	loopCtx      context.Context
	stopLoops    context.CancelFunc
	wg           sync.WaitGroup
}

// link pairs a connection with the membership created for it. Inbound refs are
// resolved against the membership of the link they arrived on, so refs issued
// on a dead connection can never match replies on a new one.
type link struct {
	id      string
	conn    transport // nil until the first Connect
	members *membership
	open    atomic.Bool
}

// markClosed reports whether this call moved the link from open to closed.
func (l *link) markClosed() bool {
	return l.open.CompareAndSwap(true, false)
}

// NewClient creates a new HypeRate client with the given configuration.
// The client is not connected until Connect() is called.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	o := clientDefaults()
	for _, opt := range opts {
		opt(&o)
	}
	if o.dial == nil {
		o.dial = websocketDialer(o.handshakeTimeout, o.writeTimeout)
	}

	loopCtx, stop := context.WithCancel(context.Background())
	return &Client{
		cfg:       resolved,
		opts:      o,
		log:       o.logger,
		metrics:   newMetrics(o.registry, o.namespace),
		tracer:    o.tracerProvider.Tracer(tracerName),
		dial:      o.dial,
		cur:       &link{members: newMembership(o.refSource)},
		loopCtx:   loopCtx,
		stopLoops: stop,
	}, nil
}

func (c *Client) current() *link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// IsConnected reports whether a connection is currently open.
func (c *Client) IsConnected() bool {
	return c.current().open.Load()
}

// Connect opens the socket and replaces the channel membership with a fresh one.
// The keep-alive and receive loops start on the first successful Connect.
func (c *Client) Connect(ctx context.Context) (err error) {
	ctx, span := c.startSpan(ctx, "Connect")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.cur.open.Load() {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	rawURL, err := c.cfg.socketURL()
	if err != nil {
		return err
	}

	conn, err := c.dial(ctx, rawURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ConnectionError{URL: c.cfg.Endpoint, Reason: err.Error(), Cause: err}
	}

	l := &link{
		id:      uuid.NewString(),
		conn:    conn,
		members: newMembership(c.opts.refSource),
	}
	l.open.Store(true)

	c.mu.Lock()
	switch {
	case c.closed:
		err = ErrClientClosed
	case c.cur.open.Load():
		err = ErrAlreadyConnected
	default:
		c.cur = l
		c.startLoopsLocked()
	}
	c.mu.Unlock()
	if err != nil {
		conn.close(context.Background())
		return err
	}

	span.SetAttributes(attrConn.String(l.id))
	c.metrics.connects.Inc()
	c.metrics.joinedChannels.Set(0)
	c.log.WithField("conn", l.id).Info("connected")
	c.listeners.connected()
	return nil
}

// Disconnect closes the open connection. Channel bookkeeping is kept until
// the next Connect so that Reconnect can restore it.
func (c *Client) Disconnect(ctx context.Context) (err error) {
	ctx, span := c.startSpan(ctx, "Disconnect")
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}

	l := c.current()
	if !l.markClosed() {
		return nil
	}
	span.SetAttributes(attrConn.String(l.id))

	err = l.conn.close(ctx)
	c.disconnected(l, nil)
	return err
}

// Reconnect disconnects, connects again and re-joins every channel that was
// joined or joining on the previous connection and not being left. Every
// rejoin is attempted; the failures are returned joined together.
func (c *Client) Reconnect(ctx context.Context) (err error) {
	ctx, span := c.startSpan(ctx, "Reconnect")
	defer func() { endSpan(span, err) }()

	rejoin := c.current().members.rejoinSet()

	if err := c.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "disconnect")
	}
	if err := c.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect")
	}
	c.metrics.reconnects.Inc()

	var errs []error
	for _, topic := range rejoin {
		if err := c.JoinChannel(ctx, topic); err != nil {
			errs = append(errs, errors.Wrapf(err, "rejoin %s", topic))
		}
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	c.log.WithField("channels", len(rejoin)).Info("reconnected")
	return nil
}

// JoinChannel requests membership of topic. Nothing is sent if the topic is
// already joined, joining or being left.
func (c *Client) JoinChannel(ctx context.Context, topic string) (err error) {
	ctx, span := c.startSpan(ctx, "JoinChannel", attrTopic.String(topic))
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	l := c.current()
	if !l.open.Load() {
		return ErrNotConnected
	}

	ref, ok := l.members.join(topic)
	if !ok {
		c.log.WithFields(logrus.Fields{"conn": l.id, "topic": topic}).Debug("join ignored")
		return nil
	}
	span.SetAttributes(attrRef.Int(int(ref)))

	if err := c.send(ctx, l, newEnvelope(EventJoin, topic, ref)); err != nil {
		c.abandon(ctx, l, ref, err)
		return err
	}
	return nil
}

// LeaveChannel drops membership of topic. A join that has not been
// acknowledged yet is discarded locally without contacting the server.
func (c *Client) LeaveChannel(ctx context.Context, topic string) (err error) {
	ctx, span := c.startSpan(ctx, "LeaveChannel", attrTopic.String(topic))
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	l := c.current()
	if !l.open.Load() {
		return ErrNotConnected
	}

	ref, ok := l.members.leave(topic)
	if !ok {
		c.log.WithFields(logrus.Fields{"conn": l.id, "topic": topic}).Debug("leave sent nothing")
		return nil
	}
	span.SetAttributes(attrRef.Int(int(ref)))
	c.metrics.joinedChannels.Set(float64(len(l.members.joined())))

	if err := c.send(ctx, l, newEnvelope(EventLeave, topic, ref)); err != nil {
		c.abandon(ctx, l, ref, err)
		return err
	}
	return nil
}

// abandon rolls back the request behind ref when the caller gave up before it
// was written. Requests lost to a failed connection stay pending so that
// Reconnect restores them.
func (c *Client) abandon(ctx context.Context, l *link, ref Ref, err error) {
	if !cancelled(ctx, err) || !l.members.cancel(ref) {
		return
	}
	c.metrics.joinedChannels.Set(float64(len(l.members.joined())))
	c.log.WithFields(logrus.Fields{"conn": l.id, "ref": ref}).Debug("request cancelled")
}

// JoinHeartbeatChannel joins the heart-rate channel of deviceID.
func (c *Client) JoinHeartbeatChannel(ctx context.Context, deviceID string) error {
	return c.JoinChannel(ctx, HeartbeatTopic(deviceID))
}

// LeaveHeartbeatChannel leaves the heart-rate channel of deviceID.
func (c *Client) LeaveHeartbeatChannel(ctx context.Context, deviceID string) error {
	return c.LeaveChannel(ctx, HeartbeatTopic(deviceID))
}

// JoinClipsChannel joins the clips channel of deviceID.
func (c *Client) JoinClipsChannel(ctx context.Context, deviceID string) error {
	return c.JoinChannel(ctx, ClipsTopic(deviceID))
}

// LeaveClipsChannel leaves the clips channel of deviceID.
func (c *Client) LeaveClipsChannel(ctx context.Context, deviceID string) error {
	return c.LeaveChannel(ctx, ClipsTopic(deviceID))
}

// ChannelState returns the membership state of topic on the current connection.
func (c *Client) ChannelState(topic string) ChannelState {
	return c.current().members.state(topic)
}

// JoinedChannels returns the acknowledged channels in join order.
func (c *Client) JoinedChannels() []string {
	return c.current().members.joined()
}

// ChannelsToRejoin returns the channels Reconnect would restore.
func (c *Client) ChannelsToRejoin() []string {
	return c.current().members.rejoinSet()
}

// Close stops both duty loops and closes the connection. The client cannot be
// reconnected afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.stopLoops()
	err := c.Disconnect(context.Background())
	c.wg.Wait()
	return err
}

// send encodes env and writes it to l. A failed write loses the connection.
func (c *Client) send(ctx context.Context, l *link, env envelope) error {
	if !l.open.Load() {
		return ErrNotConnected
	}

	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrapf(err, "encode %s", env.Event)
	}

	if err := l.conn.write(ctx, data); err != nil {
		if cancelled(ctx, err) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if l.markClosed() {
			l.conn.close(context.Background())
			c.disconnected(l, err)
		}
		return errors.Wrapf(err, "send %s", env.Event)
	}

	c.metrics.sent.WithLabelValues(env.Event).Inc()
	return nil
}

// disconnected raises the notification for a link that was just marked closed.
func (c *Client) disconnected(l *link, cause error) {
	c.metrics.disconnects.Inc()
	c.metrics.joinedChannels.Set(0)

	entry := c.log.WithField("conn", l.id)
	if cause != nil {
		entry.WithError(cause).Warn("connection lost")
	} else {
		entry.Info("disconnected")
	}
	c.listeners.disconnected(cause)
}

func (c *Client) startLoopsLocked() {
	if c.loopsStarted {
		return
	}
	c.loopsStarted = true
	c.wg.Add(2)
	go c.keepAliveLoop(c.loopCtx)
	go c.receiveLoop(c.loopCtx)
}

func (c *Client) keepAliveLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l := c.current()
			if !l.open.Load() {
				continue
			}
			if err := c.send(ctx, l, newEnvelope(EventKeepAlive, keepAliveTopic, keepAliveRef)); err != nil {
				c.log.WithField("conn", l.id).WithError(err).Debug("keep-alive failed")
			}
		}
	}
}

func (c *Client) receiveLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		l := c.current()
		if !l.open.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.opts.idleDelay):
			}
			continue
		}

		data, err := l.conn.read()
		if err != nil {
			if l.markClosed() {
				if isCloseReceived(err) {
					c.log.WithField("conn", l.id).WithError(err).Debug("close frame received")
				}
				l.conn.close(context.Background())
				c.disconnected(l, err)
			}
			continue
		}

		c.dispatch(l, data)
	}
}

// dispatch classifies one inbound message and raises the matching notification.
func (c *Client) dispatch(l *link, data []byte) {
	pkt, err := classify(data)
	if err != nil {
		reason := "unknown"
		var de *DecodeError
		if errors.As(err, &de) {
			reason = de.Kind.String()
		}
		c.metrics.dropped.WithLabelValues(reason).Inc()
		c.log.WithFields(logrus.Fields{"conn": l.id, "reason": reason}).WithError(err).Debug("message dropped")
		return
	}
	if pkt == nil {
		c.metrics.received.WithLabelValues("ignored").Inc()
		return
	}
	c.metrics.received.WithLabelValues(pkt.kind()).Inc()

	switch p := pkt.(type) {
	case replyPacket:
		kind, topic := l.members.ack(p.Ref)
		if kind == AckUnknown {
			return
		}
		c.metrics.joinedChannels.Set(float64(len(l.members.joined())))
		c.log.WithFields(logrus.Fields{"conn": l.id, "topic": topic, "ref": p.Ref}).Infof("channel %s acknowledged", kind)
		if kind == AckJoin {
			c.listeners.channelJoined(topic)
		} else {
			c.listeners.channelLeft(topic)
		}
	case Heartbeat:
		c.listeners.heartbeatReceived(p)
	case Clip:
		c.listeners.clipCreated(p)
	}
}
