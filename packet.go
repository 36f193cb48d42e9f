package hyperate

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Phoenix channel events used on the wire.
const (
	EventJoin        = "phx_join"
	EventLeave       = "phx_leave"
	EventReply       = "phx_reply"
	EventKeepAlive   = "heartbeat"
	EventHeartRate   = "hr_update"
	EventClipCreated = "clip:created"
)

// Topic prefixes. A heart-rate topic is "hr:<device>", a clips topic is "clips:<device>".
const (
	HeartbeatPrefix = "hr:"
	ClipsPrefix     = "clips:"

	keepAliveTopic = "phoenix"
)

// envelope is the wire format shared by every inbound and outbound message.
type envelope struct {
	Event   string          `json:"event"`
	Topic   string          `json:"topic"`
	Ref     *Ref            `json:"ref"`
	Payload json.RawMessage `json:"payload"`
}

func newEnvelope(event, topic string, ref Ref) envelope {
	return envelope{
		Event:   event,
		Topic:   topic,
		Ref:     &ref,
		Payload: json.RawMessage(`{}`),
	}
}

// UnmarshalJSON accepts a JSON number or a numeric string. Phoenix servers
// echo the ref back in whatever form the client sent it.
func (r *Ref) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return errors.Wrapf(err, "invalid ref %s", data)
	}
	*r = Ref(v)
	return nil
}

// Heartbeat is a heart-rate reading for one device.
type Heartbeat struct {
	DeviceID string
	BPM      int
}

// Clip announces a clip created for one device.
type Clip struct {
	DeviceID string
	Slug     string
}

// packet is a classified inbound message.
type packet interface {
	kind() string
}

type replyPacket struct {
	Ref Ref
}

func (replyPacket) kind() string { return "reply" }
func (Heartbeat) kind() string   { return "heartbeat" }
func (Clip) kind() string        { return "clip" }

// classify decodes one inbound message. It returns a nil packet and nil error
// for events the client does not handle, and a *DecodeError for messages
// that must be dropped.
func classify(data []byte) (packet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Kind: ErrEmptyMessage, Raw: data}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Kind: ErrMalformedEnvelope, Cause: err, Raw: data}
	}

	switch env.Event {
	case EventReply:
		if env.Ref == nil {
			return nil, nil
		}
		return replyPacket{Ref: *env.Ref}, nil

	case EventHeartRate:
		var payload struct {
			HR *float64 `json:"hr"`
		}
		if err := decodePayload(env, data, &payload); err != nil {
			return nil, err
		}
		if payload.HR == nil {
			return nil, missingField(env, data, "hr")
		}
		bpm := math.Round(*payload.HR)
		if math.IsNaN(bpm) || bpm < 0 || bpm > math.MaxInt32 {
			return nil, &DecodeError{
				Kind:  ErrInvalidField,
				Event: env.Event,
				Topic: env.Topic,
				Cause: errors.Errorf("payload.hr %v out of range", *payload.HR),
				Raw:   data,
			}
		}
		deviceID, err := deviceFromTopic(env, data, HeartbeatPrefix)
		if err != nil {
			return nil, err
		}
		return Heartbeat{DeviceID: deviceID, BPM: int(bpm)}, nil

	case EventClipCreated:
		var payload struct {
			Slug *string `json:"twitch_slug"`
		}
		if err := decodePayload(env, data, &payload); err != nil {
			return nil, err
		}
		if payload.Slug == nil {
			return nil, missingField(env, data, "twitch_slug")
		}
		deviceID, err := deviceFromTopic(env, data, ClipsPrefix)
		if err != nil {
			return nil, err
		}
		return Clip{DeviceID: deviceID, Slug: *payload.Slug}, nil
	}

	return nil, nil
}

func decodePayload(env envelope, raw []byte, v any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return &DecodeError{Kind: ErrMalformedEnvelope, Event: env.Event, Topic: env.Topic, Cause: err, Raw: raw}
	}
	return nil
}

func missingField(env envelope, raw []byte, field string) error {
	return &DecodeError{
		Kind:  ErrMissingField,
		Event: env.Event,
		Topic: env.Topic,
		Cause: errors.Errorf("payload.%s is required", field),
		Raw:   raw,
	}
}

func deviceFromTopic(env envelope, raw []byte, prefix string) (string, error) {
	deviceID, ok := strings.CutPrefix(env.Topic, prefix)
	if !ok {
		return "", &DecodeError{
			Kind:  ErrTopicMismatch,
			Event: env.Event,
			Topic: env.Topic,
			Cause: errors.Errorf("topic must start with %q", prefix),
			Raw:   raw,
		}
	}
	return deviceID, nil
}

// ChannelType classifies a channel name by its prefix.
type ChannelType int

const (
	ChannelTypeUnknown ChannelType = iota
	ChannelTypeHeartbeat
	ChannelTypeClips
)

func (t ChannelType) String() string {
	switch t {
	case ChannelTypeHeartbeat:
		return "heartbeat"
	case ChannelTypeClips:
		return "clips"
	default:
		return "unknown"
	}
}

// DetermineChannelType reports which kind of channel name is.
func DetermineChannelType(name string) ChannelType {
	switch {
	case strings.HasPrefix(name, HeartbeatPrefix):
		return ChannelTypeHeartbeat
	case strings.HasPrefix(name, ClipsPrefix):
		return ChannelTypeClips
	default:
		return ChannelTypeUnknown
	}
}
