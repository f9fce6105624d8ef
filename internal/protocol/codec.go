package protocol

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
)

// ServerMessage is a decoded provider message. Exactly one of Subscription,
// Cancellation and Events is set.
type ServerMessage struct {
	Version      uint32
	Subscription *v1.Subscription
	Cancellation *v1.Cancellation
	Events       *RemoteEvents
}

// RemoteEvents are events the provider pushes to the client.
type RemoteEvents struct {
	SubscriptionID int64
	Events         []v1.Event
}

// ClientMessage is a decoded aggregated notification.
type ClientMessage struct {
	Version        uint32
	SubscriptionID int64
	Events         []v1.Event
}

// Codec encodes and decodes protocol messages through dynamic messages built
// from the compiled schema.
type Codec struct {
	schema  *Schema
	marshal proto.MarshalOptions
}

// NewCodec compiles the protocol schema and returns a codec for it.
func NewCodec(ctx context.Context) (*Codec, error) {
	s, err := CompileSchema(ctx)
	if err != nil {
		return nil, err
	}
	return &Codec{schema: s, marshal: proto.MarshalOptions{Deterministic: true}}, nil
}

// EncodeFlush encodes a flush as a ClientMessage.
func (c *Codec) EncodeFlush(f coreagg.Flush) ([]byte, error) {
	return c.EncodeEvents(f.SubscriptionID, f.Events)
}

// EncodeEvents encodes already merged events as a ClientMessage.
func (c *Codec) EncodeEvents(subscriptionID int64, events []v1.Event) ([]byte, error) {
	msg := dynamicpb.NewMessage(c.schema.ClientMessage)
	setUint32(msg, "version", Version)

	if err := encodeEventList(newChild(msg, "events"), subscriptionID, events); err != nil {
		return nil, err
	}
	return c.marshal.Marshal(msg)
}

func encodeEventList(body protoreflect.Message, subscriptionID int64, events []v1.Event) error {
	setInt64(body, "subscription_id", subscriptionID)

	list := body.Mutable(field(body, "events")).List()
	for _, e := range events {
		el := list.NewElement()
		if err := encodeEvent(el.Message(), e); err != nil {
			return err
		}
		list.Append(el)
	}
	return nil
}

func encodeEvent(msg protoreflect.Message, e v1.Event) error {
	switch e.Type {
	case v1.EventRead:
		ev := newChild(msg, "read_event")
		setInt64(ev, "counter", e.Counter)
		setString(ev, "file_uuid", e.FileUUID)
		setInt64(ev, "size", e.Size)
		appendBlocks(ev, e.Blocks)
	case v1.EventWrite, v1.EventTruncate:
		ev := newChild(msg, "write_event")
		setInt64(ev, "counter", e.Counter)
		setString(ev, "file_uuid", e.FileUUID)
		setInt64(ev, "size", e.Size)
		if e.FileSize != nil {
			ev.Set(field(ev, "file_size"), protoreflect.ValueOfInt64(*e.FileSize))
		}
		appendBlocks(ev, e.Blocks)
	case v1.EventFileAccessed:
		ev := newChild(msg, "file_accessed_event")
		setInt64(ev, "counter", e.Counter)
		setString(ev, "file_uuid", e.FileUUID)
		setInt64(ev, "open_count", e.OpenCount)
		setInt64(ev, "release_count", e.ReleaseCount)
	case v1.EventFileRemoval:
		ev := newChild(msg, "file_removal_event")
		setInt64(ev, "counter", e.Counter)
		setString(ev, "file_uuid", e.FileUUID)
	default:
		return fmt.Errorf("cannot encode event type %q", e.Type)
	}
	return nil
}

func appendBlocks(msg protoreflect.Message, blocks []v1.Block) {
	if len(blocks) == 0 {
		return
	}
	list := msg.Mutable(field(msg, "blocks")).List()
	for _, b := range blocks {
		el := list.NewElement()
		setInt64(el.Message(), "offset", b.Offset)
		setInt64(el.Message(), "size", b.Size)
		list.Append(el)
	}
}

// EncodeSubscription encodes a subscription as a ServerMessage.
func (c *Codec) EncodeSubscription(sub v1.Subscription) ([]byte, error) {
	th := sub.Thresholds
	return c.encodeSubscription(sub.ID, sub.Type, th.Counter, th.Time.Milliseconds(), th.Size)
}

// encodeSubscription takes the time threshold in wire milliseconds so callers
// can express values no time.Duration holds.
func (c *Codec) encodeSubscription(id int64, typ v1.SubscriptionType, counter, timeMs, size int64) ([]byte, error) {
	msg := dynamicpb.NewMessage(c.schema.ServerMessage)
	setUint32(msg, "version", Version)

	body := newChild(msg, "subscription")
	setInt64(body, "id", id)

	var variant protoreflect.Message
	switch typ {
	case v1.SubscriptionRead:
		variant = newChild(body, "read_subscription")
	case v1.SubscriptionWrite:
		variant = newChild(body, "write_subscription")
	case v1.SubscriptionFileAccessed:
		variant = newChild(body, "file_accessed_subscription")
	case v1.SubscriptionFileRemoval:
		variant = newChild(body, "file_removal_subscription")
	default:
		return nil, fmt.Errorf("cannot encode subscription type %q", typ)
	}

	setOptional(variant, "counter_threshold", counter)
	setOptional(variant, "time_threshold", timeMs)
	if typ.HasSize() {
		setOptional(variant, "size_threshold", size)
	}

	return c.marshal.Marshal(msg)
}

// EncodeRemoteEvents encodes events pushed by the provider as a ServerMessage.
func (c *Codec) EncodeRemoteEvents(subscriptionID int64, events []v1.Event) ([]byte, error) {
	msg := dynamicpb.NewMessage(c.schema.ServerMessage)
	setUint32(msg, "version", Version)
	if err := encodeEventList(newChild(msg, "events"), subscriptionID, events); err != nil {
		return nil, err
	}
	return c.marshal.Marshal(msg)
}

// EncodeCancellation encodes a subscription cancellation as a ServerMessage.
func (c *Codec) EncodeCancellation(id int64) ([]byte, error) {
	msg := dynamicpb.NewMessage(c.schema.ServerMessage)
	setUint32(msg, "version", Version)
	setInt64(newChild(msg, "subscription_cancellation"), "id", id)
	return c.marshal.Marshal(msg)
}

// DecodeServerMessage decodes a provider message. Undecodable bytes, a newer
// version or an empty body yield ErrMalformedMessage.
func (c *Codec) DecodeServerMessage(data []byte) (ServerMessage, error) {
	msg := dynamicpb.NewMessage(c.schema.ServerMessage)
	if err := proto.Unmarshal(data, msg); err != nil {
		return ServerMessage{}, fmt.Errorf("%w: %v", coreerrors.ErrMalformedMessage, err)
	}

	out := ServerMessage{Version: uint32(getUint(msg, "version"))}
	if out.Version > Version {
		return ServerMessage{}, fmt.Errorf("%w: unsupported version %d", coreerrors.ErrMalformedMessage, out.Version)
	}

	body := whichOneof(msg, "message_body")
	if body == nil {
		return ServerMessage{}, fmt.Errorf("%w: empty message body", coreerrors.ErrMalformedMessage)
	}

	child := msg.Get(body).Message()
	switch body.Name() {
	case "subscription":
		sub, err := decodeSubscription(child)
		if err != nil {
			return ServerMessage{}, err
		}
		out.Subscription = &sub
	case "subscription_cancellation":
		out.Cancellation = &v1.Cancellation{SubscriptionID: getInt(child, "id")}
	case "events":
		id, events, err := decodeEventList(child)
		if err != nil {
			return ServerMessage{}, err
		}
		out.Events = &RemoteEvents{SubscriptionID: id, Events: events}
	}
	return out, nil
}

func decodeSubscription(msg protoreflect.Message) (v1.Subscription, error) {
	sub := v1.Subscription{ID: getInt(msg, "id")}

	variant := whichOneof(msg, "type")
	if variant == nil {
		return v1.Subscription{}, fmt.Errorf("%w: subscription %d has no type", coreerrors.ErrMalformedMessage, sub.ID)
	}

	switch variant.Name() {
	case "read_subscription":
		sub.Type = v1.SubscriptionRead
	case "write_subscription":
		sub.Type = v1.SubscriptionWrite
	case "file_accessed_subscription":
		sub.Type = v1.SubscriptionFileAccessed
	case "file_removal_subscription":
		sub.Type = v1.SubscriptionFileRemoval
	}

	th := msg.Get(variant).Message()
	sub.Thresholds.Counter = getInt(th, "counter_threshold")
	window, err := coreagg.MillisThreshold(getInt(th, "time_threshold"))
	if err != nil {
		return v1.Subscription{}, fmt.Errorf("%w: subscription %d: %v", coreerrors.ErrMalformedMessage, sub.ID, err)
	}
	sub.Thresholds.Time = window
	if sub.Type.HasSize() {
		sub.Thresholds.Size = getInt(th, "size_threshold")
	}
	return sub, nil
}

// DecodeClientMessage decodes an aggregated notification.
func (c *Codec) DecodeClientMessage(data []byte) (ClientMessage, error) {
	msg := dynamicpb.NewMessage(c.schema.ClientMessage)
	if err := proto.Unmarshal(data, msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", coreerrors.ErrMalformedMessage, err)
	}

	out := ClientMessage{Version: uint32(getUint(msg, "version"))}
	if out.Version > Version {
		return ClientMessage{}, fmt.Errorf("%w: unsupported version %d", coreerrors.ErrMalformedMessage, out.Version)
	}

	body := whichOneof(msg, "message_body")
	if body == nil {
		return ClientMessage{}, fmt.Errorf("%w: empty message body", coreerrors.ErrMalformedMessage)
	}

	id, events, err := decodeEventList(msg.Get(body).Message())
	if err != nil {
		return ClientMessage{}, err
	}
	out.SubscriptionID = id
	out.Events = events
	return out, nil
}

func decodeEventList(body protoreflect.Message) (int64, []v1.Event, error) {
	var out []v1.Event
	list := body.Get(field(body, "events")).List()
	for i := 0; i < list.Len(); i++ {
		e, err := decodeEvent(list.Get(i).Message())
		if err != nil {
			return 0, nil, err
		}
		out = append(out, e)
	}
	return getInt(body, "subscription_id"), out, nil
}

func decodeEvent(msg protoreflect.Message) (v1.Event, error) {
	variant := whichOneof(msg, "type")
	if variant == nil {
		return v1.Event{}, fmt.Errorf("%w: event has no type", coreerrors.ErrMalformedMessage)
	}

	ev := msg.Get(variant).Message()
	e := v1.Event{
		Counter:  getInt(ev, "counter"),
		FileUUID: getString(ev, "file_uuid"),
	}

	switch variant.Name() {
	case "read_event":
		e.Type = v1.EventRead
		e.Size = getInt(ev, "size")
		e.Blocks = decodeBlocks(ev)
	case "write_event":
		e.Type = v1.EventWrite
		e.Size = getInt(ev, "size")
		e.Blocks = decodeBlocks(ev)
		if fd := field(ev, "file_size"); ev.Has(fd) {
			fs := ev.Get(fd).Int()
			e.FileSize = &fs
		}
	case "file_accessed_event":
		e.Type = v1.EventFileAccessed
		e.OpenCount = getInt(ev, "open_count")
		e.ReleaseCount = getInt(ev, "release_count")
	case "file_removal_event":
		e.Type = v1.EventFileRemoval
	}
	return e, nil
}

func decodeBlocks(msg protoreflect.Message) []v1.Block {
	list := msg.Get(field(msg, "blocks")).List()
	if list.Len() == 0 {
		return nil
	}
	out := make([]v1.Block, list.Len())
	for i := range out {
		b := list.Get(i).Message()
		out[i] = v1.Block{Offset: getInt(b, "offset"), Size: getInt(b, "size")}
	}
	return out
}

// SortEvents orders merged events by file UUID, the order used on the wire.
func SortEvents(events []v1.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].FileUUID < events[j].FileUUID })
}

func field(msg protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := msg.Descriptor().Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("protocol: %s has no field %q", msg.Descriptor().FullName(), name))
	}
	return fd
}

func whichOneof(msg protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	return msg.WhichOneof(msg.Descriptor().Oneofs().ByName(name))
}

func newChild(msg protoreflect.Message, name protoreflect.Name) protoreflect.Message {
	fd := field(msg, name)
	child := msg.NewField(fd).Message()
	msg.Set(fd, protoreflect.ValueOfMessage(child))
	return child
}

func setInt64(msg protoreflect.Message, name protoreflect.Name, v int64) {
	msg.Set(field(msg, name), protoreflect.ValueOfInt64(v))
}

func setUint32(msg protoreflect.Message, name protoreflect.Name, v uint32) {
	msg.Set(field(msg, name), protoreflect.ValueOfUint32(v))
}

func setString(msg protoreflect.Message, name protoreflect.Name, v string) {
	msg.Set(field(msg, name), protoreflect.ValueOfString(v))
}

// setOptional sets a proto3 optional field only when v enables the threshold.
func setOptional(msg protoreflect.Message, name protoreflect.Name, v int64) {
	if v != 0 {
		setInt64(msg, name, v)
	}
}

func getInt(msg protoreflect.Message, name protoreflect.Name) int64 {
	return msg.Get(field(msg, name)).Int()
}

func getUint(msg protoreflect.Message, name protoreflect.Name) uint64 {
	return msg.Get(field(msg, name)).Uint()
}

func getString(msg protoreflect.Message, name protoreflect.Name) string {
	return msg.Get(field(msg, name)).String()
}
