package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/node"
	"github.com/robotalks/espnow.go/pkg/radio"
)

// Topics under the node topic.
const (
	TopicMeta  = "meta"
	TopicSend  = "send"
	TopicState = "state"
	TopicAssoc = "assoc"
)

// Meta describes a node, published retained on TopicMeta.
type Meta struct {
	Addr    radio.Addr
	Version uint32
	SSID    string
	Channel int
	Backend string
}

// NodeTopic is the topic of a node, the lower-case station address
// without separators.
func NodeTopic(addr radio.Addr) string {
	return strings.ToLower(strings.ReplaceAll(addr.String(), ":", ""))
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(n float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: n}}
}

func boolValue(b bool) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: b}}
}

func timeValue(t time.Time) *structpb.Value {
	return stringValue(t.UTC().Format(time.RFC3339Nano))
}

// MetaStruct converts Meta.
func MetaStruct(m Meta) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"addr":    stringValue(m.Addr.String()),
		"version": numberValue(float64(m.Version)),
		"ssid":    stringValue(m.SSID),
		"channel": numberValue(float64(m.Channel)),
		"backend": stringValue(m.Backend),
	}}
}

// SendStruct converts a broadcaster attempt.
func SendStruct(e node.SendEvent) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"attempt": numberValue(float64(e.Attempt)),
		"time":    timeValue(e.Time),
		"dst":     stringValue(e.Dst.String()),
		"outcome": stringValue(e.Outcome.String()),
	}
	if e.Err != nil {
		fields["error"] = stringValue(e.Err.Error())
	}
	return &structpb.Struct{Fields: fields}
}

// StateStruct converts an association state.
func StateStruct(s assoc.State) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"phase":     stringValue(s.Phase.String()),
		"connected": boolValue(s.IsConnected()),
	}
	if s.Reason != "" {
		fields["reason"] = stringValue(s.Reason)
	}
	return &structpb.Struct{Fields: fields}
}

// Encode serializes an event.
func Encode(s *structpb.Struct) ([]byte, error) {
	return proto.Marshal(s)
}

// Decode parses an event.
func Decode(payload []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(payload, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Format renders an event payload as JSON. An empty payload is a cleared
// retained message.
func Format(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "(cleared)", nil
	}
	s, err := Decode(payload)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return (&jsonpb.Marshaler{}).MarshalToString(s)
}
