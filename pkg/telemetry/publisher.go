// Package telemetry publishes node events to MQTT.
//
// Each node owns the topic <prefix><node>/ where <node> is NodeTopic of
// its station address. Events are protobuf encoded google.protobuf.Struct
// values: meta (retained, cleared by the will), assoc (retained, every
// transition), state (every reporter sample) and send (every broadcaster
// attempt).
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/espnow.go/pkg/assoc"
	"github.com/robotalks/espnow.go/pkg/node"
)

// Publisher implements node.Observer and assoc.StateObserver on MQTT.
// Publishing never waits for the broker.
type Publisher struct {
	Queue *Queue
	Meta  Meta

	topic string
	last  *assoc.State
	lock  sync.Mutex
}

// NewPublisher creates a Publisher connecting to the broker URL.
func NewPublisher(brokerURL string, meta Meta) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	topic := NodeTopic(meta.Addr)
	opts.SetBinaryWill(topicPrefix+topic+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("espnow:" + topic)
	}
	return NewPublisherWith(NewQueue(opts, topicPrefix), meta), nil
}

// NewPublisherWith creates a Publisher on an existing Queue.
func NewPublisherWith(q *Queue, meta Meta) *Publisher {
	p := &Publisher{Queue: q, Meta: meta, topic: NodeTopic(meta.Addr)}
	q.OnConnect = func(*Queue) { p.republish() }
	return p
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// Run implements Runnable. It connects, and on exit clears the meta.
func (p *Publisher) Run(ctx context.Context) error {
	p.Queue.Connect()
	<-ctx.Done()
	p.Queue.PubWith(p.topic+"/"+TopicMeta, nil, 1, true).WaitTimeout(time.Second)
	return p.Queue.Close()
}

// ObserveSend implements node.Observer.
func (p *Publisher) ObserveSend(e node.SendEvent) {
	p.publish(TopicSend, SendStruct(e), false)
}

// ObserveState implements node.Observer.
func (p *Publisher) ObserveState(e node.StateEvent) {
	s := StateStruct(e.State)
	s.Fields["iteration"] = numberValue(float64(e.Iteration))
	s.Fields["time"] = timeValue(e.Time)
	p.publish(TopicState, s, false)
}

// StateChanged implements assoc.StateObserver. The latest state is
// published again on every (re)connect.
func (p *Publisher) StateChanged(s assoc.State) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.last = &s
	p.publish(TopicAssoc, StateStruct(s), true)
}

func (p *Publisher) republish() {
	p.publish(TopicMeta, MetaStruct(p.Meta), true)
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.last != nil {
		p.publish(TopicAssoc, StateStruct(*p.last), true)
	}
}

func (p *Publisher) publish(sub string, s *structpb.Struct, retain bool) {
	payload, err := Encode(s)
	if err != nil {
		glog.Errorf("telemetry %s: encode error: %v", sub, err)
		return
	}
	var qos byte
	if retain {
		qos = 1
	}
	p.Queue.PubWith(p.topic+"/"+sub, payload, qos, retain)
}
