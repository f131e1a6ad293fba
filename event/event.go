// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 20
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// asyncEvent wraps an event with its type for the async queue
type asyncEvent struct {
	eventType EventType
	event     Event
}

// EventBus delivers events from producers to subscribers by event type.
// Delivery guarantees depend on the subscriber flavor: channel subscribers
// (Subscribe, SubscribeFunc) are buffered and lossy under overload, while
// direct subscribers (RegisterSubscriber) run inline on the publishing
// goroutine and never miss an event
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	metrics     *eventMetrics
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	Logger      *slog.Logger

	// Async publishing infrastructure
	asyncQueue   chan asyncEvent
	asyncWg      sync.WaitGroup
	subscriberWg sync.WaitGroup
	stopCh       chan struct{}
	stopped      bool
	stopMu       sync.RWMutex
	stopOpMu     sync.Mutex // Serializes Stop() calls to prevent duplicate worker pools
}

// NewEventBus creates a new EventBus with async worker pool
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		Logger:      logger,
		asyncQueue:  make(chan asyncEvent, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	e.startWorkers()
	return e
}

func (e *EventBus) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// startWorkers launches the async worker pool against the current queue and
// stop channel. Workers take both as arguments, so a Stop/restart cycle can
// swap the channels without racing a running worker
func (e *EventBus) startWorkers() {
	for range AsyncWorkerPoolSize {
		e.asyncWg.Add(1)
		go e.asyncWorker(e.stopCh, e.asyncQueue)
	}
}

func (e *EventBus) asyncWorker(
	stopCh <-chan struct{},
	queue <-chan asyncEvent,
) {
	defer e.asyncWg.Done()
	for {
		select {
		case <-stopCh:
			return
		case ae, ok := <-queue:
			if !ok {
				return
			}
			e.Publish(ae.eventType, ae.event)
		}
	}
}

// Subscriber delivers events to one consumer. The bus uses the same
// interface for buffered channel subscribers and for direct subscribers
// that process events inline on the publisher goroutine. A non-nil error
// from Deliver unregisters and closes the subscriber. Close must be
// idempotent and safe to call multiple times
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// channelSubscriber adapts a buffered channel to the Subscriber interface.
// Deliver never blocks: an event arriving while the buffer is full is
// dropped and reported through onDrop. Consumers that cannot tolerate
// drops register a direct Subscriber instead
type channelSubscriber struct {
	ch     chan Event
	onDrop func(Event)
	mu     sync.RWMutex
	closed bool
}

func newChannelSubscriber(
	buffer int,
	onDrop func(Event),
) *channelSubscriber {
	return &channelSubscriber{
		ch:     make(chan Event, buffer),
		onDrop: onDrop,
	}
}

// Deliver sends without blocking. The read lock is never held across a
// blocking operation, so a full buffer cannot starve Close
func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		// Dropped during shutdown; not an error
		return nil
	}
	select {
	case c.ch <- evt:
	default:
		if c.onDrop != nil {
			c.onDrop(evt)
		}
	}
	return nil
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Subscribe allows a consumer to receive events of a particular type via a
// buffered channel. Events published while the buffer is full are counted
// and dropped
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	chSub := newChannelSubscriber(EventQueueSize, func(Event) {
		e.recordDrop(eventType)
		e.logger().
			Debug("subscriber buffer full, dropping event", "type", eventType)
	})
	subId := e.lastSubId + 1
	e.lastSubId = subId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = chSub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), "in-memory").
			Inc()
	}
	return subId, chSub.ch
}

// SubscribeFunc allows a consumer to receive events of a particular type via
// a callback function. The callback runs on a dedicated goroutine; a panic
// inside the callback is recovered and logged, so one bad event cannot kill
// the subscription. Returns 0 when the bus is in the middle of stopping
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	// Hold stopMu through the WaitGroup add, so Stop cannot begin waiting
	// for handler goroutines between registration and startup
	e.stopMu.RLock()
	if e.stopped {
		e.stopMu.RUnlock()
		return 0
	}
	subId, evtCh := e.Subscribe(eventType)
	e.subscriberWg.Add(1)
	e.stopMu.RUnlock()
	go func() {
		defer e.subscriberWg.Done()
		for evt := range evtCh {
			e.callHandler(eventType, handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) callHandler(
	eventType EventType,
	handlerFunc EventHandlerFunc,
	evt Event,
) {
	defer func() {
		if r := recover(); r != nil {
			e.logger().Error(
				"recovered from panic in event handler",
				"type", eventType,
				"panic", r,
			)
		}
	}()
	handlerFunc(evt)
}

// RegisterSubscriber adds a Subscriber implementation directly. Direct
// subscribers handle events inline on the publishing goroutine: delivery is
// lossless and ordered, at the cost of coupling the publisher to the
// subscriber's processing rate
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	subId := e.lastSubId + 1
	e.lastSubId = subId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), "direct").Inc()
	}
	return subId
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var subToClose Subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		if sub, ok2 := evtTypeSubs[subId]; ok2 {
			subToClose = sub
			delete(evtTypeSubs, subId)
			if len(evtTypeSubs) == 0 {
				delete(e.subscribers, eventType)
			}
			if e.metrics != nil {
				e.metrics.subscribers.
					WithLabelValues(string(eventType), subscriberKind(sub)).
					Dec()
			}
		}
	}
	e.mu.Unlock()
	// Close outside the lock, so an in-flight Publish cannot deadlock
	// against it
	if subToClose != nil {
		subToClose.Close()
	}
}

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*channelSubscriber); ok {
		return "in-memory"
	}
	return "direct"
}

// Publish delivers an event to every subscriber of its type. Channel
// subscribers get a non-blocking send and may drop under overload; direct
// subscribers run inline and throttle the publisher. A subscriber whose
// Deliver fails or panics is unregistered
func (e *EventBus) Publish(eventType EventType, evt Event) {
	// Gather subscribers under the read lock, deliver outside it
	e.mu.RLock()
	subs := e.subscribers[eventType]
	type subItem struct {
		sub Subscriber
		id  EventSubscriberId
	}
	subList := make([]subItem, 0, len(subs))
	for id, sub := range subs {
		subList = append(subList, subItem{id: id, sub: sub})
	}
	e.mu.RUnlock()
	for _, item := range subList {
		var deliverErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					deliverErr = fmt.Errorf("subscriber deliver panic: %v", r)
				}
			}()
			deliverErr = item.sub.Deliver(evt)
		}()
		if deliverErr != nil {
			e.Unsubscribe(eventType, item.id)
			if e.metrics != nil {
				e.metrics.deliveryErrors.
					WithLabelValues(string(eventType), subscriberKind(item.sub)).
					Inc()
			}
			e.logger().Debug(
				"event delivery error",
				"type", eventType,
				"err", deliverErr,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

// PublishAsync enqueues an event for delivery from the worker pool and
// returns immediately. Queue overflow drops the event. Use for advisory
// events where latency and loss are acceptable; async events may be
// delivered out of order relative to each other and to synchronous
// publishes
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	// Hold stopMu through the enqueue: Stop swaps the queue on restart,
	// and the send must target the queue that matched the stopped check
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.recordDrop(eventType)
		e.logger().
			Warn("async event queue full, dropping event", "type", eventType)
		return false
	}
}

func (e *EventBus) recordDrop(eventType EventType) {
	if e.metrics != nil {
		e.metrics.droppedEvents.WithLabelValues(string(eventType)).Inc()
	}
}

// Stop closes every subscriber, drains the worker pool, and waits for
// SubscribeFunc handler goroutines to exit. The bus is reusable afterward
func (e *EventBus) Stop() {
	// One Stop at a time, so concurrent calls cannot double-start the
	// worker pool
	e.stopOpMu.Lock()
	defer e.stopOpMu.Unlock()

	// Mark as stopped to reject new async publishes and SubscribeFunc
	// registrations during shutdown
	e.stopMu.Lock()
	wasAlreadyStopped := e.stopped
	e.stopped = true
	e.stopMu.Unlock()

	if !wasAlreadyStopped {
		// Signal async workers to stop and wait for them to finish
		close(e.stopCh)
		e.asyncWg.Wait()
	}

	e.mu.Lock()
	subsCopy := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()

	// Close subscribers outside the lock, then wait for their handler
	// goroutines to drain
	for _, evtTypeSubs := range subsCopy {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	e.subscriberWg.Wait()

	// Reset subscriber metrics if they exist
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}

	// Reinitialize async infrastructure to allow continued use
	e.stopMu.Lock()
	e.asyncQueue = make(chan asyncEvent, AsyncQueueSize)
	e.stopCh = make(chan struct{})
	e.stopped = false
	e.stopMu.Unlock()

	e.startWorkers()
}
