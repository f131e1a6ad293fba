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
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/proofhound/internal/test/testutil"
)

// Publish racing Unsubscribe and Stop must never send on a closed channel.
// A lost race panics, so the test passes by surviving the iterations
func TestPublishUnsubscribeRace(t *testing.T) {
	for range 1000 {
		eb := NewEventBus(nil, nil)
		typ := EventType("race.publish.unsubscribe")
		subId, ch := eb.Subscribe(typ)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := range 10 {
				eb.Publish(typ, NewEvent(typ, j))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(typ, subId)
			eb.Stop()
		}()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		wg.Wait()
	}
}

// A subscriberWg.Add landing after Stop has begun waiting on a drained
// counter panics. SubscribeFunc holds stopMu across the add, so a
// registration either completes before Stop waits or is refused with a
// zero id
func TestSubscribeFuncStopRace(t *testing.T) {
	for range 1000 {
		eb := NewEventBus(nil, nil)
		typ := EventType("race.subscribefunc.stop")

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				eb.SubscribeFunc(typ, func(Event) {})
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			eb.Stop()
		}()
		wg.Wait()
	}
}

// A full subscriber buffer must drop the next event rather than stall
// the publisher
func TestPublishDoesNotBlockOnFullChannel(t *testing.T) {
	eb := NewEventBus(nil, nil)
	defer eb.Stop()
	typ := EventType("race.full.buffer")
	_, ch := eb.Subscribe(typ)

	for range EventQueueSize {
		eb.Publish(typ, NewEvent(typ, "fill"))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		eb.Publish(typ, NewEvent(typ, "overflow"))
	}()
	testutil.RequireReceive(
		t,
		done,
		2*time.Second,
		"Publish blocked on a full subscriber buffer",
	)

	// The buffer holds exactly the fill events; the overflow was dropped
	for drained := 0; drained < EventQueueSize; drained++ {
		select {
		case <-ch:
		default:
			t.Fatalf(
				"expected %d buffered events, got %d",
				EventQueueSize, drained,
			)
		}
	}
	select {
	case <-ch:
		t.Fatal("overflow event should have been dropped")
	default:
	}
}

// Unsubscribe closes the subscriber channel outside the bus lock, so a
// publish storm against a full buffer must not deadlock the close
func TestCloseDoesNotDeadlockWithFullChannel(t *testing.T) {
	for range 500 {
		eb := NewEventBus(nil, nil)
		typ := EventType("race.close.full")
		subId, ch := eb.Subscribe(typ)

		for range EventQueueSize {
			eb.Publish(typ, NewEvent(typ, "fill"))
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				eb.Publish(typ, NewEvent(typ, "storm"))
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(typ, subId)
		}()
		go func() {
			for range ch {
			}
		}()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		testutil.RequireReceive(
			t,
			done,
			5*time.Second,
			"Close or Publish deadlocked against a full subscriber buffer",
		)
		eb.Stop()
	}
}
