package util

import (
	"context"
	"sync"
	"time"
)

// An Eventer is a type that can emit events to an arbitrary number of
// listeners.
type Eventer interface {
	Events() *Emitter
}

type Emitter struct {
	// The release attribute determines how much time an event should be
	// buffered to prevent the emission of duplicate events.
	// A zero value will disable buffering.
	Release time.Duration

	listeners       map[<-chan interface{}]chan interface{}
	listenerClosers map[<-chan interface{}]chan struct{}
	lock            sync.RWMutex

	release map[interface{}]struct{}
}

// Events implements the Eventer interface so that emitters may be embedded in
// other types.
func (emitter *Emitter) Events() *Emitter {
	return emitter
}

func (emitter *Emitter) init() {
	emitter.lock.RLock()
	shouldInit := emitter.listeners == nil
	emitter.lock.RUnlock()
	if shouldInit {
		emitter.lock.Lock()
		if emitter.listeners == nil {
			emitter.listeners = map[<-chan interface{}]chan interface{}{}
			emitter.listenerClosers = map[<-chan interface{}]chan struct{}{}
			emitter.release = map[interface{}]struct{}{}
		}
		emitter.lock.Unlock()
	}
}

func (emitter *Emitter) broadcast(event interface{}) {
	emitter.lock.RLock()
	defer emitter.lock.RUnlock()
	for _, listener := range emitter.listeners {
		closer := emitter.listenerClosers[listener]
		go func(listener chan interface{}) {
			select {
			case listener <- event:
			case <-closer:
			}
		}(listener)
	}
}

// Emit broadcasts an event to all current listeners.
//
// Events must be comparable so duplicates can be coalesced while a release
// window is active.
func (emitter *Emitter) Emit(event interface{}) {
	emitter.init()

	if emitter.Release == 0 {
		go emitter.broadcast(event)
		return
	}

	// Check whether the event is already scheduled.
	emitter.lock.RLock()
	_, scheduled := emitter.release[event]
	emitter.lock.RUnlock()
	if scheduled {
		return
	}

	go func() {
		emitter.lock.Lock()
		emitter.release[event] = struct{}{}
		emitter.lock.Unlock()

		time.Sleep(emitter.Release)
		emitter.broadcast(event)

		emitter.lock.Lock()
		delete(emitter.release, event)
		emitter.lock.Unlock()
	}()
}

// Listen registers a new listener channel. The listener is removed and its
// channel closed when the context is canceled.
func (emitter *Emitter) Listen(ctx context.Context) <-chan interface{} {
	emitter.init()

	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	ch := make(chan interface{}, 1)
	emitter.listeners[ch] = ch
	emitter.listenerClosers[ch] = make(chan struct{})

	go func() {
		<-ctx.Done()
		emitter.unlisten(ch)
	}()
	return ch
}

func (emitter *Emitter) unlisten(ch <-chan interface{}) {
	emitter.lock.Lock()
	defer emitter.lock.Unlock()

	// Signal any remaining broadcasts to abort writing to the channel.
	close(emitter.listenerClosers[ch])

	close(emitter.listeners[ch])
	delete(emitter.listenerClosers, ch)
	delete(emitter.listeners, ch)
}
