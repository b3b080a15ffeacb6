// Package mpd implements a player.Element backed by a Music Player Daemon
// instance.
package mpd

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	log "github.com/sirupsen/logrus"

	"heymelody/src/player"
	"heymelody/src/util"
)

// Element drives a remote MPD server. The MPD queue is used as a scratch
// area holding exactly the currently loaded source, queue semantics live in
// the session.
type Element struct {
	util.Emitter

	network, addr, passwd string

	// Running the idle routine on the same connection as command traffic
	// confuses MPD, the watcher gets its own connection.
	watcher *mpd.Watcher

	mu      sync.Mutex
	source  string
	loop    bool
	playing bool
	volume  int

	cancel context.CancelFunc
}

var _ player.Element = &Element{}

// Connect dials the MPD server and starts watching it for state changes.
func Connect(network, addr string, passwd *string) (*Element, error) {
	var pw string
	if passwd != nil {
		pw = *passwd
	}
	watcher, err := mpd.NewWatcher(network, addr, pw, "player", "mixer")
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MPD: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	el := &Element{
		network: network,
		addr:    addr,
		passwd:  pw,
		watcher: watcher,
		volume:  50,
		cancel:  cancel,
	}
	go el.eventLoop(ctx)
	go el.progressLoop(ctx)
	return el, nil
}

func (el *Element) withMpd(fn func(*mpd.Client) error) error {
	client, err := mpd.DialAuthenticated(el.network, el.addr, el.passwd)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (el *Element) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case subsystem, ok := <-el.watcher.Event:
			if !ok {
				return
			}
			switch subsystem {
			case "player":
				el.reconcilePlayerState()
			case "mixer":
				el.Emit(player.TimeUpdateEvent{Time: el.Position()})
			}
		case err := <-el.watcher.Error:
			log.Errorf("MPD watcher: %v", err)
		}
	}
}

// reconcilePlayerState translates an MPD player subsystem change into media
// events.
func (el *Element) reconcilePlayerState() {
	var state string
	var duration time.Duration
	err := el.withMpd(func(c *mpd.Client) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		state = attrs["state"]
		if d, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
			duration = time.Duration(d * float64(time.Second))
		}
		return nil
	})
	if err != nil {
		log.Errorf("MPD status: %v", err)
		return
	}

	el.mu.Lock()
	wasPlaying := el.playing
	el.playing = state == "play"
	loop := el.loop
	el.mu.Unlock()

	switch state {
	case "play":
		el.Emit(player.DurationChangeEvent{Duration: duration})
		el.Emit(player.PlayEvent{})
	case "pause":
		el.Emit(player.PauseEvent{})
	case "stop":
		// MPD falls back to stopped when the single queued source runs
		// out. With loop enabled MPD restarts it by itself, a stop can
		// then only mean an explicit pause.
		if wasPlaying && !loop {
			el.Emit(player.EndedEvent{})
		} else {
			el.Emit(player.PauseEvent{})
		}
	}
}

func (el *Element) progressLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			el.mu.Lock()
			playing := el.playing
			el.mu.Unlock()
			if playing {
				el.Emit(player.TimeUpdateEvent{Time: el.Position()})
			}
		}
	}
}

func (el *Element) Load(url string) {
	el.mu.Lock()
	el.source = url
	loop := el.loop
	el.mu.Unlock()

	err := el.withMpd(func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.Add(url); err != nil {
			return err
		}
		if err := c.Repeat(loop); err != nil {
			return err
		}
		return c.Single(loop)
	})
	if err != nil {
		log.WithField("url", url).Errorf("Unable to load source: %v", err)
		return
	}

	var duration time.Duration
	_ = el.withMpd(func(c *mpd.Client) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		if d, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
			duration = time.Duration(d * float64(time.Second))
		}
		return nil
	})
	el.Emit(player.LoadedMetadataEvent{Duration: duration})
}

func (el *Element) Source() string {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.source
}

func (el *Element) Play(ctx context.Context) error {
	err := el.withMpd(func(c *mpd.Client) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		if attrs["state"] == "pause" {
			return c.Pause(false)
		}
		return c.Play(0)
	})
	if err != nil {
		return err
	}
	el.mu.Lock()
	el.playing = true
	el.mu.Unlock()
	return nil
}

func (el *Element) Pause() {
	if err := el.withMpd(func(c *mpd.Client) error {
		return c.Pause(true)
	}); err != nil {
		log.Errorf("Unable to pause: %v", err)
	}
	el.mu.Lock()
	el.playing = false
	el.mu.Unlock()
}

func (el *Element) Paused() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return !el.playing
}

func (el *Element) SetLoop(loop bool) {
	el.mu.Lock()
	el.loop = loop
	el.mu.Unlock()
	if err := el.withMpd(func(c *mpd.Client) error {
		if err := c.Repeat(loop); err != nil {
			return err
		}
		return c.Single(loop)
	}); err != nil {
		log.Errorf("Unable to set loop: %v", err)
	}
}

func (el *Element) Looping() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.loop
}

func (el *Element) Seek(t time.Duration) {
	if err := el.withMpd(func(c *mpd.Client) error {
		return c.SeekCur(t, false)
	}); err != nil {
		log.Errorf("Unable to seek: %v", err)
	}
}

func (el *Element) Position() time.Duration {
	var pos time.Duration
	_ = el.withMpd(func(c *mpd.Client) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		if e, err := strconv.ParseFloat(attrs["elapsed"], 64); err == nil {
			pos = time.Duration(e * float64(time.Second))
		}
		return nil
	})
	return pos
}

func (el *Element) Duration() time.Duration {
	var duration time.Duration
	_ = el.withMpd(func(c *mpd.Client) error {
		attrs, err := c.Status()
		if err != nil {
			return err
		}
		if d, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
			duration = time.Duration(d * float64(time.Second))
		}
		return nil
	})
	return duration
}

func (el *Element) SetVolume(pct int) {
	el.mu.Lock()
	el.volume = pct
	el.mu.Unlock()
	if err := el.withMpd(func(c *mpd.Client) error {
		return c.SetVolume(pct)
	}); err != nil {
		log.Errorf("Unable to set volume: %v", err)
	}
}

func (el *Element) Volume() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.volume
}

func (el *Element) Close() error {
	el.cancel()
	return el.watcher.Close()
}
