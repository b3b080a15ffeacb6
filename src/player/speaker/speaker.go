// Package speaker implements a player.Element that renders audio on the
// local sound device.
package speaker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	log "github.com/sirupsen/logrus"

	"heymelody/src/player"
	"heymelody/src/util"
)

const sampleRate = beep.SampleRate(44100)

// Element plays MP3 sources through the machine's speakers.
type Element struct {
	util.Emitter

	mu sync.Mutex

	initialized bool
	source      string
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	volumePct   int
	loop        bool
	paused      bool

	// Stale finish callbacks from skipped tracks are identified by this
	// counter.
	playbackID uint64

	progressCancel context.CancelFunc
}

var _ player.Element = &Element{}

func New() *Element {
	return &Element{paused: true, volumePct: 50}
}

func (el *Element) initSpeaker() error {
	if el.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	el.initialized = true
	return nil
}

func fetchSource(url string) (io.ReadCloser, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		res, err := http.Get(url)
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= 400 {
			res.Body.Close()
			return nil, fmt.Errorf("fetching %q: %s", url, res.Status)
		}
		return res.Body, nil
	}
	return os.Open(strings.TrimPrefix(url, "file://"))
}

func (el *Element) Load(url string) {
	el.mu.Lock()
	defer el.mu.Unlock()

	el.stopLocked()
	el.source = url

	body, err := fetchSource(url)
	if err != nil {
		log.WithField("url", url).Errorf("Unable to fetch source: %v", err)
		return
	}
	streamer, format, err := mp3.Decode(body)
	if err != nil {
		body.Close()
		log.WithField("url", url).Errorf("Unable to decode source: %v", err)
		return
	}

	el.streamer = streamer
	el.format = format
	el.Emit(player.LoadedMetadataEvent{Duration: format.SampleRate.D(streamer.Len())})
}

func (el *Element) Source() string {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.source
}

func (el *Element) Play(ctx context.Context) error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.streamer == nil {
		return fmt.Errorf("no source loaded")
	}
	if err := el.initSpeaker(); err != nil {
		return err
	}

	if el.ctrl != nil {
		// Resume the existing stream.
		speaker.Lock()
		el.ctrl.Paused = false
		speaker.Unlock()
		el.paused = false
		el.Emit(player.PlayEvent{})
		return nil
	}

	resampled := beep.Resample(4, el.format.SampleRate, sampleRate, el.streamer)
	el.ctrl = &beep.Ctrl{Streamer: resampled}
	el.volume = &effects.Volume{
		Streamer: el.ctrl,
		Base:     2,
		Volume:   gain(el.volumePct),
		Silent:   el.volumePct == 0,
	}

	el.playbackID++
	id := el.playbackID
	speaker.Play(beep.Seq(el.volume, beep.Callback(func() {
		// beep runs this on the speaker goroutine, finishing work must
		// not block it.
		go el.finished(id)
	})))

	el.paused = false
	el.startProgressLoop()
	el.Emit(player.PlayEvent{})
	return nil
}

func (el *Element) finished(id uint64) {
	el.mu.Lock()
	if id != el.playbackID || el.streamer == nil {
		el.mu.Unlock()
		return
	}
	if el.loop {
		// Restart the same source without surfacing an ended event.
		if err := el.streamer.Seek(0); err == nil {
			vol := el.volume
			el.playbackID++
			id := el.playbackID
			speaker.Play(beep.Seq(vol, beep.Callback(func() {
				go el.finished(id)
			})))
			el.mu.Unlock()
			return
		}
	}
	el.paused = true
	el.stopProgressLocked()
	el.mu.Unlock()
	el.Emit(player.EndedEvent{})
}

func (el *Element) Pause() {
	el.mu.Lock()
	if el.ctrl != nil {
		speaker.Lock()
		el.ctrl.Paused = true
		speaker.Unlock()
	}
	el.paused = true
	el.mu.Unlock()
	el.Emit(player.PauseEvent{})
}

func (el *Element) Paused() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.paused
}

func (el *Element) SetLoop(loop bool) {
	el.mu.Lock()
	el.loop = loop
	el.mu.Unlock()
}

func (el *Element) Looping() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.loop
}

func (el *Element) Seek(t time.Duration) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.streamer == nil {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	if err := el.streamer.Seek(el.format.SampleRate.N(t)); err != nil {
		log.Warnf("Seek failed: %v", err)
	}
}

func (el *Element) Position() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := el.streamer.Position()
	speaker.Unlock()
	return el.format.SampleRate.D(pos)
}

func (el *Element) Duration() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.streamer == nil {
		return 0
	}
	return el.format.SampleRate.D(el.streamer.Len())
}

func (el *Element) SetVolume(pct int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.volumePct = pct
	if el.volume != nil {
		speaker.Lock()
		el.volume.Volume = gain(pct)
		el.volume.Silent = pct == 0
		speaker.Unlock()
	}
}

func (el *Element) Volume() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.volumePct
}

func (el *Element) Close() error {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.stopLocked()
	return nil
}

// gain maps a 0-100 percentage onto the exponential volume scale of
// effects.Volume.
func gain(pct int) float64 {
	return (float64(pct) - 100) / 20
}

func (el *Element) stopLocked() {
	el.playbackID++
	if el.ctrl != nil {
		speaker.Lock()
		el.ctrl.Paused = true
		speaker.Unlock()
	}
	if el.streamer != nil {
		el.streamer.Close()
		el.streamer = nil
	}
	el.ctrl = nil
	el.volume = nil
	el.paused = true
	el.stopProgressLocked()
}

func (el *Element) startProgressLoop() {
	if el.progressCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	el.progressCancel = cancel
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if el.Paused() {
					continue
				}
				el.Emit(player.TimeUpdateEvent{Time: el.Position()})
			}
		}
	}()
}

func (el *Element) stopProgressLocked() {
	if el.progressCancel != nil {
		el.progressCancel()
		el.progressCancel = nil
	}
}
