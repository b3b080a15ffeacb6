package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"heymelody/src/keybind"
	"heymelody/src/library"
	"heymelody/src/player"
	"heymelody/src/player/remote"
	"heymelody/src/util/eventsource"
)

func jsonStatus(status player.Status) map[string]interface{} {
	return map[string]interface{}{
		"track":      status.Track,
		"playing":    status.Playing,
		"time":       status.Time.Seconds(),
		"duration":   status.Duration.Seconds(),
		"volume":     status.Volume,
		"shuffle":    status.Shuffle,
		"repeat_one": status.RepeatOne,
		"queue_open": status.QueueOpen,
	}
}

func (api *API) playerStatus(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(jsonStatus(api.session.Status()))
}

func (api *API) playerSetCurrent(w http.ResponseWriter, r *http.Request) {
	var data struct {
		TrackID string   `json:"track_id"`
		Queue   []string `json:"queue"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	song, err := api.store.SongByID(r.Context(), data.TrackID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var queue []library.Track
	if len(data.Queue) > 0 {
		if queue, err = api.store.TrackInfo(r.Context(), data.Queue...); err != nil {
			WriteError(w, r, err)
			return
		}
	}
	api.session.PlayNow(song.Track(), queue)
	w.Write([]byte("{}"))
}

func (api *API) playerNext(w http.ResponseWriter, r *http.Request) {
	api.session.PlayNext()
	w.Write([]byte("{}"))
}

func (api *API) playerPrev(w http.ResponseWriter, r *http.Request) {
	api.session.PlayPrev()
	w.Write([]byte("{}"))
}

func (api *API) playerGetPlaystate(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"playing": api.session.Playing(),
	})
}

func (api *API) playerSetPlaystate(w http.ResponseWriter, r *http.Request) {
	api.session.TogglePlayPause(r.Context())
	w.Write([]byte("{}"))
}

func (api *API) playerGetVolume(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"volume": api.binding.Volume(),
	})
}

func (api *API) playerSetVolume(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Volume int `json:"volume"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.binding.SetVolume(data.Volume)
	w.Write([]byte("{}"))
}

func (api *API) playerToggleMute(w http.ResponseWriter, r *http.Request) {
	api.binding.ToggleMute()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"volume": api.binding.Volume(),
	})
}

func (api *API) playerGetTime(w http.ResponseWriter, r *http.Request) {
	status := api.session.Status()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"time":     status.Time.Seconds(),
		"duration": status.Duration.Seconds(),
	})
}

func (api *API) playerSetTime(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Time float64 `json:"time"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.binding.SeekTo(time.Duration(data.Time * float64(time.Second)))
	w.Write([]byte("{}"))
}

func (api *API) playerSetSeeking(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Seeking bool `json:"seeking"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.binding.SetSeeking(data.Seeking)
	w.Write([]byte("{}"))
}

func (api *API) playerToggleShuffle(w http.ResponseWriter, r *http.Request) {
	api.session.ToggleShuffle()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"shuffle": api.session.Status().Shuffle,
	})
}

func (api *API) playerSetRepeat(w http.ResponseWriter, r *http.Request) {
	var data struct {
		RepeatOne bool `json:"repeat_one"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.session.SetRepeatOne(data.RepeatOne)
	w.Write([]byte("{}"))
}

func (api *API) playerQueue(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"current": api.session.Current(),
		"tracks":  api.session.Queue(),
	})
}

func (api *API) playerReplaceQueue(w http.ResponseWriter, r *http.Request) {
	var data struct {
		TrackIDs []string `json:"track_ids"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	tracks, err := api.store.TrackInfo(r.Context(), data.TrackIDs...)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	api.session.ReplaceQueue(tracks)
	w.Write([]byte("{}"))
}

func (api *API) playerSetQueuePanel(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Open bool `json:"open"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	api.session.SetQueueOpen(data.Open)
	w.Write([]byte("{}"))
}

func (api *API) playerKey(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Key    string `json:"key"`
		Typing bool   `json:"typing"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	action := keybind.Resolve(data.Key, data.Typing)
	switch action {
	case keybind.ActionTogglePlay:
		api.session.TogglePlayPause(r.Context())
	case keybind.ActionSeekBack:
		api.binding.SeekBy(-keybind.SeekStep)
	case keybind.ActionSeekForward:
		api.binding.SeekBy(keybind.SeekStep)
	case keybind.ActionVolumeUp:
		api.binding.SetVolume(api.binding.Volume() + keybind.VolumeStep)
	case keybind.ActionVolumeDown:
		api.binding.SetVolume(api.binding.Volume() - keybind.VolumeStep)
	case keybind.ActionToggleMute:
		api.binding.ToggleMute()
	case keybind.ActionToggleQueue:
		api.session.SetQueueOpen(!api.session.QueueOpen())
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"handled": action != keybind.ActionNone,
	})
}

func (api *API) playerEvents(w http.ResponseWriter, r *http.Request) {
	es, err := eventsource.Begin(w, r)
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	events := api.session.Events().Listen(r.Context())
	var commands <-chan interface{}
	if api.remote != nil {
		commands = api.remote.Commands().Listen(r.Context())
	}

	es.EventJSON("status", jsonStatus(api.session.Status()))

	for {
		select {
		case event := <-events:
			name, body := jsonSessionEvent(event)
			if name == "" {
				log.Debugf("Unmapped event %#v", event)
				continue
			}
			es.EventJSON(name, body)
		case command := <-commands:
			name, body := jsonCommand(command)
			if name == "" {
				log.Debugf("Unmapped command %#v", command)
				continue
			}
			es.EventJSON(name, body)
		case <-r.Context().Done():
			return
		}
	}
}

func jsonSessionEvent(event interface{}) (string, interface{}) {
	switch t := event.(type) {
	case player.TrackEvent:
		if t.Track.ID == "" {
			return "track", nil
		}
		return "track", t.Track
	case player.QueueEvent:
		return "queue", struct{}{}
	case player.PlayStateEvent:
		return "playstate", map[string]interface{}{"playing": t.Playing}
	case player.TimeEvent:
		return "time", map[string]interface{}{"time": t.Time.Seconds()}
	case player.DurationEvent:
		return "duration", map[string]interface{}{"duration": t.Duration.Seconds()}
	case player.VolumeEvent:
		return "volume", map[string]interface{}{"volume": t.Volume}
	case player.ShuffleEvent:
		return "shuffle", map[string]interface{}{"shuffle": t.Shuffle}
	case player.RepeatEvent:
		return "repeat", map[string]interface{}{"repeat_one": t.RepeatOne}
	case player.QueuePanelEvent:
		return "queue-panel", map[string]interface{}{"open": t.Open}
	}
	return "", nil
}

func jsonCommand(command interface{}) (string, interface{}) {
	switch t := command.(type) {
	case remote.LoadCommand:
		return "cmd-load", map[string]interface{}{"url": t.URL}
	case remote.PlayCommand:
		return "cmd-play", struct{}{}
	case remote.PauseCommand:
		return "cmd-pause", struct{}{}
	case remote.SeekCommand:
		return "cmd-seek", map[string]interface{}{"time": t.Time.Seconds()}
	case remote.VolumeCommand:
		return "cmd-volume", map[string]interface{}{"volume": t.Volume}
	case remote.LoopCommand:
		return "cmd-loop", map[string]interface{}{"loop": t.Loop}
	}
	return "", nil
}

// playerElementReport receives the ground truth of the client's media
// element when the output is a connected client.
func (api *API) playerElementReport(w http.ResponseWriter, r *http.Request) {
	if api.remote == nil {
		WriteError(w, r, errors.New("the configured output is not a connected client"))
		return
	}
	var data struct {
		Event    string  `json:"event"`
		Time     float64 `json:"time"`
		Duration float64 `json:"duration"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	switch data.Event {
	case "play":
		api.remote.Report(player.PlayEvent{})
	case "pause":
		api.remote.Report(player.PauseEvent{})
	case "timeupdate":
		api.remote.Report(player.TimeUpdateEvent{Time: time.Duration(data.Time * float64(time.Second))})
	case "loadedmetadata":
		api.remote.Report(player.LoadedMetadataEvent{Duration: time.Duration(data.Duration * float64(time.Second))})
	case "durationchange":
		api.remote.Report(player.DurationChangeEvent{Duration: time.Duration(data.Duration * float64(time.Second))})
	case "ended":
		api.remote.Report(player.EndedEvent{})
	default:
		WriteError(w, r, fmt.Errorf("unknown media event %q", data.Event))
		return
	}
	w.Write([]byte("{}"))
}

// dropFromQueue takes removed catalog entries out of the live play context.
func (api *API) dropFromQueue(songIDs ...string) {
	queue := api.session.Queue()
	remaining := make([]library.Track, 0, len(queue))
	for _, track := range queue {
		removed := false
		for _, id := range songIDs {
			if track.ID == id {
				removed = true
				break
			}
		}
		if !removed {
			remaining = append(remaining, track)
		}
	}
	if len(remaining) != len(queue) {
		api.session.ReplaceQueue(remaining)
	}
}
