package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"heymelody/src/auth"
	"heymelody/src/catalog"
	"heymelody/src/library"
)

// maxUploadSize bounds multipart uploads, the audio file included.
const maxUploadSize = 256 << 20

func requestUser(r *http.Request) (auth.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return auth.User{}, auth.ErrUnauthorized
	}
	return user, nil
}

// jsonSong decorates a catalog entry with the requesting user's like state.
func (api *API) jsonSong(r *http.Request, song catalog.Song) (map[string]interface{}, error) {
	user, err := requestUser(r)
	if err != nil {
		return nil, err
	}
	set, err := api.likeSet(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(song)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out["liked"] = set.IsLiked(song.ID)
	return out, nil
}

func (api *API) jsonSongs(r *http.Request, songs []catalog.Song) ([]interface{}, error) {
	out := make([]interface{}, len(songs))
	for i, song := range songs {
		decorated, err := api.jsonSong(r, song)
		if err != nil {
			return nil, err
		}
		out[i] = decorated
	}
	return out, nil
}

func (api *API) songList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	songs, err := api.store.Songs(r.Context(), limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out, err := api.jsonSongs(r, songs)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"songs": out})
}

func (api *API) songSearch(w http.ResponseWriter, r *http.Request) {
	songs, err := api.store.SearchSongs(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out, err := api.jsonSongs(r, songs)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"songs": out})
}

func (api *API) songGet(w http.ResponseWriter, r *http.Request) {
	song, err := api.store.SongByID(r.Context(), chi.URLParam(r, "songID"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out, err := api.jsonSong(r, song)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(out)
}

// songUpload accepts a multipart form with an "audio" file, optional "cover"
// and "video" files and "title" and "artist" fields. The files end up in the
// media store, the song in the catalog.
func (api *API) songUpload(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	song := catalog.Song{
		UserID: user.ID,
		Title:  r.FormValue("title"),
		Artist: r.FormValue("artist"),
	}
	if song.Title == "" {
		WriteError(w, r, errors.New("a title is required"))
		return
	}

	stored := []string{}
	abort := func() {
		for _, url := range stored {
			api.media.Remove(url)
		}
	}
	for _, part := range []struct {
		field string
		dest  *string
	}{
		{"audio", &song.AudioURL},
		{"cover", &song.CoverImageURL},
		{"video", &song.VideoURL},
	} {
		file, header, err := r.FormFile(part.field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		} else if err != nil {
			abort()
			WriteError(w, r, err)
			return
		}
		url, err := api.media.Put(file, header.Filename)
		file.Close()
		if err != nil {
			abort()
			WriteError(w, r, err)
			return
		}
		stored = append(stored, url)
		*part.dest = url
	}

	if err := api.store.CreateSong(r.Context(), &song); err != nil {
		abort()
		WriteError(w, r, err)
		return
	}
	out, err := api.jsonSong(r, song)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(out)
}

func (api *API) songDelete(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	songID := chi.URLParam(r, "songID")
	song, err := api.store.SongByID(r.Context(), songID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := api.store.DeleteSong(r.Context(), user.ID, songID); err != nil {
		WriteError(w, r, err)
		return
	}
	for _, url := range []string{song.AudioURL, song.CoverImageURL, song.VideoURL} {
		if url != "" {
			api.media.Remove(url)
		}
	}
	api.dropFromQueue(songID)
	w.Write([]byte("{}"))
}

func (api *API) songToggleLike(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	set, err := api.likeSet(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	liked, err := set.Toggle(r.Context(), chi.URLParam(r, "songID"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"liked": liked})
}

func (api *API) likedSongs(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	songs, err := api.store.LikedSongs(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out, err := api.jsonSongs(r, songs)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"songs": out})
}

func (api *API) playlistList(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	playlists, err := api.store.Playlists(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"playlists": playlists})
}

func (api *API) playlistCreate(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var pl catalog.Playlist
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&pl); err != nil {
		WriteError(w, r, err)
		return
	}
	if pl.Name == "" {
		WriteError(w, r, errors.New("a name is required"))
		return
	}
	pl.ID = ""
	pl.UserID = user.ID
	if err := api.store.CreatePlaylist(r.Context(), &pl); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(pl)
}

func (api *API) playlistGet(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")
	pl, err := api.store.PlaylistByID(r.Context(), playlistID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	entries, err := api.store.PlaylistSongs(r.Context(), playlistID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"playlist": pl,
		"songs":    entries,
	})
}

func (api *API) playlistUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var pl catalog.Playlist
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&pl); err != nil {
		WriteError(w, r, err)
		return
	}
	pl.ID = chi.URLParam(r, "playlistID")
	if err := api.store.UpdatePlaylist(r.Context(), user.ID, pl); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playlistDelete(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := api.store.DeletePlaylist(r.Context(), user.ID, chi.URLParam(r, "playlistID")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playlistAddSong(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	err = api.store.AddToPlaylist(r.Context(), user.ID,
		chi.URLParam(r, "playlistID"), chi.URLParam(r, "songID"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playlistRemoveSong(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	playlistID := chi.URLParam(r, "playlistID")
	before, err := api.store.PlaylistSongs(r.Context(), playlistID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	err = api.store.RemoveFromPlaylist(r.Context(), user.ID,
		playlistID, chi.URLParam(r, "songID"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	after, err := api.store.PlaylistSongs(r.Context(), playlistID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	api.syncQueueWithEntries(before, after)
	w.Write([]byte("{}"))
}

// syncQueueWithEntries re-derives the play context when the edited collection
// is what the live queue was built from. Edits to collections the session is
// not playing leave the queue alone.
func (api *API) syncQueueWithEntries(before, after []catalog.Entry) {
	queue := api.session.Queue()
	if len(queue) != len(before) {
		return
	}
	for i := range queue {
		if queue[i].ID != before[i].Song.ID {
			return
		}
	}
	tracks := make([]library.Track, len(after))
	for i, entry := range after {
		tracks[i] = entry.Song.Track()
	}
	api.session.ReplaceQueue(tracks)
}

func (api *API) albumList(w http.ResponseWriter, r *http.Request) {
	albums, err := api.store.Albums(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"albums": albums})
}

func (api *API) albumCreate(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var album catalog.Album
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&album); err != nil {
		WriteError(w, r, err)
		return
	}
	if album.Name == "" {
		WriteError(w, r, errors.New("a name is required"))
		return
	}
	album.ID = ""
	album.UserID = user.ID
	if err := api.store.CreateAlbum(r.Context(), &album); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(album)
}

func (api *API) albumGet(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "albumID")
	album, err := api.store.AlbumByID(r.Context(), albumID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	entries, err := api.store.AlbumSongs(r.Context(), albumID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"album": album,
		"songs": entries,
	})
}

func (api *API) albumDelete(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := api.store.DeleteAlbum(r.Context(), user.ID, chi.URLParam(r, "albumID")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) albumAddSong(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	err = api.store.AddToAlbum(r.Context(), user.ID,
		chi.URLParam(r, "albumID"), chi.URLParam(r, "songID"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) albumRemoveSong(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	albumID := chi.URLParam(r, "albumID")
	before, err := api.store.AlbumSongs(r.Context(), albumID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	err = api.store.RemoveFromAlbum(r.Context(), user.ID,
		albumID, chi.URLParam(r, "songID"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	after, err := api.store.AlbumSongs(r.Context(), albumID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	api.syncQueueWithEntries(before, after)
	w.Write([]byte("{}"))
}
