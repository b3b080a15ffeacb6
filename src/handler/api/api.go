package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"heymelody/src/auth"
	"heymelody/src/catalog"
	"heymelody/src/mediastore"
	"heymelody/src/player"
	"heymelody/src/player/remote"
)

// API contains the state that is accessible over the REST API.
type API struct {
	session *player.Session
	binding *player.Binding
	// remote is set when the configured output is a connected client. Other
	// outputs have no command stream or report endpoint.
	remote *remote.Element

	store  *catalog.Store
	media  *mediastore.Store
	users  *auth.Store
	tokens *auth.Tokens
	oauth  *auth.OAuthFlow

	likeSetsLock sync.Mutex
	likeSets     map[string]*catalog.LikeSet
}

func New(session *player.Session, binding *player.Binding, remoteEl *remote.Element,
	store *catalog.Store, media *mediastore.Store,
	users *auth.Store, tokens *auth.Tokens, oauth *auth.OAuthFlow) *API {
	return &API{
		session:  session,
		binding:  binding,
		remote:   remoteEl,
		store:    store,
		media:    media,
		users:    users,
		tokens:   tokens,
		oauth:    oauth,
		likeSets: map[string]*catalog.LikeSet{},
	}
}

// InitRouter attaches all API routes to the specified router.
func InitRouter(r chi.Router, api *API) {
	r.Use(jsonCtx)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", api.authRegister)
		r.Post("/login", api.authLogin)
		r.Post("/logout", api.authLogout)
		r.Get("/oauth", api.authOAuthRedirect)
		r.Get("/oauth/callback", api.authOAuthCallback)
		r.With(auth.Middleware(api.users, api.tokens)).Get("/me", api.authMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(api.users, api.tokens))

		r.Route("/player", func(r chi.Router) {
			r.Get("/status", api.playerStatus)
			r.Post("/current", api.playerSetCurrent)
			r.Post("/next", api.playerNext)
			r.Post("/prev", api.playerPrev)
			r.Get("/playstate", api.playerGetPlaystate)
			r.Post("/playstate", api.playerSetPlaystate)
			r.Get("/volume", api.playerGetVolume)
			r.Post("/volume", api.playerSetVolume)
			r.Post("/mute", api.playerToggleMute)
			r.Get("/time", api.playerGetTime)
			r.Post("/time", api.playerSetTime)
			r.Post("/seeking", api.playerSetSeeking)
			r.Post("/shuffle", api.playerToggleShuffle)
			r.Post("/repeat", api.playerSetRepeat)
			r.Get("/queue", api.playerQueue)
			r.Put("/queue", api.playerReplaceQueue)
			r.Post("/queue-panel", api.playerSetQueuePanel)
			r.Post("/key", api.playerKey)
			r.Get("/events", api.playerEvents)
			r.Post("/element/report", api.playerElementReport)
		})

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", api.songList)
			r.Post("/", api.songUpload)
			r.Get("/search", api.songSearch)
			r.Route("/{songID}", func(r chi.Router) {
				r.Get("/", api.songGet)
				r.Delete("/", api.songDelete)
				r.Post("/like", api.songToggleLike)
			})
		})
		r.Get("/likes", api.likedSongs)

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", api.playlistList)
			r.Post("/", api.playlistCreate)
			r.Route("/{playlistID}", func(r chi.Router) {
				r.Get("/", api.playlistGet)
				r.Patch("/", api.playlistUpdate)
				r.Delete("/", api.playlistDelete)
				r.Put("/songs/{songID}", api.playlistAddSong)
				r.Delete("/songs/{songID}", api.playlistRemoveSong)
			})
		})

		r.Route("/albums", func(r chi.Router) {
			r.Get("/", api.albumList)
			r.Post("/", api.albumCreate)
			r.Route("/{albumID}", func(r chi.Router) {
				r.Get("/", api.albumGet)
				r.Delete("/", api.albumDelete)
				r.Put("/songs/{songID}", api.albumAddSong)
				r.Delete("/songs/{songID}", api.albumRemoveSong)
			})
		})
	})
}

// WriteError writes an error to the client.
//
// Store and auth errors are mapped onto matching status codes, anything else
// is treated as a malformed request.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("Error serving %s: %v", r.RemoteAddr, err)

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken):
		status = http.StatusConflict
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func jsonCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// likeSet gets the cached optimistic like set for a user, loading it from
// the store on first use.
func (api *API) likeSet(ctx context.Context, userID string) (*catalog.LikeSet, error) {
	api.likeSetsLock.Lock()
	defer api.likeSetsLock.Unlock()
	if set, ok := api.likeSets[userID]; ok {
		return set, nil
	}
	set, err := catalog.NewLikeSet(ctx, api.store, userID)
	if err != nil {
		return nil, err
	}
	api.likeSets[userID] = set
	return set, nil
}
