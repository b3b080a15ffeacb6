package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"heymelody/src/auth"
)

func (api *API) writeSession(w http.ResponseWriter, user auth.User) {
	token, err := api.tokens.Issue(user)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (api *API) authRegister(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := api.users.Register(r.Context(), data.Email, data.DisplayName, data.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	api.writeSession(w, user)
}

func (api *API) authLogin(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := api.users.Authenticate(r.Context(), data.Email, data.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	api.writeSession(w, user)
}

func (api *API) authLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.Write([]byte("{}"))
}

func (api *API) authMe(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"user": user})
}

func (api *API) authOAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if api.oauth == nil {
		WriteError(w, r, errors.New("no identity provider is configured"))
		return
	}
	api.oauth.Redirect(w, r)
}

func (api *API) authOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if api.oauth == nil {
		WriteError(w, r, errors.New("no identity provider is configured"))
		return
	}
	user, err := api.oauth.Callback(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	token, err := api.tokens.Issue(user)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// The redirect dance ends in the browser, so land back on the web
	// interface rather than returning JSON.
	http.Redirect(w, r, "/", http.StatusFound)
}
