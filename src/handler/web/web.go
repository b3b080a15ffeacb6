package web

import (
	"bytes"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/tdewolff/minify/v2"
	minifycss "github.com/tdewolff/minify/v2/css"
	minifyjs "github.com/tdewolff/minify/v2/js"

	"heymelody/src/handler/api"
	"heymelody/src/handler/webui"
	"heymelody/src/util"
)

const publicDir = "public"

var startTime = time.Now()

type webUI struct {
	build, version string
	urlRoot        string
	files          fs.FS

	minifier  *minify.M
	assetLock sync.Mutex
	assets    map[string][]byte
}

// New builds the complete HTTP interface: the web shell, its static assets
// and the REST API under /data.
func New(build, version, urlRoot string, apiHandler *api.API) chi.Router {
	minifier := minify.New()
	minifier.AddFunc("text/css", minifycss.Minify)
	minifier.AddFunc("application/javascript", minifyjs.Minify)

	web := &webUI{
		build:    build,
		version:  version,
		urlRoot:  urlRoot,
		files:    webui.Files(build),
		minifier: minifier,
		assets:   map[string][]byte{},
	}

	service := chi.NewRouter()
	service.Use(util.LogHandler)
	service.Use(middleware.Compress(5))

	service.Get("/", web.page)
	service.Get("/static/{asset}", web.serveAsset)
	service.Route("/data", func(r chi.Router) {
		api.InitRouter(r, apiHandler)
	})
	return service
}

func (web *webUI) staticAssets() map[string][]string {
	static := map[string][]string{
		"js":  {},
		"css": {},
	}
	names, err := fs.Glob(web.files, publicDir+"/*")
	if err != nil {
		log.Errorf("Could not list static assets: %v", err)
		return static
	}
	for _, name := range names {
		base := path.Base(name)
		switch path.Ext(name) {
		case ".css":
			static["css"] = append(static["css"], base)
		case ".js":
			static["js"] = append(static["js"], base)
		}
	}
	for _, a := range static {
		sort.Strings(a)
	}
	return static
}

func (web *webUI) page(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(web.files, "view/page.html")
	if err != nil {
		log.Errorf("Could not read the page template: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	tmpl, err := template.New("page").Parse(string(page))
	if err != nil {
		log.Errorf("Could not parse the page template: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	err = tmpl.Execute(w, map[string]interface{}{
		"urlroot": web.urlRoot,
		"version": web.version,
		"assets":  web.staticAssets(),
		"time":    startTime,
	})
	if err != nil {
		log.Errorf("Could not render the page template: %v", err)
	}
}

func (web *webUI) serveAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "asset")
	if strings.ContainsAny(name, "/\\") {
		http.NotFound(w, r)
		return
	}
	body, err := web.asset(publicDir + "/" + name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", mime.TypeByExtension(path.Ext(name)))
	http.ServeContent(w, r, name, startTime, bytes.NewReader(body))
}

// asset reads a static file. Scripts and stylesheets are minified, release
// builds keep the result cached.
func (web *webUI) asset(name string) ([]byte, error) {
	web.assetLock.Lock()
	defer web.assetLock.Unlock()
	if body, ok := web.assets[name]; ok {
		return body, nil
	}

	body, err := fs.ReadFile(web.files, name)
	if err != nil {
		return nil, err
	}
	var mediatype string
	switch path.Ext(name) {
	case ".css":
		mediatype = "text/css"
	case ".js":
		mediatype = "application/javascript"
	}
	if mediatype != "" {
		if minified, err := web.minifier.Bytes(mediatype, body); err != nil {
			log.Errorf("Could not minify %q: %v", name, err)
		} else {
			body = minified
		}
	}
	if web.build == "release" {
		web.assets[name] = body
	}
	return body, nil
}
