package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"heymelody/src/auth"
	"heymelody/src/catalog"
	"heymelody/src/handler/api"
	"heymelody/src/handler/web"
	"heymelody/src/mediastore"
	"heymelody/src/player"
	"heymelody/src/player/mpd"
	"heymelody/src/player/remote"
	"heymelody/src/player/speaker"
	"heymelody/src/util"
)

const confFile = "config.yaml"

var (
	build       = "%BUILD%"
	version     = "%VERSION%"
	versionDate = "%VERSION_DATE%"
)

type config struct {
	Address string `yaml:"bind"`
	URLRoot string `yaml:"url_root"`

	StorageDir string `yaml:"storage_dir"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret string              `yaml:"jwt_secret"`
		TokenTTL  string              `yaml:"token_ttl"`
		OAuth     *auth.OAuthProvider `yaml:"oauth"`
	} `yaml:"auth"`

	// Output selects what ends up making noise: "browser" hands playback to
	// a connected client, "speaker" uses the local audio device and "mpd"
	// delegates to a Music Player Daemon.
	Output struct {
		Kind string `yaml:"kind"`
		MPD  struct {
			Network  string  `yaml:"network"`
			Address  string  `yaml:"address"`
			Password *string `yaml:"password"`
		} `yaml:"mpd"`
	} `yaml:"output"`
}

func (conf *config) Validate() (errs []error) {
	if conf.Address == "" {
		errs = append(errs, fmt.Errorf("config: `bind` is required"))
	}
	if conf.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("config: `auth.jwt_secret` is required"))
	}
	switch conf.Database.Driver {
	case "", "sqlite3":
	case "postgres":
		if conf.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("config: `database.dsn` is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown database driver %q", conf.Database.Driver))
	}
	switch conf.Output.Kind {
	case "", "browser", "speaker":
	case "mpd":
		if conf.Output.MPD.Address == "" {
			errs = append(errs, fmt.Errorf("config: `output.mpd.address` is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown output %q", conf.Output.Kind))
	}
	if conf.Auth.TokenTTL != "" {
		if _, err := time.ParseDuration(conf.Auth.TokenTTL); err != nil {
			errs = append(errs, fmt.Errorf("config: bad `auth.token_ttl`: %v", err))
		}
	}
	return
}

func LoadConfig(filename string) (*config, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	d := yaml.NewDecoder(fd)
	d.KnownFields(true)
	var conf config
	if err := d.Decode(&conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func main() {
	defaultLogLevel := "warn"
	if build == "debug" {
		defaultLogLevel = "debug"
	}

	configFile := flag.String("conf", confFile, "Path to the configuration file")
	printVersion := flag.Bool("version", false, "Print version information and exit")
	logLevel := flag.String("log", defaultLogLevel, "Sets the log level. [debug, info, warn, error]")
	flag.Parse()

	if ll, err := log.ParseLevel(*logLevel); err != nil {
		log.Fatalf("Could not parse log level: %v", err)
	} else {
		log.SetLevel(ll)
	}
	log.SetReportCaller(true)

	if *printVersion {
		fmt.Printf("Version: %v (%v)\n", version, versionDate)
		fmt.Printf("Build: %v\n", build)
		return
	}

	log.Infof("Version: %v (%v)\n", version, build)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		log.Fatalf("Could not load config: %v", errs)
	}

	storeDir := strings.Replace(config.StorageDir, "~", os.Getenv("HOME"), 1)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		log.Fatalf("Unable to create storage dir: %v", err)
	}
	log.Infof("Using %q for storage", storeDir)

	driver, dsn := config.Database.Driver, config.Database.DSN
	if driver == "" {
		driver = "sqlite3"
	}
	if dsn == "" {
		dsn = path.Join(storeDir, "catalog.db")
	}
	store, err := catalog.Open(context.Background(), driver, dsn)
	if err != nil {
		log.Fatalf("Unable to open the catalog: %v", err)
	}
	defer store.Close()

	urlRoot, err := determineURLRoot(config)
	if err != nil {
		log.Fatalf("Unable to determine the URL root: %v", err)
	}
	media, err := mediastore.NewStore(path.Join(storeDir, "media"), urlRoot+"media")
	if err != nil {
		log.Fatalf("Unable to open the media store: %v", err)
	}

	tokenTTL := auth.DefaultTokenTTL
	if config.Auth.TokenTTL != "" {
		tokenTTL, _ = time.ParseDuration(config.Auth.TokenTTL)
	}
	tokens, err := auth.NewTokens(config.Auth.JWTSecret, tokenTTL)
	if err != nil {
		log.Fatalf("Unable to set up token signing: %v", err)
	}
	users := auth.NewStore(store.DB())
	var oauth *auth.OAuthFlow
	if config.Auth.OAuth != nil {
		oauth = &auth.OAuthFlow{
			Provider:    *config.Auth.OAuth,
			RedirectURL: urlRoot + "data/auth/oauth/callback",
			Store:       users,
		}
		log.Infof("Using identity provider %q", config.Auth.OAuth.Name)
	}

	session := player.NewSession()
	element, remoteEl, err := connectOutput(config)
	if err != nil {
		log.Fatal(err)
	}
	binding, err := player.Bind(session, element, path.Join(storeDir, "volume.json"))
	if err != nil {
		log.Fatalf("Unable to bind the output: %v", err)
	}
	defer binding.Close()

	apiHandler := api.New(session, binding, remoteEl, store, media, users, tokens, oauth)
	service := web.New(build, version, config.URLRoot, apiHandler)
	service.Mount("/media", http.StripPrefix("/media", media))

	if build == "debug" {
		service.Get("/debug/pprof/*", pprof.Index)
	}
	log.Infof("Now accepting HTTP connections on %v", config.Address)
	server := &http.Server{
		Addr:           config.Address,
		Handler:        service,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Fatalf("Error running webserver: %v", server.ListenAndServe())
}

// connectOutput builds the configured playback element. The remote element
// is returned separately since the API needs its command stream.
func connectOutput(config *config) (player.Element, *remote.Element, error) {
	switch config.Output.Kind {
	case "", "browser":
		el := remote.New()
		return el, el, nil
	case "speaker":
		return speaker.New(), nil, nil
	case "mpd":
		network := config.Output.MPD.Network
		if network == "" {
			network = "tcp"
		}
		el, err := mpd.Connect(network, config.Output.MPD.Address, config.Output.MPD.Password)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to MPD: %v", err)
		}
		return el, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown output %q", config.Output.Kind)
}

func determineURLRoot(config *config) (string, error) {
	root := config.URLRoot
	if root == "" {
		root = "/"
	}
	full, err := util.DetermineFullURLRoot(root, config.Address)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(full, "/") {
		full += "/"
	}
	return full, nil
}
