// Command spritesplitweb serves the sprite splitter's HTTP API.
package main

import (
	"flag"
	"net/http"
	"strings"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	_ "golang.org/x/net/trace"

	"badc0de.net/pkg/spritesplit/config"
	"badc0de.net/pkg/spritesplit/paths"
	"badc0de.net/pkg/spritesplit/session"
	"badc0de.net/pkg/spritesplit/web"
)

var (
	listenAddress  = flag.String("listen_address", "", "http listen address for spritesplitweb; overrides the config file")
	maxUploadBytes = flag.Int64("max_upload_bytes", 0, "largest accepted upload; overrides the config file")
	banner         = flag.Bool("banner", true, "whether to print a banner on startup")

	configPath string
)

// glogWriter sends access log lines to glog.
type glogWriter struct{}

func (glogWriter) Write(p []byte) (int, error) {
	glog.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// glogRecoveryLogger reports recovered handler panics to glog.
type glogRecoveryLogger struct{}

func (glogRecoveryLogger) Println(v ...interface{}) {
	glog.Errorln(v...)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if *listenAddress != "" {
		cfg.ListenAddress = *listenAddress
	}
	if *maxUploadBytes > 0 {
		cfg.MaxUploadBytes = *maxUploadBytes
	}
	return cfg, nil
}

// newHandler wires a fresh session to the router and wraps it in access
// logging and panic recovery. /debug/ is passed to http.DefaultServeMux,
// where golang.org/x/net/trace registers /debug/requests and /debug/events.
func newHandler(cfg *config.Config) (http.Handler, error) {
	o, err := cfg.SessionOptions()
	if err != nil {
		return nil, err
	}
	s := session.New(o)

	r := mux.NewRouter()
	web.NewHandler(s, cfg.MaxUploadBytes).RegisterRoutes(r)
	r.PathPrefix("/debug/").Handler(http.DefaultServeMux)

	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(glogRecoveryLogger{}), handlers.PrintRecoveryStack(true))
	return handlers.LoggingHandler(glogWriter{}, recovery(r)), nil
}

func main() {
	paths.SetupFilePathFlag(config.FileName, "config", &configPath)
	flagutil.Parse()

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("%v", err)
	}
	h, err := newHandler(cfg)
	if err != nil {
		glog.Exitf("%v", err)
	}

	if *banner {
		figure.NewFigure("spritesplit", "", true).Print()
	}
	glog.Infof("listening on %s", cfg.ListenAddress)
	glog.Fatal(http.ListenAndServe(cfg.ListenAddress, h))
}
