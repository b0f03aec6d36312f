// Command chanrelay runs a standalone chanrelay HTTP server: it loads a
// YAML config file (if given), wires up the /sub, /pub, /sign, /close,
// /ping, /info, /check endpoints, the legacy admin dashboard, and an expvar
// status publication, and serves until killed.
package main

import (
	"expvar"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relaypoll/chanrelay"
	"github.com/relaypoll/chanrelay/admin"

	_ "go.uber.org/automaxprocs"
)

// fileConfig mirrors chanrelay.Config but in YAML-friendly field names and
// plain ints/strings, since Config's AuthMode and time.Duration fields
// don't round-trip through yaml.v3 the way a user would want to write them
// in a config file.
type fileConfig struct {
	Addr                     string `yaml:"addr"`
	MaxChannels              int    `yaml:"max_channels"`
	MaxSubscribersPerChannel int    `yaml:"max_subscribers_per_channel"`
	MaxMessages              int    `yaml:"max_messages"`
	ChannelIdles             int    `yaml:"channel_idles"`
	PollingIdles             int    `yaml:"polling_idles"`
	PollingTimeout           int    `yaml:"polling_timeout"`
	ChannelTimeout           int    `yaml:"channel_timeout"`
	CheckIntervalSeconds     int    `yaml:"check_interval_seconds"`
	Auth                     string `yaml:"auth"` // "none" | "token"
	JSONPCallback            string `yaml:"jsonp_callback"`
	DisableAdmin             bool   `yaml:"disable_admin"`
}

func loadConfig(path string) (fileConfig, error) {
	fc := fileConfig{
		Addr:                 ":8000",
		CheckIntervalSeconds: 1,
	}
	if path == "" {
		return fc, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&fc); err != nil {
		return fc, err
	}
	return fc, nil
}

func (fc fileConfig) options() []chanrelay.Option {
	var opts []chanrelay.Option
	if fc.MaxChannels > 0 {
		opts = append(opts, chanrelay.WithMaxChannels(fc.MaxChannels))
	}
	if fc.MaxSubscribersPerChannel > 0 {
		opts = append(opts, chanrelay.WithMaxSubscribersPerChannel(fc.MaxSubscribersPerChannel))
	}
	if fc.MaxMessages > 0 {
		opts = append(opts, chanrelay.WithMaxMessages(fc.MaxMessages))
	}
	if fc.ChannelIdles > 0 {
		opts = append(opts, chanrelay.WithChannelIdles(fc.ChannelIdles))
	}
	if fc.PollingIdles > 0 {
		opts = append(opts, chanrelay.WithPollingIdles(fc.PollingIdles))
	}
	if fc.PollingTimeout > 0 {
		opts = append(opts, chanrelay.WithPollingTimeout(fc.PollingTimeout))
	}
	if fc.ChannelTimeout > 0 {
		opts = append(opts, chanrelay.WithChannelTimeout(fc.ChannelTimeout))
	}
	if fc.CheckIntervalSeconds > 0 {
		opts = append(opts, chanrelay.WithCheckInterval(time.Duration(fc.CheckIntervalSeconds)*time.Second))
	}
	if fc.Auth == "token" {
		opts = append(opts, chanrelay.WithAuth(chanrelay.AuthToken))
	}
	if fc.JSONPCallback != "" {
		opts = append(opts, chanrelay.WithJSONPCallback(fc.JSONPCallback))
	}
	return opts
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	fc, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %s", err)
	}

	s := chanrelay.NewServer(fc.options()...)

	http.Handle("/", s)
	if !fc.DisableAdmin {
		http.Handle("/admin/", admin.Handler(s))
	}
	expvar.Publish("chanrelay", expvar.Func(func() interface{} {
		return s.Status()
	}))

	log.Println("chanrelay listening on", fc.Addr)
	log.Fatal(http.ListenAndServe(fc.Addr, nil))
}
