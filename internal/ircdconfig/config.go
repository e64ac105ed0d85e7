// Package ircdconfig loads and validates the server's configuration. The
// teacher's config.go hand-parses a flat key=value file with its own
// vendored summercat.com/config package; this server needs a nested
// shape (an opers map) alongside flat settings such as the DCC port
// range, so it parses YAML with gopkg.in/yaml.v2 instead. ISUPPORT tokens
// are not configurable here. It keeps the same two-layer shape: decode into a plain struct, then
// validate/default it into the Config the rest of the program uses.
package ircdconfig

import (
	"io/ioutil"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// raw mirrors the on-disk YAML shape.
type raw struct {
	ListenAddress string            `yaml:"listen_address"`
	ServerName    string            `yaml:"server_name"`
	ServerInfo    string            `yaml:"server_info"`
	Password      string            `yaml:"password"`
	MOTDFile      string            `yaml:"motd_file"`
	Opers         map[string]string `yaml:"opers"`
	PingFreqSecs  int               `yaml:"ping_frequency_seconds"`
	IdleTimeoutSecs int             `yaml:"idle_timeout_seconds"`
	DCCListenAddress string         `yaml:"dcc_listen_address"`
	DCCPortMin    int               `yaml:"dcc_port_min"`
	DCCPortMax    int               `yaml:"dcc_port_max"`
	DCCIdleTimeoutSecs int          `yaml:"dcc_idle_timeout_seconds"`
	NickLen       int               `yaml:"nick_length"`
	ChannelLen    int               `yaml:"channel_length"`
	TopicLen      int               `yaml:"topic_length"`
	Casemapping   string            `yaml:"casemapping"`
}

// Config is the validated, defaulted configuration the server runs with.
type Config struct {
	ListenAddress string
	ServerName    string
	ServerInfo    string
	Password      string
	MOTDFile      string
	Opers         map[string]string

	PingFrequencySeconds int
	IdleTimeoutSeconds   int

	DCCListenAddress      string
	DCCPortMin            int
	DCCPortMax            int
	DCCIdleTimeoutSeconds int

	NickLen     int
	ChannelLen  int
	TopicLen    int
	Casemapping string
}

// Default mirrors spec.md §6's stated defaults, applied before a config
// file is layered on top.
func Default() Config {
	return Config{
		ListenAddress:         ":6667",
		ServerName:            "modernd",
		ServerInfo:            "a Modern IRC server",
		Opers:                 map[string]string{},
		PingFrequencySeconds:  120,
		IdleTimeoutSeconds:    300,
		DCCListenAddress:      ":0",
		DCCPortMin:            49152,
		DCCPortMax:            65535,
		DCCIdleTimeoutSeconds: 60,
		NickLen:               9,
		ChannelLen:            50,
		TopicLen:              390,
		Casemapping:           "rfc1459",
	}
}

// Load reads a YAML config file at path and merges it over Default(),
// matching the teacher's "parse into a flat struct, then validate" shape
// in config.go's readConfig.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config file")
	}

	var r raw
	if err := yaml.Unmarshal(buf, &r); err != nil {
		return Config{}, errors.Wrap(err, "parsing config file")
	}

	applyRaw(&cfg, r)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyRaw(cfg *Config, r raw) {
	if r.ListenAddress != "" {
		cfg.ListenAddress = r.ListenAddress
	}
	if r.ServerName != "" {
		cfg.ServerName = r.ServerName
	}
	if r.ServerInfo != "" {
		cfg.ServerInfo = r.ServerInfo
	}
	cfg.Password = r.Password
	cfg.MOTDFile = r.MOTDFile
	if r.Opers != nil {
		cfg.Opers = r.Opers
	}
	if r.PingFreqSecs > 0 {
		cfg.PingFrequencySeconds = r.PingFreqSecs
	}
	if r.IdleTimeoutSecs > 0 {
		cfg.IdleTimeoutSeconds = r.IdleTimeoutSecs
	}
	if r.DCCListenAddress != "" {
		cfg.DCCListenAddress = r.DCCListenAddress
	}
	if r.DCCPortMin > 0 {
		cfg.DCCPortMin = r.DCCPortMin
	}
	if r.DCCPortMax > 0 {
		cfg.DCCPortMax = r.DCCPortMax
	}
	if r.DCCIdleTimeoutSecs > 0 {
		cfg.DCCIdleTimeoutSeconds = r.DCCIdleTimeoutSecs
	}
	if r.NickLen > 0 {
		cfg.NickLen = r.NickLen
	}
	if r.ChannelLen > 0 {
		cfg.ChannelLen = r.ChannelLen
	}
	if r.TopicLen > 0 {
		cfg.TopicLen = r.TopicLen
	}
	if r.Casemapping != "" {
		cfg.Casemapping = r.Casemapping
	}
}

func validate(cfg Config) error {
	switch cfg.Casemapping {
	case "ascii", "rfc1459", "rfc1459-strict":
	default:
		return errors.Errorf("unknown casemapping %q", cfg.Casemapping)
	}
	if cfg.DCCPortMin > cfg.DCCPortMax {
		return errors.Errorf("dcc_port_min (%d) must be <= dcc_port_max (%d)", cfg.DCCPortMin, cfg.DCCPortMax)
	}
	return nil
}

// ParsePort is a small helper that parses a bare, flag-supplied port
// number (not a "host:port" address), matching the teacher's args.go
// style of doing its own light validation rather than deferring
// everything to net.Listen's error.
func ParsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, "invalid port")
	}
	return n, nil
}
