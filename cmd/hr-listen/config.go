package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/layr8/hyperate-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// listenConfig is the YAML configuration file. Command-line flags override
// any value set here.
type listenConfig struct {
	Token       string   `yaml:"token"`
	Endpoint    string   `yaml:"endpoint"`
	Devices     []string `yaml:"devices"`
	Clips       []string `yaml:"clips"`
	LogLevel    string   `yaml:"log_level"`
	MetricsAddr string   `yaml:"metrics_addr"`
	DatabaseURL string   `yaml:"database_url"`
}

func loadConfig(path string) (listenConfig, error) {
	var cfg listenConfig
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}

// merge overlays every non-empty value of o onto c.
func (c listenConfig) merge(o listenConfig) listenConfig {
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.Endpoint != "" {
		c.Endpoint = o.Endpoint
	}
	if len(o.Devices) > 0 {
		c.Devices = o.Devices
	}
	if len(o.Clips) > 0 {
		c.Clips = o.Clips
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
	if o.DatabaseURL != "" {
		c.DatabaseURL = o.DatabaseURL
	}
	return c
}

// topics validates the configured devices and returns the channels to join,
// heart-rate channels first.
func (c listenConfig) topics() ([]string, error) {
	if len(c.Devices) == 0 && len(c.Clips) == 0 {
		return nil, errors.New("no devices configured")
	}

	var topics []string
	seen := make(map[string]bool)
	add := func(raw string, topic func(string) string) error {
		id, err := hyperate.ParseDeviceID(raw)
		if err != nil {
			return err
		}
		t := topic(id)
		if !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
		return nil
	}

	for _, d := range c.Devices {
		if err := add(d, hyperate.HeartbeatTopic); err != nil {
			return nil, errors.Wrap(err, "devices")
		}
	}
	for _, d := range c.Clips {
		if err := add(d, hyperate.ClipsTopic); err != nil {
			return nil, errors.Wrap(err, "clips")
		}
	}
	return topics, nil
}

// newLogger builds the text logger used by the command. Unknown levels fall
// back to info.
func newLogger(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
