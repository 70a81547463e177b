package config

import (
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/supportchat/pkg/predictor"
)

// Config is the widget configuration. PredictorEndpoint is the only
// recognized option.
type Config struct {
	PredictorEndpoint string `yaml:"predictorEndpoint"`
}

func Default() Config {
	return Config{PredictorEndpoint: predictor.DefaultEndpoint}
}

// LoadFile reads a YAML config file on top of the defaults. Unknown keys are
// rejected so a misspelled option does not silently fall back to the default.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "open config %s", path)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	if strings.TrimSpace(cfg.PredictorEndpoint) == "" {
		cfg.PredictorEndpoint = predictor.DefaultEndpoint
	}
	return cfg, nil
}

// WithEndpoint returns a copy with the endpoint overridden when non-empty.
func (c Config) WithEndpoint(endpoint string) Config {
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		c.PredictorEndpoint = endpoint
	}
	return c
}

func (c Config) Validate() error {
	u, err := url.Parse(c.PredictorEndpoint)
	if err != nil {
		return errors.Wrap(err, "predictorEndpoint")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("predictorEndpoint: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.Errorf("predictorEndpoint: missing host in %q", c.PredictorEndpoint)
	}
	return nil
}
