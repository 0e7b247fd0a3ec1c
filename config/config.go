// Package config reads the optional YAML file with defaults for the web
// frontend. Flags given on the command line take precedence over it.
package config

import (
	"encoding/hex"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"badc0de.net/pkg/spritesplit/frames"
	"badc0de.net/pkg/spritesplit/grid"
	"badc0de.net/pkg/spritesplit/paths"
	"badc0de.net/pkg/spritesplit/preview"
	"badc0de.net/pkg/spritesplit/session"
)

// FileName is the shortname looked up with paths.Find.
const FileName = "spritesplit.yaml"

// Config is the contents of the configuration file.
type Config struct {
	ListenAddress  string `yaml:"listen_address"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	// LineColor is the preview overlay color as RRGGBB or RRGGBBAA hex,
	// optionally prefixed with '#'.
	LineColor string `yaml:"line_color"`
	// EncodePolicy is "lenient" or "strict".
	EncodePolicy string `yaml:"encode_policy"`
	// Mode is the initial split mode, "size" or "count".
	Mode string `yaml:"mode"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		ListenAddress:  "localhost:8080",
		MaxUploadBytes: 32 << 20,
		LineColor:      "ff000080",
		EncodePolicy:   "lenient",
		Mode:           "size",
	}
}

// Load reads the file at path on top of Default. An empty path looks for
// FileName with paths.Open, and returns the defaults if there is none.
func Load(path string) (*Config, error) {
	var f io.ReadCloser
	var err error
	if path == "" {
		path = FileName
		f, err = paths.Open(FileName)
		if os.IsNotExist(errors.Cause(err)) {
			return Default(), nil
		}
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	glog.Infof("loaded config from %s", path)
	return c, nil
}

// Decode parses YAML from r on top of Default and validates the result.
func Decode(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parsing config")
	}
	if _, err := c.SessionOptions(); err != nil {
		return nil, err
	}
	if c.MaxUploadBytes <= 0 {
		return nil, errors.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return c, nil
}

// ParseColor parses RRGGBB or RRGGBBAA hex, with or without a leading '#'.
func ParseColor(s string) (color.NRGBA, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || (len(b) != 3 && len(b) != 4) {
		return color.NRGBA{}, errors.Errorf("bad color %q; want RRGGBB or RRGGBBAA", s)
	}
	c := color.NRGBA{R: b[0], G: b[1], B: b[2], A: 0xFF}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

// SessionOptions converts the configuration into options for session.New.
func (c *Config) SessionOptions() (*session.Options, error) {
	lc, err := ParseColor(c.LineColor)
	if err != nil {
		return nil, errors.Wrap(err, "line_color")
	}
	policy, err := frames.ParsePolicy(c.EncodePolicy)
	if err != nil {
		return nil, errors.Wrap(err, "encode_policy")
	}
	mode, err := grid.ParseMode(c.Mode)
	if err != nil {
		return nil, errors.Wrap(err, "mode")
	}
	return &session.Options{
		Frames:  frames.Options{Policy: policy},
		Preview: preview.Options{LineColor: lc},
		Spec:    grid.Spec{Mode: mode},
	}, nil
}
