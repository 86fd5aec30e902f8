package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/emusync/emotion"
)

const EnvPrefix = "EMUSYNC"

type Service struct {
	URL string `yaml:"url" mapstructure:"url"`
}
type Services struct {
	FaceEmotion   Service `yaml:"face_emotion" mapstructure:"face_emotion"`
	SpeechEmotion Service `yaml:"speech_emotion" mapstructure:"speech_emotion"`
	Visualization Service `yaml:"visualization" mapstructure:"visualization"` // optional
	Timeout       int     `yaml:"timeout" mapstructure:"timeout"`             // seconds
}
type Video struct {
	FrameRate   float64 `yaml:"frame_rate" mapstructure:"frame_rate"` // 0: use the rate reported by the service
	SampleEvery int     `yaml:"sample_every" mapstructure:"sample_every"`
}
type Audio struct {
	SampleRate   int `yaml:"sample_rate" mapstructure:"sample_rate"`
	ChunkSeconds int `yaml:"chunk_seconds" mapstructure:"chunk_seconds"`
}
type Fusion struct {
	VisualWeight   float64 `yaml:"visual_weight" mapstructure:"visual_weight"`
	AudioWeight    float64 `yaml:"audio_weight" mapstructure:"audio_weight"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	RequireOverlap bool    `yaml:"require_overlap" mapstructure:"require_overlap"`
}
type S3 struct {
	Bucket   string `yaml:"bucket" mapstructure:"bucket"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	Region   string `yaml:"region" mapstructure:"region"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}
type Storage struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // local | s3
	S3      S3     `yaml:"s3" mapstructure:"s3"`
}
type Cache struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	TTLHours int  `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}
type Root struct {
	Pipeline struct {
		Name      string `yaml:"name" mapstructure:"name"`
		Version   string `yaml:"version" mapstructure:"version"`
		LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
		LogFormat string `yaml:"log_format" mapstructure:"log_format"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Services   Services `yaml:"services" mapstructure:"services"`
	Video      Video    `yaml:"video" mapstructure:"video"`
	Audio      Audio    `yaml:"audio" mapstructure:"audio"`
	Fusion     Fusion   `yaml:"fusion" mapstructure:"fusion"`
	Vocabulary []string `yaml:"vocabulary" mapstructure:"vocabulary"`
	Storage    Storage  `yaml:"storage" mapstructure:"storage"`
	Cache      Cache    `yaml:"cache" mapstructure:"cache"`
	Paths      struct {
		Outputs string `yaml:"outputs" mapstructure:"outputs"`
		Cache   string `yaml:"cache" mapstructure:"cache"`
	} `yaml:"paths" mapstructure:"paths"`

	// File is the config file that was read, empty when running on defaults.
	File string `yaml:"-" mapstructure:"-"`
}

var defaults = map[string]any{
	"pipeline.name":               "emusync",
	"pipeline.version":            "0.1.0",
	"pipeline.log_level":          "info",
	"pipeline.log_format":         "text",
	"services.face_emotion.url":   "http://localhost:8004",
	"services.speech_emotion.url": "http://localhost:8007",
	"services.visualization.url":  "",
	"services.timeout":            600,
	"video.frame_rate":            0.0,
	"video.sample_every":          10,
	"audio.sample_rate":           16000,
	"audio.chunk_seconds":         1,
	"fusion.visual_weight":        emotion.DefaultWeights.Visual,
	"fusion.audio_weight":         emotion.DefaultWeights.Audio,
	"fusion.workers":              0,
	"fusion.require_overlap":      false,
	"vocabulary":                  []string(emotion.VisualVocabulary),
	"storage.backend":             "local",
	"storage.s3.bucket":           "",
	"storage.s3.prefix":           "",
	"storage.s3.region":           "",
	"storage.s3.endpoint":         "",
	"cache.enabled":               true,
	"cache.ttl_hours":             24 * 7,
	"paths.outputs":               "outputs",
	"paths.cache":                 filepath.Join("outputs", ".cache"),
}

// New returns a viper instance with every key defaulted and EMUSYNC_*
// environment overrides enabled (fusion.visual_weight ->
// EMUSYNC_FUSION_VISUAL_WEIGHT). Callers may bind flags before Load.
func New() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or when empty the first of config/<CONFIG_ENV>/config.yaml
// and src/shared/config.yaml that exists. No file at all means defaults.
func Load(v *viper.Viper, path string) (*Root, error) {
	v.SetConfigType("yaml")
	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("src", "shared", "config.yaml"),
	} {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func (c *Root) Weights() emotion.Weights {
	return emotion.Weights{Visual: c.Fusion.VisualWeight, Audio: c.Fusion.AudioWeight}
}

func (c *Root) Validate() error {
	var errs []error
	if err := c.Weights().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := emotion.Vocabulary(c.Vocabulary).Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Audio.ChunkSeconds != 1 {
		errs = append(errs, fmt.Errorf("audio.chunk_seconds must be 1, got %d", c.Audio.ChunkSeconds))
	}
	if c.Video.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("video.frame_rate must be >= 0, got %v", c.Video.FrameRate))
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be local or s3, got %q", c.Storage.Backend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dump writes the effective configuration as YAML.
func (c *Root) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
