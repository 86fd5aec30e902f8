package orchestrator

import (
	"time"

	"github.com/maastricht-university/emusync/emotion"
)

// Inputs names the media of one session.
type Inputs struct {
	Video string `yaml:"video"`
	Audio string `yaml:"audio"`
}

// Files are the store paths a run wrote or read.
type Files struct {
	Visual string `yaml:"visual,omitempty"`
	Audio  string `yaml:"audio,omitempty"`
	Merged string `yaml:"merged,omitempty"`
}

type Reports struct {
	Visual emotion.Report `yaml:"visual"`
	Audio  emotion.Report `yaml:"audio"`
	Fusion emotion.Report `yaml:"fusion"`
}

// Manifest is written next to the tables of a session as manifest.yaml.
type Manifest struct {
	RunID       string          `yaml:"run_id"`
	Session     string          `yaml:"session,omitempty"`
	GeneratedAt time.Time       `yaml:"generated_at"`
	Inputs      Inputs          `yaml:"inputs"`
	FrameRate   float64         `yaml:"frame_rate,omitempty"`
	Weights     emotion.Weights `yaml:"weights"`
	Vocabulary  []string        `yaml:"vocabulary,omitempty"`
	Files       Files           `yaml:"files"`
	Reports     Reports         `yaml:"reports"`
}

// Result is what a pipeline pass produced. Tables that a pass did not
// compute are nil.
type Result struct {
	Manifest
	Visual emotion.Table
	Audio  emotion.Table
	Merged emotion.Table
}
