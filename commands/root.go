// Package commands implements the emusync command line.
package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/maastricht-university/emusync/cache"
	"github.com/maastricht-university/emusync/config"
	"github.com/maastricht-university/emusync/orchestrator"
	"github.com/maastricht-university/emusync/storage"
)

// configKey annotates a flag with the config key it overrides.
const configKey = "emusync_config_key"

// app is the state shared by one command tree.
type app struct {
	v          *viper.Viper
	cfg        *config.Root
	log        *logrus.Logger
	configPath string
}

// NewRoot builds the command tree. Each call is independent, so tests can
// run several.
func NewRoot() *cobra.Command {
	a := &app{v: config.New(), log: logrus.New()}
	root := &cobra.Command{
		Use:   "emusync",
		Short: "Per-second emotion timelines from video and audio",
		Long: `emusync turns face and speech emotion classifier output into per-second
rankings and fuses the two modalities into one timeline.

Tables are CSV with the header timestamp,emotion1,score1,emotion2,score2.

Examples:
  # Classify, aggregate, fuse and persist one recorded session
  emusync run --video session.mp4 --audio session.mp3

  # Work from saved classifier output instead
  emusync visual --frames frames.json
  emusync audio --chunks chunks.json
  emusync fuse

  # Render a table as text, one line per second
  emusync format outputs/merge_emotions/merged_emotions.csv`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default: config/$CONFIG_ENV/config.yaml)")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("log-format", "", "text or json")
	pf.String("outputs", "", "output root directory")
	pf.Int("workers", 0, "parallel workers per stage (0: one per CPU)")
	bindFlag(pf, "log-level", "pipeline.log_level")
	bindFlag(pf, "log-format", "pipeline.log_format")
	bindFlag(pf, "outputs", "paths.outputs")
	bindFlag(pf, "workers", "fusion.workers")

	root.AddCommand(
		a.runCmd(),
		a.visualCmd(),
		a.audioCmd(),
		a.fuseCmd(),
		a.formatCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the command line with os.Args.
func Execute(ctx context.Context) error {
	return NewRoot().ExecuteContext(ctx)
}

func bindFlag(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKey, []string{key}); err != nil {
		panic(err)
	}
}

// fusionFlags adds the flags shared by commands that fuse.
func fusionFlags(fs *pflag.FlagSet) {
	fs.Float64("visual-weight", 0, "weight of the visual modality")
	fs.Float64("audio-weight", 0, "weight of the audio modality")
	fs.Bool("require-overlap", false, "fail when no second has both modalities")
	bindFlag(fs, "visual-weight", "fusion.visual_weight")
	bindFlag(fs, "audio-weight", "fusion.audio_weight")
	bindFlag(fs, "require-overlap", "fusion.require_overlap")
}

// setup binds the flags of the command being run, loads the config and
// configures logging. Only flags set on the command line override config.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[configKey]; len(keys) == 1 && err == nil {
			err = a.v.BindPFlag(keys[0], f)
		}
	})
	if err != nil {
		return err
	}
	if a.cfg, err = config.Load(a.v, a.configPath); err != nil {
		return err
	}
	configureLogger(a.log, a.cfg.Pipeline.LogLvl, a.cfg.Pipeline.LogFormat, cmd.ErrOrStderr())
	if a.cfg.File != "" {
		a.log.WithField("file", a.cfg.File).Debug("config loaded")
	}
	return nil
}

func (a *app) store() (storage.FileStore, error) {
	if a.cfg.Storage.Backend == "s3" {
		s3c := a.cfg.Storage.S3
		return storage.NewS3(storage.NewS3Client(s3c.Region, s3c.Endpoint), s3c.Bucket, s3c.Prefix), nil
	}
	return storage.NewLocal(a.cfg.Paths.Outputs)
}

// pipeline wires an orchestrator. The returned func releases the cache.
func (a *app) pipeline(withCache bool) (*orchestrator.Pipeline, func(), error) {
	store, err := a.store()
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	var cc *cache.Cache
	if withCache && a.cfg.Cache.Enabled {
		cc, err = cache.Open(cache.Options{
			Dir:    a.cfg.Paths.Cache,
			TTL:    time.Duration(a.cfg.Cache.TTLHours) * time.Hour,
			Logger: a.log,
		})
		if err != nil {
			return nil, nil, err
		}
	}
	closer := func() {
		if err := cc.Close(); err != nil {
			a.log.Warnf("close cache: %v", err)
		}
	}
	return orchestrator.NewPipeline(a.cfg, store, cc, a.log), closer, nil
}

// userPath makes a path typed on the command line absolute, so the local
// store does not resolve it against the outputs root. Object keys for the
// s3 backend are left alone.
func (a *app) userPath(p string) (string, error) {
	if p == "" || a.cfg.Storage.Backend == "s3" {
		return p, nil
	}
	return filepath.Abs(p)
}
