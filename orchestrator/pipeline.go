package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maastricht-university/emusync/cache"
	"github.com/maastricht-university/emusync/clients"
	cfg "github.com/maastricht-university/emusync/config"
	"github.com/maastricht-university/emusync/emotion"
	"github.com/maastricht-university/emusync/storage"
	"github.com/maastricht-university/emusync/table"
)

type Pipeline struct {
	cfg   *cfg.Root
	http  *clients.HTTP
	store storage.FileStore
	cache *cache.Cache
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewPipeline wires a pipeline. cc may be nil to disable response caching.
func NewPipeline(c *cfg.Root, store storage.FileStore, cc *cache.Cache, log logrus.FieldLogger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		cfg:   c,
		http:  clients.NewHTTP(cfg.DurSeconds(c.Services.Timeout)),
		store: store,
		cache: cc,
		log:   log,
		now:   time.Now,
	}
}

// Run classifies the video and audio of one session concurrently, builds
// both per-second tables, fuses them and persists everything under a new
// session directory.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	if err := checkMedia("video", in.Video); err != nil {
		return nil, err
	}
	if err := checkMedia("audio", in.Audio); err != nil {
		return nil, err
	}

	start := p.now()
	res := &Result{Manifest: Manifest{
		RunID:       uuid.NewString(),
		GeneratedAt: start.UTC(),
		Inputs:      in,
		Weights:     p.cfg.Weights(),
		Vocabulary:  p.cfg.Vocabulary,
	}}
	log := p.log.WithField("run", res.RunID[:8])

	var (
		face   *clients.FaceResp
		speech *clients.SpeechResp
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		face, err = p.classifyVideo(gctx, log, in.Video)
		return err
	})
	g.Go(func() (err error) {
		speech, err = p.classifyAudio(gctx, log, in.Audio)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	var err error
	res.FrameRate = p.frameRate(face)
	if res.Visual, res.Reports.Visual, err = p.aggregateVisual(face.Frames, res.FrameRate); err != nil {
		return nil, err
	}
	res.Audio, res.Reports.Audio = p.aggregateAudio(speech.Chunks)
	log.Infof("visual %s; audio %s", res.Reports.Visual, res.Reports.Audio)

	if res.Merged, res.Reports.Fusion, err = p.fuse(log, res.Visual, res.Audio); err != nil {
		return nil, err
	}
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	if res.Session, err = mkSessionID(ctx, p.store, start, res.RunID); err != nil {
		return nil, err
	}
	if err := persist(ctx, p.store, res); err != nil {
		return nil, err
	}
	log = log.WithField("session", res.Session)
	log.Infof("saved session: fusion %s in %s", res.Reports.Fusion, p.now().Sub(start).Round(time.Millisecond))

	if ctxErr(ctx) == nil {
		p.publish(ctx, log, res)
	}
	return res, nil
}

// publish sends the fused timeline and the session's emotion profile to the
// visualization service, when one is configured. The session is already
// saved, so failures are only logged.
func (p *Pipeline) publish(ctx context.Context, log logrus.FieldLogger, res *Result) {
	url := p.cfg.Services.Visualization.URL
	if url == "" {
		return
	}
	var outDir string
	if l, ok := p.store.(*storage.Local); ok {
		outDir = filepath.Join(l.Root(), filepath.FromSlash(res.Session))
	}

	if tl, err := p.http.GenerateTimeline(ctx, url, clients.NewTimelineReq(res.Merged, outDir)); err != nil {
		log.Warnf("timeline viz error: %v", err)
	} else {
		log.WithField("path", tl.Path).Info("timeline rendered")
	}

	labels := p.cfg.Vocabulary
	radar, err := p.http.GenerateRadar(ctx, url, clients.RadarReq{
		Categories:  labels,
		Values:      emotion.Profile(res.Merged, labels),
		StudentName: res.Session,
		OutputDir:   outDir,
	})
	if err != nil {
		log.Warnf("radar viz error: %v", err)
		return
	}
	log.WithField("path", radar.Path).Info("emotion profile rendered")
}

// VisualFile aggregates a saved face service response (JSON) into a
// per-second table written to out, or to a timestamped file under
// video_emotion/ when out is empty.
func (p *Pipeline) VisualFile(ctx context.Context, framesPath, out string) (*Result, error) {
	f, err := openInput("frames", framesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	face, err := clients.ReadFace(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", framesPath, err)
	}

	now := p.now()
	res := p.offlineResult(now)
	res.Inputs.Video = framesPath
	res.FrameRate = p.frameRate(face)
	if res.Visual, res.Reports.Visual, err = p.aggregateVisual(face.Frames, res.FrameRate); err != nil {
		return nil, err
	}
	if out == "" {
		out = path.Join(VisualDir, "emotion_analysis_"+stamp(now)+".csv")
	}
	if err := writeTable(ctx, p.store, out, res.Visual); err != nil {
		return nil, err
	}
	res.Files.Visual = out
	p.log.WithField("out", out).Infof("visual %s", res.Reports.Visual)
	return res, nil
}

// AudioFile maps a saved speech service response (JSON) to a per-second
// table written to out, or under audio_text_emotion/ when out is empty.
func (p *Pipeline) AudioFile(ctx context.Context, chunksPath, out string) (*Result, error) {
	f, err := openInput("chunks", chunksPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	speech, err := clients.ReadSpeech(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", chunksPath, err)
	}

	now := p.now()
	res := p.offlineResult(now)
	res.Inputs.Audio = chunksPath
	res.Audio, res.Reports.Audio = p.aggregateAudio(speech.Chunks)
	if out == "" {
		out = path.Join(AudioDir, "session_"+stamp(now)+".csv")
	}
	if err := writeTable(ctx, p.store, out, res.Audio); err != nil {
		return nil, err
	}
	res.Files.Audio = out
	p.log.WithField("out", out).Infof("audio %s", res.Reports.Audio)
	return res, nil
}

// FuseFiles fuses two stored ranking tables into out. An empty visual or
// audio path selects the newest table the single-modality commands wrote;
// an empty out writes merge_emotions/merged_emotions.csv.
func (p *Pipeline) FuseFiles(ctx context.Context, visualPath, audioPath, out string) (*Result, error) {
	var err error
	if visualPath == "" {
		if visualPath, err = Latest(ctx, p.store, VisualPattern); err != nil {
			return nil, fmt.Errorf("find visual table: %w", err)
		}
	}
	if audioPath == "" {
		if audioPath, err = Latest(ctx, p.store, AudioPattern); err != nil {
			return nil, fmt.Errorf("find audio table: %w", err)
		}
	}
	if out == "" {
		out = path.Join(MergedDir, MergedFile)
	}

	res := p.offlineResult(p.now())
	res.Files = Files{Visual: visualPath, Audio: audioPath}
	log := p.log.WithFields(logrus.Fields{"visual": visualPath, "audio": audioPath})

	var rejected []*table.SchemaError
	if res.Visual, rejected, err = readTable(ctx, p.store, visualPath, log); err != nil {
		return nil, err
	}
	res.Reports.Visual = emotion.Report{Rows: len(res.Visual), Skipped: len(rejected)}
	if res.Audio, rejected, err = readTable(ctx, p.store, audioPath, log); err != nil {
		return nil, err
	}
	res.Reports.Audio = emotion.Report{Rows: len(res.Audio), Skipped: len(rejected)}

	if res.Merged, res.Reports.Fusion, err = p.fuse(log, res.Visual, res.Audio); err != nil {
		return nil, err
	}
	if err := writeTable(ctx, p.store, out, res.Merged); err != nil {
		return nil, err
	}
	res.Files.Merged = out
	log.WithField("out", out).Infof("fusion %s", res.Reports.Fusion)
	return res, nil
}

// Timeline renders a stored ranking table one line per second. A path
// without a .csv extension names a session directory, whose merged table
// is located through its manifest.
func (p *Pipeline) Timeline(ctx context.Context, tablePath string) (string, error) {
	if path.Ext(tablePath) != ".csv" {
		m, err := ReadManifest(ctx, p.store, tablePath)
		if err != nil {
			return "", err
		}
		if m.Files.Merged == "" {
			return "", &table.MissingInputError{Source: path.Join(tablePath, ManifestFile), Column: "files.merged"}
		}
		tablePath = path.Join(tablePath, path.Base(m.Files.Merged))
	}
	t, _, err := readTable(ctx, p.store, tablePath, p.log)
	if err != nil {
		return "", err
	}
	return emotion.FormatTimeline(t), nil
}

func (p *Pipeline) offlineResult(now time.Time) *Result {
	return &Result{Manifest: Manifest{
		RunID:       uuid.NewString(),
		GeneratedAt: now.UTC(),
		Weights:     p.cfg.Weights(),
		Vocabulary:  p.cfg.Vocabulary,
	}}
}

// frameRate prefers the configured rate and falls back to the one the face
// service measured.
func (p *Pipeline) frameRate(face *clients.FaceResp) float64 {
	if p.cfg.Video.FrameRate > 0 {
		return p.cfg.Video.FrameRate
	}
	return face.FPS
}

func (p *Pipeline) aggregateVisual(frames []emotion.Frame, fps float64) (emotion.Table, emotion.Report, error) {
	a := emotion.VisualAggregator{
		FrameRate:  fps,
		Vocabulary: emotion.Vocabulary(p.cfg.Vocabulary),
		Workers:    p.cfg.Fusion.Workers,
	}
	return a.Aggregate(frames)
}

func (p *Pipeline) aggregateAudio(chunks []emotion.Chunk) (emotion.Table, emotion.Report) {
	a := emotion.AudioAggregator{Workers: p.cfg.Fusion.Workers}
	return a.Aggregate(chunks)
}

func (p *Pipeline) fuse(log logrus.FieldLogger, visual, audio emotion.Table) (emotion.Table, emotion.Report, error) {
	f := emotion.Fuser{Weights: p.cfg.Weights(), Workers: p.cfg.Fusion.Workers}
	out, rep, err := f.Fuse(visual, audio)
	if err != nil {
		return nil, rep, err
	}
	if rep.VisualOnly > 0 || rep.AudioOnly > 0 {
		log.WithFields(logrus.Fields{
			"visual_only": rep.VisualOnly,
			"audio_only":  rep.AudioOnly,
		}).Warn("dropped seconds present in one modality only")
	}
	if rep.Empty() {
		if p.cfg.Fusion.RequireOverlap {
			return nil, rep, fmt.Errorf("%w: %d visual and %d audio seconds",
				emotion.ErrEmptyAlignment, len(visual), len(audio))
		}
		log.Warn("no second has both modalities; merged table is empty")
	}
	return out, rep, nil
}

func (p *Pipeline) classifyVideo(ctx context.Context, log logrus.FieldLogger, video string) (*clients.FaceResp, error) {
	url, every := p.cfg.Services.FaceEmotion.URL, p.cfg.Video.SampleEvery
	return cached(p, log, "face", video, url, []int{every}, func() (*clients.FaceResp, error) {
		return p.http.FaceEmotions(ctx, url, video, every)
	})
}

func (p *Pipeline) classifyAudio(ctx context.Context, log logrus.FieldLogger, audio string) (*clients.SpeechResp, error) {
	url := p.cfg.Services.SpeechEmotion.URL
	rate, chunk := p.cfg.Audio.SampleRate, p.cfg.Audio.ChunkSeconds
	return cached(p, log, "speech", audio, url, []int{rate, chunk}, func() (*clients.SpeechResp, error) {
		return p.http.SpeechEmotions(ctx, url, audio, rate, chunk)
	})
}

// cached serves a classifier response from the cache, calling fetch and
// storing its result on a miss. Cache failures only cost a service call.
func cached[T any](p *Pipeline, log logrus.FieldLogger, kind, media, url string, params []int, fetch func() (*T, error)) (*T, error) {
	log = log.WithField("service", kind)
	var key string
	if p.cache != nil {
		k, err := responseKey(kind, media, url, params...)
		if err != nil {
			return nil, err
		}
		key = k
		var hit T
		ok, err := p.cache.Get(key, &hit)
		if err != nil {
			log.Warnf("cache lookup: %v", err)
		} else if ok {
			log.Info("classifier response served from cache")
			return &hit, nil
		}
	}

	t0 := time.Now()
	resp, err := fetch()
	if err != nil {
		return nil, err
	}
	log.WithField("elapsed", time.Since(t0).Round(time.Millisecond)).Info("classified")
	if key != "" {
		if err := p.cache.Put(key, resp); err != nil {
			log.Warnf("cache store: %v", err)
		}
	}
	return resp, nil
}

// checkMedia rejects an unset or absent input file before any service is
// called.
func checkMedia(kind, p string) error {
	if p == "" {
		return &table.MissingInputError{Source: kind + " input"}
	}
	st, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return &table.MissingInputError{Source: p}
	}
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("input %s is a directory", p)
	}
	return nil
}

func openInput(kind, p string) (*os.File, error) {
	if err := checkMedia(kind, p); err != nil {
		return nil, err
	}
	return os.Open(p)
}
