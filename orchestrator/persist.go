package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/maastricht-university/emusync/emotion"
	"github.com/maastricht-university/emusync/storage"
	"github.com/maastricht-university/emusync/table"
)

// File names inside a session directory.
const (
	VisualFile   = "video_emotion.csv"
	AudioFile    = "audio_emotion.csv"
	MergedFile   = "merged_emotions.csv"
	ManifestFile = "manifest.yaml"
)

// Locations used by the single-modality commands, relative to the outputs
// root. The fuse command picks the newest file matching each pattern.
const (
	VisualDir     = "video_emotion"
	AudioDir      = "audio_text_emotion"
	MergedDir     = "merge_emotions"
	VisualPattern = VisualDir + "/emotion_analysis_*.csv"
	AudioPattern  = AudioDir + "/session_*.csv"
)

const stampLayout = "20060102-150405"

func stamp(t time.Time) string { return t.Format(stampLayout) }

// mkSessionID names a new session directory. A second run in the same
// second gets the run id appended rather than overwriting the first.
func mkSessionID(ctx context.Context, store storage.FileStore, now time.Time, runID string) (string, error) {
	sid := "session_" + stamp(now)
	taken, err := store.Exists(ctx, path.Join(sid, ManifestFile))
	if err != nil {
		return "", fmt.Errorf("check session dir: %w", err)
	}
	if taken {
		sid += "-" + runID[:8]
	}
	return sid, nil
}

func writeTable(ctx context.Context, store storage.FileStore, p string, t emotion.Table) error {
	w, err := store.Write(ctx, p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if err := table.Write(w, t); err != nil {
		w.Abort()
		return fmt.Errorf("encode %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// readTable loads a ranking table. A file that does not exist is a
// MissingInputError; malformed rows are skipped and logged.
func readTable(ctx context.Context, store storage.FileStore, p string, log logrus.FieldLogger) (emotion.Table, []*table.SchemaError, error) {
	r, err := store.Read(ctx, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, &table.MissingInputError{Source: p}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer r.Close()
	return table.Read(r, p, log)
}

func writeManifest(ctx context.Context, store storage.FileStore, p string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	w, err := store.Write(ctx, p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Abort()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// ReadManifest loads the manifest of a persisted session.
func ReadManifest(ctx context.Context, store storage.FileStore, session string) (*Manifest, error) {
	p := path.Join(session, ManifestFile)
	r, err := store.Read(ctx, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &table.MissingInputError{Source: p}
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer r.Close()
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return &m, nil
}

// persist writes the three tables and the manifest of one session.
func persist(ctx context.Context, store storage.FileStore, res *Result) error {
	sid := res.Session
	res.Files = Files{
		Visual: path.Join(sid, VisualFile),
		Audio:  path.Join(sid, AudioFile),
		Merged: path.Join(sid, MergedFile),
	}
	for _, f := range []struct {
		path string
		t    emotion.Table
	}{
		{res.Files.Visual, res.Visual},
		{res.Files.Audio, res.Audio},
		{res.Files.Merged, res.Merged},
	} {
		if err := writeTable(ctx, store, f.path, f.t); err != nil {
			return err
		}
	}
	return writeManifest(ctx, store, path.Join(sid, ManifestFile), &res.Manifest)
}
