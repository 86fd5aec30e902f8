package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/maastricht-university/emusync/emotion"
)

// --- Visualization ---
type TimelineReq struct {
	Timestamps []int     `json:"timestamps"`
	Emotions   []string  `json:"emotions"`
	Scores     []float64 `json:"scores"`
	Secondary  []string  `json:"secondary_emotions,omitempty"`
	OutputDir  string    `json:"output_dir,omitempty"`
}

// NewTimelineReq flattens a fused table into parallel per-second columns.
// Seconds without a secondary get an empty label.
func NewTimelineReq(t emotion.Table, outputDir string) TimelineReq {
	req := TimelineReq{
		Timestamps: make([]int, len(t)),
		Emotions:   make([]string, len(t)),
		Scores:     make([]float64, len(t)),
		Secondary:  make([]string, len(t)),
		OutputDir:  outputDir,
	}
	for i, r := range t {
		req.Timestamps[i] = r.Second
		req.Emotions[i] = r.Primary.Label
		req.Scores[i] = r.Primary.Score
		req.Secondary[i] = r.Secondary.Label
	}
	return req
}

type TimelineResp struct{ Status, Path string }

func (h *HTTP) GenerateTimeline(ctx context.Context, url string, req TimelineReq) (*TimelineResp, error) {
	var out TimelineResp
	if err := h.postJSON(ctx, "viz timeline", url+"/generate-timeline", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type RadarReq struct {
	Categories  []string  `json:"categories"`
	Values      []float64 `json:"values"`
	StudentName string    `json:"student_name"`
	OutputDir   string    `json:"output_dir,omitempty"`
}
type RadarResp struct{ Status, Path string }

func (h *HTTP) GenerateRadar(ctx context.Context, url string, req RadarReq) (*RadarResp, error) {
	var out RadarResp
	if err := h.postJSON(ctx, "viz radar", url+"/generate-radar", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTP) postJSON(ctx context.Context, svc, url string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", svc, err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := h.c.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s", svc, resp.Status, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", svc, err)
	}
	return nil
}
