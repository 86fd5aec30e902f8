package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/maastricht-university/emusync/emotion"
)

// --- Face emotion (/analyze-video) ---
type FaceResp struct {
	FPS        float64         `json:"fps"`
	FrameCount int             `json:"frame_count"`
	Frames     []emotion.Frame `json:"frames"`
}

// FaceEmotions uploads a video and returns raw per-frame emotion scores for
// every sampleEvery-th frame. Frames the service failed to analyze are
// absent from the response.
func (h *HTTP) FaceEmotions(ctx context.Context, url, videoPath string, sampleEvery int) (*FaceResp, error) {
	fields := map[string]string{}
	if sampleEvery > 0 {
		fields["sample_every"] = strconv.Itoa(sampleEvery)
	}
	var out FaceResp
	if err := h.postFile(ctx, "face emotion", url+"/analyze-video", videoPath, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadFace decodes a saved face emotion response, e.g. one dumped by the service
// for offline aggregation.
func ReadFace(r io.Reader) (*FaceResp, error) {
	var out FaceResp
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("face emotion decode: %w", err)
	}
	return &out, nil
}
