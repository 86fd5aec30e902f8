package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/maastricht-university/emusync/emotion"
)

// --- Speech emotion (/classify) ---
type SpeechResp struct {
	SampleRate int             `json:"sample_rate"`
	Chunks     []emotion.Chunk `json:"chunks"`
}

// SpeechEmotions uploads an audio track and returns the top-2 emotions of
// each chunkSeconds-long chunk. The service pads the trailing chunk with
// silence.
func (h *HTTP) SpeechEmotions(ctx context.Context, url, audioPath string, sampleRate, chunkSeconds int) (*SpeechResp, error) {
	fields := map[string]string{}
	if sampleRate > 0 {
		fields["sample_rate"] = strconv.Itoa(sampleRate)
	}
	if chunkSeconds > 0 {
		fields["chunk_seconds"] = strconv.Itoa(chunkSeconds)
	}
	var out SpeechResp
	if err := h.postFile(ctx, "speech emotion", url+"/classify", audioPath, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadSpeech decodes a saved speech emotion response, e.g. one dumped by the service
// for offline aggregation.
func ReadSpeech(r io.Reader) (*SpeechResp, error) {
	var out SpeechResp
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("speech emotion decode: %w", err)
	}
	return &out, nil
}
