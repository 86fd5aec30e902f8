package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) visualCmd() *cobra.Command {
	var frames, out string
	cmd := &cobra.Command{
		Use:   "visual",
		Short: "Bin saved per-frame face emotions into seconds",
		Long: `Read a saved face emotion service response and write one ranking per
second. Without --out the table goes to
video_emotion/emotion_analysis_<timestamp>.csv under the outputs root.

The frame rate comes from --fps, then video.frame_rate, then the "fps"
field of the response.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := a.pipeline(false)
			if err != nil {
				return err
			}
			defer done()
			if out, err = a.userPath(out); err != nil {
				return err
			}
			res, err := p.VisualFile(cmd.Context(), frames, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary("visual", res))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&frames, "frames", "", "face service response JSON (required)")
	fs.StringVarP(&out, "out", "o", "", "output table")
	fs.Float64("fps", 0, "video frame rate")
	cmd.MarkFlagRequired("frames")
	bindFlag(fs, "fps", "video.frame_rate")
	return cmd
}

func (a *app) audioCmd() *cobra.Command {
	var chunks, out string
	cmd := &cobra.Command{
		Use:   "audio",
		Short: "Map saved per-chunk speech emotions to seconds",
		Long: `Read a saved speech emotion service response (one chunk per second) and
write one ranking per second. Without --out the table goes to
audio_text_emotion/session_<timestamp>.csv under the outputs root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := a.pipeline(false)
			if err != nil {
				return err
			}
			defer done()
			if out, err = a.userPath(out); err != nil {
				return err
			}
			res, err := p.AudioFile(cmd.Context(), chunks, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary("audio", res))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&chunks, "chunks", "", "speech service response JSON (required)")
	fs.StringVarP(&out, "out", "o", "", "output table")
	cmd.MarkFlagRequired("chunks")
	return cmd
}
