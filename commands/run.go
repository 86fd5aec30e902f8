package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/emusync/orchestrator"
)

func (a *app) runCmd() *cobra.Command {
	var in orchestrator.Inputs
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify, aggregate, fuse and persist one session",
		Long: `Send the video to the face emotion service and the audio to the speech
emotion service, build per-second tables for both, fuse them and write
everything to a new session_<timestamp> directory under the outputs root.

Classifier responses are cached by file content, so re-running a session
only repeats the local steps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := a.pipeline(true)
			if err != nil {
				return err
			}
			defer done()
			res, err := p.Run(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary("session "+res.Session, res))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&in.Video, "video", "", "video file (required)")
	fs.StringVar(&in.Audio, "audio", "", "audio file (required)")
	fs.String("face-url", "", "face emotion service base URL")
	fs.String("speech-url", "", "speech emotion service base URL")
	fs.Bool("cache", true, "reuse cached classifier responses")
	cmd.MarkFlagRequired("video")
	cmd.MarkFlagRequired("audio")
	bindFlag(fs, "face-url", "services.face_emotion.url")
	bindFlag(fs, "speech-url", "services.speech_emotion.url")
	bindFlag(fs, "cache", "cache.enabled")
	fusionFlags(fs)
	return cmd
}
