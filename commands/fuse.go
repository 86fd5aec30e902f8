package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) fuseCmd() *cobra.Command {
	var visual, audio, out string
	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Fuse a visual and an audio table",
		Long: `Combine two per-second tables into one. Only seconds present in both are
kept; each is ranked by weighted score (visual 0.7, audio 0.3 by default).

Without --visual or --audio the newest table written by the visual or
audio command is used. Without --out the result goes to
merge_emotions/merged_emotions.csv under the outputs root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, done, err := a.pipeline(false)
			if err != nil {
				return err
			}
			defer done()
			for _, s := range []*string{&visual, &audio, &out} {
				if *s, err = a.userPath(*s); err != nil {
					return err
				}
			}
			res, err := p.FuseFiles(cmd.Context(), visual, audio, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary("fusion", res))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&visual, "visual", "", "visual table (default: newest video_emotion/emotion_analysis_*.csv)")
	fs.StringVar(&audio, "audio", "", "audio table (default: newest audio_text_emotion/session_*.csv)")
	fs.StringVarP(&out, "out", "o", "", "output table")
	fusionFlags(fs)
	return cmd
}

func (a *app) formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <table.csv|session-dir>",
		Short: "Print a table as one line per second",
		Long: `Print a ranking table as text, one line per second:

  happy 0.57 sad 0.28

The second emotion is left out when absent or zero. Given a session
directory written by run, the merged table of that session is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, done, err := a.pipeline(false)
			if err != nil {
				return err
			}
			defer done()
			path, err := a.userPath(args[0])
			if err != nil {
				return err
			}
			text, err := p.Timeline(cmd.Context(), path)
			if err != nil {
				return err
			}
			if text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}
}
