package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/avhost/internal/audio"
)

// ToneOptions holds flags for the tone command.
type ToneOptions struct {
	*RootOptions
	Out        string
	Freq       float64
	Seconds    float64
	SampleRate int
}

// ToneResult describes a written tone.
type ToneResult struct {
	Path       string  `json:"path"`
	Frames     int64   `json:"frames"`
	Freq       float64 `json:"freq"`
	SampleRate int     `json:"sample_rate"`
}

// NewToneCommand creates the tone command.
func NewToneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ToneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Write a sine tone to a WAV file",
		Long: `Write a mono 16-bit PCM sine tone to a WAV file.

Example:
  avhost tone --out a440.wav
  avhost tone --out low.wav --freq 110 --seconds 2.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTone(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output WAV path (required)")
	cmd.Flags().Float64Var(&opts.Freq, "freq", 440, "frequency in Hz")
	cmd.Flags().Float64Var(&opts.Seconds, "seconds", 1, "duration in seconds")
	cmd.Flags().IntVar(&opts.SampleRate, "rate", audio.DefaultSampleRate, "sample rate in Hz")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runTone(opts *ToneOptions, cmd *cobra.Command) error {
	if opts.Freq <= 0 || opts.Seconds <= 0 {
		return NewExitError(ExitCommandError, "freq and seconds must be positive")
	}

	format := audio.DefaultFormat()
	format.SampleRate = opts.SampleRate
	sf, err := audio.Create(opts.Out, format)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create sound file", err)
	}

	if err := sf.WriteFloat(audio.Sine(opts.Freq, opts.Seconds, opts.SampleRate)); err != nil {
		_ = sf.Close()
		return WrapExitError(ExitFailure, "failed to write samples", err)
	}
	frames := sf.Frames()
	if err := sf.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to finish sound file", err)
	}

	res := ToneResult{Path: opts.Out, Frames: frames, Freq: opts.Freq, SampleRate: opts.SampleRate}
	return opts.formatter(cmd).Success(res, fmt.Sprintf("wrote %d frames of %g Hz to %s", frames, opts.Freq, opts.Out))
}
