package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/coledavid/fidelity"
	"github.com/spf13/cobra"
)

func newScoreCmd(cfg *Config) *cobra.Command {
	var (
		noUpscale  bool
		resizer    = cfg.Resizer
		msssimMode = cfg.MSSSIMMode
		tempDir    = cfg.TempDir
	)

	cmd := &cobra.Command{
		Use:   "score <reference> <compressed>",
		Short: "Score a compressed image against its reference",
		Long: `Computes MSE, PSNR, SSIM and MS-SSIM of <compressed> against <reference>.
The compressed image is resized to the reference's dimensions first unless
--no-upscale is given, in which case both must already match.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := fidelity.NewResizer(resizer)
			if err != nil {
				return err
			}
			mode, err := fidelity.ParseMSSSIMMode(msssimMode)
			if err != nil {
				return err
			}

			opts := fidelity.MetricsOptions{
				NoUpscale: noUpscale,
				Upscaler:  fidelity.NewCompressor(0, 0, fidelity.Options{Resizer: r}),
				TempDir:   tempDir,
				MSSSIM:    mode,
			}
			s, err := fidelity.Compare(args[0], args[1], opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "MSE\t%.4f\n", s.MSE)
			fmt.Fprintf(tw, "PSNR\t%.4f dB\n", s.PSNR)
			fmt.Fprintf(tw, "SSIM\t%.6f\n", s.SSIM)
			fmt.Fprintf(tw, "MS-SSIM (%s)\t%.6f\n", mode, s.MSSSIM)
			fmt.Fprintf(tw, "Size\t%d bytes\n", s.Size)
			return tw.Flush()
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&noUpscale, "no-upscale", false, "Compare without resizing the compressed image")
	fl.StringVar(&resizer, "resizer", resizer, "Resize backend: imaging|nfnt|gift")
	fl.StringVar(&msssimMode, "msssim-mode", msssimMode, "MS-SSIM variant: columns|planar|multiscale")
	fl.StringVar(&tempDir, "temp-dir", tempDir, "Directory for the transient upscaled image")
	return cmd
}
