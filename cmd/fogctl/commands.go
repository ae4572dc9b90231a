package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/askwhyharsh/fogofearth/internal/fog"
	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/session"
	"github.com/askwhyharsh/fogofearth/internal/transfer"
	"github.com/askwhyharsh/fogofearth/pkg/validator"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	DataDir string
	Verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fogctl",
		Short:         "Inspect and exchange a local fog of earth map",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.DataDir, "data-dir", "d", "", "Directory holding the fog document (default from config)")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newAddCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newEstimateCmd(opts),
		newMaskCmd(opts),
		newStatsCmd(opts),
		newResetCmd(opts),
		newStudyExportCmd(opts),
	)
	return root
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <lat,lon>...",
		Short: "Reveal points on the primary layer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			added := 0
			for _, p := range points {
				if a.fog.AddPrimary(p) {
					added++
				}
			}
			if err := a.fog.Flush(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %d of %d points (%d total)\n",
				added, len(points), a.fog.Stats().PrimaryPoints)
			return nil
		},
	}
}

func parsePoints(args []string) ([]location.GeoPoint, error) {
	v := validator.NewValidator()
	points := make([]location.GeoPoint, 0, len(args))
	for _, arg := range args {
		latStr, lonStr, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("point %q must be lat,lon", arg)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: invalid latitude", arg)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: invalid longitude", arg)
		}
		if err := v.ValidateCoordinates(lat, lon); err != nil {
			return nil, fmt.Errorf("point %q: %w", arg, err)
		}
		points = append(points, location.NewGeoPoint(lat, lon))
	}
	return points, nil
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		qrDir  string
		qrSize int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the primary layer as FOG2 chunks, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			export, err := a.fog.ExportChunks(cmd.Context())
			if err != nil {
				return err
			}
			chunks := export.Chunks

			out := cmd.OutOrStdout()
			for _, c := range chunks {
				fmt.Fprintln(out, c.String())
			}

			if qrDir != "" {
				if err := writeQRCodes(qrDir, qrSize, chunks); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d QR codes to %s\n", len(chunks), qrDir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&qrDir, "qr-dir", "", "Also render each chunk as a PNG QR code into this directory")
	cmd.Flags().IntVar(&qrSize, "qr-size", 512, "QR code image size in pixels")
	return cmd
}

func writeQRCodes(dir string, size int, chunks []transfer.Chunk) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create QR directory: %w", err)
	}
	for _, c := range chunks {
		name := filepath.Join(dir, fmt.Sprintf("part-%03d-of-%03d.png", c.Index, c.Total))
		if err := qrcode.WriteFile(c.String(), qrcode.Medium, size, name); err != nil {
			return fmt.Errorf("failed to render chunk %d: %w", c.Index, err)
		}
	}
	return nil
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [scan...]",
		Short: "Feed scanned strings into the shared layer (reads stdin lines when no args)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			scans := args
			if len(scans) == 0 {
				scans, err = readLines(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			var last fog.ImportResult
			for _, scan := range scans {
				res, err := a.fog.ImportScanned(cmd.Context(), scan)
				if err != nil {
					return err
				}
				last = res
				switch res.Outcome {
				case fog.OutcomeProgress:
					fmt.Fprintf(out, "transfer %s: %d/%d parts\n", res.TransferID, res.Have, res.Total)
				case fog.OutcomeEmpty:
					fmt.Fprintln(out, "sender had nothing to share")
				default:
					fmt.Fprintf(out, "%s: %d shared points\n", res.Outcome, res.SharedCount)
				}
			}

			if last.Outcome == fog.OutcomeProgress {
				return fmt.Errorf("transfer %s incomplete: %d/%d parts", last.TransferID, last.Have, last.Total)
			}
			return nil
		},
	}
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), validator.MaxScanLength*2)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scans: %w", err)
	}
	return lines, nil
}

func newEstimateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the fraction of the explored area still fogged",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			est := a.fog.EstimateUncovered()
			fmt.Fprintf(cmd.OutOrStdout(), "uncovered: %.4f (%d/%d cells covered, step %.0f m)\n",
				est.Uncovered, est.CoveredCells, est.TotalCells, est.StepMeters)
			return nil
		},
	}
}

func newMaskCmd(opts *rootOptions) *cobra.Command {
	var (
		format   string
		segments int
	)

	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Print the two-pass fog mask description",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			mask := a.fog.BuildMaskDescription()

			var output []byte
			switch format {
			case "json":
				output, err = json.MarshalIndent(mask, "", "  ")
			case "yaml":
				output, err = yaml.Marshal(mask)
			case "geojson":
				output, err = json.MarshalIndent(mask.GeoJSON(segments), "", "  ")
			default:
				return fmt.Errorf("unknown format %q (json, yaml, geojson)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to marshal mask: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, yaml or geojson")
	cmd.Flags().IntVar(&segments, "segments", 32, "Polygon segments per circle for geojson (0 emits points)")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print layer sizes and document revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			output, err := json.MarshalIndent(a.fog.Stats(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear both layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := a.fog.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "map cleared")
			return nil
		},
	}
}

func newStudyExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "study-export <zip>",
		Short: "Write the study session log into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create archive: %w", err)
			}
			if err := session.ExportZip(f, a.sessionLogPath()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write archive: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}
