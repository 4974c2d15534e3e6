package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

func newClassifyCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <frame.json|->",
		Short: "Classify a single landmark frame",
		Long: `Classify one frame given either as a replay record
({"timestamp_ms": ..., "landmarks": [...]}) or as a bare array of 21 points.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read frame: %w", err)
			}

			frame, err := parseFrame(data)
			if err != nil {
				return err
			}

			label, ok := c.classifier().Classify(frame)
			out := cmd.OutOrStdout()

			if asJSON {
				result := map[string]any{"valid": frame.Valid(), "gesture": nil}
				if ok {
					result["gesture"] = label
					result["display"] = label.Display()
				}
				return json.NewEncoder(out).Encode(result)
			}

			switch {
			case !frame.Valid():
				fmt.Fprintf(out, "none (frame has %d points, want %d)\n", len(frame), detector.NumLandmarks)
			case !ok:
				fmt.Fprintln(out, "none")
			default:
				fmt.Fprintf(out, "%s\t%s\n", label, label.Display())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// parseFrame accepts a replay record or a bare point array.
func parseFrame(data []byte) (detector.Frame, error) {
	var points []detector.Point3D
	if err := json.Unmarshal(data, &points); err == nil {
		return detector.Frame(points), nil
	}

	obs, err := capture.ParseRecord(data)
	if err != nil {
		return nil, err
	}
	return obs.Frame, nil
}
