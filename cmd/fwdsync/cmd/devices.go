package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forwardops/fwdsync/internal/forward"
	"github.com/forwardops/fwdsync/internal/loader"
	"github.com/forwardops/fwdsync/internal/pipeline"
	"github.com/forwardops/fwdsync/internal/transport"
	"github.com/forwardops/fwdsync/pkg/logging"
)

var devicesCmd = &cobra.Command{
	Use:   "devices <csv>",
	Short: "Update device locations and tags from a CSV file",
	Long: `Load device-to-location mappings from a CSV file (columns: device,
location, optional tag), resolve each location name against the Forward API,
and update the device locations and tags.

The run exits non-zero when any device failed; other devices are still
processed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logging.Default()

	log.Info().Str("path", args[0]).Msg("Loading CSV")
	rows, err := loader.Devices(args[0])
	if err != nil {
		return err
	}

	client := transport.New(
		&transport.BasicAuth{Username: cfg.APIKeyID, Password: cfg.APISecret},
		transport.WithPolicy(retryPolicy(cfg)),
		transport.WithDryRun(cfg.DryRun),
	)
	fwd := forward.New(client, cfg.BaseURL, cfg.NetworkID)

	index, err := fwd.Locations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch locations from API: %w", err)
	}

	var tags forward.TagSet
	if hasTags(rows) {
		tags, err = fwd.Tags(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch existing device tags: %w", err)
		}
	}

	driver := &pipeline.Devices{
		Forward: fwd,
		Index:   index,
		Tags:    tags,
		Log:     *log,
	}
	if failures := driver.Run(ctx, rows); failures > 0 {
		return fmt.Errorf("completed with %d failure(s)", failures)
	}

	fmt.Println(color.GreenString("All device updates completed successfully."))
	return nil
}

// hasTags reports whether any row carries a tag, so the tag list is only
// fetched when needed.
func hasTags(rows []loader.DeviceRow) bool {
	for _, row := range rows {
		if row.Tag != "" {
			return true
		}
	}
	return false
}
