package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forwardops/fwdsync/internal/forward"
	"github.com/forwardops/fwdsync/internal/geocode"
	"github.com/forwardops/fwdsync/internal/loader"
	"github.com/forwardops/fwdsync/internal/pipeline"
	"github.com/forwardops/fwdsync/internal/transport"
	"github.com/forwardops/fwdsync/pkg/constants"
	"github.com/forwardops/fwdsync/pkg/logging"
)

var dryRunOutput string

var locationsCmd = &cobra.Command{
	Use:   "locations <csv>",
	Short: "Geocode locations from a CSV file and create them remotely",
	Long: `Load locations from a CSV file (columns: id, name, address, optional
lat/lng), geocode addresses that lack coordinates via Nominatim, and create
each location on the Forward API.

In dry-run mode the prepared payload is written to a JSON file instead of
being posted.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocations,
}

func init() {
	locationsCmd.Flags().StringVar(&dryRunOutput, "dry-run-output",
		constants.DefaultDryRunOutput, "output JSON filename in dry-run mode")
	rootCmd.AddCommand(locationsCmd)
}

func runLocations(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logging.Default()

	log.Info().Str("path", args[0]).Msg("Loading CSV")
	rows, err := loader.Locations(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no valid locations found in CSV")
	}

	policy := retryPolicy(cfg)

	apiClient := transport.New(
		&transport.BasicAuth{Username: cfg.APIKeyID, Password: cfg.APISecret},
		transport.WithPolicy(policy),
		transport.WithDryRun(cfg.DryRun),
	)
	geoClient := transport.New(
		&transport.NoAuth{},
		transport.WithTimeout(constants.GeocodeHTTPTimeout),
		transport.WithPolicy(policy),
	)

	output := cfg.DryRunOutput
	if cmd.Flags().Changed("dry-run-output") {
		output = dryRunOutput
	}

	driver := &pipeline.Locations{
		Forward:    forward.New(apiClient, cfg.BaseURL, cfg.NetworkID),
		Geocoder:   geocode.New(geoClient, cfg.GeocodeURL),
		Log:        *log,
		DryRun:     cfg.DryRun,
		OutputPath: output,
		Delay:      cfg.GeocodeDelay,
	}

	failures, err := driver.Run(ctx, rows)
	if err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("completed with %d failure(s)", failures)
	}

	fmt.Println(color.GreenString("All location updates completed successfully."))
	return nil
}
