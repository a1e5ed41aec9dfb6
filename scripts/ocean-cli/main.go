// ocean-cli calls the ocean-observer API from the command line.
//
// Usage:
//
//	ocean-cli observations query [--bbox minLon,minLat,maxLon,maxLat] [--mine]
//	ocean-cli observations add --activity diving --lat -33.1 --lng -70.5 [--species "Sea Lion"]
//	ocean-cli observations mine
//	ocean-cli observations delete <observation-id>
//
// The access token is read from OCEAN_TOKEN. The server defaults to
// http://localhost:3000 and can be changed with --server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/client"
	"github.com/Mewnot-jar/ocean-observer/pkg/logging"
	"github.com/Mewnot-jar/ocean-observer/pkg/models"
)

const tokenEnv = "OCEAN_TOKEN"

type globalOptions struct {
	server  string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Getenv).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. getenv is injected for tests.
func newRootCommand(out io.Writer, getenv func(string) string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          "ocean-cli",
		Short:        "Query and record marine observations",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:3000", "ocean-observer base URL")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	newClient := func() (*client.Client, error) {
		logger := zap.NewNop()
		if opts.verbose {
			l, err := logging.NewLogger("local")
			if err != nil {
				return nil, err
			}
			logger = l
		}

		session := client.NewSession()
		if token := getenv(tokenEnv); token != "" {
			session.SignIn(token, nil)
		}
		return client.NewClient(opts.server, session, logger), nil
	}

	obsCmd := &cobra.Command{
		Use:     "observations",
		Aliases: []string{"obs"},
		Short:   "Commands for marine observations",
	}
	obsCmd.AddCommand(
		queryCommand(newClient),
		addCommand(newClient),
		mineCommand(newClient),
		deleteCommand(newClient),
	)
	rootCmd.AddCommand(obsCmd)

	return rootCmd
}

type clientFactory func() (*client.Client, error)

func queryCommand(newClient clientFactory) *cobra.Command {
	var (
		bbox     string
		params   client.QueryParams
		species  int64
		minDepth float64
		maxDepth float64
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print observations as GeoJSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bbox != "" {
				box, err := parseBBox(bbox)
				if err != nil {
					return err
				}
				params.BBox = &box
			}
			flags := cmd.Flags()
			if flags.Changed("species-id") {
				params.SpeciesID = &species
			}
			if flags.Changed("min-depth") {
				params.MinDepth = &minDepth
			}
			if flags.Changed("max-depth") {
				params.MaxDepth = &maxDepth
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			fc, err := c.QueryObservations(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fc)
		},
	}

	cmd.Flags().StringVar(&bbox, "bbox", "", "bounding box as minLon,minLat,maxLon,maxLat")
	cmd.Flags().Int64Var(&species, "species-id", 0, "only this species")
	cmd.Flags().StringVar(&params.From, "from", "", "observed at or after this timestamp")
	cmd.Flags().StringVar(&params.To, "to", "", "observed at or before this timestamp")
	cmd.Flags().Float64Var(&minDepth, "min-depth", 0, "minimum depth in metres")
	cmd.Flags().Float64Var(&maxDepth, "max-depth", 0, "maximum depth in metres")
	cmd.Flags().BoolVar(&params.IncludeMine, "mine", false, "include your private observations")

	return cmd
}

func addCommand(newClient clientFactory) *cobra.Command {
	var (
		req        client.CreateObservationRequest
		activity   string
		species    int64
		depthMin   float64
		depthMax   float64
		temp       float64
		notes      string
		observedAt string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Activity = models.Activity(activity)
			if !req.Activity.IsValid() {
				return fmt.Errorf("unknown activity %q (want one of %s)", activity, activityList())
			}

			flags := cmd.Flags()
			if flags.Changed("species-id") {
				req.SpeciesID = &species
			}
			if flags.Changed("depth-min") {
				req.DepthMinM = &depthMin
			}
			if flags.Changed("depth-max") {
				req.DepthMaxM = &depthMax
			}
			if flags.Changed("temperature") {
				req.TemperatureC = &temp
			}
			if flags.Changed("notes") {
				req.Notes = &notes
			}
			if observedAt != "" {
				t, err := time.Parse(time.RFC3339, observedAt)
				if err != nil {
					return fmt.Errorf("invalid --observed-at: %w", err)
				}
				req.ObservedAt = &t
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			id, err := c.CreateObservation(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}

	cmd.Flags().StringVar(&activity, "activity", "", "one of "+activityList())
	cmd.Flags().Float64Var(&req.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&req.Lng, "lng", 0, "longitude")
	cmd.Flags().StringVar(&req.SpeciesCommon, "species", "", "species common name")
	cmd.Flags().Int64Var(&species, "species-id", 0, "existing species id")
	cmd.Flags().Float64Var(&depthMin, "depth-min", 0, "minimum depth in metres")
	cmd.Flags().Float64Var(&depthMax, "depth-max", 0, "maximum depth in metres")
	cmd.Flags().Float64Var(&temp, "temperature", 0, "water temperature in °C")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&observedAt, "observed-at", "", "RFC 3339 timestamp (default now)")
	cmd.Flags().BoolVar(&req.IsPrivate, "private", false, "only visible to you")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

func mineCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your observations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			observations, err := c.ListMine(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), observations)
		},
	}
}

func deleteCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <observation-id>",
		Short: "Delete one of your observations and its media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid observation id: %w", err)
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.DeleteObservation(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return err
		},
	}
}

func parseBBox(s string) (models.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return models.BBox{}, fmt.Errorf("bbox needs 4 comma-separated values, got %d", len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.BBox{}, fmt.Errorf("invalid bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	return models.BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}, nil
}

func activityList() string {
	names := make([]string, len(models.ValidActivities))
	for i, a := range models.ValidActivities {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
