package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/geocode"
	"github.com/semanadefe/semanadefe/internal/location"
	"github.com/semanadefe/semanadefe/internal/service"
	"github.com/semanadefe/semanadefe/internal/web"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = opts.cfg.ListenAddr
			}
			srv := web.NewServer(web.Deps{
				Submissions: a.submissions,
				Tasks:       a.tasks,
				Stats:       a.stats,
				Search:      a.searcher,
				Geocoder:    a.geocoder,
				Photos:      a.photos,
				Checks:      a.checks,
				Logger:      opts.logger,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample initiatives",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.submissions.Seed(cmd.Context())
			if err != nil {
				return err
			}
			renderInitiatives(cmd.OutOrStdout(), created)
			return nil
		},
	}
}

func newTasksCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Show the weekly challenges with their selection counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			views, err := a.tasks.List(cmd.Context())
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), views)
			return nil
		},
	}
	cmd.AddCommand(newTaskSelectCommand(opts))
	return cmd
}

func newTaskSelectCommand(opts *rootOptions) *cobra.Command {
	var delta int64
	cmd := &cobra.Command{
		Use:   "select <task-id>",
		Short: "Record a selection (or, with a negative delta, a deselection)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.tasks.RecordSelection(cmd.Context(), args[0], delta)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], n)
			return err
		},
	}
	cmd.Flags().Int64Var(&delta, "delta", 1, "amount to add to the counter")
	return cmd
}

func newInitiativesCommand(opts *rootOptions) *cobra.Command {
	var query string
	var limit int
	cmd := &cobra.Command{
		Use:   "initiatives",
		Short: "List submitted initiatives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var list []*domain.Initiative
			if query != "" {
				list, err = a.searcher.Search(cmd.Context(), query, limit)
			} else {
				list, err = a.submissions.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			renderInitiatives(cmd.OutOrStdout(), list)

			p, err := a.stats.Progress(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d/%d pessoas alcançadas (%d%%)\n",
				p.PeopleReached, p.Goal, p.PercentRounded)
			return err
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "only show initiatives matching this text")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum search results")
	return cmd
}

func newLocateCommand(opts *rootOptions) *cobra.Command {
	var (
		query    string
		lat, lon float64
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Resolve a place name or a coordinate pair into a location",
		RunE: func(cmd *cobra.Command, args []string) error {
			picked := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			if query == "" && !picked {
				return errors.New("pass --query or --lat and --lon")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			loc, err := locate(ctx, newGeocoder(opts.cfg), opts.cfg.GeocodeCountry, query, picked, lat, lon)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%.6f, %.6f\n", loc.Name, loc.Latitude, loc.Longitude)
			return err
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "place to search for")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of a picked point")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude of a picked point")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "give up after this long")
	return cmd
}

// locate drives a Resolver the way the submission form does: a search picks
// its first candidate, a coordinate pair is reverse geocoded.
func locate(ctx context.Context, geo location.Geocoder, country, query string, picked bool, lat, lon float64) (domain.Location, error) {
	changes := make(chan domain.Location, 1)
	candidates := make(chan []geocode.Candidate, 1)
	failures := make(chan error, 1)

	r := location.NewResolver(geo, location.Options{
		Country: country,
		OnChange: func(loc domain.Location) {
			select {
			case changes <- loc:
			default:
			}
		},
		OnCandidates: func(c []geocode.Candidate) {
			select {
			case candidates <- c:
			default:
			}
		},
		OnError: func(err error) {
			select {
			case failures <- err:
			default:
			}
		},
	})
	defer r.Close()

	if picked {
		r.Pick(lat, lon)
	} else {
		r.SetQuery(query)
	}

	for {
		select {
		case loc := <-changes:
			// A failed reverse lookup still yields usable coordinates.
			return loc, nil
		case c := <-candidates:
			if len(c) == 0 {
				return domain.Location{}, fmt.Errorf("no places found for %q", query)
			}
			r.SelectCandidate(c[0])
		case err := <-failures:
			if !picked {
				return domain.Location{}, err
			}
		case <-ctx.Done():
			return domain.Location{}, ctx.Err()
		}
	}
}

func renderTasks(w io.Writer, views []service.TaskView) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Category", "Count", "Description"})
	for _, v := range views {
		tw.AppendRow(table.Row{v.ID, v.Category, v.Count, v.Description})
	}
	tw.Render()
}

func renderInitiatives(w io.Writer, list []*domain.Initiative) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Date", "Location", "University", "Reached", "Testimony"})
	for _, rec := range list {
		tw.AppendRow(table.Row{rec.Date, rec.LocationName, rec.University, len(rec.Evangelized), truncate(rec.Testimony, 60)})
	}
	tw.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d initiatives", len(list))})
	tw.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
