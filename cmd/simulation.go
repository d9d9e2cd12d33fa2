package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"example.com/backstage/dashboard/internal/models"
	"example.com/backstage/dashboard/internal/notify"
	"example.com/backstage/dashboard/internal/panels"

	"github.com/spf13/cobra"
)

var commandTimeout time.Duration

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Advance the simulation one day",
	Long:  `Run one simulated day on the backend and print the new day with its events`,
	RunE: withSimulation(func(ctx context.Context, out io.Writer, sim *panels.Simulation) error {
		step, err := sim.Advance(ctx)
		if err != nil {
			return err
		}
		sim.Settle()

		fmt.Fprintf(out, "Día %s\n", step.Day.Formatted())
		printEvents(out, step.Events)
		return nil
	}),
}

var eventsCmd = &cobra.Command{
	Use:   "events [text]",
	Short: "Print the simulation history grouped by day",
	Long:  `Print every simulation event grouped by day, or only the events matching text`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSimulation(func(ctx context.Context, out io.Writer, sim *panels.Simulation) error {
			if err := sim.LoadHistory(ctx); err != nil {
				return err
			}

			if len(args) == 1 {
				found, err := sim.SearchEvents(ctx, args[0])
				if err != nil {
					return err
				}
				printEvents(out, found)
				return nil
			}

			for _, group := range sim.Snapshot().EventsGroupedByDay {
				fmt.Fprintf(out, "%s (%d)\n", group.Label, len(group.Events))
				printEvents(out, group.Events)
			}
			return nil
		})(cmd, args)
	},
}

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Print the current simulated day and its events",
	RunE: withSimulation(func(ctx context.Context, out io.Writer, sim *panels.Simulation) error {
		if err := sim.Init(ctx); err != nil {
			return err
		}

		snap := sim.Snapshot()
		if snap.CurrentDayLabel == "" {
			fmt.Fprintln(out, "Día actual desconocido")
			return nil
		}
		fmt.Fprintf(out, "Día %s\n", snap.CurrentDayLabel)
		printEvents(out, snap.EventsForCurrentDay)
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{advanceCmd, eventsCmd, dayCmd} {
		c.Flags().DurationVar(&commandTimeout, "timeout", 30*time.Second, "overall time limit")
	}
}

type simulationAction func(ctx context.Context, out io.Writer, sim *panels.Simulation) error

// withSimulation wires the simulation panel for a one-shot command and prints
// any notification it raised
func withSimulation(action simulationAction) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		err = action(ctx, cmd.OutOrStdout(), a.dashboard.Simulation)
		printNotifications(cmd.ErrOrStderr(), a.center.List())
		return err
	}
}

func printEvents(out io.Writer, events []models.ProductionEvent) {
	if len(events) == 0 {
		fmt.Fprintln(out, "  (sin eventos)")
		return
	}
	for _, e := range events {
		fmt.Fprintf(out, "  %s  %-14s %s\n", e.FormattedDate(), e.Type, e.Detail)
	}
}

func printNotifications(out io.Writer, notes []notify.Notification) {
	for _, n := range notes {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Message)
	}
}
