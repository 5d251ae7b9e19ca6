package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

var sweepInterval time.Duration

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "drive the node's scheduler sweep until interrupted",
	Long: `run loads the node's persistent configuration, builds the MAC/
link/network/TSA/application stack over a transceiver link, and sweeps the
scheduler (spec.md §5: PHYSend+MAC tick, LinkReceive, NWReceive, TSAReceive,
AppReceive, AppSend, TSASend, NWSend, LinkSend) until interrupted.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVar(&sweepInterval, "interval", 10*time.Millisecond, "delay between scheduler sweeps")
}

func runRun(cmd *cobra.Command, args []string) error {
	link := xcvrlink.NewMock()
	n, store, err := buildNode(link)
	if err != nil {
		return fmt.Errorf("lonnode run: %w", err)
	}
	defer store.Close()

	if debugLevel >= 1 {
		color.Green("lonnode: sweeping scheduler every %s (config=%s, store=%s)", sweepInterval, configPath, storePath)
		color.Green("lonnode: press Ctrl+C to stop")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if debugLevel >= 1 {
				color.Yellow("lonnode: shutting down")
			}
			return nil
		case <-ticker.C:
			n.Sweep()
			for _, kind := range n.Errors.Entries() {
				if debugLevel >= 2 {
					color.Red("lonnode: error log: %s", kind)
				}
			}
		}
	}
}
