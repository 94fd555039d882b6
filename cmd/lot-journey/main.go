package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/iceplantengineering/paperplant/internal/client"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: lot-journey [-api URL] <command> [args]

Commands:
  journey <lot_id> [-xlsx FILE]   print the lot journey, or save it as a workbook
  alerts [-status S] [-limit N]   list machine alerts (status: active, resolved, all)
  resolve <log_id>                mark an alert resolved
`)
}

func main() {
	apiURL := flag.String("api", envOr("PAPERPLANT_API", "http://localhost:8000"), "paperplant API base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	c := client.New(*apiURL, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := flag.Args()[1:]
	var err error
	switch flag.Arg(0) {
	case "journey":
		err = runJourney(ctx, c, args)
	case "alerts":
		err = runAlerts(ctx, c, args)
	case "resolve":
		err = runResolve(ctx, c, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func runJourney(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("journey", flag.ExitOnError)
	xlsx := fs.String("xlsx", "", "write the journey workbook to this file")
	if len(args) < 1 {
		return fmt.Errorf("lot_id is required")
	}
	lotID := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if *xlsx != "" {
		data, err := c.ExportJourney(ctx, lotID)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*xlsx, data, 0o644); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		fmt.Printf("Saved %s (%d bytes)\n", *xlsx, len(data))
		return nil
	}

	chain, err := c.Journey(ctx, lotID)
	if err != nil {
		return err
	}

	fmt.Printf("Batch:        %s\n", chain.BatchID)
	if chain.Product != nil {
		fmt.Printf("Product lot:  %s (%s)\n", chain.Product.ProductLotID, chain.Product.ProductCode)
	}
	if chain.RawMaterial != nil {
		fmt.Printf("Raw material: %s from %s\n", chain.RawMaterial.LotID, chain.RawMaterial.SupplierName)
	}
	fmt.Printf("Final output: %.1f kg\n", chain.FinalOutputKg())
	fmt.Printf("Yield:        %.2f%%\n\n", chain.OverallYield()*100)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tEVENT\tTITLE")
	for _, ev := range chain.Timeline {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ev.Timestamp.Format(time.RFC3339), ev.EventType, ev.Title)
	}
	return w.Flush()
}

func runAlerts(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("alerts", flag.ExitOnError)
	status := fs.String("status", "active", "active, resolved or all")
	limit := fs.Int("limit", 50, "max rows (1-200)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.Alerts(ctx, *status, *limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMACHINE\tLEVEL\tRESOLVED\tMESSAGE")
	for _, a := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n",
			a.LogID, a.TS.Format(time.RFC3339), a.MachineID, a.AlertLevel, a.Resolved, a.Message)
	}
	return w.Flush()
}

func runResolve(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one log_id is required")
	}
	logID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid log_id %q", args[0])
	}
	if err := c.ResolveAlert(ctx, logID); err != nil {
		return err
	}
	fmt.Printf("Alert %d resolved\n", logID)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
