package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"coinwatch"
	"coinwatch/core"
	"coinwatch/storage"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// Command line flags
var (
	configPath  string
	storagePath string
	driver      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "coinwatch",
		Short:   "Cryptocurrency market watcher and chat bot",
		Version: "1.0.0",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "coinwatch.yaml", "Configuration file path")

	rootCmd.AddCommand(buildRunCmd())
	rootCmd.AddCommand(buildInspectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	settings, err := coinwatch.LoadSettings(configPath)
	if err != nil {
		return err
	}

	bot, err := coinwatch.NewBot(*settings)
	if err != nil {
		return err
	}
	defer bot.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Dump stored alerts and subscriptions",
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVarP(&storagePath, "storage", "s", "coinwatch.db", "Storage file path")
	inspectCmd.Flags().StringVarP(&driver, "driver", "d", "buntdb", "Storage driver (buntdb or sqlite)")
	return inspectCmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	alerts, err := store.Alerts(ctx)
	if err != nil {
		return err
	}
	subs, err := store.Subscriptions(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Alerts:")
	alertTable := tablewriter.NewWriter(os.Stdout)
	alertTable.SetHeader([]string{"Owner", "Num", "Currency", "Condition", "Destination"})
	for _, a := range alerts {
		alertTable.Append([]string{
			a.Owner,
			strconv.Itoa(a.Num),
			a.Currency,
			a.Describe(),
			a.Destination,
		})
	}
	alertTable.Render()

	fmt.Println("Subscriptions:")
	subTable := tablewriter.NewWriter(os.Stdout)
	subTable.SetHeader([]string{"Destination", "Fiat", "Interval", "Purge", "Currencies"})
	for _, s := range subs {
		subTable.Append([]string{
			s.Destination,
			s.Fiat,
			strconv.Itoa(s.IntervalMinutes) + "m",
			strconv.FormatBool(s.Purge),
			strconv.Itoa(len(s.Currencies)),
		})
	}
	subTable.Render()
	return nil
}

func openStore() (core.Store, error) {
	if driver == "sqlite" {
		return storage.NewSQLite(storagePath)
	}
	return storage.NewBunt(storagePath)
}
