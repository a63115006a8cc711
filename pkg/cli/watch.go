package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/common"
	"github.com/spf13/cobra"
)

var watchIndex string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream migration lifecycle events published by running migrations",
	Example: `  searchmigrate watch
  searchmigrate watch --index website --json`,
	Args: cobra.NoArgs,
	RunE: watchEvents,
}

func init() {
	watchCmd.Flags().StringVar(&watchIndex, "index", "", "Only show events for this alias")
}

func watchEvents(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		return err
	}
	if config.IsLocalMode() {
		return fmt.Errorf("watch needs Redis; local mode does not publish events")
	}

	rdb, err := common.NewRedisClient(config.Database.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	bus := common.NewEventBus(rdb)
	for _, t := range []common.EventType{
		common.EventMigrationStarted,
		common.EventMigrationFailed,
		common.EventAliasCutover,
		common.EventIndexRetired,
	} {
		bus.On(t, func(e common.Event) {
			if watchIndex != "" && fmt.Sprint(e.Data["alias"]) != watchIndex {
				return
			}
			printEvent(e)
		})
	}

	if !IsJSONOutput() {
		PrintInfof("watching %s (ctrl-c to stop)", CodeStyle.Render(common.EventBusChannel))
		PrintNewline()
	}
	bus.Start(ctx)
	return nil
}

func printEvent(e common.Event) {
	if IsJSONOutput() {
		data, _ := json.Marshal(e)
		fmt.Println(string(data))
		return
	}
	fmt.Printf("  %s %s %s\n", DimStyle.Render(time.Now().Format("15:04:05")), EventStyle.Render(string(e.Type)), formatEventData(e.Data))
}

// formatEventData renders data as sorted key=value pairs
func formatEventData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := fmt.Sprint(data[k]); v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	return strings.Join(pairs, " ")
}
