package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlserve/retrain-engine/internal/state"
)

// One-shot operator verbs. They run the engine in-process against the state
// database, for cron-style use when the daemon is not running.

var (
	triggerForce bool
	triggerDefer bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one evaluation pass and retrain if a condition fires",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := loadFileConfig()
		if err != nil {
			return err
		}
		coord, cleanup, err := buildEngine(fc)
		if err != nil {
			return err
		}
		defer cleanup()

		outcome, err := coord.EvaluateAndMaybeRetrain(context.Background(), nil)
		if err != nil {
			return err
		}
		return printJSON(outcome)
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger [reason...]",
	Short: "Request a manual retrain",
	RunE: func(cmd *cobra.Command, args []string) error {
		reason := strings.Join(args, " ")
		if reason == "" {
			reason = "manual CLI trigger"
		}

		fc, err := loadFileConfig()
		if err != nil {
			return err
		}
		coord, cleanup, err := buildEngine(fc)
		if err != nil {
			return err
		}
		defer cleanup()

		if triggerDefer {
			if err := coord.Enqueue(reason); err != nil {
				return err
			}
			fmt.Println("retrain request queued for next evaluation")
			return nil
		}

		manual := &state.ManualRequest{Reason: reason, Force: triggerForce, RequestedAt: time.Now()}
		outcome, err := coord.EvaluateAndMaybeRetrain(context.Background(), manual)
		if err != nil {
			return err
		}
		return printJSON(outcome)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the engine status snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := loadFileConfig()
		if err != nil {
			return err
		}
		coord, cleanup, err := buildEngine(fc)
		if err != nil {
			return err
		}
		defer cleanup()

		return printJSON(coord.Status())
	},
}

var attemptsLimit int

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Print recent retrain attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		fc, err := loadFileConfig()
		if err != nil {
			return err
		}
		coord, cleanup, err := buildEngine(fc)
		if err != nil {
			return err
		}
		defer cleanup()

		attempts, err := coord.Attempts(attemptsLimit)
		if err != nil {
			return err
		}
		return printJSON(attempts)
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto on|off",
	Short: "Set the operator-level auto-retrain switch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}

		fc, err := loadFileConfig()
		if err != nil {
			return err
		}
		coord, cleanup, err := buildEngine(fc)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := coord.SetAutoRetrain(enabled); err != nil {
			return err
		}
		fmt.Printf("auto-retrain set to %s\n", args[0])
		return nil
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	triggerCmd.Flags().BoolVar(&triggerForce, "force", false, "bypass the frequency guard")
	triggerCmd.Flags().BoolVar(&triggerDefer, "defer", false, "queue the request for the next evaluation")
	attemptsCmd.Flags().IntVar(&attemptsLimit, "limit", 20, "maximum number of attempts to print")
	rootCmd.AddCommand(checkCmd, triggerCmd, statusCmd, attemptsCmd, autoCmd)
}
