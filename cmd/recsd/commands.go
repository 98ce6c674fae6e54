package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kalambet/recsd/internal/config"
	"github.com/kalambet/recsd/internal/engine"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a batch of interaction events",
	Long: `Ingest a batch of interaction events from a JSON file or stdin.

The input must be a JSON array of event objects:
  [{"userId": "u1", "productId": "p1", "eventType": "view", "ts": "..."}]

Rows with a missing userId/productId or an unknown eventType are skipped.

Examples:
  recsd ingest --file events.json
  cat events.json | recsd ingest`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var data []byte
		var err error
		if file != "" {
			data, err = os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
		} else {
			data, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}

		var batch []map[string]any
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("input must be a JSON array of events: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ingest/events", batch)
		if err != nil {
			return err
		}

		var result struct {
			Received int `json:"received"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Ingested %d of %d events", result.Received, len(batch))
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("file", "", "JSON file with an array of events (default: stdin)")
}

// --- recommend ---

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Query recommendations from the running server",
	Long: `Query recommendations for a user, a seed product, or neither.

With no --user and no --product the server answers with the popularity
ranking (cold start).

Examples:
  recsd recommend --user u1 --k 5
  recsd recommend --product p2
  recsd recommend`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		product, _ := cmd.Flags().GetString("product")
		k, _ := cmd.Flags().GetInt("k")

		params := url.Values{}
		if user != "" {
			params.Set("userId", user)
		}
		if product != "" {
			params.Set("productId", product)
		}
		if k > 0 {
			params.Set("k", strconv.Itoa(k))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/recommendations"
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Items []engine.Recommendation `json:"items"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Items) == 0 {
			printWarning("No recommendations available")
			return nil
		}
		for i, item := range result.Items {
			fmt.Fprintf(os.Stdout, "%2d. %s  (%.4f)\n", i+1, item.ProductID, item.Score)
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().String("user", "", "user ID to recommend for")
	recommendCmd.Flags().String("product", "", "seed product ID for item-to-item similarity")
	recommendCmd.Flags().Int("k", 0, "maximum number of results (server default when 0)")
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all interaction events on the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/admin/reset", nil)
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Event store cleared")
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage recsd configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			printStatus(info.Key, "%s (env: %s)", info.Value, info.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config key in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return fmt.Errorf("%w\nvalid keys: %v", err, config.ValidKeys())
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a config key, restoring its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return fmt.Errorf("%w\nvalid keys: %v", err, config.ValidKeys())
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
