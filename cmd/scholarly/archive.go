// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholarly/internal/archive"
	"github.com/pdiddy/scholarly/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive [query]",
	Short: "List records saved by search --db",
	Long: `Archive prints the records stored in the local archive. With a query
argument only records saved for that query are listed; "cites:<id>" selects
a citedby listing.`,
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().String("db", "", "archive SQLite file (also SCHOLARLY_DB)")
	archiveCmd.Flags().String("format", "yaml", "output format: yaml or json")

	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	path := archivePath(cmd)
	if path == "" {
		return fmt.Errorf("no archive: provide --db or SCHOLARLY_DB")
	}
	format, _ := cmd.Flags().GetString("format")

	store, err := archive.Open(types.ArchiveConfig{Path: path})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	records, err := store.List(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d of %d archived records\n", len(records), total)

	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(records)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}
