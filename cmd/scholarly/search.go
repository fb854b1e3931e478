// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scholarly/internal/archive"
	"github.com/pdiddy/scholarly/internal/scholar"
	"github.com/pdiddy/scholarly/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search Google Scholar for publications",
	Long: `Search runs a publication query and prints the matching records,
following result pages until --limit records are collected. With --fill
every record is enriched with its BibTeX entry, one extra request each.
With --db the records are also saved to the local archive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	addListingFlags(searchCmd)
	searchCmd.Flags().Bool("fill", false, "fetch the BibTeX entry of every record")

	rootCmd.AddCommand(searchCmd)
}

// addListingFlags registers the flags shared by commands that print a
// publication listing.
func addListingFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 10, "maximum number of records (0 = all pages)")
	cmd.Flags().String("format", "table", "output format: table, json, or csl")
	cmd.Flags().String("db", "", "archive records in this SQLite file (also SCHOLARLY_DB)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	it, err := client.SearchPubs(ctx, query)
	if err != nil {
		return err
	}
	return runListing(ctx, cmd, query, it)
}

// runListing collects records from it, optionally fills and archives them,
// and prints them in the requested format. Records gathered before a
// failure are still printed; the failure is returned afterwards.
func runListing(ctx context.Context, cmd *cobra.Command, query string, it *scholar.Paginator) error {
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")
	fill, _ := cmd.Flags().GetBool("fill")

	pubs, listErr := it.Collect(ctx, limit)

	if fill && listErr == nil {
		listErr = fillAll(ctx, pubs, os.Stderr)
	}

	if dbPath := archivePath(cmd); dbPath != "" && len(pubs) > 0 {
		if err := archivePubs(ctx, dbPath, query, pubs); err != nil {
			return err
		}
	}

	if err := writeListing(format, pubs, os.Stdout); err != nil {
		return err
	}
	return listErr
}

// fillAll fills every record in order. Records without a BibTeX link are
// reported and skipped; any other failure stops the run.
func fillAll(ctx context.Context, pubs []*scholar.Publication, w io.Writer) error {
	for i, p := range pubs {
		err := p.Fill(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(w, "filled  %d/%d %s\n", i+1, len(pubs), p.Bib.Title)
		case errors.Is(err, scholar.ErrNoDetailRef):
			fmt.Fprintf(w, "skipped %d/%d %s: no BibTeX link\n", i+1, len(pubs), p.Bib.Title)
		default:
			return err
		}
	}
	return nil
}

func archivePath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p
	}
	return viper.GetString("db")
}

func archivePubs(ctx context.Context, path, query string, pubs []*scholar.Publication) error {
	store, err := archive.Open(types.ArchiveConfig{Path: path})
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Save(ctx, query, pubs)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Archived %d records to %s\n", n, path)
	return nil
}

func writeListing(format string, pubs []*scholar.Publication, w io.Writer) error {
	switch format {
	case "table", "":
		scholar.FormatTable(pubs, w)
		return nil
	case "json":
		return scholar.FormatJSON(pubs, w)
	case "csl":
		return scholar.FormatCSL(pubs, w)
	default:
		return fmt.Errorf("unsupported format %q: use table, json, or csl", format)
	}
}
