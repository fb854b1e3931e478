// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholarly/internal/scholar"
)

var citedByCmd = &cobra.Command{
	Use:   "citedby <cites-id | cited-by link>",
	Short: "List the publications citing a work",
	Long: `Citedby lists the works citing the publication with the given cited-by
id, the number in the "cites=" parameter of a "Cited by N" link. A full link
is accepted as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runCitedBy,
}

func init() {
	addListingFlags(citedByCmd)
	citedByCmd.Flags().Bool("fill", false, "fetch the BibTeX entry of every record")

	rootCmd.AddCommand(citedByCmd)
}

func runCitedBy(cmd *cobra.Command, args []string) error {
	id := args[0]
	if fromLink, ok := scholar.CitesID(id); ok {
		id = fromLink
	}
	if id == "" {
		return fmt.Errorf("empty cited-by id")
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	it, err := client.CitedBy(ctx, id)
	if err != nil {
		return err
	}
	return runListing(ctx, cmd, "cites:"+id, it)
}
