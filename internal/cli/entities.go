package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/erpsync/internal/checksum"
	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/files/scanner"
	"github.com/vvka-141/erpsync/internal/tui"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities [project_dir]",
	Short: "List the entity types in load order",
	Long: `Entities lists the frePPLe input tables erpsync loads, in the order a pass
loads them, with their natural key and the entity types they reference.

Query overrides (erpsync.yaml or queries/<entity>.sql) and disabled
entries are marked. With
--show-queries the effective ERP query of every entity type is printed.`,
	Args:              OptionalProjectDir,
	ValidArgsFunction: completeDirectories,
	RunE:              runEntities,
}

var entitiesShowQueries bool

func init() {
	rootCmd.AddCommand(entitiesCmd)
	entitiesCmd.Flags().BoolVar(&entitiesShowQueries, "show-queries", false,
		"Print the effective ERP query of each entity type")
}

// catalogEntries marks the catalog with the overrides and disabled entries of the project.
func catalogEntries(catalog *entity.Catalog, queries map[string]string, disabled []string) ([]tui.CatalogEntry, error) {
	if _, err := catalog.Select(nil, disabled, queries); err != nil {
		return nil, fmt.Errorf("%w: %w", erpsync.ErrInvalidConfig, err)
	}

	off := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		if d, ok := catalog.Lookup(name); ok {
			off[d.Name] = true
		}
	}

	var entries []tui.CatalogEntry
	for _, d := range catalog.Entities() {
		entry := tui.CatalogEntry{Descriptor: d, Disabled: off[d.Name]}
		if q, ok := queries[d.Name]; ok && q != "" {
			entry.Descriptor = d.WithQuery(q)
			entry.Overridden = true
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func runEntities(cmd *cobra.Command, args []string) error {
	dir := projectDir(args)
	projectCfg, err := loadProjectConfig(dir)
	if err != nil {
		return err
	}

	catalog := entity.FrePPLe()
	queries, err := resolveQueries(
		scanner.NewScanner(checksum.New()), catalog, dir, projectCfg, nil, getVerboseFlag(cmd))
	if err != nil {
		return err
	}

	entries, err := catalogEntries(catalog, queries, projectCfg.Disabled())
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, tui.RenderCatalog(entries))
	if entitiesShowQueries {
		for _, e := range entries {
			fmt.Fprintf(os.Stdout, "\n-- %s\n%s\n", e.Descriptor.Name, e.Descriptor.Query)
		}
	}
	return nil
}
