package cli

import (
	"fmt"
	"os"

	"github.com/vvka-141/erpsync/internal/checksum"
	"github.com/vvka-141/erpsync/internal/config"
	"github.com/vvka-141/erpsync/internal/entity"
	"github.com/vvka-141/erpsync/internal/files/scanner"
	"github.com/vvka-141/erpsync/internal/params"
	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// resolveQueries merges query overrides.
// Priority (highest to lowest): --query > queries/<entity>.sql > erpsync.yaml
// A query file that only reformats the built-in query is ignored.
func resolveQueries(
	qs *scanner.Scanner,
	catalog *entity.Catalog,
	projectPath string,
	projectCfg *config.ProjectConfig,
	flagPairs []string,
	verbose bool,
) (map[string]string, error) {
	queries := projectCfg.Queries()

	files, err := qs.ScanQueries(projectPath)
	if err != nil {
		return nil, err
	}
	calc := checksum.New()
	for _, qf := range files {
		d, ok := catalog.Lookup(qf.Entity)
		if !ok {
			return nil, fmt.Errorf("%s: %q: %w", qf.Path, qf.Entity, erpsync.ErrUnknownEntity)
		}
		if calc.CalculateNormalized([]byte(d.Query)) == qf.Checksum {
			if verbose {
				fmt.Fprintf(os.Stderr, "[VERBOSE] %s matches the built-in %s query, ignored\n", qf.Path, d.Name)
			}
			delete(queries, d.Name)
			continue
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "[VERBOSE] %s query from %s (%s)\n", d.Name, qf.Path, checksum.Short(qf.Checksum))
		}
		queries[d.Name] = qf.Query
	}

	flagQueries, err := params.ParseQueryOverrides(flagPairs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", erpsync.ErrUsage, err)
	}
	for name, q := range flagQueries {
		queries[name] = q
	}
	if verbose && len(flagQueries) > 0 {
		fmt.Fprintf(os.Stderr, "[VERBOSE] --query overrides %d entity type(s)\n", len(flagQueries))
	}

	return queries, nil
}
