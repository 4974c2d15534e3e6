package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/plugin"
)

// plugins discovers the configured plugin directory and returns a sink
// dispatching to it, or nil when no plugin is installed.
func (c *cli) plugins() (*plugin.Dispatcher, error) {
	mgr := plugin.NewManager(expandHome(c.cfg.Plugins.Dir), c.logger)
	if err := mgr.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}

	found := mgr.List()
	if len(found) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(found))
	for _, p := range found {
		names = append(names, p.Manifest.Name)
	}
	c.logger.Info().Strs("plugins", names).Msg("plugins loaded")

	return plugin.NewDispatcher(mgr, plugin.NewExecutor(c.cfg.Plugins.Timeout), c.cfg.Plugins.Concurrency, c.logger), nil
}

func newPluginsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List installed gesture plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := expandHome(c.cfg.Plugins.Dir)
			mgr := plugin.NewManager(dir, c.logger)
			if err := mgr.Discover(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			found := mgr.List()
			if len(found) == 0 {
				fmt.Fprintf(out, "no plugins in %s\n", dir)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tGESTURES\tDESCRIPTION")
			for _, p := range found {
				gestures := "all"
				if len(p.Manifest.Gestures) > 0 {
					gestures = strings.Join(p.Manifest.Gestures, ",")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Manifest.Name, p.Manifest.Version, gestures, p.Manifest.Description)
			}
			return w.Flush()
		},
	}
}
