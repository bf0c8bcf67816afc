package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foomo/contentsite/content"
	"github.com/foomo/contentsite/sanitize"
	"github.com/foomo/contentsite/service"
	"github.com/foomo/contentsite/tutorials"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPageCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "page <slug>",
		Short: "Fetch a published page and print it with its posts as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site := a.newSite()
			defer site.Close()
			doc, err := site.Document(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass the page cache")
	return cmd
}

func newNavCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "nav",
		Short: "Print the merged navigation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			site := a.newSite()
			defer site.Close()
			start(cmd, a, site)
			return a.print(cmd.OutOrStdout(), site.Navigation())
		},
	}
}

func newTutorialsCmd(a *app) *cobra.Command {
	var topic, query string
	cmd := &cobra.Command{
		Use:   "tutorials",
		Short: "List or search tutorials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			site := a.newSite()
			defer site.Close()
			if query != "" {
				found, err := site.SearchTutorials(cmd.Context(), query, topic)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), found)
			}
			snapshot := site.LoadTutorials(cmd.Context())
			if snapshot.State == tutorials.StateFailed {
				return fmt.Errorf("failed to load tutorials after %d attempts: %w", snapshot.Attempts, snapshot.Err)
			}
			return a.print(cmd.OutOrStdout(), site.Tutorials().Filter(topic))
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "only tutorials with this topic")
	cmd.Flags().StringVarP(&query, "search", "q", "", "full text search")
	return cmd
}

func newContentCmd(a *app) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "content [section]",
		Short: "Print site content, or update a section with --set",
		Long: `Print all content sections, or a single one. With --set the given JSON
replaces the section on the server. Known sections: ` + strings.Join(keyNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site := a.newSite()
			defer site.Close()
			start(cmd, a, site)
			if len(args) == 0 {
				if value != "" {
					return errors.New("--set needs a section")
				}
				return a.print(cmd.OutOrStdout(), site.Sections())
			}
			key, err := content.ParseKey(args[0])
			if err != nil {
				return err
			}
			sections := site.Sections()
			if value != "" {
				if sections, err = site.UpdateSection(cmd.Context(), key, value); err != nil {
					return err
				}
			}
			section, err := sections.Get(key)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), section)
		},
	}
	cmd.Flags().StringVar(&value, "set", "", "JSON value to store for the section")
	return cmd
}

func keyNames() []string {
	keys := content.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return names
}

func newSlugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slug <title>...",
		Short: "Turn a title into a slug",
		Args:  cobra.MinimumNArgs(1),
		// pure function, no configuration needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := sanitize.SanitizeSlug(strings.Join(args, " "))
			if slug == "" {
				return fmt.Errorf("no slug can be made from %q", strings.Join(args, " "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), slug)
			return nil
		},
	}
}

func newURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "url <target>",
		Short:             "Check a link target against the allowed schemes",
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := sanitize.SanitizeExternalURL(args[0])
			if !ok {
				return fmt.Errorf("url %q is not allowed", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

// start loads the site; failures are logged and leave the defaults in place.
func start(cmd *cobra.Command, a *app, site *service.Site) {
	if err := site.Start(cmd.Context()); err != nil {
		a.logger.Warn("site started with fallbacks", zap.Error(err))
	}
}
