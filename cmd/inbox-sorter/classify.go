package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obby/inbox-sorter/internal/classify"
	"github.com/obby/inbox-sorter/internal/patterns"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file>...",
		Short: "Print the category each file name would be sorted into",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			categories, err := cfg.CategoryMap()
			if err != nil {
				return err
			}
			matcher, err := patterns.NewMatcher(cfg.Ignore)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				name := filepath.Base(arg)
				switch {
				case matcher.IsTempArtifact(name):
					fmt.Fprintf(out, "%s\t(temp file, skipped)\n", name)
				case matcher.IsIgnored(name):
					fmt.Fprintf(out, "%s\t(ignored)\n", name)
				default:
					fmt.Fprintf(out, "%s\t%s\n", name, classify.Classify(name, categories))
				}
			}
			return nil
		},
	}
}

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the effective category table in lookup order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			categories, err := cfg.CategoryMap()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range categories.Categories() {
				if c.Name == classify.Fallback {
					fmt.Fprintf(out, "%s\t(everything else)\n", c.Name)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", c.Name, strings.Join(c.Extensions, " "))
			}
			return nil
		},
	}
}
