package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terra-clan/library-dashboard/internal/models"
)

var (
	listSearch   string
	listCategory string
	listSort     string
	listPage     int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of the document list",
	Long: `Loads all documents and prints the requested page after applying the
search text, category and sort key. Search uses the local match only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.manager.Close()

		return runList(cmd.Context(), st, cmd.OutOrStdout(), listOptions{
			search:   listSearch,
			category: listCategory,
			sort:     listSort,
			page:     listPage,
		})
	},
}

type listOptions struct {
	search   string
	category string
	sort     string
	page     int
}

// runList prints one page of the view. A failed load prints the empty list,
// the same as the dashboard shows.
func runList(ctx context.Context, st *stack, out io.Writer, opts listOptions) error {
	c := st.controller
	if err := st.manager.Reload(ctx); err != nil {
		slog.Warn("showing an empty document list", "error", err)
	}
	c.SetCategory(opts.category)
	c.SetSort(models.ParseSortKey(opts.sort))
	if opts.search != "" {
		// local predicate only; the pending remote search dies with Close
		c.SetSearchText(opts.search)
	}
	for i := 1; i < opts.page; i++ {
		c.NextPage()
	}

	printView(out, c.View())
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dashboard totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.manager.Close()

		s := st.manager.Stats(cmd.Context())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Documents: %d\n", s.TotalDocuments)
		fmt.Fprintf(out, "Downloads: %d\n", s.TotalDownloads)
		fmt.Fprintf(out, "Users:     %d\n", s.TotalUsers)
		fmt.Fprintf(out, "Tags:      %d\n", s.TotalTags)
		return nil
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print downloads per day and documents per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.manager.Close()

		a := st.manager.Analytics(cmd.Context())
		out := cmd.OutOrStdout()
		printSeries(out, a.Downloads)
		fmt.Fprintf(out, "\n%d documents in %d categories\n", a.TotalDocuments, a.TotalCategories)

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tDOCUMENTS")
		for _, c := range a.Categories {
			fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Count)
		}
		return w.Flush()
	},
}

var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "Print the download counter for the last seven days",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStack(cmd.Context())
		if err != nil {
			return err
		}
		defer st.manager.Close()

		series, total, err := st.manager.DownloadSeries(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printSeries(out, series)
		fmt.Fprintf(out, "\nTotal downloads: %d\n", total)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "search text")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "category filter")
	listCmd.Flags().StringVar(&listSort, "sort", "", "sort key: title, author, date or downloads")
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "page number")

	rootCmd.AddCommand(listCmd, statsCmd, analyticsCmd, downloadsCmd)
}

func openStack(ctx context.Context) (*stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildStack(ctx, cfg, nil)
}

func printView(out io.Writer, v models.View) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCATEGORY\tUPLOADED\tTAGS")
	for _, d := range v.Documents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Title, d.Author, d.Category, d.UploadDate, strings.Join(d.Tags, ", "))
	}
	w.Flush()

	p := v.Pagination
	fmt.Fprintf(out, "\nPage %d of %d (%d documents)\n", p.CurrentPage, p.TotalPages, p.TotalItems)
}

func printSeries(out io.Writer, series []models.DailyDownloads) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tDATE\tDOWNLOADS")
	for _, d := range series {
		fmt.Fprintf(w, "%s\t%s\t%d\n", d.Day, d.Date, d.Count)
	}
	w.Flush()
}
