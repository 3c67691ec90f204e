package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/trezcool/schoolhealth/core/listing"
)

// listFlags are the list page controls of a list command.
type listFlags struct {
	search   string
	status   string
	ordering string
	page     int
}

func (f *listFlags) register(cmd *cobra.Command, statusHelp string) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "free-text search")
	cmd.Flags().StringVar(&f.status, "status", "", statusHelp)
	cmd.Flags().StringVar(&f.ordering, "sort", "", `sort key, "-" prefixed for descending order`)
	cmd.Flags().IntVarP(&f.page, "page", "p", 1, "page number")
}

func (f *listFlags) apply(ctl interface {
	SetSearch(string)
	SetStatus(string)
	SetOrdering(string) error
	SetPage(int)
}) error {
	ctl.SetSearch(f.search)
	ctl.SetStatus(f.status)
	if err := ctl.SetOrdering(f.ordering); err != nil {
		return fmt.Errorf("%w: %q", err, f.ordering)
	}
	ctl.SetPage(f.page)
	return nil
}

// printTable writes rows under header, aligned in columns.
func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func printPageInfo(w io.Writer, info listing.PageInfo) {
	fmt.Fprintf(w, "\nPage %d/%d, %d %s\n", info.Number, info.TotalPages, info.TotalItems,
		plural(info.TotalItems, "record", "records"))
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

// since formats t relative to now, as in "3 days ago".
func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
