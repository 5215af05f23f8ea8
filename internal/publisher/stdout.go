package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdoutPublisher prints the digest to stdout.
type StdoutPublisher struct {
	out io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{out: os.Stdout}
}

func (p *StdoutPublisher) Publish(_ context.Context, edition *Edition) error {
	d := edition.Digest
	w := p.out

	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "%s\n", d.Title)
	fmt.Fprintf(w, "Date: %s\n", d.Date.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Articles: %d (showing %d)\n", d.Total, d.Shown())
	fmt.Fprintln(w, strings.Repeat("=", 72))

	for _, s := range d.Sections {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s (%d)\n", s.Label, s.Count)
		fmt.Fprintln(w, strings.Repeat("-", 72))
		for i, a := range s.Articles {
			fmt.Fprintf(w, "%d. %s\n", i+1, a.Title)
			fmt.Fprintf(w, "   %s | %s | %s\n", a.Source, a.Author, a.PublishDate.Format("2006-01-02 15:04"))
			fmt.Fprintf(w, "   URL: %s\n", a.URL)
			if len(a.Tags) > 0 {
				fmt.Fprintf(w, "   Tags: %s\n", strings.Join(a.Tags, ", "))
			}
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 72))
	return nil
}
