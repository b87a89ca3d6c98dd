// Package report renders the analysis of an imported session.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/roach88/zapgen/internal/deps"
	"github.com/roach88/zapgen/internal/store"
)

// Analyzer writes session reports.
type Analyzer struct {
	Out      io.Writer
	Resolver func(st *store.Store) *deps.Resolver
}

// NewAnalyzer returns an Analyzer writing to out. Component columns are
// filled through deps.NewResolver, which logs to log (slog.Default when nil).
func NewAnalyzer(out io.Writer, log *slog.Logger) *Analyzer {
	return &Analyzer{
		Out:      out,
		Resolver: func(st *store.Store) *deps.Resolver { return deps.NewResolver(st, log) },
	}
}

// Analyze writes the report for sessionID, imported from file.
func (a *Analyzer) Analyze(ctx context.Context, st *store.Store, sessionID int64, file string) error {
	sess, err := st.SessionByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", file, err)
	}
	pkgs, err := st.SessionPackages(ctx, sessionID)
	if err != nil {
		return err
	}
	kvs, err := st.SessionKeyValues(ctx, sessionID)
	if err != nil {
		return err
	}
	types, err := st.EndpointTypes(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "File: %s\n", file)
	fmt.Fprintf(a.Out, "Session: %s\n", sess.Key)
	for _, p := range pkgs {
		fmt.Fprintf(a.Out, "Package: %s (%s", p.Path, p.Type)
		if p.Version != "" {
			fmt.Fprintf(a.Out, ", version %s", p.Version)
		}
		fmt.Fprintln(a.Out, ")")
	}
	for _, kv := range kvs {
		fmt.Fprintf(a.Out, "Setting: %s = %s\n", kv.Key, kv.Value)
	}

	var resolver *deps.Resolver
	if a.Resolver != nil {
		resolver = a.Resolver(st)
	}

	t := table.NewWriter()
	t.SetOutputMirror(a.Out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ENDPOINT TYPE", "CLUSTER", "CODE", "SIDE", "ENABLED", "COMPONENTS"})

	enabled := 0
	for _, et := range types {
		for _, c := range et.Clusters {
			components := ""
			if resolver != nil && c.ClusterID != 0 && c.Enabled {
				out := resolver.ComponentIDs(ctx, sessionID, c.ClusterID, []string{c.Side})
				components = strings.Join(out.Components(), ", ")
			}
			if c.Enabled {
				enabled++
			}
			t.AppendRow(table.Row{et.Name, c.Name, fmt.Sprintf("0x%04X", c.Code), c.Side, yesNo(c.Enabled), components})
		}
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d enabled", enabled), ""})
	t.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
