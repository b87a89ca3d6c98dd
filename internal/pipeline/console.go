package pipeline

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// console prints the human-facing progress lines of a run.
type console struct {
	out     io.Writer
	enabled bool
	warn    *color.Color
	fail    *color.Color
	done    *color.Color
}

func newConsole(out io.Writer, enabled bool) *console {
	if out == nil {
		out = io.Discard
	}
	return &console{
		out:     out,
		enabled: enabled,
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
		done:    color.New(color.FgGreen),
	}
}

func (c *console) start(format string, args ...any) {
	if c.enabled {
		fmt.Fprintf(c.out, "🤖 "+format+"\n", args...)
	}
}

func (c *console) step(format string, args ...any) {
	if c.enabled {
		fmt.Fprintf(c.out, "    👉 "+format+"\n", args...)
	}
}

func (c *console) warning(format string, args ...any) {
	if c.enabled {
		c.warn.Fprintf(c.out, "    ⚠️  "+format+"\n", args...)
	}
}

func (c *console) failure(format string, args ...any) {
	if c.enabled {
		c.fail.Fprintf(c.out, "    👎 "+format+"\n", args...)
	}
}

func (c *console) finish(format string, args ...any) {
	if c.enabled {
		c.done.Fprintf(c.out, "😎 "+format+"\n", args...)
	}
}
