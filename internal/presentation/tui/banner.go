package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{` ___ _   _                            `, "#38bdf8"},
	{`|_ _| |_(_)_ __   ___ _ __ __ _       `, "#22d3ee"},
	{` | || __| | '_ \ / _ \ '__/ _` + "`" + ` |      `, "#2dd4bf"},
	{` | || |_| | | | |  __/ | | (_| |      `, "#34d399"},
	{`|___|\__|_|_| |_|\___|_|  \__,_|      `, "#a3e635"},
}

// PrintBanner writes the ASCII banner followed by the version line.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  AI travel planner v"+v).Faint())
	}
	fmt.Fprintln(w)
}
