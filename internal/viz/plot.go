package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"toksim/internal/plasma"
)

const (
	chartWidth  = 60
	chartHeight = 8
)

// ProfileChart plots one radial profile against normalized radius.
func ProfileChart(caption string, values []float64) string {
	return asciigraph.Plot(values,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Caption(caption),
	)
}

// TraceChart plots a scalar time trace.
func TraceChart(caption string, values []float64) string {
	return asciigraph.Plot(values,
		asciigraph.Height(chartHeight),
		asciigraph.Width(chartWidth),
		asciigraph.Caption(caption),
	)
}

// RenderState renders the standard profile panel for one state: both
// temperatures, density and safety factor.
func RenderState(st *plasma.State) string {
	var b strings.Builder
	b.WriteString(ProfileChart(fmt.Sprintf("Ti [keV]  t=%.3fs", st.Time), st.TiCell))
	b.WriteString("\n\n")
	b.WriteString(ProfileChart("Te [keV]", st.TeCell))
	b.WriteString("\n\n")
	b.WriteString(ProfileChart("ne [1e20 m^-3]", st.NeCell))
	if len(st.QFace) > 0 {
		b.WriteString("\n\n")
		b.WriteString(ProfileChart("q (safety factor)", st.QFace))
	}
	return b.String()
}

// RenderProfiles renders named profiles loaded from a stored history.
func RenderProfiles(named map[string][]float64, order []string) string {
	var b strings.Builder
	for i, name := range order {
		values, ok := named[name]
		if !ok || len(values) == 0 {
			continue
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(ProfileChart(name, values))
	}
	return b.String()
}
