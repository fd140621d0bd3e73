package export

import (
	"fmt"
	"os"
	"strings"
)

// Series is one radial profile to draw: values over normalized radius.
type Series struct {
	Name   string
	Values []float64
	Color  string
}

// ProfilesToSVG renders radial profiles as SVG polylines on a shared
// normalized-radius axis, one color per profile, each scaled to its own
// range so shapes stay comparable.
func ProfilesToSVG(series []Series, width, height int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	margin := 30.0
	plotW := float64(width) - 2*margin
	plotH := float64(height) - 2*margin

	// axes
	sb.WriteString(fmt.Sprintf(`<g stroke="#444466" stroke-width="1">
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
</g>
`, margin, margin+plotH, margin+plotW, margin+plotH,
		margin, margin, margin, margin+plotH))

	for si, s := range series {
		if len(s.Values) < 2 {
			continue
		}
		lo, hi := s.Values[0], s.Values[0]
		for _, v := range s.Values {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		rng := hi - lo
		if rng == 0 {
			rng = 1
		}

		var points []string
		n := len(s.Values)
		for i, v := range s.Values {
			x := margin + plotW*float64(i)/float64(n-1)
			y := margin + plotH*(1-(v-lo)/rng)
			points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
		}
		sb.WriteString(fmt.Sprintf(`<polyline fill="none" stroke="%s" stroke-width="2" points="%s"/>
`, s.Color, strings.Join(points, " ")))

		// legend entry
		ly := margin + 16*float64(si)
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="%s" font-size="12" font-family="monospace">%s</text>
`, margin+plotW-140, ly, s.Color, s.Name))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// WriteProfilesSVG renders and writes the plot to a file.
func WriteProfilesSVG(path string, series []Series, width, height int) error {
	return os.WriteFile(path, []byte(ProfilesToSVG(series, width, height)), 0644)
}
