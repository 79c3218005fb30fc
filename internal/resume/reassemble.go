package resume

import (
	"regexp"
	"strings"
)

// ReassembleOptions controls how a résumé is written back to text.
type ReassembleOptions struct {
	// BulletMarker replaces every bullet marker when set; empty keeps each
	// bullet's original marker.
	BulletMarker string
}

var blankRun = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)

// Reassemble writes the résumé back out with original bullet markers.
func (r *Resume) Reassemble() string {
	return r.ReassembleWith(ReassembleOptions{})
}

// ReassembleWith writes header, then every section in discovery order.
// Runs of blank lines collapse to a single blank line.
func (r *Resume) ReassembleWith(opts ReassembleOptions) string {
	out := make([]string, 0, len(r.Header)+len(r.Sections)*8)
	out = append(out, r.Header...)
	for _, s := range r.Sections {
		out = append(out, s.Heading)
		for _, l := range s.Lines {
			out = append(out, l.render(opts.BulletMarker))
		}
		for _, role := range s.Roles {
			if role.HasHeader() {
				out = append(out, role.Header())
			}
			for _, l := range role.Lines {
				out = append(out, l.render(opts.BulletMarker))
			}
		}
	}
	return blankRun.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
}
