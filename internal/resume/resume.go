// Package resume parses plain-text résumés into sections and roles and writes
// them back out. Parsing never drops a line: every input line ends up in the
// header, a section body or a role.
package resume

import "strings"

// Kind is the canonical name of a section.
type Kind string

const (
	KindSummary        Kind = "summary"
	KindExperience     Kind = "experience"
	KindSkills         Kind = "skills"
	KindEducation      Kind = "education"
	KindCertifications Kind = "certifications"
	KindProjects       Kind = "projects"
	KindOther          Kind = "other"
)

// Bullet is a list item. Only Text may be edited.
type Bullet struct {
	Indent string
	Marker string
	Text   string
}

// Line is one body line: either a bullet or verbatim text.
type Line struct {
	Text   string
	Bullet *Bullet
}

// IsBullet reports whether the line is a list item.
func (l Line) IsBullet() bool {
	return l.Bullet != nil
}

// Content returns the editable text of the line.
func (l Line) Content() string {
	if l.Bullet != nil {
		return l.Bullet.Text
	}
	return l.Text
}

func (l Line) render(marker string) string {
	if l.Bullet == nil {
		return l.Text
	}
	m := l.Bullet.Marker
	if marker != "" {
		m = marker
	}
	return l.Bullet.Indent + m + " " + l.Bullet.Text
}

// Role is one entry of the experience section. Company, Title, DateRange and
// Location are copied verbatim from the header and are never rewritten.
type Role struct {
	Company   string
	Title     string
	DateRange string
	Location  string

	header   string
	indent   string
	piped    bool
	implicit bool
	fields   []string

	Lines []Line
}

// HasHeader reports whether the role was opened by a header line. Bullets
// listed directly under the experience heading form a role without one.
func (r *Role) HasHeader() bool {
	return !r.implicit
}

// Header returns the role header as it will be written, or "" for a role
// without one.
func (r *Role) Header() string {
	if r.implicit {
		return ""
	}
	if !r.piped {
		return r.header
	}
	parts := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return r.indent + strings.Join(parts, " | ")
}

// Bullets returns pointers to the role's bullets in order.
func (r *Role) Bullets() []*Bullet {
	var out []*Bullet
	for _, l := range r.Lines {
		if l.Bullet != nil {
			out = append(out, l.Bullet)
		}
	}
	return out
}

// Text returns the role header and body joined by newlines.
func (r *Role) Text() string {
	lines := make([]string, 0, len(r.Lines)+1)
	if r.HasHeader() {
		lines = append(lines, r.Header())
	}
	for _, l := range r.Lines {
		lines = append(lines, l.render(""))
	}
	return strings.Join(lines, "\n")
}

// Section is a headed block of the résumé.
type Section struct {
	Kind    Kind
	Heading string
	// Lines is the section body. In an experience section it holds only the
	// lines that come before the first role.
	Lines []Line
	Roles []*Role
}

// Text returns the section body as plain text, without the heading.
func (s *Section) Text() string {
	var parts []string
	for _, l := range s.Lines {
		parts = append(parts, l.render(""))
	}
	for _, r := range s.Roles {
		parts = append(parts, r.Text())
	}
	return strings.Join(parts, "\n")
}

// AppendLine adds text after the last non-blank body line of the section.
func (s *Section) AppendLine(text string) {
	idx := len(s.Lines)
	for idx > 0 && strings.TrimSpace(s.Lines[idx-1].render("")) == "" {
		idx--
	}
	s.Lines = append(s.Lines[:idx], append([]Line{{Text: text}}, s.Lines[idx:]...)...)
}

// Resume is a parsed résumé.
type Resume struct {
	Header   []string
	Sections []*Section
}

// Section returns the first section of the given kind.
func (r *Resume) Section(kind Kind) *Section {
	for _, s := range r.Sections {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

// Experience returns the first experience section, or nil.
func (r *Resume) Experience() *Section {
	return r.Section(KindExperience)
}

// HasExperience reports whether an experience heading was found.
func (r *Resume) HasExperience() bool {
	return r.Experience() != nil
}

// Roles returns the roles of every experience section in document order.
func (r *Resume) Roles() []*Role {
	var roles []*Role
	for _, s := range r.Sections {
		if s.Kind == KindExperience {
			roles = append(roles, s.Roles...)
		}
	}
	return roles
}
