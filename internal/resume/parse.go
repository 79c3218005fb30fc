package resume

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

var headingPatterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindExperience, heading(`(?:(?:work|professional|relevant)\s+)?experience|employment(?:\s+history)?|(?:work|career)\s+history`)},
	{KindSummary, heading(`(?:professional\s+)?summary|profile|objective|about\s+me`)},
	{KindSkills, heading(`(?:technical|core|key)?\s*skills|core\s+competencies|technical\s+proficiencies`)},
	{KindEducation, heading(`education|academic\s+background|qualifications`)},
	{KindCertifications, heading(`certifications?|certificates|licen[cs]es?(?:\s*(?:&|and)\s*certifications?)?`)},
	{KindProjects, heading(`(?:key\s+|personal\s+)?projects`)},
	{KindOther, heading(`awards|honou?rs|publications|volunteer(?:ing)?(?:\s+experience)?|languages|interests|references`)},
}

func heading(alt string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^\s*#*\s*(?:` + alt + `)\s*:?\s*$`)
}

const datePoint = `\b(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{4}|\d{1,2}/\d{4}|\d{4})`

var (
	dateRangePattern = regexp.MustCompile(`(?i)` + datePoint + `\s*(?:-|–|—|to)\s*(?:` + datePoint + `|present|current|now)\b`)
	dateLinePattern  = regexp.MustCompile(`(?i)^\s*` + datePoint + `\s*(?:-|–|—|to)\s*(?:` + datePoint + `|present|current|now)\b`)
	bulletPattern    = regexp.MustCompile(`^(\s*)([-•*▪▸●○◦►])\s+(.*)$`)
)

// Parse splits text into header, sections and roles. It never fails; a résumé
// without an experience heading simply has no roles. Bullets under an
// experience heading with no role header above them form a headerless role.
func Parse(text string) *Resume {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	r := &Resume{}
	var current *Section
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if kind, ok := headingKind(line); ok {
			current = &Section{Kind: kind, Heading: line}
			r.Sections = append(r.Sections, current)
			continue
		}
		if current == nil {
			r.Header = append(r.Header, line)
			continue
		}
		if current.Kind != KindExperience {
			current.Lines = append(current.Lines, parseLine(line))
			continue
		}
		if isRoleBoundary(lines, i) || (canOpenRole(current) && isBareRoleHeader(lines, i)) {
			current.Roles = append(current.Roles, newRole(line, nextDateLine(lines, i)))
			continue
		}
		if n := len(current.Roles); n > 0 {
			current.Roles[n-1].Lines = append(current.Roles[n-1].Lines, parseLine(line))
		} else {
			current.Lines = append(current.Lines, parseLine(line))
		}
	}
	for _, sec := range r.Sections {
		if sec.Kind == KindExperience {
			adoptLooseBullets(sec)
		}
	}
	return r
}

// adoptLooseBullets moves bullets that sit directly under an experience
// heading, before any role header, into a headerless role.
func adoptLooseBullets(sec *Section) {
	first := slices.IndexFunc(sec.Lines, Line.IsBullet)
	if first < 0 {
		return
	}
	role := &Role{implicit: true, Lines: slices.Clone(sec.Lines[first:])}
	sec.Lines = sec.Lines[:first]
	sec.Roles = append([]*Role{role}, sec.Roles...)
}

func headingKind(line string) (Kind, bool) {
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	for _, p := range headingPatterns {
		if p.re.MatchString(line) {
			return p.kind, true
		}
	}
	return "", false
}

func parseLine(line string) Line {
	if m := bulletPattern.FindStringSubmatch(line); m != nil {
		return Line{Bullet: &Bullet{Indent: m[1], Marker: m[2], Text: m[3]}}
	}
	return Line{Text: line}
}

func isBulletLine(line string) bool {
	return bulletPattern.MatchString(line)
}

func isDateLine(line string) bool {
	return dateLinePattern.MatchString(line)
}

// isRoleBoundary decides whether lines[i] starts a new role: either a
// "Company | Title | Dates" line or a capitalized line that carries a date
// range itself or is directly followed by one.
func isRoleBoundary(lines []string, i int) bool {
	line := lines[i]
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || isBulletLine(line) || isDateLine(line) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(trimmed)
	if !unicode.IsUpper(first) {
		return false
	}
	if isPipeHeader(trimmed) {
		return true
	}
	if dateRangePattern.MatchString(trimmed) {
		return true
	}
	return nextDateLine(lines, i) != ""
}

// canOpenRole reports whether an undated header may start a role here: the
// section has no role yet or its last role already has a bullet.
func canOpenRole(sec *Section) bool {
	n := len(sec.Roles)
	return n == 0 || len(sec.Roles[n-1].Bullets()) > 0
}

// maxBareHeaderLength bounds undated headers so prose lines are not taken
// for roles.
const maxBareHeaderLength = 100

// isBareRoleHeader matches an undated header such as "Acme Corp - Senior
// Engineer": a capitalized line that is not a sentence and is followed by a
// bullet, with at most one blank line between.
func isBareRoleHeader(lines []string, i int) bool {
	trimmed := strings.TrimSpace(lines[i])
	if trimmed == "" || isBulletLine(lines[i]) || utf8.RuneCountInString(trimmed) > maxBareHeaderLength {
		return false
	}
	first, _ := utf8.DecodeRuneInString(trimmed)
	if !unicode.IsUpper(first) || strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, ":") {
		return false
	}
	for j := i + 1; j < len(lines) && j <= i+2; j++ {
		if strings.TrimSpace(lines[j]) == "" {
			continue
		}
		return isBulletLine(lines[j])
	}
	return false
}

func isPipeHeader(trimmed string) bool {
	if !strings.Contains(trimmed, "|") {
		return false
	}
	n := 0
	for _, f := range strings.Split(trimmed, "|") {
		if strings.TrimSpace(f) != "" {
			n++
		}
	}
	return n >= 2
}

// nextDateLine returns the trimmed line after i when it is a date line.
func nextDateLine(lines []string, i int) string {
	if i+1 < len(lines) && isDateLine(lines[i+1]) {
		return strings.TrimSpace(lines[i+1])
	}
	return ""
}

func newRole(line, dateLine string) *Role {
	trimmed := strings.TrimSpace(line)
	role := &Role{
		header: line,
		indent: line[:len(line)-len(strings.TrimLeft(line, " \t"))],
	}

	if isPipeHeader(trimmed) {
		role.piped = true
		var rest []string
		for _, f := range strings.Split(trimmed, "|") {
			f = strings.TrimSpace(f)
			role.fields = append(role.fields, f)
			switch {
			case f == "":
			case role.DateRange == "" && dateRangePattern.MatchString(f):
				role.DateRange = f
			default:
				rest = append(rest, f)
			}
		}
		assignNames(role, rest)
	} else {
		name := trimmed
		if loc := dateRangePattern.FindStringIndex(trimmed); loc != nil {
			role.DateRange = trimmed[loc[0]:loc[1]]
			name = strings.TrimSpace(trimmed[:loc[0]] + " " + trimmed[loc[1]:])
			name = strings.Trim(name, " ,;|–—-()")
		}
		assignNames(role, splitHeading(name))
	}

	if role.DateRange == "" && dateLine != "" {
		if loc := dateRangePattern.FindStringIndex(dateLine); loc != nil {
			role.DateRange = dateLine[loc[0]:loc[1]]
		}
	}
	return role
}

func assignNames(role *Role, parts []string) {
	if len(parts) > 0 {
		role.Company = parts[0]
	}
	if len(parts) > 1 {
		role.Title = parts[1]
	}
	if len(parts) > 2 {
		role.Location = strings.Join(parts[2:], ", ")
	}
}

// splitHeading splits "Title at Company" or "Company - Title" style headings.
func splitHeading(s string) []string {
	if title, company, ok := strings.Cut(s, " at "); ok {
		return []string{strings.TrimSpace(company), strings.TrimSpace(title)}
	}
	for _, sep := range []string{" — ", " – ", " - ", ", "} {
		if a, b, ok := strings.Cut(s, sep); ok {
			return []string{strings.TrimSpace(a), strings.TrimSpace(b)}
		}
	}
	if s == "" {
		return nil
	}
	return []string{s}
}
