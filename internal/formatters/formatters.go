package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"atstailor/internal/history"
	"atstailor/internal/keywords"
	"atstailor/internal/scoring"
	"atstailor/internal/tailor"
	"atstailor/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "TailorOutput", &TailorTextFormatter{})
	registry.RegisterFormatter("markdown", "TailorOutput", &TailorMarkdownFormatter{})
	registry.RegisterFormatter("resume", "TailorOutput", &ResumeFormatter{})
	registry.RegisterFormatter("text", "BatchOutput", &BatchFormatter{inner: &TailorTextFormatter{}})
	registry.RegisterFormatter("markdown", "BatchOutput", &BatchFormatter{inner: &TailorMarkdownFormatter{}, markdown: true})
	registry.RegisterFormatter("text", "ExtractOutput", &ExtractTextFormatter{})
	registry.RegisterFormatter("markdown", "ExtractOutput", &ExtractMarkdownFormatter{})
	registry.RegisterFormatter("text", "ScoreOutput", &ScoreTextFormatter{})
	registry.RegisterFormatter("markdown", "ScoreOutput", &ScoreTextFormatter{markdown: true})
	registry.RegisterFormatter("text", "Runs", &RunsTextFormatter{})
	registry.RegisterFormatter("text", "Summary", &SummaryTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.TailorOutput:
		return "TailorOutput"
	case types.BatchOutput:
		return "BatchOutput"
	case types.ExtractOutput:
		return "ExtractOutput"
	case types.ScoreOutput:
		return "ScoreOutput"
	case []history.Run:
		return "Runs"
	case history.Summary:
		return "Summary"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ResumeFormatter emits only the tailored résumé text
type ResumeFormatter struct{}

func (rf *ResumeFormatter) Format(data any) (string, error) {
	out, ok := data.(types.TailorOutput)
	if !ok || out.Result == nil {
		return "", fmt.Errorf("expected TailorOutput, got %T", data)
	}
	return out.Result.TailoredResumeText, nil
}

func (rf *ResumeFormatter) SupportedType() string {
	return "TailorOutput"
}

// TailorTextFormatter handles text formatting for tailor results
type TailorTextFormatter struct{}

func (ttf *TailorTextFormatter) Format(data any) (string, error) {
	out, ok := data.(types.TailorOutput)
	if !ok || out.Result == nil {
		return "", fmt.Errorf("expected TailorOutput, got %T", data)
	}
	result := out.Result
	report := result.InjectionReport

	var output strings.Builder
	output.WriteString("=== TAILORED RESUME ===\n\n")
	output.WriteString(strings.TrimRight(result.TailoredResumeText, "\n"))
	output.WriteString("\n\n")

	output.WriteString("=== ATS MATCH ===\n")
	if out.Job != "" {
		fmt.Fprintf(&output, "Job: %s\n", out.Job)
	}
	fmt.Fprintf(&output, "Score: %d%% (was %d%%)\n", result.MatchScore, result.OriginalScore)
	fmt.Fprintf(&output, "Passes: %d, insertions: %d\n", report.Passes, len(report.Insertions))
	writeWarnings(&output, report.Warnings, "Warning: %s\n")
	output.WriteString("\n")

	writeKeywordTiers(&output, result.KeywordSet, "%s: %s\n")

	if len(report.Missing) > 0 {
		fmt.Fprintf(&output, "\nStill missing: %s\n", strings.Join(report.Missing, ", "))
	}

	if len(report.Insertions) > 0 {
		output.WriteString("\n=== CHANGES ===\n")
		for _, ins := range report.Insertions {
			fmt.Fprintf(&output, "+ %-20s %-12s %s\n", ins.Keyword, ins.Strategy, ins.After)
		}
	}

	if cov := report.Coverage; cov != nil {
		output.WriteString("\n=== COVERAGE ===\n")
		fmt.Fprintf(&output, "%d of %d keywords on target, %d words\n", cov.MetCount, len(cov.Keywords), cov.TotalWords)
		for _, kc := range cov.Keywords {
			fmt.Fprintf(&output, "%-24s %-6s %d -> %d (target %s)%s\n",
				kc.Keyword, kc.Tier, kc.Original, kc.Final, kc.Target, coverageFlag(kc))
		}
	}

	return output.String(), nil
}

func (ttf *TailorTextFormatter) SupportedType() string {
	return "TailorOutput"
}

// TailorMarkdownFormatter handles markdown formatting for tailor results
type TailorMarkdownFormatter struct{}

func (tmf *TailorMarkdownFormatter) Format(data any) (string, error) {
	out, ok := data.(types.TailorOutput)
	if !ok || out.Result == nil {
		return "", fmt.Errorf("expected TailorOutput, got %T", data)
	}
	result := out.Result
	report := result.InjectionReport

	var output strings.Builder
	output.WriteString("# Tailored Resume\n\n")
	if out.Job != "" {
		fmt.Fprintf(&output, "_Job: %s_\n\n", out.Job)
	}
	output.WriteString("```\n")
	output.WriteString(strings.TrimRight(result.TailoredResumeText, "\n"))
	output.WriteString("\n```\n\n")

	output.WriteString("## ATS Match\n\n")
	fmt.Fprintf(&output, "**Score:** %d%% (was %d%%)\n\n", result.MatchScore, result.OriginalScore)
	fmt.Fprintf(&output, "**Passes:** %d · **Insertions:** %d\n\n", report.Passes, len(report.Insertions))
	writeWarnings(&output, report.Warnings, "> **Warning:** %s\n")

	output.WriteString("## Keywords\n\n")
	writeKeywordTiers(&output, result.KeywordSet, "- **%s:** %s\n")

	if cov := report.Coverage; cov != nil && len(cov.Keywords) > 0 {
		output.WriteString("\n## Coverage\n\n")
		output.WriteString("| Keyword | Tier | Before | After | Target | Status |\n")
		output.WriteString("|---|---|---|---|---|---|\n")
		for _, kc := range cov.Keywords {
			fmt.Fprintf(&output, "| %s | %s | %d | %d | %s | %s |\n",
				kc.Keyword, kc.Tier, kc.Original, kc.Final, kc.Target, coverageStatus(kc))
		}
	}

	if len(report.Insertions) > 0 {
		output.WriteString("\n## Changes\n\n")
		for _, ins := range report.Insertions {
			fmt.Fprintf(&output, "- `%s` (%s): %s\n", ins.Keyword, ins.Strategy, ins.After)
		}
	}

	return output.String(), nil
}

func (tmf *TailorMarkdownFormatter) SupportedType() string {
	return "TailorOutput"
}

// BatchFormatter formats each run of a batch with an inner formatter
type BatchFormatter struct {
	inner    Formatter
	markdown bool
}

func (bf *BatchFormatter) Format(data any) (string, error) {
	batch, ok := data.(types.BatchOutput)
	if !ok {
		return "", fmt.Errorf("expected BatchOutput, got %T", data)
	}
	var output strings.Builder
	for i, run := range batch.Runs {
		if i > 0 {
			if bf.markdown {
				output.WriteString("\n---\n\n")
			} else {
				output.WriteString("\n" + strings.Repeat("=", 60) + "\n\n")
			}
		}
		text, err := bf.inner.Format(run)
		if err != nil {
			return "", err
		}
		output.WriteString(text)
	}
	return output.String(), nil
}

func (bf *BatchFormatter) SupportedType() string {
	return "BatchOutput"
}

// ExtractTextFormatter lists keywords by tier
type ExtractTextFormatter struct{}

func (etf *ExtractTextFormatter) Format(data any) (string, error) {
	out, ok := data.(types.ExtractOutput)
	if !ok {
		return "", fmt.Errorf("expected ExtractOutput, got %T", data)
	}
	var output strings.Builder
	output.WriteString("=== KEYWORDS ===\n")
	if out.Job != "" {
		fmt.Fprintf(&output, "Job: %s\n", out.Job)
	}
	fmt.Fprintf(&output, "Total: %d\n\n", out.Keywords.Len())
	writeKeywordTiers(&output, out.Keywords, "%s: %s\n")
	return output.String(), nil
}

func (etf *ExtractTextFormatter) SupportedType() string {
	return "ExtractOutput"
}

// ExtractMarkdownFormatter lists keywords by tier as markdown
type ExtractMarkdownFormatter struct{}

func (emf *ExtractMarkdownFormatter) Format(data any) (string, error) {
	out, ok := data.(types.ExtractOutput)
	if !ok {
		return "", fmt.Errorf("expected ExtractOutput, got %T", data)
	}
	var output strings.Builder
	output.WriteString("# Job Keywords\n\n")
	for _, tier := range keywords.Tiers {
		fmt.Fprintf(&output, "## %s priority\n\n", tierTitle(tier))
		words := out.Keywords.Tier(tier)
		if len(words) == 0 {
			output.WriteString("_none_\n\n")
			continue
		}
		for _, w := range words {
			fmt.Fprintf(&output, "- %s\n", w)
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (emf *ExtractMarkdownFormatter) SupportedType() string {
	return "ExtractOutput"
}

// ScoreTextFormatter reports a match score
type ScoreTextFormatter struct {
	markdown bool
}

func (stf *ScoreTextFormatter) Format(data any) (string, error) {
	out, ok := data.(types.ScoreOutput)
	if !ok {
		return "", fmt.Errorf("expected ScoreOutput, got %T", data)
	}
	var output strings.Builder
	if stf.markdown {
		fmt.Fprintf(&output, "# ATS Match: %d%%\n\n", out.Score.Percent)
		writeScoreList(&output, "## Matched", out.Score.Matched, "- %s\n")
		writeScoreList(&output, "## Missing", out.Score.Missing, "- %s\n")
		return output.String(), nil
	}
	fmt.Fprintf(&output, "Score: %d%% (%d of %d keywords)\n", out.Score.Percent, len(out.Score.Matched), out.Score.Total)
	writeScoreList(&output, "Matched:", out.Score.Matched, "  %s\n")
	writeScoreList(&output, "Missing:", out.Score.Missing, "  %s\n")
	return output.String(), nil
}

func (stf *ScoreTextFormatter) SupportedType() string {
	return "ScoreOutput"
}

// RunsTextFormatter prints recorded runs as a table
type RunsTextFormatter struct{}

func (rtf *RunsTextFormatter) Format(data any) (string, error) {
	runs, ok := data.([]history.Run)
	if !ok {
		return "", fmt.Errorf("expected []history.Run, got %T", data)
	}
	if len(runs) == 0 {
		return "No runs recorded.\n", nil
	}
	var output strings.Builder
	fmt.Fprintf(&output, "%-36s  %-20s  %-6s  %5s  %5s  %4s  %s\n", "ID", "CREATED", "SOURCE", "FROM", "TO", "INS", "WARNINGS")
	for _, r := range runs {
		fmt.Fprintf(&output, "%-36s  %-20s  %-6s  %4d%%  %4d%%  %4d  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source,
			r.OriginalScore, r.MatchScore, r.Insertions, strings.Join(r.Warnings, ","))
	}
	return output.String(), nil
}

func (rtf *RunsTextFormatter) SupportedType() string {
	return "Runs"
}

// SummaryTextFormatter prints aggregate run statistics
type SummaryTextFormatter struct{}

func (stf *SummaryTextFormatter) Format(data any) (string, error) {
	sum, ok := data.(history.Summary)
	if !ok {
		return "", fmt.Errorf("expected history.Summary, got %T", data)
	}
	var output strings.Builder
	fmt.Fprintf(&output, "Runs:               %d\n", sum.Runs)
	fmt.Fprintf(&output, "Average score:      %.1f%% -> %.1f%%\n", sum.AverageOriginal, sum.AverageMatch)
	fmt.Fprintf(&output, "Total insertions:   %d\n", sum.TotalInsertions)
	fmt.Fprintf(&output, "Runs with warnings: %d\n", sum.RunsWithWarnings)
	return output.String(), nil
}

func (stf *SummaryTextFormatter) SupportedType() string {
	return "Summary"
}

func writeKeywordTiers(b *strings.Builder, set keywords.Set, line string) {
	for _, tier := range keywords.Tiers {
		words := set.Tier(tier)
		joined := "-"
		if len(words) > 0 {
			joined = strings.Join(words, ", ")
		}
		fmt.Fprintf(b, line, tierTitle(tier), joined)
	}
}

func writeWarnings(b *strings.Builder, warnings []tailor.Warning, line string) {
	for _, w := range warnings {
		fmt.Fprintf(b, line, w)
	}
}

func writeScoreList(b *strings.Builder, title string, words []string, line string) {
	if len(words) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, w := range words {
		fmt.Fprintf(b, line, w)
	}
	if strings.HasPrefix(title, "#") {
		b.WriteString("\n")
	}
}

func tierTitle(t keywords.Tier) string {
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

func coverageFlag(kc scoring.KeywordCoverage) string {
	switch {
	case kc.OverDensity:
		return fmt.Sprintf("  [density %.1f%%]", kc.Density)
	case !kc.Met:
		return "  [below target]"
	default:
		return ""
	}
}

func coverageStatus(kc scoring.KeywordCoverage) string {
	switch {
	case kc.OverDensity:
		return fmt.Sprintf("dense (%.1f%%)", kc.Density)
	case kc.Met:
		return "met"
	default:
		return "below"
	}
}

// GlobalRegistry is the registry used by commands and the server
var GlobalRegistry = NewFormatterRegistry()
