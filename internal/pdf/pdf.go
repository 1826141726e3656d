// Package pdf renders analytics reports as PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"

	"tg_analytics/internal/model"
)

const (
	fontFamily    = "report"
	topPostsInPDF = 3
	previewInPDF  = 50
)

// SystemFonts are common locations of a TTF font with Cyrillic coverage.
var SystemFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\arial.ttf`,
}

// FindFont returns the first candidate that is a regular file, or "".
func FindFont(candidates []string) string {
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

// Renderer builds PDF reports. With a TTF font path set, text is embedded as
// UTF-8; otherwise the core Helvetica font with cp1252 encoding is used.
type Renderer struct {
	fontPath string
}

// NewRenderer creates a Renderer. fontPath may be empty.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath}
}

// Render produces the PDF for a report and an optional narrative.
func (r *Renderer) Render(rep *model.Report, narrative string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(14, 14, 14)
	doc.SetAutoPageBreak(true, 14)

	family, tr := "Helvetica", doc.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		doc.AddUTF8Font(fontFamily, "", r.fontPath)
		doc.AddUTF8Font(fontFamily, "B", r.fontPath)
		family, tr = fontFamily, func(s string) string { return s }
	}
	text := func(s string) string { return tr(stripSymbols(s)) }

	doc.AddPage()

	doc.SetFont(family, "B", 16)
	doc.MultiCell(0, 8, text("Analytics report: "+rep.ChannelInfo.Title), "", "C", false)
	doc.Ln(2)

	doc.SetFont(family, "", 9)
	doc.SetTextColor(110, 110, 110)
	period := fmt.Sprintf("Analysis period: %d hours (%s - %s)",
		rep.AnalysisPeriod.HoursBack, rep.AnalysisPeriod.StartTime, rep.AnalysisPeriod.EndTime)
	if rep.AnalysisPeriod.UsedFallback {
		period = fmt.Sprintf("Last %d posts (%s)", rep.AnalysisPeriod.PostLimit, rep.AnalysisPeriod.FallbackReason)
	}
	doc.MultiCell(0, 5, text(period), "", "L", false)
	doc.MultiCell(0, 5, text("Generated: "+rep.GeneratedAt), "", "L", false)
	doc.SetTextColor(0, 0, 0)
	doc.Ln(6)

	s := rep.Summary
	table(doc, family, text, []float64{70, 40}, [][]string{
		{"Metric", "Value"},
		{"Subscribers", strconv.Itoa(rep.ChannelInfo.Subscribers)},
		{"Total posts", strconv.Itoa(s.TotalPosts)},
		{"Total views", strconv.Itoa(s.TotalViews)},
		{"Average reach", strconv.FormatFloat(s.AvgViewsPerPost, 'f', 1, 64)},
		{"ER (views)", strconv.FormatFloat(s.EngagementRate.ERViews, 'f', -1, 64) + "%"},
		{"ER (subscribers)", strconv.FormatFloat(s.EngagementRate.ERSubscribers, 'f', -1, 64) + "%"},
	})
	doc.Ln(8)

	if len(rep.Recommendations) > 0 {
		header(doc, family, text, "Recommendations")
		doc.SetFont(family, "", 10)
		for _, rec := range rep.Recommendations {
			doc.MultiCell(0, 5, text("- "+strings.TrimSpace(stripSymbols(rec))), "", "L", false)
			doc.Ln(1)
		}
		doc.Ln(4)
	}

	if strings.TrimSpace(narrative) != "" {
		header(doc, family, text, "AI analysis")
		doc.SetFont(family, "", 10)
		for _, line := range strings.Split(narrative, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				doc.MultiCell(0, 5, text(line), "", "L", false)
				doc.Ln(1)
			}
		}
		doc.Ln(4)
	}

	if len(rep.TopPosts) > 0 {
		header(doc, family, text, "Top posts")
		rows := [][]string{{"Date", "Views", "Type", "Preview"}}
		for _, p := range rep.TopPosts[:min(topPostsInPDF, len(rep.TopPosts))] {
			rows = append(rows, []string{p.Date, strconv.Itoa(p.Views), p.ContentType, shorten(p.TextPreview, previewInPDF)})
		}
		table(doc, family, text, []float64{30, 18, 42, 92}, rows)
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the download name of a report.
func Filename(rep *model.Report) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return '_'
	}, strings.TrimSpace(rep.ChannelInfo.Title))
	if strings.Trim(name, "_") == "" {
		name = "channel_" + strconv.FormatInt(rep.ChannelInfo.ID, 10)
	}
	return name + "_report.pdf"
}

func header(doc *fpdf.Fpdf, family string, text func(string) string, title string) {
	doc.SetFont(family, "B", 12)
	doc.SetTextColor(59, 130, 246)
	doc.CellFormat(0, 7, text(title), "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(1)
}

func table(doc *fpdf.Fpdf, family string, text func(string) string, widths []float64, rows [][]string) {
	doc.SetDrawColor(229, 231, 235)
	for i, row := range rows {
		if i == 0 {
			doc.SetFont(family, "B", 9)
			doc.SetFillColor(243, 244, 246)
		} else {
			doc.SetFont(family, "", 8)
			doc.SetFillColor(255, 255, 255)
		}
		for j, cell := range row {
			doc.CellFormat(widths[j], 7, text(cell), "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
	}
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// stripSymbols drops emoji and other pictographs no embedded font can draw.
func stripSymbols(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.So, r) || unicode.Is(unicode.Sk, r) || r == '\uFE0F' || r == '\u200D' {
			return -1
		}
		return r
	}, s)
}
