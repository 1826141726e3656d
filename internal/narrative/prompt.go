package narrative

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are a professional analyst of Telegram channels."

// buildPrompt renders the user prompt: channel context, the report summary as
// JSON and the optional per-channel focus hints.
func buildPrompt(req Request) (string, error) {
	r := req.Report
	summary, err := json.MarshalIndent(r.Summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are an expert in Telegram channel analytics. Analyze the data and give recommendations.\n\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Channel: %s\n", r.ChannelInfo.Title)
	fmt.Fprintf(&b, "- Subscribers: %d\n", r.ChannelInfo.Subscribers)
	fmt.Fprintf(&b, "- Analysis period: %d hours\n", r.AnalysisPeriod.HoursBack)
	if r.AnalysisPeriod.UsedFallback {
		fmt.Fprintf(&b, "- Note: the channel is inactive (%s); the last %d posts were analyzed instead\n",
			r.AnalysisPeriod.FallbackReason, r.AnalysisPeriod.PostLimit)
	}
	if s := req.Settings; s != nil {
		if s.Niche != "" {
			fmt.Fprintf(&b, "- Niche: %s\n", s.Niche)
		}
		if len(s.FocusAreas) > 0 {
			fmt.Fprintf(&b, "- Focus on: %s\n", strings.Join(s.FocusAreas, ", "))
		}
	}

	b.WriteString("\nData:\n")
	b.Write(summary)
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("1. Identify the key trends\n")
	b.WriteString("2. Give content recommendations\n")
	b.WriteString("3. Suggest the best publishing time\n")
	b.WriteString("4. Assess audience engagement\n")
	b.WriteString("5. Forecast growth for the next period\n")
	return b.String(), nil
}
