package http

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ScriptedPlanner builds a canned itinerary from the answers and streams it
// line by line, with a "..." placeholder before each line.
type ScriptedPlanner struct {
	// Delay paces the chunks; zero streams as fast as possible.
	Delay time.Duration
}

// Plan implements Planner.
func (p *ScriptedPlanner) Plan(ctx context.Context, answers []string, emit func(string)) (string, error) {
	var b strings.Builder
	for _, line := range itineraryLines(answers) {
		if err := p.pause(ctx); err != nil {
			return "", err
		}
		emit("...")
		if err := p.pause(ctx); err != nil {
			return "", err
		}
		emit(line)
		b.WriteString(line)
	}
	return b.String(), nil
}

func (p *ScriptedPlanner) pause(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func itineraryLines(answers []string) []string {
	get := func(i int, fallback string) string {
		if i < len(answers) && strings.TrimSpace(answers[i]) != "" {
			return answers[i]
		}
		return fallback
	}
	dest := get(0, "your destination")
	return []string{
		fmt.Sprintf("# Your trip to %s\n\n", dest),
		"## TRAVEL METHOD\n",
		fmt.Sprintf("Getting around: %s.\n\n", get(7, "public transport")),
		"## ACCOMMODATION\n",
		fmt.Sprintf("Stay: %s, within a budget of %s.\n\n", get(5, "a central hotel"), get(1, "your budget")),
		"## DAY-BY-DAY ITINERARY\n",
		fmt.Sprintf("**Morning:** explore the old town of %s.\n", dest),
		fmt.Sprintf("**Afternoon:** %s.\n", get(8, "visit the main landmarks")),
		fmt.Sprintf("**Evening:** dinner matched to your interests (%s).\n\n", get(4, "food and culture")),
		"## DINING RECOMMENDATIONS\n",
		"Try the local market and a family-run restaurant.\n\n",
		"## LOCAL EXPERIENCES\n",
		fmt.Sprintf("Pace: %s. Dates: %s. Travelers: %s.\n", get(6, "balanced"), get(2, "flexible"), get(3, "1")),
	}
}
