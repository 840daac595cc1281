package symptoms

import (
	"sort"
	"strings"

	"github.com/docther/docther/pkg/store"
)

// TriggerCount is one trigger and how often it was reported.
type TriggerCount struct {
	Trigger string
	Count   int
}

// Stats summarizes a set of tracked symptoms.
type Stats struct {
	Total           int
	CountByType     map[string]int
	AverageSeverity float64
	MaxSeverity     int
	PerDay          map[string]int
	TopTriggers     []TriggerCount
}

// Summarize aggregates counts by type, severity figures, per-day buckets and
// the most common triggers. Symptoms without a recorded severity are excluded
// from the severity figures.
func Summarize(symptoms []store.Symptom) *Stats {
	stats := &Stats{
		Total:       len(symptoms),
		CountByType: make(map[string]int),
		PerDay:      make(map[string]int),
	}

	var severitySum, severityCount int
	triggerCounts := make(map[string]int)

	for _, sym := range symptoms {
		kind := strings.ToLower(strings.TrimSpace(sym.SymptomType))
		if kind == "" {
			kind = "unspecified"
		}
		stats.CountByType[kind]++
		stats.PerDay[sym.SymptomTime.Format("2006-01-02")]++

		if sym.Severity != nil {
			severitySum += *sym.Severity
			severityCount++
			if *sym.Severity > stats.MaxSeverity {
				stats.MaxSeverity = *sym.Severity
			}
		}

		for _, trigger := range strings.Split(sym.Triggers, ",") {
			trigger = strings.ToLower(strings.TrimSpace(trigger))
			if trigger != "" {
				triggerCounts[trigger]++
			}
		}
	}

	if severityCount > 0 {
		stats.AverageSeverity = float64(severitySum) / float64(severityCount)
	}

	for trigger, count := range triggerCounts {
		stats.TopTriggers = append(stats.TopTriggers, TriggerCount{Trigger: trigger, Count: count})
	}
	sort.Slice(stats.TopTriggers, func(i, j int) bool {
		if stats.TopTriggers[i].Count != stats.TopTriggers[j].Count {
			return stats.TopTriggers[i].Count > stats.TopTriggers[j].Count
		}
		return stats.TopTriggers[i].Trigger < stats.TopTriggers[j].Trigger
	})

	return stats
}
