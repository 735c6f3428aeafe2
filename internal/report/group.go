// internal/report/group.go
package report

import (
	"cmp"
	"slices"
	"strings"

	"starred-digest/internal/model"
)

// OtherLabel names the bucket of repositories that share no topic with any other.
const OtherLabel = "Other"

// DefaultNoiseTopic is ignored when grouping; it is attached to too many
// unrelated repositories to mean anything.
const DefaultNoiseTopic = "hacktoberfest"

// TopicGroup is a set of repositories listed under a shared label.
type TopicGroup struct {
	Label string
	Repos []model.RepoActivity
}

// GroupByTopic clusters records greedily in input order. Each unassigned record seeds
// a cluster with its topics; later unassigned records whose topics intersect the
// shared set join and narrow it to the intersection. Untagged records and clusters of
// one end up in "Other". Groups are sorted by label with "Other" last, repositories by
// commit count and then name.
func GroupByTopic(records []model.RepoActivity, noiseTopic string) []TopicGroup {
	topics := make([]map[string]struct{}, len(records))
	freq := make(map[string]int)
	for i, r := range records {
		set := make(map[string]struct{}, len(r.Topics))
		for _, t := range r.Topics {
			if t == "" || t == noiseTopic {
				continue
			}
			set[t] = struct{}{}
		}
		topics[i] = set
		for t := range set {
			freq[t]++
		}
	}

	assigned := make([]bool, len(records))
	var groups []TopicGroup
	var other []model.RepoActivity

	for i := range records {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		if len(topics[i]) == 0 {
			other = append(other, records[i])
			continue
		}

		shared := copySet(topics[i])
		members := []int{i}
		for j := i + 1; j < len(records); j++ {
			if assigned[j] {
				continue
			}
			narrowed := intersect(shared, topics[j])
			if len(narrowed) == 0 {
				continue
			}
			shared = narrowed
			members = append(members, j)
			assigned[j] = true
		}

		if len(members) == 1 || len(shared) == 0 {
			for _, m := range members {
				other = append(other, records[m])
			}
			continue
		}

		g := TopicGroup{Label: label(shared, freq)}
		for _, m := range members {
			g.Repos = append(g.Repos, records[m])
		}
		groups = append(groups, g)
	}

	slices.SortStableFunc(groups, func(a, b TopicGroup) int {
		return strings.Compare(a.Label, b.Label)
	})
	if len(other) > 0 {
		groups = append(groups, TopicGroup{Label: OtherLabel, Repos: other})
	}
	for i := range groups {
		slices.SortStableFunc(groups[i].Repos, compareActivity)
	}
	return groups
}

func compareActivity(a, b model.RepoActivity) int {
	if c := cmp.Compare(b.CommitCount, a.CommitCount); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

func label(shared map[string]struct{}, freq map[string]int) string {
	names := make([]string, 0, len(shared))
	for t := range shared {
		names = append(names, t)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return strings.Join(names, ", ")
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for t := range a {
		if _, ok := b[t]; ok {
			out[t] = struct{}{}
		}
	}
	return out
}

func copySet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	return out
}
