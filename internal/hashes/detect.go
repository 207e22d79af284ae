package hashes

import (
    "sort"
    "strings"
)

// Detect returns a ranked list of candidate algorithms for a given digest.
// Every registered algorithm whose Validate() accepts the target is a
// candidate; HighwayHash widths rank first since they are what this tool
// produces, the rest follow by name.
func Detect(target string) []string {
    t := strings.TrimSpace(target)
    if t == "" { return nil }

    type cand struct{ name string; score int }
    candidates := []cand{}
    for _, name := range List() {
        ok, _ := Validate(name, t)
        if !ok { continue }
        score := 10 // base score for any validator match
        if IsHighway(name) { score += 50 }
        candidates = append(candidates, cand{name, score})
    }

    if len(candidates) == 0 { return nil }

    sort.SliceStable(candidates, func(i, j int) bool {
        if candidates[i].score != candidates[j].score { return candidates[i].score > candidates[j].score }
        return candidates[i].name < candidates[j].name
    })

    out := make([]string, 0, len(candidates))
    for _, c := range candidates { out = append(out, c.name) }
    return out
}
