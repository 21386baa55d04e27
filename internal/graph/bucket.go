package graph

import (
	"regexp"
	"strings"
)

// Canonical proficiency buckets, lowest to highest.
const (
	BucketFamiliarity      = "Familiarity"
	BucketWorkingKnowledge = "Working Knowledge"
	BucketProficient       = "Proficient"
	BucketAdvanced         = "Advanced"
	BucketMissionCritical  = "Mission-Critical"
)

// Some sources prefix buckets with an ordinal, e.g. "3: Proficient".
var bucketPrefix = regexp.MustCompile(`^\d+:\s*`)

// bucketSynonyms maps lowercased variants to the canonical label.
var bucketSynonyms = map[string]string{
	"mission-critical":  BucketMissionCritical,
	"mission critical":  BucketMissionCritical,
	"critical":          BucketMissionCritical,
	"advanced":          BucketAdvanced,
	"expert":            BucketAdvanced,
	"proficient":        BucketProficient,
	"intermediate":      BucketProficient,
	"working knowledge": BucketWorkingKnowledge,
	"working-knowledge": BucketWorkingKnowledge,
	"basic":             BucketWorkingKnowledge,
	"familiarity":       BucketFamiliarity,
	"familiar":          BucketFamiliarity,
	"awareness":         BucketFamiliarity,
}

var bucketPriorities = map[string]int{
	BucketMissionCritical:  5,
	BucketAdvanced:         4,
	BucketProficient:       3,
	BucketWorkingKnowledge: 2,
	BucketFamiliarity:      1,
}

// NormalizeBucket maps a raw bucket string to one of the five canonical
// labels. Unrecognized strings pass through verbatim (minus the ordinal
// prefix) and rank at priority 0.
func NormalizeBucket(raw string) string {
	s := strings.TrimSpace(bucketPrefix.ReplaceAllString(strings.TrimSpace(raw), ""))
	if canonical, ok := bucketSynonyms[strings.ToLower(s)]; ok {
		return canonical
	}
	return s
}

// BucketPriority returns the conflict-resolution rank of a canonical
// bucket label. Unrecognized buckets rank 0.
func BucketPriority(bucket string) int {
	return bucketPriorities[bucket]
}
