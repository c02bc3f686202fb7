package semaxis

// Default seed dictionaries for the evidence/intuition axis. Immutable input:
// callers may substitute their own sets but never mutate these.
//
// The pole sizes differ (48 vs 32); together with the independent expansion
// thresholds this makes the expanded poles asymmetric, which is a deliberate
// modeling choice.

// DefaultEvidenceSeeds are the 48 evidence-pole seed words
var DefaultEvidenceSeeds = []string{
	"data", "research", "study", "studies", "evidence", "statistics",
	"statistical", "analysis", "percent", "percentage", "findings", "report",
	"survey", "estimate", "estimates", "measured", "measurement", "experts",
	"scientific", "science", "researchers", "economists", "projections",
	"figures", "numbers", "rate", "rates", "average", "median", "documented",
	"empirical", "quantitative", "census", "sample", "samples", "trials",
	"trial", "laboratory", "clinical", "verified", "audit", "investigation",
	"assessment", "metrics", "indicator", "indicators", "dataset", "observed",
}

// DefaultIntuitionSeeds are the 32 intuition-pole seed words
var DefaultIntuitionSeeds = []string{
	"feel", "feeling", "feelings", "believe", "belief", "beliefs", "faith",
	"heart", "hearts", "instinct", "gut", "sense", "hope", "hopes", "fear",
	"fears", "conviction", "soul", "spirit", "intuition", "trust", "values",
	"moral", "conscience", "prayer", "pray", "love", "passion", "courage",
	"wisdom", "honestly", "deeply",
}
