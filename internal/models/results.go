package models

// QueryResult is the outcome of applying a filter to the corpus.
type QueryResult struct {
	Items []FeedbackItem
	// ClustersAvailable is false when cluster-level facets were requested but
	// skipped because the clustering collaborator could not be reached.
	ClustersAvailable bool
}

// GroupsResult is the cluster view of the filtered corpus. The bounds span
// every effective cluster before the cluster-level facets are applied.
type GroupsResult struct {
	Clusters        []Cluster
	MatchedItems    int
	ImportanceRange RangeBounds
	ImpactRange     RangeBounds
}

// Vocabulary lists the tags and metric spans of the unfiltered corpus.
type Vocabulary struct {
	Tags            []string
	ImportanceRange RangeBounds
	ImpactRange     RangeBounds
}

// TranslationResult is a natural-language query applied to a session.
type TranslationResult struct {
	RequestID string
	Command   CommandKind
	Spec      FilterSpec
}
