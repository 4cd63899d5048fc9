package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/triagelab/feedlens/internal/config"
	"github.com/triagelab/feedlens/internal/engine"
	"github.com/triagelab/feedlens/internal/models"
	"github.com/triagelab/feedlens/internal/store"
	"github.com/triagelab/feedlens/internal/utils"
)

var flagOutput string

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute cluster metrics in the tagged-clusters file",
	Long: `Recalculate importance_score and customer_impact for every cluster in the
configured tagged-clusters file over the full corpus, using the configured
importance scale. Member ids missing from the corpus are dropped.`,
	RunE: runRecompute,
}

func init() {
	recomputeCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write to this path instead of overwriting the input")
}

func runRecompute(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	corpus, err := store.Open(cmd.Context(), cfg.Corpus.Source, cfg.Corpus.Path)
	if err != nil {
		return err
	}
	scale, err := engine.ParseImportanceScale(cfg.Engine.ImportanceScale)
	if err != nil {
		return fmt.Errorf("engine.importanceScale: %w", err)
	}
	assignments, err := store.LoadTaggedClusters(cfg.Clustering.Path)
	if err != nil {
		return err
	}

	updated := Recompute(engine.NewAggregator(scale), corpus.All(), assignments)

	out := flagOutput
	if out == "" {
		out = cfg.Clustering.Path
	}
	if err := store.SaveTaggedClusters(out, updated); err != nil {
		return err
	}
	logger.Info("cluster metrics recomputed",
		slog.Int("clusters", len(updated)),
		slog.Int("dropped", len(assignments)-len(updated)),
		slog.String("path", out),
	)
	return nil
}

// Recompute returns assignments with metrics derived from corpus. Clusters
// with no members in corpus are left out.
func Recompute(aggregator *engine.Aggregator, corpus []models.FeedbackItem, assignments models.TaggedClusters) models.TaggedClusters {
	out := make(models.TaggedClusters, len(assignments))
	for _, cluster := range aggregator.Aggregate(corpus, assignments) {
		out[cluster.ID] = models.ClusterAssignment{
			IDs:             cluster.IDs,
			Tags:            cluster.Tags,
			ImportanceScore: cluster.ImportanceScore,
			CustomerImpact:  cluster.CustomerImpact,
		}
	}
	return out
}
