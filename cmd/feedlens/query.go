package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/triagelab/feedlens/internal/api"
	"github.com/triagelab/feedlens/internal/config"
	"github.com/triagelab/feedlens/internal/models"
	"github.com/triagelab/feedlens/internal/utils"
)

var (
	flagFilters string
	flagGroups  bool
	flagSession string
)

var queryCmd = &cobra.Command{
	Use:   "query [palette input]",
	Short: "Run one command-palette input against the corpus",
	Long: `Apply palette input to a filter and print the matching feedback as JSON.

Input starting with "?" is translated by the NLU collaborator, "clear" resets
every facet, and anything else becomes a free-text search. The starting
filter can be given as JSON with --filters.`,
	Example: `  feedlens query "export"
  feedlens query --filters '{"customer":["Loom"]}' "? high importance sales feedback"
  feedlens query --groups "? anything about sso"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&flagFilters, "filters", "", "starting filter as JSON")
	queryCmd.Flags().BoolVar(&flagGroups, "groups", false, "print clusters instead of items")
	queryCmd.Flags().StringVar(&flagSession, "session", "cli", "translation session id")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	ctx := cmd.Context()

	deps, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	current := models.FilterSpec{}
	if flagFilters != "" {
		var payload models.FilterPayload
		if err := json.Unmarshal([]byte(flagFilters), &payload); err != nil {
			return fmt.Errorf("invalid --filters: %w", err)
		}
		if current, err = api.FilterFromPayload(&payload); err != nil {
			return fmt.Errorf("invalid --filters: %w", err)
		}
	}

	var spec models.FilterSpec
	command, nlQuery, isQuery := models.ParsePaletteInput(strings.Join(args, " "))
	if isQuery {
		res, err := deps.service.TranslateAndMerge(ctx, flagSession, nlQuery, current)
		if err != nil {
			return fmt.Errorf("translating %q: %w", nlQuery, err)
		}
		spec = res.Spec
	} else {
		deps.service.RecordFilter(flagSession, current)
		spec = deps.service.ApplyCommand(flagSession, command)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if flagGroups {
		groups, err := deps.service.Aggregate(ctx, spec)
		if err != nil {
			return err
		}
		return enc.Encode(struct {
			Filters models.FilterPayload `json:"filters"`
			api.GroupsResponse
		}{models.ToPayload(spec), api.ToGroupsResponse(groups)})
	}

	res, err := deps.service.ApplyFilter(ctx, spec)
	if err != nil {
		return err
	}
	return enc.Encode(struct {
		Filters models.FilterPayload `json:"filters"`
		api.QueryResponse
	}{models.ToPayload(spec), api.ToQueryResponse(res)})
}
