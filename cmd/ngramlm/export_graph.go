package main

import (
	"fmt"

	"ngramlm/internal/service/graphstore"

	"github.com/spf13/cobra"
)

func exportGraphCmd() *cobra.Command {
	var (
		input     string
		kuzuPath  string
		neo4jURI  string
		name      string
		topPrefix []string
		topLimit  int
	)

	cmd := &cobra.Command{
		Use:   "export-graph",
		Short: "write a model's counts into a Kuzu or Neo4j graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := graphstore.BackendKuzu
			switch {
			case neo4jURI != "" && kuzuPath != "":
				return fmt.Errorf("--kuzu and --neo4j are mutually exclusive")
			case neo4jURI != "":
				backend = graphstore.BackendNeo4j
				cfg.Neo4j.URI = neo4jURI
			case kuzuPath != "":
				cfg.Kuzu.Path = kuzuPath
			case cfg.Neo4j.URI != "" && cfg.Kuzu.Path == "":
				backend = graphstore.BackendNeo4j
			}

			m, meta, err := loadModelFile(input)
			if err != nil {
				return err
			}
			if name != "" {
				meta.Name = name
			}

			ctx := cmd.Context()
			db, err := graphstore.Open(ctx, cfg, backend, logger)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			graph := graphstore.NewNGramGraph(db, logger)
			if err := graph.ExportModel(ctx, meta, m); err != nil {
				return err
			}

			if cmd.Flags().Changed("top") {
				top, err := graph.TopContinuations(ctx, meta.Name, topPrefix, topLimit)
				if err != nil {
					return err
				}
				for _, tp := range top {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f\n", tp.Token, tp.Probability)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "model file to export")
	cmd.Flags().StringVar(&kuzuPath, "kuzu", "", "Kuzu database directory (:memory: for a throwaway database)")
	cmd.Flags().StringVar(&neo4jURI, "neo4j", "", "Neo4j URI; credentials come from the config")
	cmd.Flags().StringVar(&name, "name", "", "name to store the model under (default: the stored name)")
	cmd.Flags().StringSliceVar(&topPrefix, "top", nil, "after exporting, print the most probable continuations of this comma-separated context")
	cmd.Flags().IntVar(&topLimit, "limit", 10, "number of continuations printed by --top")
	cmd.MarkFlagRequired("input")

	return cmd
}
