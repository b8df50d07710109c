// cmd/tools/index-seeder/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"climate-risk-advisor/internal/common/config"
	"climate-risk-advisor/internal/common/database"
	"climate-risk-advisor/internal/common/logger"
)

var (
	configPath   string
	topic        string
	chunkSize    int
	chunkOverlap int
	workers      int

	rootCmd = &cobra.Command{
		Use:   "index-seeder",
		Short: "Builds the climate and business retrieval indices",
		Long:  `Creates the per-topic Elasticsearch indices and loads them with chunked .txt and .md documents.`,
	}
	createIndexCmd = &cobra.Command{
		Use:   "create-index",
		Short: "Creates the retrieval index for a topic (or both)",
		RunE:  runCreateIndex,
	}
	loadCmd = &cobra.Command{
		Use:   "load [directory]",
		Short: "Chunks every document under a directory into a topic's index",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoad,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (defaults to configs/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&topic, "topic", "t", "climate", "Topic index: climate, business or all")

	rootCmd.AddCommand(createIndexCmd)

	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Characters per chunk")
	loadCmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 200, "Characters shared by adjacent chunks")
	loadCmd.Flags().IntVar(&workers, "workers", 2, "Bulk indexer workers")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// indices resolves the --topic flag against the configured index names.
func indices(cfg *config.Config) ([]string, error) {
	switch topic {
	case "climate":
		return []string{cfg.Retrieval.ClimateIndex}, nil
	case "business":
		return []string{cfg.Retrieval.BusinessIndex}, nil
	case "all":
		return []string{cfg.Retrieval.ClimateIndex, cfg.Retrieval.BusinessIndex}, nil
	default:
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
}

func connect(cfg *config.Config) (*database.ElasticsearchClient, error) {
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if err := es.Ping(context.Background()); err != nil {
		return nil, err
	}
	return es, nil
}

func runCreateIndex(cmd *cobra.Command, args []string) error {
	log := logger.New("info", "console")
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	names, err := indices(cfg)
	if err != nil {
		return err
	}
	es, err := connect(cfg)
	if err != nil {
		return err
	}

	for _, name := range names {
		created, err := es.CreateIndex(cmd.Context(), name)
		if err != nil {
			return err
		}
		if created {
			log.Info("Index created", zap.String("index", name))
			continue
		}
		log.Info("Index already exists", zap.String("index", name))
	}
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	log := logger.New("info", "console")
	defer log.Sync()

	if topic == "all" {
		return fmt.Errorf("load needs a single topic")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	names, err := indices(cfg)
	if err != nil {
		return err
	}
	index := names[0]

	root := args[0]
	files, err := collectFiles(root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt or .md files under %s", root)
	}

	splitter := newSplitter(chunkSize, chunkOverlap)
	var chunks []Chunk
	for _, f := range files {
		source, err := filepath.Rel(root, f)
		if err != nil {
			source = filepath.Base(f)
		}
		fileChunks, err := chunkFile(splitter, f, filepath.ToSlash(source))
		if err != nil {
			return err
		}
		log.Info("File chunked", zap.String("file", source), zap.Int("chunks", len(fileChunks)))
		chunks = append(chunks, fileChunks...)
	}

	es, err := connect(cfg)
	if err != nil {
		return err
	}
	if _, err := es.CreateIndex(cmd.Context(), index); err != nil {
		return err
	}

	stats, err := bulkLoad(cmd.Context(), es.Client, index, workers, chunks, log)
	if err != nil {
		return err
	}

	log.Info("Load finished",
		zap.String("index", index),
		zap.Int("files", len(files)),
		zap.Uint64("indexed", stats.Indexed),
		zap.Uint64("failed", stats.Failed),
	)
	if stats.Failed > 0 {
		return fmt.Errorf("%d chunks failed to index", stats.Failed)
	}
	return nil
}
