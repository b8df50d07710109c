package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"
)

// Chunk is one indexed passage. Field names match the retrieval mapping.
type Chunk struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Chunk   int    `json:"chunk"`
}

// ID is stable across runs so reseeding overwrites instead of
// duplicating.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.Source, c.Chunk)
}

var seedExtensions = map[string]bool{".txt": true, ".md": true}

// collectFiles lists the seedable files under root in lexical order.
func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if seedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func newSplitter(size, overlap int) textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
}

// chunkFile splits one file. source is the name recorded on every chunk.
func chunkFile(splitter textsplitter.TextSplitter, path, source string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parts, err := splitter.SplitText(string(data))
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", path, err)
	}

	chunks := make([]Chunk, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, Chunk{Content: p, Source: source, Chunk: len(chunks)})
	}
	return chunks, nil
}

// LoadStats summarises one bulk load.
type LoadStats struct {
	Indexed uint64
	Failed  uint64
}

// bulkLoad indexes chunks into index with an esutil bulk indexer.
func bulkLoad(ctx context.Context, client *elasticsearch.Client, index string, workers int, chunks []Chunk, log *zap.Logger) (LoadStats, error) {
	var stats LoadStats

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     client,
		Index:      index,
		NumWorkers: workers,
		OnError: func(ctx context.Context, err error) {
			log.Error("bulk indexer error", zap.Error(err))
		},
	})
	if err != nil {
		return stats, fmt.Errorf("create bulk indexer: %w", err)
	}

	for _, c := range chunks {
		body, err := json.Marshal(c)
		if err != nil {
			return stats, err
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: c.ID(),
			Body:       bytes.NewReader(body),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				atomic.AddUint64(&stats.Indexed, 1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				atomic.AddUint64(&stats.Failed, 1)
				if err != nil {
					log.Warn("chunk failed", zap.String("id", item.DocumentID), zap.Error(err))
					return
				}
				log.Warn("chunk failed",
					zap.String("id", item.DocumentID),
					zap.String("type", res.Error.Type),
					zap.String("reason", res.Error.Reason),
				)
			},
		})
		if err != nil {
			return stats, fmt.Errorf("queue chunk %s: %w", c.ID(), err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return stats, fmt.Errorf("flush bulk indexer: %w", err)
	}
	return stats, nil
}
