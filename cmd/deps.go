package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"evalrag/src/core/corpus"
	"evalrag/src/core/eval"
	"evalrag/src/core/rag"
	"evalrag/src/infrastructure/integrations/ollama"
	elasticstore "evalrag/src/storage/elastic"
	weaviatestore "evalrag/src/storage/weaviate"
)

// vectorIndex is the full surface both index backends provide.
type vectorIndex interface {
	rag.VectorIndex
	corpus.Indexer
}

func openDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return db, nil
}

func newOllamaClient() *ollama.Client {
	return ollama.NewClient(viper.GetString("ollama.url"), &http.Client{
		Timeout: 5 * time.Minute,
	})
}

// newVectorIndex builds the configured index backend and returns it together
// with its schema-ensure step.
func newVectorIndex() (vectorIndex, func(context.Context) error, error) {
	switch backend := viper.GetString("vectordb.backend"); backend {
	case "weaviate":
		wc := weaviateClient.New(weaviateClient.Config{
			Host:   viper.GetString("weaviate.url"),
			Scheme: "http",
		})
		idx := weaviatestore.NewIndex(wc)
		return idx, idx.EnsureClass, nil
	case "elastic":
		ec, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: []string{viper.GetString("elastic.url")},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create elasticsearch client: %v", err)
		}
		idx := elasticstore.NewIndex(ec, viper.GetInt("models.embedding_dims"))
		return idx, idx.EnsureIndex, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector index backend %q", backend)
	}
}

func chunkConfigFromViper() rag.ChunkConfig {
	return rag.ChunkConfig{
		Size:     viper.GetInt("chunking.size"),
		Overlap:  viper.GetInt("chunking.overlap"),
		Strategy: viper.GetString("chunking.strategy"),
	}
}

func evalConfigFromViper() eval.Config {
	return eval.Config{
		K:               viper.GetInt("eval.k"),
		Concurrency:     viper.GetInt("eval.concurrency"),
		PassThreshold:   viper.GetFloat64("eval.pass_threshold"),
		GenerationModel: viper.GetString("models.generation"),
		JudgeModel:      viper.GetString("models.judge"),
		MaxRetries:      viper.GetInt("eval.max_retries"),
		TimeoutMs:       viper.GetInt("eval.timeout_ms"),
		JudgeRPM:        viper.GetInt("eval.judge_rpm"),
		PricePerToken:   viper.GetFloat64("eval.price_per_token"),
	}
}
