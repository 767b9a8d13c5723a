// Package logkeeper indexes mirrored call log entries into Elasticsearch.
package logkeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"greenscore/pkg/models"
)

type Config struct {
	LogLevel     string   `toml:"logLevel"`
	KafkaBrokers []string `toml:"kafkaBrokers"`
	KafkaTopic   string   `toml:"kafkaTopic"`
	KafkaGroupID string   `toml:"kafkaGroupID"`

	ElasticSearchIndex string   `toml:"elasticSearchIndex"`
	ElasticSearchNodes []string `toml:"elasticSearchNodes"`

	NumWorkers int `toml:"numWorkers"`
}

// Indexer stores one document under a caller-chosen id.
type Indexer interface {
	Index(ctx context.Context, index, docID string, body []byte) error
}

// ESIndexer is the Elasticsearch implementation of Indexer.
type ESIndexer struct {
	es *elasticsearch.Client
}

func NewESIndexer(nodes []string) (*ESIndexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: nodes})
	if err != nil {
		return nil, err
	}
	return &ESIndexer{es: es}, nil
}

func (i *ESIndexer) Index(ctx context.Context, index, docID string, body []byte) error {
	res, err := i.es.Index(
		index,
		strings.NewReader(string(body)),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(docID),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch returned %s", res.Status())
	}
	return nil
}

// Keeper fans Kafka messages out to a pool of indexing workers.
type Keeper struct {
	idx   Indexer
	index string
	log   logrus.FieldLogger
}

func New(idx Indexer, index string, logger logrus.FieldLogger) *Keeper {
	return &Keeper{idx: idx, index: index, log: logger}
}

// Run starts numWorkers workers consuming jobs and blocks until they all exit.
func (k *Keeper) Run(ctx context.Context, jobs <-chan kafka.Message, numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for workerID := 0; workerID < numWorkers; workerID++ {
		go func(id int) {
			defer wg.Done()
			k.worker(ctx, jobs, id)
		}(workerID)
	}
	wg.Wait()
}

func (k *Keeper) worker(ctx context.Context, jobs <-chan kafka.Message, workerID int) {
	for {
		select {
		case <-ctx.Done():
			k.log.Infof("[logkeeper][workerID:%d] context cancelled, exiting worker", workerID)
			return

		case msg, ok := <-jobs:
			if !ok {
				k.log.Infof("[logkeeper][workerID:%d] jobs channel closed, exiting worker", workerID)
				return
			}
			k.log.Debugf("[logkeeper][workerID:%d] received message: %s", workerID, string(msg.Value))

			if err := k.handle(ctx, msg); err != nil {
				k.log.Errorf("[logkeeper][workerID:%d] %v", workerID, err)
				continue
			}
		}
	}
}

func (k *Keeper) handle(ctx context.Context, msg kafka.Message) error {
	var entry models.LogEntry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		return fmt.Errorf("failed to unmarshal log entry: %w", err)
	}
	if entry.ID <= 0 {
		return fmt.Errorf("log entry without id: %s", string(msg.Value))
	}

	docID := strconv.FormatInt(entry.ID, 10)
	if err := k.idx.Index(ctx, k.index, docID, msg.Value); err != nil {
		return fmt.Errorf("failed to index document %s: %w", docID, err)
	}

	k.log.Infof("[logkeeper] log entry %s indexed", docID)
	return nil
}
