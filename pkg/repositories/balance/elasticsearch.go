package balance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/google/uuid"
)

// ElasticsearchConfig holds configuration options for the Elasticsearch repository
type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
	MaxResults  int               // Upper bound on hits returned by a single query
	Transport   http.RoundTripper // Optional, replaces the default HTTP transport
}

// DefaultElasticsearchConfig returns a default configuration for Elasticsearch
func DefaultElasticsearchConfig() *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:         "http://localhost:9200",
		IndexPrefix: "ledger",
		MaxResults:  10000,
	}
}

// ElasticsearchRepository implements Repository using an Elasticsearch index
type ElasticsearchRepository struct {
	client *elasticsearch.Client
	config *ElasticsearchConfig
	index  string
}

// NewElasticsearchRepository creates the client and makes sure the balance index exists
func NewElasticsearchRepository(ctx context.Context, config *ElasticsearchConfig) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
		Transport: config.Transport,
	}

	// Add authentication if provided
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	if config.IndexPrefix == "" {
		config.IndexPrefix = "ledger"
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 10000
	}

	repo := &ElasticsearchRepository{
		client: client,
		config: config,
		index:  config.IndexPrefix + "_balance_history",
	}

	if err := repo.initIndex(ctx); err != nil {
		return nil, fmt.Errorf("error initializing index: %w", err)
	}

	return repo, nil
}

// initIndex creates the balance history index if it doesn't exist
func (r *ElasticsearchRepository) initIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.index}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking if balance index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		return nil
	}

	req := esapi.IndicesCreateRequest{
		Index: r.index,
		Body:  bytes.NewReader([]byte(balanceIndexMapping)),
	}

	res, err = req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("error creating balance index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating balance index: %s", res.String())
	}

	log.Printf("[BALANCE_REPO] Created Elasticsearch index %s", r.index)
	return nil
}

// CreateMany indexes the snapshots with a single bulk request
func (r *ElasticsearchRepository) CreateMany(ctx context.Context, snapshots []*entities.BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, snapshot := range snapshots {
		if snapshot.ID == "" {
			snapshot.ID = uuid.New().String()
		}

		action := map[string]interface{}{
			"create": map[string]interface{}{"_index": r.index, "_id": snapshot.ID},
		}
		if err := writeNDJSON(&body, action, toESSnapshot(snapshot)); err != nil {
			return fmt.Errorf("error encoding bulk request: %w", err)
		}
	}

	res, err := r.client.Bulk(
		bytes.NewReader(body.Bytes()),
		r.client.Bulk.WithContext(ctx),
		r.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("error bulk indexing snapshots: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error bulk indexing snapshots: %s", res.String())
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return fmt.Errorf("error parsing bulk response: %w", err)
	}

	if result.Errors {
		failed := 0
		firstReason := ""
		for _, item := range result.Items {
			for _, op := range item {
				if op.Error != nil {
					failed++
					if firstReason == "" {
						firstReason = fmt.Sprintf("%s: %s", op.Error.Type, op.Error.Reason)
					}
				}
			}
		}
		return fmt.Errorf("error bulk indexing snapshots: %d of %d failed (%s)", failed, len(snapshots), firstReason)
	}

	return nil
}

// Upsert indexes the snapshot under its ID, replacing any existing document
func (r *ElasticsearchRepository) Upsert(ctx context.Context, snapshot *entities.BalanceSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}

	jsonData, err := json.Marshal(toESSnapshot(snapshot))
	if err != nil {
		return fmt.Errorf("error marshaling snapshot: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(jsonData),
		r.client.Index.WithDocumentID(snapshot.ID),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("error indexing snapshot: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing snapshot: %s", res.String())
	}

	return nil
}

// QueryWhere searches the index with a filter built from criteria
func (r *ElasticsearchRepository) QueryWhere(ctx context.Context, criteria Criteria) ([]*entities.BalanceSnapshot, error) {
	body, err := searchBody(criteria)
	if err != nil {
		return nil, err
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(body)),
		r.client.Search.WithSize(r.config.MaxResults),
	)
	if err != nil {
		return nil, fmt.Errorf("error searching snapshots: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching snapshots: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source ESBalanceSnapshot `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing search response: %w", err)
	}

	snapshots := make([]*entities.BalanceSnapshot, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		snapshot, err := hit.Source.toEntity()
		if err != nil {
			return nil, fmt.Errorf("error converting snapshot %s: %w", hit.Source.ID, err)
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// DeleteMatching removes documents matching criteria with delete-by-query
func (r *ElasticsearchRepository) DeleteMatching(ctx context.Context, criteria Criteria) (int64, error) {
	if criteria.IsEmpty() {
		return 0, ErrUnboundedDelete
	}

	body, err := searchBody(criteria)
	if err != nil {
		return 0, err
	}

	res, err := r.client.DeleteByQuery(
		[]string{r.index},
		bytes.NewReader(body),
		r.client.DeleteByQuery.WithContext(ctx),
		r.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return 0, fmt.Errorf("error deleting snapshots: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("error deleting snapshots: %s", res.String())
	}

	var result struct {
		Deleted  int64             `json:"deleted"`
		Failures []json.RawMessage `json:"failures"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("error parsing delete response: %w", err)
	}

	if len(result.Failures) > 0 {
		return result.Deleted, fmt.Errorf("error deleting snapshots: %d failures", len(result.Failures))
	}

	return result.Deleted, nil
}

// Close implements Repository
func (r *ElasticsearchRepository) Close() error {
	return nil
}

// Index returns the name of the balance history index
func (r *ElasticsearchRepository) Index() string {
	return r.index
}

// searchBody renders criteria as a bool filter query
func searchBody(criteria Criteria) ([]byte, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	filters := make([]interface{}, 0, len(criteria.Equals)+1)
	for _, eq := range criteria.Equals {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{string(eq.Field): eq.Value},
		})
	}

	if rng := criteria.Range; rng != nil {
		op := "gte"
		if rng.Op == OpLessThan {
			op = "lt"
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				string(rng.Field): map[string]interface{}{op: rng.Value},
			},
		})
	}

	return json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
	})
}

func writeNDJSON(buf *bytes.Buffer, lines ...interface{}) error {
	for _, line := range lines {
		data, err := json.Marshal(line)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return nil
}
