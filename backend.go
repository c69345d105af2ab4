package sel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticBackend runs compiled queries against Elasticsearch.
//
// It manages the connection to Elasticsearch and handles request execution;
// it has no knowledge of SEL syntax or schemas, only of the JSON bodies a
// Compiler produces.
type ElasticBackend struct {
	client *elasticsearch.Client
	config elasticsearch.Config
}

// ElasticBackendOption is a type for passing functional options to the Elastic Backend constructor.
//
// This allows for flexible configuration of the ElasticBackend.
type ElasticBackendOption func(*ElasticBackend)

// WithScheme defines which scheme to use when communicating with Elasticsearch (default is "http").
//
// Example:
//
//	// Use HTTPS for secure communication
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	    WithScheme("https"),
//	)
func WithScheme(scheme string) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.Addresses = updateURLScheme(b.config.Addresses, scheme)
	}
}

// Helper function to update URL scheme in addresses
func updateURLScheme(addresses []string, scheme string) []string {
	updatedAddresses := make([]string, len(addresses))
	for i, addr := range addresses {
		if strings.HasPrefix(addr, "http://") {
			addr = strings.TrimPrefix(addr, "http://")
		} else if strings.HasPrefix(addr, "https://") {
			addr = strings.TrimPrefix(addr, "https://")
		}
		updatedAddresses[i] = scheme + "://" + addr
	}
	return updatedAddresses
}

// WithCredentials adds username and password to requests to Elasticsearch.
//
// Example:
//
//	// Connect to Elasticsearch with authentication
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	    WithCredentials("username", "password"),
//	)
func WithCredentials(username, password string) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.Username = username
		b.config.Password = password
	}
}

// WithSniff enables or disables sniffing.
//
// Sniffing allows the client to discover other nodes in the cluster.
//
// Example:
//
//	// Enable sniffing to discover other nodes
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	    WithSniff(true),
//	)
func WithSniff(enabled bool) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.DiscoverNodesOnStart = enabled
	}
}

// WithHttpClient configures a http client to use for the http requests to elastic backend.
//
// Only the client's Transport is used; its Timeout, CheckRedirect, Jar and
// other http.Client settings are not applied. This makes it useful for
// custom TLS configuration, proxies, connection pooling, etc.
//
// Example:
//
//	// Use a custom transport with a larger idle connection pool
//	httpClient := &http.Client{
//	    Transport: &http.Transport{MaxIdleConnsPerHost: 32},
//	}
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	    WithHttpClient(httpClient),
//	)
func WithHttpClient(httpClient *http.Client) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.Transport = httpClient.Transport
	}
}

// WithCACert configures a custom CA certificate to use for the http requests to elastic backend.
//
// Example:
//
//	// Use a custom CA certificate
//	cert, err := ioutil.ReadFile("ca.crt")
//	if err != nil {
//	    // Handle error
//	}
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	    WithCACert(cert),
//	)
func WithCACert(cert []byte) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.CACert = cert
	}
}

// WithMaxRetries sets how many times the client retries a request against a
// retryable status code (502, 503, 504) before giving up.
//
// Example:
//
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	    WithMaxRetries(5),
//	)
func WithMaxRetries(n int) ElasticBackendOption {
	return func(b *ElasticBackend) {
		b.config.RetryOnStatus = []int{502, 503, 504}
		b.config.MaxRetries = n
	}
}

// NewElasticBackend creates a new backend targeting Elasticsearch.
//
// It initializes a connection to Elasticsearch using the provided nodes and options.
//
// Example:
//
//	// Create a basic Elasticsearch backend
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create a backend with custom options
//	backend, err := NewElasticBackend(
//	    []string{"localhost:9200"},
//	    WithScheme("https"),
//	    WithCredentials("user", "pass"),
//	)
func NewElasticBackend(nodes []string, opts ...ElasticBackendOption) (*ElasticBackend, error) {
	// Convert nodes to full URLs if they don't have a scheme
	addresses := make([]string, len(nodes))
	for i, node := range nodes {
		if !strings.HasPrefix(node, "http://") && !strings.HasPrefix(node, "https://") {
			addresses[i] = "http://" + node
		} else {
			addresses[i] = node
		}
	}

	backend := &ElasticBackend{
		config: elasticsearch.Config{
			Addresses: addresses,
		},
	}

	// Apply options
	for _, opt := range opts {
		opt(backend)
	}

	// Create the client
	client, err := elasticsearch.NewClient(backend.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	backend.client = client
	return backend, nil
}

// GetClient returns the underlying Elasticsearch client.
//
// This method is primarily intended for testing and advanced use cases
// where direct access to the Elasticsearch client is needed.
//
// Example:
//
//	client := backend.GetClient()
//	res, err := client.Info()
func (b *ElasticBackend) GetClient() *elasticsearch.Client {
	return b.client
}

func decodeSearchResponse(res *esapi.Response) (map[string]any, error) {
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch request failed: %s", res.String())
	}
	defer res.Body.Close()

	var searchResponse map[string]any
	if err := json.NewDecoder(res.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("error parsing the response body: %s", err)
	}
	if _, found := searchResponse["hits"].(map[string]any); !found {
		return nil, errors.New("malformed search response: missing 'hits' object")
	}
	return searchResponse, nil
}

// Execute runs a compiled query against Elasticsearch and formats the
// response through compiled's aggregation plan.
//
// Example:
//
//	compiled, err := compiler.CompileText(ctx, "label = bag and deleted = false")
//	if err != nil {
//	    // Handle error
//	}
//
//	result, err := backend.Execute(ctx, []string{"products"}, compiled)
//	if err != nil {
//	    // Handle error
//	}
//	fmt.Printf("Found %d documents\n", result.TotalHitCount)
func (b *ElasticBackend) Execute(ctx context.Context, indices []string, compiled *CompileResult) (*Result, error) {
	searchBody, err := json.Marshal(compiled.Body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling search body: %w", err)
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(indices...),
		b.client.Search.WithBody(strings.NewReader(string(searchBody))),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch request failed: %w", err)
	}

	raw, err := decodeSearchResponse(res)
	if err != nil {
		return nil, err
	}
	return compiled.Format(raw)
}

// ExecuteMultiple runs several compiled queries against Elasticsearch, one
// after another and all against the same indices, returning results in the
// same order as the inputs. The first failing query aborts the run.
func (b *ElasticBackend) ExecuteMultiple(ctx context.Context, indices []string, compiled []*CompileResult) ([]*Result, error) {
	results := make([]*Result, 0, len(compiled))
	for _, c := range compiled {
		result, err := b.Execute(ctx, indices, c)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
