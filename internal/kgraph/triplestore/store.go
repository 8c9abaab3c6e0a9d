// Package triplestore implements the RDF triple-store backend reachable via
// two HTTP endpoints (read and write), grounded on
// kgot/knowledge_graph/rdf4j/main.py: reads are GET+XML SPARQL requests,
// writes are POST update requests, clear-all is a DELETE WHERE, and
// rendering serializes a CONSTRUCT-all-triples query to XML.
//
// No RDF4J Go client exists anywhere in the example pack, so this package
// speaks the SPARQL 1.1 protocol directly over net/http + encoding/xml -- a
// stdlib boundary justified in DESIGN.md.
package triplestore

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/kgraph"
	"github.com/spcl/knowledge-graph-of-thoughts-go/internal/model"
	"github.com/spcl/knowledge-graph-of-thoughts-go/log"
)

// Options configure the two SPARQL endpoints.
type Options struct {
	ReadURI  string
	WriteURI string
	Timeout  time.Duration
}

// Store implements kgraph.Store over a SPARQL read endpoint and a separate
// SPARQL update (write) endpoint.
type Store struct {
	opts   Options
	client *http.Client
	snap   *kgraph.SnapshotCounter
	log    log.Logger
}

var _ kgraph.Store = (*Store)(nil)

// New verifies connectivity with an ASK query and returns a ready store.
func New(ctx context.Context, opts Options, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	s := &Store{opts: opts, client: &http.Client{Timeout: opts.Timeout}, log: logger}
	if _, err := s.ask(ctx, "ASK { ?s ?p ?o }"); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBackendUnreachable, err)
	}
	return s, nil
}

func (s *Store) Dialect() model.BackendDialect { return model.TripleStore }

func (s *Store) ask(ctx context.Context, query string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.ReadURI+"?"+url.Values{"query": {query}}.Encode(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/sparql-results+xml")
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ask query failed with status %d", resp.StatusCode)
	}
	return true, nil
}

func (s *Store) Init(ctx context.Context, runIndex int, snapshotDir string) error {
	if err := s.update(ctx, "DELETE WHERE { ?s ?p ?o }"); err != nil {
		return fmt.Errorf("%w: clearing graph: %v", model.ErrBackendUnreachable, err)
	}
	counter, err := kgraph.NewSnapshotCounter(snapshotDir, runIndex, time.Now())
	if err != nil {
		return err
	}
	s.snap = counter
	return nil
}

func (s *Store) update(ctx context.Context, sparqlUpdate string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.WriteURI, bytes.NewBufferString(sparqlUpdate))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/sparql-update")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// sparqlResults is the minimal subset of the SPARQL XML results format
// (https://www.w3.org/TR/rdf-sparql-XMLres/) this backend parses.
type sparqlResults struct {
	XMLName xml.Name `xml:"sparql"`
	Results struct {
		Bindings []struct {
			Bindings []struct {
				Name  string `xml:"name,attr"`
				URI   string `xml:"uri"`
				Lit   string `xml:"literal"`
			} `xml:",any"`
		} `xml:"result"`
	} `xml:"results"`
}

func (s *Store) Read(ctx context.Context, query string) (*model.QueryOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.ReadURI+"?"+url.Values{"query": {query}}.Encode(), nil)
	if err != nil {
		return &model.QueryOutcome{Success: false, Err: fmt.Errorf("%w: %v", model.ErrQuerySyntax, err)}, nil
	}
	req.Header.Set("Accept", "application/sparql-results+xml")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransient, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &model.QueryOutcome{Success: false, Err: fmt.Errorf("%w: status %d: %s", model.ErrQuerySyntax, resp.StatusCode, string(body))}, nil
	}

	var parsed sparqlResults
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return &model.QueryOutcome{Success: false, Err: fmt.Errorf("%w: %v", model.ErrQuerySyntax, err)}, nil
	}

	var rows []map[string]any
	for _, result := range parsed.Results.Bindings {
		row := map[string]any{}
		for _, b := range result.Bindings {
			if b.URI != "" {
				row[b.Name] = b.URI
			} else {
				row[b.Name] = b.Lit
			}
		}
		rows = append(rows, row)
	}
	return &model.QueryOutcome{Success: true, Payload: rows}, nil
}

func (s *Store) Write(ctx context.Context, query string) (*model.QueryOutcome, error) {
	if err := s.update(ctx, query); err != nil {
		return &model.QueryOutcome{Success: false, Err: fmt.Errorf("%w: %v", model.ErrQuerySyntax, err)}, nil
	}
	if s.snap != nil {
		if err := s.exportSnapshot(ctx); err != nil {
			s.log.Warn("triplestore: failed to write snapshot: %v", err)
		}
	}
	return &model.QueryOutcome{Success: true}, nil
}

// exportSnapshot serializes a CONSTRUCT-all-triples query as XML, matching
// rdf4j/main.py's export-via-CONSTRUCT approach.
func (s *Store) exportSnapshot(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.opts.ReadURI+"?"+url.Values{"query": {"CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }"}}.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/rdf+xml")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	path := s.snap.Next("xml")
	return os.WriteFile(path, body, 0o644)
}

func (s *Store) Render(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.opts.ReadURI+"?"+url.Values{"query": {"CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }"}}.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/rdf+xml")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "(empty graph)", nil
	}
	return string(body), nil
}

func (s *Store) ReadMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error) {
	out := make([]*model.QueryOutcome, 0, len(queries))
	for _, q := range queries {
		o, err := s.Read(ctx, q)
		if err != nil {
			return out, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) WriteMany(ctx context.Context, queries []string) ([]*model.QueryOutcome, error) {
	out := make([]*model.QueryOutcome, 0, len(queries))
	for _, q := range queries {
		o, err := s.Write(ctx, q)
		if err != nil {
			return out, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
