package lookup

import (
	"context"
	"encoding/json"

	"github.com/olgasafonova/snusbase-mcp-server/internal/snusbase"
)

// MCP Tool wrapper methods
// These methods wrap the service methods with Args/Result types for MCP integration.

// SearchMCP is the MCP wrapper for Search
func (s *Service) SearchMCP(ctx context.Context, args SearchArgs) (LookupResult, error) {
	searchType, err := ValidateSearchType(args.Type)
	if err != nil {
		return LookupResult{}, err
	}
	return s.searchResult(ctx, args.Term, searchType, args.Wildcard)
}

// SearchByEmailMCP is the MCP wrapper for an email search
func (s *Service) SearchByEmailMCP(ctx context.Context, args EmailSearchArgs) (LookupResult, error) {
	return s.searchResult(ctx, args.Email, snusbase.TypeEmail, args.Wildcard)
}

// SearchByUsernameMCP is the MCP wrapper for a username search
func (s *Service) SearchByUsernameMCP(ctx context.Context, args UsernameSearchArgs) (LookupResult, error) {
	return s.searchResult(ctx, args.Username, snusbase.TypeUsername, args.Wildcard)
}

// HashLookupMCP is the MCP wrapper for HashLookup
func (s *Service) HashLookupMCP(ctx context.Context, args HashLookupArgs) (LookupResult, error) {
	raw, source, err := s.HashLookup(ctx, args.Hash)
	if err != nil {
		return LookupResult{}, err
	}
	return newResult(snusbase.EndpointHashLookup, snusbase.TypeHash, false, source, raw)
}

// IPWhoisMCP is the MCP wrapper for IPLookup
func (s *Service) IPWhoisMCP(ctx context.Context, args IPWhoisArgs) (LookupResult, error) {
	raw, source, err := s.IPLookup(ctx, args.IP)
	if err != nil {
		return LookupResult{}, err
	}
	return newResult(snusbase.EndpointIPWhois, "", false, source, raw)
}

func (s *Service) searchResult(ctx context.Context, term string, searchType snusbase.SearchType, wildcard bool) (LookupResult, error) {
	raw, source, err := s.Search(ctx, term, searchType, wildcard)
	if err != nil {
		return LookupResult{}, err
	}
	return newResult(snusbase.EndpointSearch, searchType, wildcard, source, raw)
}

// newResult decodes raw into a generic value so the MCP structured output
// carries the API's JSON as-is.
func newResult(endpoint string, searchType snusbase.SearchType, wildcard bool, source Source, raw json.RawMessage) (LookupResult, error) {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return LookupResult{}, err
	}
	return LookupResult{
		Endpoint: endpoint,
		Type:     string(searchType),
		Wildcard: wildcard,
		Source:   source,
		Data:     data,
	}, nil
}
