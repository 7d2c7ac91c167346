package snusbase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// API endpoints
const (
	EndpointSearch     = "/data/search"
	EndpointHashLookup = "/tools/hash-lookup"
	EndpointIPWhois    = "/tools/ip-whois"
)

// SearchType selects which indexed field the API matches a term against.
type SearchType string

const (
	TypeUsername SearchType = "username"
	TypePassword SearchType = "password"
	TypeEmail    SearchType = "email"
	TypeLastIP   SearchType = "lastip"
	TypeName     SearchType = "name"
	TypeHash     SearchType = "hash"
	TypeWildcard SearchType = "wildcard"
)

// SearchTypes lists every category the API accepts, in documentation order.
var SearchTypes = []SearchType{
	TypeUsername,
	TypePassword,
	TypeEmail,
	TypeLastIP,
	TypeName,
	TypeHash,
	TypeWildcard,
}

// Valid reports whether t is a known category
func (t SearchType) Valid() bool {
	for _, known := range SearchTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t SearchType) String() string {
	return string(t)
}

// ParseSearchType maps user input to a SearchType. Matching is
// case-insensitive and "ip" is accepted for lastip.
func ParseSearchType(s string) (SearchType, error) {
	normalized := SearchType(strings.ToLower(strings.TrimSpace(s)))
	if normalized == "ip" {
		return TypeLastIP, nil
	}
	if !normalized.Valid() {
		return "", fmt.Errorf("unknown search type %q", s)
	}
	return normalized, nil
}

// searchRequest is the /data/search body. wildcard is always sent.
type searchRequest struct {
	Terms    []string     `json:"terms"`
	Types    []SearchType `json:"types"`
	Wildcard bool         `json:"wildcard"`
}

// hashLookupRequest is the /tools/hash-lookup body
type hashLookupRequest struct {
	Terms []string     `json:"terms"`
	Types []SearchType `json:"types"`
}

// ipWhoisRequest is the /tools/ip-whois body; it carries no types key
type ipWhoisRequest struct {
	Terms []string `json:"terms"`
}

// Search looks up term in the given category. With wildcard set the API
// treats term as a pattern.
func (c *Client) Search(ctx context.Context, term string, searchType SearchType, wildcard bool) (json.RawMessage, error) {
	return c.post(ctx, EndpointSearch, searchRequest{
		Terms:    []string{term},
		Types:    []SearchType{searchType},
		Wildcard: wildcard,
	})
}

// HashLookup resolves a hash through the dedicated hash tool endpoint
func (c *Client) HashLookup(ctx context.Context, hash string) (json.RawMessage, error) {
	return c.post(ctx, EndpointHashLookup, hashLookupRequest{
		Terms: []string{hash},
		Types: []SearchType{TypeHash},
	})
}

// IPLookup returns WHOIS data for an IP address
func (c *Client) IPLookup(ctx context.Context, ip string) (json.RawMessage, error) {
	return c.post(ctx, EndpointIPWhois, ipWhoisRequest{
		Terms: []string{ip},
	})
}

// SearchByUsername searches the username field
func (c *Client) SearchByUsername(ctx context.Context, username string, wildcard bool) (json.RawMessage, error) {
	return c.Search(ctx, username, TypeUsername, wildcard)
}

// SearchByPassword searches the password field
func (c *Client) SearchByPassword(ctx context.Context, password string, wildcard bool) (json.RawMessage, error) {
	return c.Search(ctx, password, TypePassword, wildcard)
}

// SearchByEmail searches the email field
func (c *Client) SearchByEmail(ctx context.Context, email string, wildcard bool) (json.RawMessage, error) {
	return c.Search(ctx, email, TypeEmail, wildcard)
}

// SearchByIP searches the last known IP field (category "lastip")
func (c *Client) SearchByIP(ctx context.Context, ip string, wildcard bool) (json.RawMessage, error) {
	return c.Search(ctx, ip, TypeLastIP, wildcard)
}

// SearchByName searches the name field
func (c *Client) SearchByName(ctx context.Context, name string, wildcard bool) (json.RawMessage, error) {
	return c.Search(ctx, name, TypeName, wildcard)
}

// SearchByHash searches the hash field of breach records. Use HashLookup to
// crack a hash instead.
func (c *Client) SearchByHash(ctx context.Context, hash string, wildcard bool) (json.RawMessage, error) {
	return c.Search(ctx, hash, TypeHash, wildcard)
}
