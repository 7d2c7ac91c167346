package lookup

// SearchArgs contains parameters for a lookup in any category
type SearchArgs struct {
	Term     string `json:"term" jsonschema:"Value to look up. With wildcard set, % matches any run of characters"`
	Type     string `json:"type" jsonschema:"Category to search: username, password, email, lastip (or ip), name, hash or wildcard"`
	Wildcard bool   `json:"wildcard,omitempty" jsonschema:"Treat the term as a wildcard pattern (default: false)"`
}

// EmailSearchArgs contains parameters for an email search
type EmailSearchArgs struct {
	Email    string `json:"email" jsonschema:"Email address, or a pattern when wildcard is set"`
	Wildcard bool   `json:"wildcard,omitempty" jsonschema:"Treat the email as a wildcard pattern (default: false)"`
}

// UsernameSearchArgs contains parameters for a username search
type UsernameSearchArgs struct {
	Username string `json:"username" jsonschema:"Username, or a pattern when wildcard is set"`
	Wildcard bool   `json:"wildcard,omitempty" jsonschema:"Treat the username as a wildcard pattern (default: false)"`
}

// HashLookupArgs contains parameters for a hash lookup
type HashLookupArgs struct {
	Hash string `json:"hash" jsonschema:"Password hash to resolve, e.g. an MD5 or SHA-1 hex digest"`
}

// IPWhoisArgs contains parameters for an IP WHOIS lookup
type IPWhoisArgs struct {
	IP string `json:"ip" jsonschema:"IPv4 or IPv6 address"`
}

// LookupResult wraps the API response unmodified with a description of the call
type LookupResult struct {
	Endpoint string `json:"endpoint"`
	Type     string `json:"type,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
	Source   Source `json:"source"`
	Data     any    `json:"data"`
}
