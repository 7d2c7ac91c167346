package tools

// AllTools contains all tool specifications for the Snusbase MCP server.
// Tool descriptions follow a structured format for LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// SEARCH TOOLS
	// ==========================================================================
	{
		Name:     "snusbase_search",
		Method:   "Search",
		Title:    "Search Breach Data",
		Category: "search",
		Description: `Search leaked breach records for a term in one field.

USE WHEN: User asks "has X been in a breach", "find accounts with name X", "which records use password X", "who used IP X".

NOT FOR: Cracking a hash (use snusbase_hash_lookup). Not for geolocating an IP (use snusbase_ip_whois).

PARAMETERS:
- term: Value to look up (required)
- type: username, password, email, lastip (or ip), name, hash, wildcard (required)
- wildcard: Treat term as a pattern where % matches anything (default false)

RETURNS: The Snusbase response unchanged, typically matching records grouped by breach.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "snusbase_search_by_email",
		Method:   "SearchByEmail",
		Title:    "Search by Email",
		Category: "search",
		Description: `Find breach records for an email address.

USE WHEN: User asks "was my email leaked", "check a@b.com for breaches", "find all addresses at example.com" (with wildcard).

NOT FOR: Other fields (use snusbase_search with a type).

PARAMETERS:
- email: Address or pattern (required)
- wildcard: Treat email as a pattern, e.g. %@example.com (default false)

RETURNS: The Snusbase response unchanged.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "snusbase_search_by_username",
		Method:   "SearchByUsername",
		Title:    "Search by Username",
		Category: "search",
		Description: `Find breach records for a username.

USE WHEN: User asks "is username X in any leak", "what breaches include the handle X".

NOT FOR: Real names (use snusbase_search with type name).

PARAMETERS:
- username: Username or pattern (required)
- wildcard: Treat username as a pattern (default false)

RETURNS: The Snusbase response unchanged.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// LOOKUP TOOLS
	// ==========================================================================
	{
		Name:     "snusbase_hash_lookup",
		Method:   "HashLookup",
		Title:    "Hash Lookup",
		Category: "tools",
		Description: `Resolve a password hash to known plaintexts.

USE WHEN: User asks "crack this hash", "what password does 5f4dcc3b... belong to".

NOT FOR: Finding breach records that contain a hash (use snusbase_search with type hash).

PARAMETERS:
- hash: Hash value, a single token (required)

RETURNS: The Snusbase hash-lookup response unchanged.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "snusbase_ip_whois",
		Method:   "IPWhois",
		Title:    "IP WHOIS",
		Category: "tools",
		Description: `Get WHOIS and location data for an IP address.

USE WHEN: User asks "who owns IP X", "where is 1.1.1.1", "what ASN is this address".

NOT FOR: Finding accounts that logged in from an IP (use snusbase_search with type lastip).

PARAMETERS:
- ip: IPv4 or IPv6 address (required)

RETURNS: The Snusbase ip-whois response unchanged.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
