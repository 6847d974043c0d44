package hybrid

import "strings"

// synonyms maps a lowercase query token to aliases unioned into the query
// before search. Static lookup, never learned.
var synonyms = map[string][]string{
	"btc":      {"bitcoin"},
	"bitcoin":  {"btc"},
	"eth":      {"ethereum", "ether"},
	"ethereum": {"eth", "ether"},
	"sol":      {"solana"},
	"solana":   {"sol"},
	"xrp":      {"ripple"},
	"ripple":   {"xrp"},
	"ada":      {"cardano"},
	"cardano":  {"ada"},
	"doge":     {"dogecoin"},
	"dogecoin": {"doge"},
	"bnb":      {"binance"},
	"usdt":     {"tether"},
	"tether":   {"usdt"},
	"usdc":     {"circle"},
	"defi":     {"decentralized finance"},
	"nft":      {"non-fungible token"},
	"etf":      {"exchange-traded fund"},
	"sec":      {"securities and exchange commission"},
	"cbdc":     {"central bank digital currency"},
}

// ExpandQuery appends synonyms for any recognised token to the query, in
// token order, skipping aliases already present. The result is
// deterministic for a given input.
func ExpandQuery(query string) string {
	lower := strings.ToLower(query)
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(lower) {
		seen[tok] = true
	}
	var extra []string
	for _, tok := range strings.Fields(lower) {
		for _, alias := range synonyms[tok] {
			if seen[alias] {
				continue
			}
			seen[alias] = true
			extra = append(extra, alias)
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
