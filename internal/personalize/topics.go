package personalize

import "strings"

// cryptoTopics is the fixed vocabulary used for interest inference.
// Multi-word entries match as substrings of the tokenized query.
var cryptoTopics = []string{
	// Coins and ecosystems
	"bitcoin", "btc", "ethereum", "eth", "solana", "sol", "cardano", "ada",
	"polkadot", "dot", "avalanche", "avax", "polygon", "matic", "chainlink",
	"link", "ripple", "xrp", "dogecoin", "doge", "litecoin", "ltc",
	"binance", "bnb", "tron", "trx", "cosmos", "atom", "near",
	"arbitrum", "optimism", "base", "sui", "aptos", "ton", "toncoin",

	// Categories
	"defi", "nft", "metaverse", "gaming", "web3", "dao", "stablecoin",
	"layer 2", "layer2", "l2", "bridge", "dex", "cex", "amm",
	"yield farming", "staking", "lending", "borrowing", "derivatives",

	// Broader themes
	"regulation", "sec", "cftc", "etf", "institutional", "adoption",
	"security", "hack", "exploit", "rug pull", "scam",
	"mining", "proof of stake", "proof of work", "consensus",
	"cbdc", "privacy", "zk", "zero knowledge", "rollup",
	"ai", "artificial intelligence", "rwa", "tokenization",
	"airdrop", "ico", "ido", "launchpad",
}

// topicAliases maps vocabulary entries to their canonical topic so that
// "btc" and "bitcoin" accumulate weight on one interest.
var topicAliases = map[string]string{
	"btc": "Bitcoin", "bitcoin": "Bitcoin",
	"eth": "Ethereum", "ethereum": "Ethereum",
	"sol": "Solana", "solana": "Solana",
	"ada": "Cardano", "cardano": "Cardano",
	"dot": "Polkadot", "polkadot": "Polkadot",
	"avax": "Avalanche", "avalanche": "Avalanche",
	"matic": "Polygon", "polygon": "Polygon",
	"link": "Chainlink", "chainlink": "Chainlink",
	"xrp": "XRP", "ripple": "XRP",
	"doge": "Dogecoin", "dogecoin": "Dogecoin",
	"ltc": "Litecoin", "litecoin": "Litecoin",
	"bnb": "BNB", "binance": "BNB",
	"trx": "TRON", "tron": "TRON",
	"atom": "Cosmos", "cosmos": "Cosmos",
	"ton": "TON", "toncoin": "TON",
	"defi": "DeFi", "nft": "NFT",
	"layer 2": "Layer 2", "layer2": "Layer 2", "l2": "Layer 2",
	"sec": "SEC", "cftc": "CFTC", "etf": "ETF", "cbdc": "CBDC",
	"zk": "Zero Knowledge", "zero knowledge": "Zero Knowledge",
	"ai": "AI", "artificial intelligence": "AI",
	"rwa": "RWA", "ico": "ICO", "ido": "IDO",
}

// ExtractTopics finds vocabulary topics in the query by word-boundary
// match and returns their canonical forms, deduplicated, in vocabulary
// order. Fast keyword matching, no model involved.
func ExtractTopics(query string) []string {
	lower := strings.ToLower(query)
	// Pad with spaces so boundary checks work at the string edges.
	padded := " " + strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return ' '
	}, lower) + " "

	seen := make(map[string]bool)
	var found []string
	for _, topic := range cryptoTopics {
		if !strings.Contains(padded, " "+topic+" ") {
			continue
		}
		canonical := Canonicalize(topic)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		found = append(found, canonical)
	}
	return found
}

// Canonicalize maps an alias to its canonical topic name, or returns the
// input unchanged when no alias is registered.
func Canonicalize(topic string) string {
	if canonical, ok := topicAliases[strings.ToLower(topic)]; ok {
		return canonical
	}
	return topic
}
