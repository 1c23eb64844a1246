package constants

import "time"

// Program address seeds
const (
	SeedConfig     = "config"
	SeedSwapOrder  = "swap_order"
	SeedPoolVaults = "pool"
)

// Fee limits
const (
	BpsDenominator = 10_000
	MaxFeeBps      = 1_000 // 10%
)

// Redis keys
const (
	RedisKeyConfig      = "settlement:config"
	RedisKeyOrderPrefix = "settlement:order:"
	RedisKeyOrderIndex  = "settlement:orders"
	RedisKeyAccounts    = "settlement:accounts"
)

// Redis Pub/Sub channels
const (
	PubSubChannelAll          = "settlements:all"
	PubSubChannelStatusPrefix = "settlements:status:"
	PubSubChannelOrderPrefix  = "settlements:order:"
)

// Limits
const (
	MaxListOrders    = 200
	MaxInvokeDepth   = 4
	DefaultSigMaxAge = 30 * time.Second
)

// Default program addresses
var ProgramAddresses = map[string]string{
	"SuperSwap": "EzUq3vK7g8JvTLQzKvNAzBCjRz6wNJaZMWZPQVRz7nJq",
	"Jupiter":   "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
	// Orca legacy constant-product swap program
	"Orca": "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP",
}

// Token mint addresses to symbols
var TokenSymbols = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
}

// Symbol returns a display symbol for a mint, falling back to the address.
func Symbol(mint string) string {
	if s, ok := TokenSymbols[mint]; ok {
		return s
	}
	return mint
}
