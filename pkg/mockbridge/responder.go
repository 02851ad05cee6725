package mockbridge

import "strings"

// Responder produces the assistant reply for one user message. Returning an
// error makes the server surface a failure: an error event on the streaming
// path, a success=false body on the blocking path.
type Responder func(message string) (string, error)

// Canned replies, keyed by topic. KeywordResponder routes to them by
// substring match on the lowercased message.
const (
	replyRWA      = "RWA (Real World Assets) refers to the tokenization of real-world assets: traditional physical assets such as real estate, art, and commodities are represented as digital tokens on a blockchain, improving their liquidity and accessibility."
	replyInvest   = "For RWA investing, pay attention to the asset's fundamentals, its liquidity, regulatory compliance, and the platform's security. Diversification and risk management are key."
	replyRisk     = "The main risks of RWA investment include regulatory risk, liquidity risk, technology risk, and market risk. Make sure you understand them before investing."
	replyPlatform = "RWA Hub provides secure, transparent, and convenient RWA services, including asset information, investment analysis, and community discussion."
	replyDefault  = "Thanks for your question. I am the RWA Hub assistant, here to answer questions about real-world assets. Tell me what you would like to know."
)

// KeywordResponder is the default responder: a small keyword router over
// canned RWA-flavored replies.
func KeywordResponder(message string) (string, error) {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "rwa"), strings.Contains(lower, "asset"):
		return replyRWA, nil
	case strings.Contains(lower, "invest"):
		return replyInvest, nil
	case strings.Contains(lower, "risk"), strings.Contains(lower, "secur"):
		return replyRisk, nil
	case strings.Contains(lower, "platform"), strings.Contains(lower, "hub"):
		return replyPlatform, nil
	}

	return replyDefault, nil
}
