package diagnostics

import "strings"

type BrowserName string

const (
	BrowserChrome  BrowserName = "Chrome"
	BrowserFirefox BrowserName = "Firefox"
	BrowserSafari  BrowserName = "Safari"
	BrowserEdge    BrowserName = "Edge"
	BrowserOpera   BrowserName = "Opera"
	BrowserUnknown BrowserName = "Unknown"
)

type browserSignature struct {
	name   BrowserName
	tokens []string
}

// Agent strings carry several family tokens (Edge and Opera both advertise
// Chrome and Safari), so signatures are tested in this order and the first
// match wins.
var browserSignatures = []browserSignature{
	{name: BrowserChrome, tokens: []string{"Chrome"}},
	{name: BrowserFirefox, tokens: []string{"Firefox"}},
	{name: BrowserSafari, tokens: []string{"Safari"}},
	{name: BrowserEdge, tokens: []string{"Edg"}},
	{name: BrowserOpera, tokens: []string{"Opera", "OPR"}},
}

// DetectBrowser classifies a user agent string.
func DetectBrowser(userAgent string) BrowserName {
	for _, signature := range browserSignatures {
		for _, token := range signature.tokens {
			if strings.Contains(userAgent, token) {
				return signature.name
			}
		}
	}
	return BrowserUnknown
}
