package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockWAF        BlockType = "waf"
	BlockLoginWall  BlockType = "login_wall"
)

// DetectBlock checks an HTTP response for anti-bot interstitials and login
// walls. Such pages must never become evidence.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "captcha") {
		return true, BlockCaptcha
	}

	if resp.StatusCode == http.StatusForbidden &&
		(strings.Contains(lower, "access denied") || strings.Contains(lower, "request blocked")) {
		return true, BlockWAF
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	// Social sites answer anonymous fetches with a sign-in page.
	if strings.Contains(lower, "authwall") || strings.Contains(lower, "sign in to continue") ||
		strings.Contains(lower, "log in to continue") {
		return true, BlockLoginWall
	}

	return false, BlockNone
}
