package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resp(status int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{StatusCode: status, Header: h}
}

func TestDetectBlock(t *testing.T) {
	long := strings.Repeat("<p>real content</p>", 200)
	tests := []struct {
		name string
		resp *http.Response
		body string
		want BlockType
	}{
		{"nil response", nil, "", BlockNone},
		{"cf header", resp(403, map[string]string{"cf-ray": "abc"}), "", BlockCloudflare},
		{"cf server", resp(503, map[string]string{"server": "Cloudflare"}), "", BlockCloudflare},
		{"cf challenge body", resp(200, nil), "Checking your browser before accessing", BlockCloudflare},
		{"captcha", resp(200, nil), `<div class="g-recaptcha"></div>`, BlockCaptcha},
		{"waf", resp(403, nil), "<h1>Access Denied</h1>", BlockWAF},
		{"js shell", resp(200, nil), "<noscript>You need to enable JavaScript</noscript>", BlockJSShell},
		{"meta refresh", resp(200, nil), `<meta http-equiv="refresh" content="0;url=/x">`, BlockJSShell},
		{"login wall", resp(200, nil), `<a href="/authwall">Sign in</a>`, BlockLoginWall},
		{"normal page", resp(200, nil), long, BlockNone},
		{"403 without markers", resp(403, nil), "nope", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, kind := DetectBlock(tt.resp, []byte(tt.body))
			assert.Equal(t, tt.want != BlockNone, blocked)
			assert.Equal(t, tt.want, kind)
		})
	}
}
