package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// New builds the shared HTTP client. Retries stay at 0: the fetch
// fallback ladder (direct -> proxies -> cache -> mock) is the retry
// policy, each stage is attempted exactly once per call.
func New(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTransport(&http.Transport{
			Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
		}).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}
