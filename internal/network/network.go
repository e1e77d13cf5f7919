// Package network answers questions about how the agent is reachable from
// the outside, used to default the advertised server address and the remote
// log destination.
package network

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/leighmacdonald/slottrack/internal/network/encoding"
)

// httpClientV4 creates a http client only capable of speaking ipv4. This is used when querying the external
// ip so it returns a usable ip. It must use the v4 stack as thats all that srcds supports.
func httpClientV4() *http.Client {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _ string, addr string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "tcp4", addr)
			},
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 6 * time.Second,
		},
	}

	return client
}

type IPInfo struct {
	IP  string `json:"ip"`
	ISP struct {
		ASN string `json:"asn"`
		Org string `json:"org"`
		ISP string `json:"isp"`
	} `json:"isp"`
}

var ErrQueryIP = errors.New("failed to query ip")

// FetchIPInfo queries a remote api and returns the public routable ip of the client.
func FetchIPInfo(ctx context.Context) (*IPInfo, error) {
	return FetchJSON[IPInfo](ctx, "https://api.ipquery.io/?format=json")
}

// FetchJSON will query a json http service using a generic type for receiving results.
func FetchJSON[T any](ctx context.Context, url string) (*T, error) {
	client := httpClientV4()

	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if errReq != nil {
		return nil, errors.Join(errReq, ErrQueryIP)
	}

	resp, errResp := client.Do(req)
	if errResp != nil {
		return nil, errors.Join(errResp, ErrQueryIP)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	info, errInfo := encoding.UnmarshalJSON[T](resp.Body)
	if errInfo != nil {
		return nil, errors.Join(errInfo, ErrQueryIP)
	}

	return &info, nil
}
