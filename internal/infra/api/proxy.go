package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

// configureProxy routes the transport through an HTTP or SOCKS5 proxy.
func configureProxy(transport *http.Transport, proxyString string) {
	parts := strings.Split(proxyString, ":")
	if len(parts) < 2 {
		return
	}

	host := parts[0]
	port := parts[1]

	proxyType := "http"
	var username, password string

	if len(parts) >= 4 {
		username = parts[2]
		password = parts[3]
		if len(parts) >= 5 {
			proxyType = strings.ToLower(parts[4])
		}
	}

	if strings.HasPrefix(proxyType, "socks") {
		var auth *proxy.Auth
		if username != "" && password != "" {
			auth = &proxy.Auth{User: username, Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%s", host, port), auth, proxy.Direct)
		if err == nil {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			}
		}
		return
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%s", host, port),
	}
	if username != "" && password != "" {
		proxyURL.User = url.UserPassword(username, password)
	}
	transport.Proxy = http.ProxyURL(proxyURL)
}
