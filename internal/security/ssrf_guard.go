// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

var allowedSchemes = []string{"http", "https"}

// blockedPrefixes は設定値の静的検証で拒否するアドレス範囲。
// 実際の接続時はsafeurlが解決後のIPで同等の検査を行う。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"), // クラウドのメタデータIPを含む
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// GatewayClientConfig は外部API呼び出し用HTTPクライアントの設定。
type GatewayClientConfig struct {
	Timeout time.Duration
	// Endpoints は接続先のURL。明示されたポートを許可リストに加える。
	Endpoints []string
	// AllowPrivate がtrueならプライベートIPやループバックへの接続を許す。
	// 参照ゲートウェイを同一ホストやDocker内部ネットワークで動かす場合に使う。
	AllowPrivate bool
}

// NewGatewayHTTPClient は認証API・メトリクス設定API向けのHTTPクライアントを返す。
// AllowPrivateがfalseの場合、接続先はsafeurlによりDNS解決後のIPで検査される。
func NewGatewayHTTPClient(cfg GatewayClientConfig) *http.Client {
	if cfg.AllowPrivate {
		return &http.Client{Timeout: cfg.Timeout}
	}

	guarded := safeurl.GetConfigBuilder().
		SetTimeout(cfg.Timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(allowedPorts(cfg.Endpoints)...).
		Build()
	return safeurl.Client(guarded).Client
}

// allowedPorts は80と443に、Endpointsに現れる明示ポートを重複なく追加する。
func allowedPorts(endpoints []string) []int {
	ports := []int{80, 443}
	for _, raw := range endpoints {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if p, err := strconv.Atoi(u.Port()); err == nil && !slices.Contains(ports, p) {
			ports = append(ports, p)
		}
	}
	return ports
}

// ValidateGatewayURL は起動時に外部APIのURLを検査する。
// スキームとホストは常に検査し、allowPrivateがfalseならlocalhostとblockedPrefixesのIPも拒否する。
// DNSは引かないため、名前解決後の検査はNewGatewayHTTPClientに任せる。
func ValidateGatewayURL(rawURL string, allowPrivate bool) error {
	if rawURL == "" {
		return errors.New("empty URL")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !slices.Contains(allowedSchemes, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", u.Scheme, allowedSchemes)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if allowPrivate {
		return nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isBlockedAddr(addr) {
			return fmt.Errorf("blocked IP address: %s", addr)
		}
		return nil
	}

	if h := strings.ToLower(host); h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

// isBlockedAddr はIPv4射影アドレスをIPv4として扱ったうえで範囲を判定する。
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return slices.ContainsFunc(blockedPrefixes, func(p netip.Prefix) bool {
		return p.Contains(addr)
	})
}
