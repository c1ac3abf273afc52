package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
)

// Normalize приводит адрес клиента к каноническому виду: из заголовка
// перенаправления берётся первый адрес, иначе — адрес соединения без порта.
func Normalize(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first := strings.Split(forwardedFor, ",")[0]
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}
	return strings.TrimSpace(host)
}

// Hash возвращает необратимый отпечаток нормализованного адреса.
func Hash(addr string) string {
	sum := sha256.Sum256([]byte(addr))
	return hex.EncodeToString(sum[:])
}
