package middleware

import (
	"net"
	"net/http"
)

// WithSubnet lets through only requests whose X-Real-IP belongs to subnet.
// An empty or unparsable subnet rejects everything.
func WithSubnet(subnet string) func(next http.Handler) http.Handler {
	_, ipNet, err := net.ParseCIDR(subnet)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := net.ParseIP(r.Header.Get("X-Real-IP"))
			if err != nil || ip == nil || !ipNet.Contains(ip) {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
