package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
)

type accountContextKey struct{}

// AccountFromContext returns the account stored by Guard.
func AccountFromContext(ctx context.Context) (*account.Account, bool) {
	acct, ok := ctx.Value(accountContextKey{}).(*account.Account)
	return acct, ok && acct != nil
}

// WithAccount stores acct in ctx the way Guard does.
func WithAccount(ctx context.Context, acct *account.Account) context.Context {
	return context.WithValue(ctx, accountContextKey{}, acct)
}

// Guard resolves the bearer access token of every request and stores the
// account in the request context. Requests without a usable token never
// reach next.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := authcore.WithClientIP(r.Context(), ClientIP(r))
			acct, err := engine.CurrentAccount(ctx, token)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(ctx, acct)))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header value.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}
