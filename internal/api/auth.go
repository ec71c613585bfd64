package api

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

const authRealm = `Basic realm="Myle API"`

// basicAuthMiddleware rejects requests to secured operations without valid credentials.
// Operations registered with an empty Security list are public.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	wantUser, wantPass := []byte(username), []byte(password)

	return func(ctx huma.Context, next func(huma.Context)) {
		if op := ctx.Operation(); op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		user, pass, problem := credentials(ctx)
		if problem == "" {
			userOK := subtle.ConstantTimeCompare([]byte(user), wantUser) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), wantPass) == 1
			if !userOK || !passOK {
				problem = "Invalid credentials"
			}
		}
		if problem != "" {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, problem)
			return
		}

		next(ctx)
	}
}

// credentials reads user and password from the Authorization header, or from the
// base64 "auth" query parameter that EventSource clients use since they cannot
// set headers. problem is non-empty when neither yields usable credentials.
func credentials(ctx huma.Context) (user, pass, problem string) {
	// A '+' in an unescaped query value arrives as a space.
	encoded := strings.ReplaceAll(ctx.Query("auth"), " ", "+")
	if header := ctx.Header("Authorization"); header != "" {
		scheme, value, _ := strings.Cut(header, " ")
		if !strings.EqualFold(scheme, "Basic") {
			return "", "", "Invalid authentication type"
		}
		encoded = strings.TrimSpace(value)
	}
	if encoded == "" {
		return "", "", "Authentication required"
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", "Invalid credentials format"
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", "Invalid credentials format"
	}
	return user, pass, ""
}
