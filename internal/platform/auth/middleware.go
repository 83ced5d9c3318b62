package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"
)

// ダッシュボードを閲覧できるロール
var DashboardRoles = []string{"admin", "staff"}

// Claims: ログイン側のサービスが発行するトークンの中身（sub と role だけ見る）
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth: Authorization: Bearer <token> を HS256 で検証し、sub/role を context に詰める。
// roles が指定されていればそのロール以外は 403。
func RequireAuth(secret []byte, roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if r != "" {
			roleSet[r] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		tokenStr, msg := bearerToken(c.GetHeader("Authorization"))
		if msg != "" {
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", msg)
			return
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || token == nil || !token.Valid {
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token")
			return
		}
		if claims.Subject == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing sub")
			return
		}

		if len(roleSet) > 0 {
			if _, ok := roleSet[claims.Role]; !ok {
				abort(c, http.StatusForbidden, "FORBIDDEN", "role not allowed")
				return
			}
		}

		c.Set(CtxUserIDKey, claims.Subject)
		c.Set(CtxRoleKey, claims.Role)
		c.Next()
	}
}

func bearerToken(h string) (string, string) {
	if h == "" {
		return "", "missing Authorization header"
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "invalid Authorization header"
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", "empty token"
	}
	return tok, ""
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": msg}})
}
