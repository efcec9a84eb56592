package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// token 中的声明字段，同时作为 gin.Context 中的键
const (
	JwtUserName = "username"
	JwtUserRole = "role"
)

const kindUnauthorized = "Unauthorized"

var errMissingToken = errors.New("missing bearer token")

// GenerateToken 签发 HS256 token，roles 以逗号拼接
func GenerateToken(secret, username string, roles []string, duration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		JwtUserName: username,
		JwtUserRole: strings.Join(roles, ","),
		"exp":       time.Now().Add(duration).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken 校验签名与过期时间，返回声明
func ParseToken(secret, tokenString string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// AuthMiddleware 登录校验，通过后在上下文中写入用户名与角色
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}
		username, _ := claims[JwtUserName].(string)
		if username == "" {
			abort(c, http.StatusUnauthorized, "token has no subject")
			return
		}
		role, _ := claims[JwtUserRole].(string)

		// 设置信息传递，后面才能从ctx中获取到用户信息
		c.Set(JwtUserName, username)
		c.Set(JwtUserRole, role)
		c.Next()
	}
}

// RequireAdmin 检查用户是否为管理员，需在 AuthMiddleware 之后使用
func RequireAdmin(adminRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, role := GetLoginUser(c)
		if username == "" {
			abort(c, http.StatusUnauthorized, errMissingToken.Error())
			return
		}
		roles := strings.Split(role, ",")
		for i := range roles {
			roles[i] = strings.TrimSpace(roles[i])
		}
		if !slices.Contains(roles, adminRole) {
			abort(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

// GetLoginUser 获取当前登录用户名与角色
func GetLoginUser(c *gin.Context) (username, role string) {
	username = c.GetString(JwtUserName)
	role = c.GetString(JwtUserRole)
	return username, role
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": kindUnauthorized})
}
