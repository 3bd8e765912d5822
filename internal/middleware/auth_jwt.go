package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

var errBadClaims = errors.New("bad claims")

// トークンから取り出した利用者
type Identity struct {
	UserID       int64
	Role         string
	TokenVersion int
}

// Bearerトークンを検証して利用者をcontextに入れる。
func AuthJWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("Not authorized, no token"))
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("Not authorized, token failed"))
			}

			id, err := identityFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("Not authorized, token failed"))
			}

			c.Set(CtxUserIDKey, id.UserID)
			c.Set(CtxUserRoleKey, id.Role)
			c.Set(CtxTokenVersionKey, id.TokenVersion)

			return next(c)
		}
	}
}

// AuthJWT の後でだけ使える
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	return id, ok && id > 0
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	var id Identity

	switch sub := claims["sub"].(type) {
	case float64:
		id.UserID = int64(sub)
	case string:
		v, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return Identity{}, errBadClaims
		}
		id.UserID = v
	default:
		return Identity{}, errBadClaims
	}
	if id.UserID <= 0 {
		return Identity{}, errBadClaims
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return Identity{}, errBadClaims
	}
	id.Role = role

	tv, ok := claims["tv"].(float64)
	if !ok || tv < 0 {
		return Identity{}, errBadClaims
	}
	id.TokenVersion = int(tv)

	return id, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
