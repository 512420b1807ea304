package middleware

import (
	"net/http"
	"strings"

	"energycalc/internal/app/config"
	"energycalc/internal/app/ds"
	"energycalc/internal/app/redis"
	"energycalc/internal/app/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	UserIDKey      = "userID"
	IsModeratorKey = "isModerator"
)

type AuthMiddleware struct {
	Repository  *repository.Repository
	RedisClient *redis.Client
	Config      *config.Config
}

func NewAuthMiddleware(repo *repository.Repository, redisClient *redis.Client, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		Repository:  repo,
		RedisClient: redisClient,
		Config:      cfg,
	}
}

// identify разрешает личность вызывающего по любому из поддерживаемых
// способов: Bearer JWT в Authorization, токен сессии в заголовке X-Session-Id
// или в куке session_id. Возвращает false, если ни один способ не сработал.
func (am *AuthMiddleware) identify(gCtx *gin.Context) (uint, bool, bool) {
	// 1. JWT из заголовка Authorization
	jwtStr := gCtx.GetHeader("Authorization")
	if jwtStr != "" {
		jwtStr = strings.TrimPrefix(jwtStr, "Bearer ")

		// Токен в blacklist недействителен
		if err := am.RedisClient.CheckJWTInBlacklist(gCtx.Request.Context(), jwtStr); err != nil {
			token, err := am.parseJWTToken(jwtStr)
			if err == nil {
				if claims, ok := token.Claims.(*ds.JWTClaims); ok && token.Valid {
					return claims.UserID, claims.IsModerator, true
				}
			}
		}
	}

	// 2. Токен сессии: заголовок или кука
	sessionID := gCtx.GetHeader("X-Session-Id")
	if sessionID == "" {
		sessionID, _ = gCtx.Cookie("session_id")
	}
	if sessionID == "" {
		return 0, false, false
	}

	userID, err := am.RedisClient.ReadSession(gCtx.Request.Context(), sessionID)
	if err != nil {
		return 0, false, false
	}

	user, err := am.Repository.GetUserByID(userID)
	if err != nil {
		return 0, false, false
	}

	return user.ID, user.IsModerator, true
}

// WithAuthCheck middleware для проверки авторизации
func (am *AuthMiddleware) WithAuthCheck() gin.HandlerFunc {
	return func(gCtx *gin.Context) {
		userID, isModerator, ok := am.identify(gCtx)
		if !ok {
			gCtx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		gCtx.Set(UserIDKey, userID)
		gCtx.Set(IsModeratorKey, isModerator)
		gCtx.Next()
	}
}

// WithModeratorCheck middleware для операций, доступных только модератору
func (am *AuthMiddleware) WithModeratorCheck() gin.HandlerFunc {
	return func(gCtx *gin.Context) {
		userID, isModerator, ok := am.identify(gCtx)
		if !ok {
			gCtx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !isModerator {
			gCtx.AbortWithStatus(http.StatusForbidden)
			return
		}

		gCtx.Set(UserIDKey, userID)
		gCtx.Set(IsModeratorKey, isModerator)
		gCtx.Next()
	}
}

// WithOptionalAuth не требует авторизации, но заполняет контекст если она есть
func (am *AuthMiddleware) WithOptionalAuth() gin.HandlerFunc {
	return func(gCtx *gin.Context) {
		if userID, isModerator, ok := am.identify(gCtx); ok {
			gCtx.Set(UserIDKey, userID)
			gCtx.Set(IsModeratorKey, isModerator)
		}
		gCtx.Next()
	}
}

// parseJWTToken парсит и валидирует JWT токен
func (am *AuthMiddleware) parseJWTToken(tokenString string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenString, &ds.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(am.Config.JWT.Token), nil
	})
}
