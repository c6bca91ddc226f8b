package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken token无效
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken token已过期
	ErrExpiredToken = errors.New("token expired")
	// ErrTokenNotYetValid token尚未生效
	ErrTokenNotYetValid = errors.New("token not yet valid")
)

// Claims JWT声明
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager JWT管理器
type Manager struct {
	secretKey      []byte
	issuer         string
	expireDuration time.Duration
}

// NewManager 创建JWT管理器
func NewManager(secretKey, issuer string, expireDuration time.Duration) *Manager {
	return &Manager{
		secretKey:      []byte(secretKey),
		issuer:         issuer,
		expireDuration: expireDuration,
	}
}

// GenerateToken 生成JWT token
func (m *Manager) GenerateToken(userID, username, role string) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expireDuration)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ParseToken 解析JWT token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// RefreshWindow 过期 token 仍可用于刷新的时长
const RefreshWindow = 7 * 24 * time.Hour

// ErrRefreshWindowExceeded token过期超过刷新窗口
var ErrRefreshWindowExceeded = errors.New("token expired beyond refresh window")

// ParseForRefresh 解析待刷新的token，已过期但仍在刷新窗口内的token也可通过。
// 新token应由调用方根据当前用户数据签发，不能沿用旧声明中的角色
func (m *Manager) ParseForRefresh(tokenString string) (*Claims, error) {
	claims, err := m.ParseToken(tokenString)
	if err == nil {
		return claims, nil
	}
	if !errors.Is(err, ErrExpiredToken) {
		return nil, err
	}

	// 签名仍需校验，仅跳过时间相关的声明校验
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrInvalidToken
	}

	parsed, ok := token.Claims.(*Claims)
	if !ok || parsed.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if time.Since(parsed.ExpiresAt.Time) > RefreshWindow {
		return nil, ErrRefreshWindowExceeded
	}
	return parsed, nil
}

// RoleManager 审核员角色，拥有应用审核与管理权限
const RoleManager = "manager"

// IsManager 检查用户是否为审核员
func (c *Claims) IsManager() bool {
	return c.Role == RoleManager
}

// IsActive 检查token是否在有效期内
func (c *Claims) IsActive() bool {
	now := time.Now()
	return now.After(c.NotBefore.Time) && now.Before(c.ExpiresAt.Time)
}
