// Package jwt 校验运营人员访问令牌
// 令牌由外部账号系统签发，这里只保留签发函数供命令行工具和测试使用
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const operatorSubject = "operator"

// Claims 运营人员令牌声明
type Claims struct {
	OperatorID int64  `json:"operator_id"`
	Name       string `json:"name,omitempty"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config JWT 配置
type Config struct {
	Secret           string
	AccessExpireTime time.Duration
	Issuer           string
	Leeway           time.Duration
}

var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenNotActive = errors.New("token not active yet")
)

// Manager 令牌管理器，parser 在创建时按配置构造一次
type Manager struct {
	secret []byte
	config *Config
	parser *jwt.Parser
}

// NewManager 创建令牌管理器
// 配置了 Issuer 时同时校验 iss 声明
func NewManager(config *Config) *Manager {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(config.Leeway))
	}
	return &Manager{
		secret: []byte(config.Secret),
		config: config,
		parser: jwt.NewParser(opts...),
	}
}

// GenerateAccessToken 签发访问令牌，返回令牌和过期时间戳
func (m *Manager) GenerateAccessToken(operatorID int64, name, role string) (string, int64, error) {
	issuedAt := time.Now()
	expireAt := issuedAt.Add(m.config.AccessExpireTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		OperatorID: operatorID,
		Name:       name,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   operatorSubject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expireAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, expireAt.Unix(), nil
}

// ParseToken 校验令牌签名和时间声明，返回运营人员声明
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.OperatorID <= 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// classify 将库错误归并为本包的四类错误
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrTokenNotActive
	default:
		return ErrTokenInvalid
	}
}
