package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"brandchat/internal/config"
	"brandchat/internal/model"
)

// 认证失败的分类
var (
	// ErrUnauthorized 所有凭证来源都无法解析出身份
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrForbidden 身份有效但角色不足
	ErrForbidden = errors.New("auth: forbidden")
	// ErrRoleLookup 角色查询本身出错，默认拒绝
	ErrRoleLookup = errors.New("auth: role lookup failed")
)

// errTokenLookup 撤销记录查询故障，区别于令牌本身无效
var errTokenLookup = errors.New("auth: token lookup failed")

// Identity 每次请求解析出的 (user_id, role) 对，不跨请求持久化
type Identity struct {
	UserID string
	Email  string
	Role   string // 来自令牌元数据的角色，可能为空
}

// UserStore 用户与令牌存取
type UserStore interface {
	CreateUser(user *model.User) error
	GetUserByID(id string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	CreateToken(token *model.AuthToken) error
	GetTokenByValue(tokenValue string) (*model.AuthToken, error)
	RevokeToken(tokenID string) error
}

// ProfileStore 档案与角色存取
type ProfileStore interface {
	Create(profile *model.Profile) error
	GetRole(id string) (string, error)
}

// Service 认证服务
// 同一个实例同时服务登录/注册和请求级的身份解析
type Service struct {
	users    UserStore
	profiles ProfileStore
	cfg      config.AuthConfig
	log      *logrus.Logger
	secret   []byte
}

// NewService 创建认证服务
func NewService(users UserStore, profiles ProfileStore, cfg config.AuthConfig, log *logrus.Logger) *Service {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		randomBytes := make([]byte, 32)
		if _, err := rand.Read(randomBytes); err != nil {
			panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
		}
		secret = base64.StdEncoding.EncodeToString(randomBytes)
	}
	return &Service{
		users:    users,
		profiles: profiles,
		cfg:      cfg,
		log:      log,
		secret:   []byte(secret),
	}
}

// CookieName 会话 Cookie 名
func (s *Service) CookieName() string {
	return s.cfg.SessionCookie
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message,omitempty"`
	User         *model.UserInfo `json:"user,omitempty"`
	Token        string          `json:"token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
}

// Register 注册用户，同时建立 profile 行（角色默认 user）
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*model.UserInfo, error) {
	existingUser, _ := s.users.GetUserByEmail(req.Email)
	if existingUser != nil {
		return nil, errors.New("user with this email already exists")
	}

	existingUser, _ = s.users.GetUserByUsername(req.Username)
	if existingUser != nil {
		return nil, errors.New("user with this username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}

	if err := s.users.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	profile := &model.Profile{
		ID:       user.ID,
		Role:     model.RoleUser,
		Email:    user.Email,
		Username: user.Username,
	}
	if err := s.profiles.Create(profile); err != nil {
		// 档案缺失时角色查询会拒绝管理操作，但注册本身已成立
		s.log.WithError(err).WithField("user_id", user.ID).Error("failed to create profile")
	}

	return user.ToUserInfo(), nil
}

// Login 用户登录
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetUserByEmail(req.Email)
	if err != nil {
		return &LoginResponse{Success: false, Message: "Invalid email or password"}, nil
	}

	if !user.IsActive {
		return &LoginResponse{Success: false, Message: "Account is disabled"}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return &LoginResponse{Success: false, Message: "Invalid email or password"}, nil
	}

	accessToken, refreshToken, err := s.generateTokens(user)
	if err != nil {
		return &LoginResponse{Success: false, Message: "Login failed"}, err
	}

	info := user.ToUserInfo()
	if role, err := s.profiles.GetRole(user.ID); err == nil {
		info.Role = role
	}

	return &LoginResponse{
		Success:      true,
		Message:      "Login successful",
		User:         info,
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Logout 撤销令牌
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	tokenRecord, err := s.users.GetTokenByValue(tokenString)
	if err != nil {
		return err
	}
	return s.users.RevokeToken(tokenRecord.ID)
}

// RefreshToken 刷新令牌
func (s *Service) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	claims, err := s.parseClaims(refreshTokenString)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != "refresh" {
		return "", "", errors.New("not a refresh token")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", "", errors.New("invalid user ID in token")
	}

	tokenRecord, err := s.users.GetTokenByValue(refreshTokenString)
	if err != nil || tokenRecord == nil || tokenRecord.IsRevoked {
		return "", "", errors.New("refresh token is revoked")
	}

	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return "", "", err
	}

	_ = s.users.RevokeToken(tokenRecord.ID)

	return s.generateTokens(user)
}

// ========== 请求级身份解析 ==========

// Authenticate 从请求解析身份
//
// 解析顺序，先到先得：
//  1. 会话 Cookie，严格校验（签名 + 撤销记录）
//  2. 同一 Cookie 的宽松回退：撤销记录查不到（存储故障）时只信签名
//  3. Authorization: Bearer 令牌，严格校验
//
// 全部失败返回 ErrUnauthorized
func (s *Service) Authenticate(r *http.Request) (*Identity, error) {
	if cookie, err := r.Cookie(s.cfg.SessionCookie); err == nil && cookie.Value != "" {
		identity, err := s.identityFromToken(cookie.Value)
		if err == nil {
			return identity, nil
		}

		if identity, ok := s.lenientIdentity(cookie.Value, err); ok {
			return identity, nil
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		identity, err := s.identityFromToken(token)
		if err == nil {
			return identity, nil
		}
	}

	return nil, ErrUnauthorized
}

// RequireRole 校验身份是否具备指定角色
//
// 两个角色来源按序尝试：令牌元数据里的角色（快路径）、
// profiles.role 列（经服务级连接，绕过按行授权）。
// 查询出错记录日志并默认拒绝，绝不静默放行
func (s *Service) RequireRole(ctx context.Context, identity *Identity, role string) error {
	if identity == nil {
		return ErrUnauthorized
	}

	if identity.Role != "" {
		if identity.Role == role {
			return nil
		}
		return ErrForbidden
	}

	dbRole, err := s.profiles.GetRole(identity.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 角色缺失与查询故障是不同情形，缺失直接视为权限不足
			return ErrForbidden
		}
		s.log.WithError(err).WithField("user_id", identity.UserID).Error("role lookup failed")
		return fmt.Errorf("%w: %v", ErrRoleLookup, err)
	}

	if dbRole != role {
		return ErrForbidden
	}
	return nil
}

// identityFromToken 严格校验：签名有效、撤销记录存在且未撤销
func (s *Service) identityFromToken(tokenString string) (*Identity, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil, err
	}

	tokenRecord, err := s.users.GetTokenByValue(tokenString)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 记录确实不存在：令牌已失效，不进入宽松回退
			return nil, errors.New("token not found")
		}
		return nil, fmt.Errorf("%w: %v", errTokenLookup, err)
	}
	if tokenRecord.IsRevoked {
		return nil, errors.New("token is revoked")
	}

	return identityFromClaims(claims)
}

// lenientIdentity 宽松回退：撤销记录查询出故障时，只依据签名解析身份
// 签名本身无效或记录确实不存在时不回退
func (s *Service) lenientIdentity(tokenString string, strictErr error) (*Identity, bool) {
	if !errors.Is(strictErr, errTokenLookup) {
		return nil, false
	}

	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil, false
	}
	identity, err := identityFromClaims(claims)
	if err != nil {
		return nil, false
	}

	s.log.WithField("user_id", identity.UserID).Warn("session resolved without revocation check")
	return identity, true
}

// parseClaims 解析并验证 JWT 签名与有效期
func (s *Service) parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// identityFromClaims 从 claims 提取身份
func identityFromClaims(claims jwt.MapClaims) (*Identity, error) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid user ID in token")
	}

	identity := &Identity{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	return identity, nil
}

// generateTokens 生成访问令牌和刷新令牌
func (s *Service) generateTokens(user *model.User) (string, string, error) {
	accessTTL := time.Duration(s.cfg.AccessTokenTTL) * time.Hour
	refreshTTL := time.Duration(s.cfg.RefreshTokenTTL) * time.Hour

	accessClaims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(accessTTL).Unix(),
		"iat":     time.Now().Unix(),
		"type":    "access",
	}

	// 角色嵌入令牌作为 RequireRole 的快路径，查不到时留空走档案查询
	if role, err := s.profiles.GetRole(user.ID); err == nil && role != "" {
		accessClaims["role"] = role
	}

	accessTokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessToken, err := accessTokenObj.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	refreshClaims := jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(refreshTTL).Unix(),
		"iat":     time.Now().Unix(),
		"type":    "refresh",
	}

	refreshTokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshToken, err := refreshTokenObj.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}

	accessTokenRecord := &model.AuthToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     accessToken,
		TokenType: "access_token",
		ExpiresAt: time.Now().Add(accessTTL),
	}

	refreshTokenRecord := &model.AuthToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     refreshToken,
		TokenType: "refresh_token",
		ExpiresAt: time.Now().Add(refreshTTL),
	}

	_ = s.users.CreateToken(accessTokenRecord)
	_ = s.users.CreateToken(refreshTokenRecord)

	return accessToken, refreshToken, nil
}
