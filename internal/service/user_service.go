package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/auth"
	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/user"
)

const (
	redisVerifyCodeKey    = "email_verify:code:%s"    // email
	redisVerifyAttemptKey = "email_verify:attempt:%s" // email
	redisVerifyBlockKey   = "email_verify:block:%s"   // email

	verifyCodeTTLSeconds  = 300
	verifyBlockTTLSeconds = 1800
	verifyMaxAttempts     = 3
)

// MailSender 邮件发送协作方。投递本身不在本服务范围内，默认实现仅记日志。
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailSender 只打日志的 MailSender 实现
type LogMailSender struct{}

func (LogMailSender) Send(ctx context.Context, to, subject, body string) error {
	zap.L().Info("mail send (log only)",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// codeStore 验证码状态存储：验证码、尝试计数、封禁标记。默认实现落在 Redis 上。
type codeStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetEX(ctx context.Context, key string, seconds int, value string) error
	Incr(ctx context.Context, key string) (int, error)
	Expire(ctx context.Context, key string, seconds int) error
	Del(ctx context.Context, keys ...string) error
}

// redisCodeStore 基于 Redis 的 codeStore 实现
type redisCodeStore struct {
	client radix.Client
}

func (s redisCodeStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.client.Do(radix.Cmd(&v, "GET", key))
	return v, err
}

func (s redisCodeStore) SetEX(ctx context.Context, key string, seconds int, value string) error {
	return s.client.Do(radix.FlatCmd(nil, "SETEX", key, seconds, value))
}

func (s redisCodeStore) Incr(ctx context.Context, key string) (int, error) {
	var n int
	err := s.client.Do(radix.Cmd(&n, "INCR", key))
	return n, err
}

func (s redisCodeStore) Expire(ctx context.Context, key string, seconds int) error {
	return s.client.Do(radix.FlatCmd(nil, "EXPIRE", key, seconds))
}

func (s redisCodeStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Do(radix.Cmd(nil, "DEL", keys...))
}

type UserService struct {
	repo  user.Repository
	codes codeStore
	jwt   *config.JWTConfig
	mail  MailSender
}

// NewUserService 创建用户服务。redisClient 为 nil 时验证码功能降级不可用。
func NewUserService(repo user.Repository, redisClient radix.Client, jwt *config.JWTConfig, mail MailSender) *UserService {
	if mail == nil {
		mail = LogMailSender{}
	}
	var codes codeStore
	if redisClient != nil {
		codes = redisCodeStore{client: redisClient}
	}
	return &UserService{repo: repo, codes: codes, jwt: jwt, mail: mail}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

// Register 注册新用户，邮箱唯一
func (s *UserService) Register(ctx context.Context, email, password, name, address string) (*user.User, error) {
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u := &user.User{
		Email:   email,
		Salt:    "say4team", // 简化实现，真实业务请使用随机盐
		Name:    name,
		Address: address,
		Role:    user.RoleUser,
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 登录并返回 JWT
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", ErrInvalidCredentials
	}
	return auth.GenerateToken(s.jwt, u.Email, u.Role)
}

// ResolveByEmail 按邮箱解析用户（下单编排取收货地址用）
func (s *UserService) ResolveByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIdentityResolution, email)
		}
		return nil, err
	}
	return u, nil
}

// UpdateAddress 修改收货地址，只影响之后的订单（历史订单存快照）
func (s *UserService) UpdateAddress(ctx context.Context, ident Identity, address string) (*user.User, error) {
	u, err := s.ResolveByEmail(ctx, ident.Email)
	if err != nil {
		return nil, err
	}
	u.Address = address
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SendVerificationCode 生成邮箱验证码并写入存储，通过 MailSender 下发
func (s *UserService) SendVerificationCode(ctx context.Context, email string) error {
	if s.codes == nil {
		return fmt.Errorf("%w: verification store not configured", ErrDownstreamUnavailable)
	}

	blocked, err := s.codes.Get(ctx, fmt.Sprintf(redisVerifyBlockKey, email))
	if err != nil {
		GetMonitor().RecordRedisError()
		return err
	}
	if blocked != "" {
		return ErrVerifyBlocked
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	if err := s.codes.SetEX(ctx, fmt.Sprintf(redisVerifyCodeKey, email), verifyCodeTTLSeconds, code); err != nil {
		GetMonitor().RecordRedisError()
		return err
	}
	// 新验证码下发后清空旧的尝试计数
	_ = s.codes.Del(ctx, fmt.Sprintf(redisVerifyAttemptKey, email))

	return s.mail.Send(ctx, email, "이메일 인증 코드", "인증 코드: "+code)
}

// VerifyCode 校验验证码：错 3 次封禁 30 分钟，命中后销毁
func (s *UserService) VerifyCode(ctx context.Context, email, code string) error {
	if s.codes == nil {
		return fmt.Errorf("%w: verification store not configured", ErrDownstreamUnavailable)
	}

	blockKey := fmt.Sprintf(redisVerifyBlockKey, email)
	blocked, err := s.codes.Get(ctx, blockKey)
	if err != nil {
		GetMonitor().RecordRedisError()
		return err
	}
	if blocked != "" {
		return ErrVerifyBlocked
	}

	codeKey := fmt.Sprintf(redisVerifyCodeKey, email)
	stored, err := s.codes.Get(ctx, codeKey)
	if err != nil {
		GetMonitor().RecordRedisError()
		return err
	}
	if stored == "" || stored != code {
		attemptKey := fmt.Sprintf(redisVerifyAttemptKey, email)
		attempts, err := s.codes.Incr(ctx, attemptKey)
		if err != nil {
			GetMonitor().RecordRedisError()
			return err
		}
		if attempts == 1 {
			_ = s.codes.Expire(ctx, attemptKey, verifyCodeTTLSeconds)
		}
		if attempts >= verifyMaxAttempts {
			_ = s.codes.SetEX(ctx, blockKey, verifyBlockTTLSeconds, "1")
			return ErrVerifyBlocked
		}
		return ErrVerifyCodeMismatch
	}

	_ = s.codes.Del(ctx, codeKey, fmt.Sprintf(redisVerifyAttemptKey, email))
	return nil
}

// ListAll 全部用户（后台用）
func (s *UserService) ListAll(ctx context.Context) ([]*user.User, error) {
	return s.repo.ListAll(ctx)
}
