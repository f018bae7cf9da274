package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/auth"
	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/user"
)

type fakeUserRepo struct {
	byEmail map[string]*user.User
	nextID  int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*user.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	r.nextID++
	u.ID = r.nextID
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *user.User) error {
	if _, ok := r.byEmail[u.Email]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) ListAll(ctx context.Context) ([]*user.User, error) {
	var list []*user.User
	for _, u := range r.byEmail {
		list = append(list, u)
	}
	return list, nil
}

// fakeCodeStore 内存版验证码存储，TTL 不生效
type fakeCodeStore struct {
	data map[string]string
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{data: make(map[string]string)}
}

func (f *fakeCodeStore) Get(ctx context.Context, key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeCodeStore) SetEX(ctx context.Context, key string, seconds int, value string) error {
	f.data[key] = value
	return nil
}

func (f *fakeCodeStore) Incr(ctx context.Context, key string) (int, error) {
	n, _ := strconv.Atoi(f.data[key])
	n++
	f.data[key] = strconv.Itoa(n)
	return n, nil
}

func (f *fakeCodeStore) Expire(ctx context.Context, key string, seconds int) error {
	return nil
}

func (f *fakeCodeStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

// fakeMailSender 记录最后一封邮件，用于取出下发的验证码
type fakeMailSender struct {
	lastTo   string
	lastBody string
}

func (f *fakeMailSender) Send(ctx context.Context, to, subject, body string) error {
	f.lastTo = to
	f.lastBody = body
	return nil
}

func (f *fakeMailSender) lastCode() string {
	return strings.TrimPrefix(f.lastBody, "인증 코드: ")
}

// wrongGuess 返回一个确定与真实验证码不同的猜测
func wrongGuess(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

var testJWT = &config.JWTConfig{Secret: "test-secret"}

func newUserSvc() (*UserService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	return NewUserService(repo, nil, testJWT, nil), repo
}

func newVerifySvc() (*UserService, *fakeCodeStore, *fakeMailSender) {
	store := newFakeCodeStore()
	mail := &fakeMailSender{}
	svc := &UserService{repo: newFakeUserRepo(), codes: store, jwt: testJWT, mail: mail}
	return svc, store, mail
}

func TestRegister(t *testing.T) {
	svc, _ := newUserSvc()
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice@test.com", "pw123", "앨리스", "서울시")
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, u.Role)
	// 密码只存哈希
	assert.NotEqual(t, "pw123", u.Password)
	assert.NotEmpty(t, u.Password)

	// 邮箱唯一
	_, err = svc.Register(ctx, "alice@test.com", "other", "x", "y")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newUserSvc()
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@test.com", "pw123", "앨리스", "서울시")
	require.NoError(t, err)

	token, err := svc.Login(ctx, "alice@test.com", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// 令牌里带 email + role
	claims, err := auth.ParseToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@test.com", claims.Email)
	assert.Equal(t, user.RoleUser, claims.Role)

	_, err = svc.Login(ctx, "alice@test.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost@test.com", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveByEmail(t *testing.T) {
	svc, _ := newUserSvc()
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@test.com", "pw123", "앨리스", "서울시")
	require.NoError(t, err)

	u, err := svc.ResolveByEmail(ctx, "alice@test.com")
	require.NoError(t, err)
	assert.Equal(t, "서울시", u.Address)

	_, err = svc.ResolveByEmail(ctx, "ghost@test.com")
	assert.ErrorIs(t, err, ErrIdentityResolution)
}

func TestVerifyCodeBlocksAfterMaxAttempts(t *testing.T) {
	svc, store, mail := newVerifySvc()
	ctx := context.Background()

	require.NoError(t, svc.SendVerificationCode(ctx, "alice@test.com"))
	require.Len(t, mail.lastCode(), 6)
	bad := wrongGuess(mail.lastCode())

	// 错两次还能再试
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", bad), ErrVerifyCodeMismatch)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", bad), ErrVerifyCodeMismatch)

	// 第三次错直接封禁
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", bad), ErrVerifyBlocked)
	blocked, _ := store.Get(ctx, fmt.Sprintf(redisVerifyBlockKey, "alice@test.com"))
	assert.NotEmpty(t, blocked)

	// 封禁期间正确的验证码也不行，重新下发也不行
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", mail.lastCode()), ErrVerifyBlocked)
	assert.ErrorIs(t, svc.SendVerificationCode(ctx, "alice@test.com"), ErrVerifyBlocked)
}

func TestVerifyCodeConsumedOnSuccess(t *testing.T) {
	svc, store, mail := newVerifySvc()
	ctx := context.Background()

	require.NoError(t, svc.SendVerificationCode(ctx, "alice@test.com"))
	code := mail.lastCode()

	require.NoError(t, svc.VerifyCode(ctx, "alice@test.com", code))

	// 命中即销毁，同一验证码不能用第二次
	stored, _ := store.Get(ctx, fmt.Sprintf(redisVerifyCodeKey, "alice@test.com"))
	assert.Empty(t, stored)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", code), ErrVerifyCodeMismatch)
}

func TestVerifyCodeResendResetsAttempts(t *testing.T) {
	svc, _, mail := newVerifySvc()
	ctx := context.Background()

	require.NoError(t, svc.SendVerificationCode(ctx, "alice@test.com"))
	bad := wrongGuess(mail.lastCode())
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", bad), ErrVerifyCodeMismatch)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", bad), ErrVerifyCodeMismatch)

	// 重新下发清空尝试计数，又有三次机会
	require.NoError(t, svc.SendVerificationCode(ctx, "alice@test.com"))
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", wrongGuess(mail.lastCode())), ErrVerifyCodeMismatch)
	require.NoError(t, svc.VerifyCode(ctx, "alice@test.com", mail.lastCode()))
}

func TestVerificationWithoutStore(t *testing.T) {
	// Redis 未配置时验证码接口降级报错而不是崩溃
	svc, _ := newUserSvc()
	ctx := context.Background()

	assert.ErrorIs(t, svc.SendVerificationCode(ctx, "alice@test.com"), ErrDownstreamUnavailable)
	assert.ErrorIs(t, svc.VerifyCode(ctx, "alice@test.com", "000000"), ErrDownstreamUnavailable)
}

func TestUpdateAddress(t *testing.T) {
	svc, repo := newUserSvc()
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@test.com", "pw123", "앨리스", "서울시")
	require.NoError(t, err)

	u, err := svc.UpdateAddress(ctx, Identity{Email: "alice@test.com", Role: user.RoleUser}, "부산시")
	require.NoError(t, err)
	assert.Equal(t, "부산시", u.Address)
	assert.Equal(t, "부산시", repo.byEmail["alice@test.com"].Address)
}
