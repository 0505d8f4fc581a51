package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/logbook-api/internal/domain"
	"github.com/logbook-api/internal/infrastructure/email"
	"github.com/logbook-api/internal/infrastructure/metrics"
	"github.com/logbook-api/internal/pkg/validate"
	"go.uber.org/zap"
)

const (
	defaultCodeTTL     = time.Hour
	defaultTrialPeriod = 14 * 24 * time.Hour
)

type IssueRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type IssueResult struct {
	Code      string
	ExpiresAt time.Time
	Delivery  email.Outcome
	// Note is empty when the code was delivered.
	Note string
}

type VerifyRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required"`
	Plan     string `json:"plan"`
}

type VerifyResult struct {
	AccountID  string
	Plan       string
	TrialEndAt time.Time
	// Existing is true when the account was already provisioned before this call.
	Existing bool
}

// AccountStore is the identity side of the external store.
type AccountStore interface {
	// FindAccountByEmail returns domain.ErrNotFound when no account exists.
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	// CreateAccount returns domain.ErrConflict when the email is already registered.
	CreateAccount(ctx context.Context, email, password string) (*domain.Account, error)
	// UpsertProfile merges p into any existing profile row for the account.
	UpsertProfile(ctx context.Context, p *domain.Profile) error
}

// CodeStore persists one-time codes.
type CodeStore interface {
	InsertCode(ctx context.Context, c *domain.VerificationCode) error
	// FindActiveCode returns the most recent row matching (email, code, used=false),
	// or domain.ErrNotFound.
	FindActiveCode(ctx context.Context, email, code string) (*domain.VerificationCode, error)
	// MarkCodeUsed flips used from false to true, and returns domain.ErrConflict
	// when the row was no longer unused.
	MarkCodeUsed(ctx context.Context, c *domain.VerificationCode) error
}

// Mailer delivers through the provider fallback chain.
type Mailer interface {
	Send(ctx context.Context, msg domain.EmailMessage) email.Outcome
	ConfiguredProviders() int
}

// Locker serializes redemption of one (email, code) pair across instances.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// ServiceDeps wires a Service. Accounts and Codes left nil make every call fail
// with domain.ErrConfiguration; Locker is optional.
type ServiceDeps struct {
	Accounts AccountStore
	Codes    CodeStore
	Mailer   Mailer
	Locker   Locker
	Log      *zap.Logger

	CodeTTL               time.Duration
	TrialPeriod           time.Duration
	DefaultPlan           string
	FailOnDeliveryFailure bool

	Now     func() time.Time
	NewCode func() (string, error)
}

type service struct {
	accounts AccountStore
	codes    CodeStore
	mailer   Mailer
	locker   Locker
	log      *zap.Logger

	codeTTL        time.Duration
	trialPeriod    time.Duration
	defaultPlan    string
	failOnDelivery bool

	now     func() time.Time
	newCode func() (string, error)
}

func NewService(d ServiceDeps) Service {
	s := &service{
		accounts:       d.Accounts,
		codes:          d.Codes,
		mailer:         d.Mailer,
		locker:         d.Locker,
		log:            d.Log,
		codeTTL:        d.CodeTTL,
		trialPeriod:    d.TrialPeriod,
		defaultPlan:    d.DefaultPlan,
		failOnDelivery: d.FailOnDeliveryFailure,
		now:            d.Now,
		newCode:        d.NewCode,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.codeTTL <= 0 {
		s.codeTTL = defaultCodeTTL
	}
	if s.trialPeriod <= 0 {
		s.trialPeriod = defaultTrialPeriod
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newCode == nil {
		s.newCode = generateCode
	}
	return s
}

func (s *service) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if s.accounts == nil || s.codes == nil {
		return nil, fmt.Errorf("identity store is not configured: %w", domain.ErrConfiguration)
	}
	if s.failOnDelivery && (s.mailer == nil || s.mailer.ConfiguredProviders() == 0) {
		return nil, fmt.Errorf("%s: %w", email.NoteNoProvider, domain.ErrConfiguration)
	}

	_, err := s.accounts.FindAccountByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s is already registered: %w", req.Email, domain.ErrDuplicateAccount)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("look up account: %w: %w", domain.ErrStorage, err)
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	now := s.now()
	row := &domain.VerificationCode{
		Email:     req.Email,
		Code:      code,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}
	if err := s.codes.InsertCode(ctx, row); err != nil {
		return nil, fmt.Errorf("persist code: %w: %w", domain.ErrStorage, err)
	}

	var out email.Outcome
	if s.mailer != nil {
		out = s.mailer.Send(ctx, codeMessage(req.Email, code, s.codeTTL))
	}
	res := &IssueResult{Code: code, ExpiresAt: row.ExpiresAt, Delivery: out, Note: out.Note()}

	switch {
	case out.Delivered:
		metrics.CodesIssued.WithLabelValues("delivered").Inc()
		s.log.Info("verification code issued", zap.String("email", req.Email), zap.String("provider", out.Provider))
		return res, nil
	case out.NoneConfigured():
		metrics.CodesIssued.WithLabelValues("not_configured").Inc()
	default:
		metrics.CodesIssued.WithLabelValues("failed").Inc()
	}
	// The row stays redeemable either way; a fresh request issues another code.
	s.log.Warn("verification code not delivered", zap.String("email", req.Email), zap.String("note", res.Note))
	if s.failOnDelivery {
		return nil, out.Err()
	}
	return res, nil
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	req.Plan = strings.TrimSpace(req.Plan)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if s.accounts == nil || s.codes == nil {
		return nil, fmt.Errorf("identity store is not configured: %w", domain.ErrConfiguration)
	}
	if req.Plan == "" {
		req.Plan = s.defaultPlan
	}

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, "redeem:"+req.Email+":"+req.Code)
		switch {
		case err != nil:
			// The conditional mark-used below still rejects a second redemption.
			s.log.Warn("redemption lock unavailable, continuing without it", zap.String("email", req.Email), zap.Error(err))
		case !ok:
			return nil, s.verifyFailed("invalid", fmt.Errorf("code is being redeemed: %w", domain.ErrInvalidCode))
		default:
			defer unlock()
		}
	}

	row, err := s.codes.FindActiveCode(ctx, req.Email, req.Code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, s.verifyFailed("invalid", fmt.Errorf("no unused code matches: %w", domain.ErrInvalidCode))
	}
	if err != nil {
		return nil, s.verifyFailed("error", fmt.Errorf("look up code: %w: %w", domain.ErrStorage, err))
	}

	now := s.now()
	if row.Expired(now) {
		return nil, s.verifyFailed("expired", fmt.Errorf("code expired at %s: %w", row.ExpiresAt.Format(time.RFC3339), domain.ErrExpiredCode))
	}

	// Consume before provisioning so a replay cannot slip in during account creation.
	if err := s.codes.MarkCodeUsed(ctx, row); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, s.verifyFailed("invalid", fmt.Errorf("code already used: %w", domain.ErrInvalidCode))
		}
		return nil, s.verifyFailed("error", fmt.Errorf("mark code used: %w: %w", domain.ErrStorage, err))
	}

	res := &VerifyResult{Plan: req.Plan, TrialEndAt: now.Add(s.trialPeriod)}
	acct, err := s.accounts.CreateAccount(ctx, req.Email, req.Password)
	if errors.Is(err, domain.ErrConflict) {
		acct, err = s.accounts.FindAccountByEmail(ctx, req.Email)
		if err != nil {
			return nil, s.verifyFailed("error", fmt.Errorf("look up existing account: %w: %w", domain.ErrUpstream, err))
		}
		res.Existing = true
		s.log.Info("account already provisioned, reusing id", zap.String("email", req.Email), zap.String("account_id", acct.ID))
	} else if err != nil {
		return nil, s.verifyFailed("error", fmt.Errorf("create account: %w: %w", domain.ErrUpstream, err))
	}
	res.AccountID = acct.ID

	profile := &domain.Profile{
		AccountID:  acct.ID,
		Plan:       req.Plan,
		TrialEndAt: res.TrialEndAt,
		UpdatedAt:  now,
	}
	if err := s.accounts.UpsertProfile(ctx, profile); err != nil {
		return nil, s.verifyFailed("error", fmt.Errorf("upsert profile: %w: %w", domain.ErrUpstream, err))
	}

	metrics.CodeVerifications.WithLabelValues("ok").Inc()
	s.log.Info("verification code redeemed",
		zap.String("email", req.Email),
		zap.String("account_id", acct.ID),
		zap.String("plan", req.Plan),
		zap.Bool("existing", res.Existing))
	return res, nil
}

func (s *service) verifyFailed(result string, err error) error {
	metrics.CodeVerifications.WithLabelValues(result).Inc()
	if result == "error" {
		s.log.Error("verification failed", zap.Error(err))
	}
	return err
}

func codeMessage(to, code string, ttl time.Duration) domain.EmailMessage {
	minutes := int(ttl / time.Minute)
	return domain.EmailMessage{
		To:      to,
		Subject: "Your Logbook verification code",
		Text: fmt.Sprintf("Your verification code is %s.\n\nIt expires in %d minutes. If you did not request it, ignore this email.",
			code, minutes),
		HTML: fmt.Sprintf(`<p>Your verification code is <strong style="font-size:20px;letter-spacing:2px">%s</strong>.</p>`+
			`<p>It expires in %d minutes. If you did not request it, ignore this email.</p>`, code, minutes),
	}
}

// generateCode returns a uniformly random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
