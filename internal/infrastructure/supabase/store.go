package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/logbook-api/internal/domain"
)

// Store talks to the hosted identity/database backend over its REST surface:
// PostgREST tables under /rest/v1 and the admin user API under /auth/v1.
type Store struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewStore returns a store for baseURL authenticated with the service credential.
// The HTTP client carries no timeout of its own; the request context bounds each call.
func NewStore(baseURL, serviceKey string, client *http.Client) *Store {
	if client == nil {
		client = &http.Client{}
	}
	return &Store{baseURL: strings.TrimRight(baseURL, "/"), key: serviceKey, client: client}
}

// Configured reports whether both the URL and the service credential are set.
func (s *Store) Configured() bool { return s.baseURL != "" && s.key != "" }

type userRow struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var rows []userRow
	err := s.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/users",
		query:  url.Values{"select": {"id,email"}, "email": {"eq." + email}, "limit": {"1"}},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &domain.Account{ID: rows[0].ID, Email: rows[0].Email}, nil
}

type createUserBody struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

func (s *Store) CreateAccount(ctx context.Context, email, password string) (*domain.Account, error) {
	var u userRow
	err := s.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/admin/users",
		// The address was just proven through the code, so it is created confirmed.
		body: createUserBody{Email: email, Password: password, EmailConfirm: true},
	}, &u)
	if err != nil {
		if isAlreadyRegistered(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	if u.Email == "" {
		u.Email = email
	}
	return &domain.Account{ID: u.ID, Email: u.Email}, nil
}

func isAlreadyRegistered(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return false
	}
	if ae.Status == http.StatusConflict {
		return true
	}
	body := strings.ToLower(ae.Body)
	return ae.Status == http.StatusUnprocessableEntity &&
		(strings.Contains(body, "already") || strings.Contains(body, "email_exists"))
}

type profileRow struct {
	ID         string    `json:"id"`
	Plan       string    `json:"plan"`
	TrialEndAt time.Time `json:"trial_end_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpsertProfile inserts or merges on id; columns not sent keep their values.
func (s *Store) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	return s.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/profiles",
		query:  url.Values{"on_conflict": {"id"}},
		body:   []profileRow{{ID: p.AccountID, Plan: p.Plan, TrialEndAt: p.TrialEndAt, UpdatedAt: p.UpdatedAt}},
		prefer: "resolution=merge-duplicates,return=minimal",
	}, nil)
}

type codeRow struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Email     string          `json:"email"`
	Code      string          `json:"code"`
	ExpiresAt time.Time       `json:"expires_at"`
	Used      bool            `json:"used"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

func (r codeRow) toDomain() *domain.VerificationCode {
	c := &domain.VerificationCode{
		ID:        strings.Trim(string(r.ID), `"`),
		Email:     r.Email,
		Code:      r.Code,
		ExpiresAt: r.ExpiresAt,
		Used:      r.Used,
	}
	if r.CreatedAt != nil {
		c.CreatedAt = *r.CreatedAt
	}
	return c
}

func (s *Store) InsertCode(ctx context.Context, c *domain.VerificationCode) error {
	row := codeRow{Email: c.Email, Code: c.Code, ExpiresAt: c.ExpiresAt, Used: false}
	if !c.CreatedAt.IsZero() {
		row.CreatedAt = &c.CreatedAt
	}
	return s.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/email_codes",
		body:   row,
		prefer: "return=minimal",
	}, nil)
}

func (s *Store) FindActiveCode(ctx context.Context, email, code string) (*domain.VerificationCode, error) {
	var rows []codeRow
	err := s.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/email_codes",
		query: url.Values{
			"select": {"id,email,code,expires_at,used,created_at"},
			"email":  {"eq." + email},
			"code":   {"eq." + code},
			"used":   {"eq.false"},
			"order":  {"created_at.desc"},
			"limit":  {"1"},
		},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// MarkCodeUsed is a conditional update: the used=eq.false filter makes the
// PATCH a no-op for a row another request already consumed.
func (s *Store) MarkCodeUsed(ctx context.Context, c *domain.VerificationCode) error {
	q := url.Values{
		"email": {"eq." + c.Email},
		"code":  {"eq." + c.Code},
		"used":  {"eq.false"},
	}
	if c.ID != "" {
		q.Set("id", "eq."+c.ID)
	}
	var rows []codeRow
	err := s.do(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/email_codes",
		query:  q,
		body:   map[string]bool{"used": true},
		prefer: "return=representation",
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrConflict
	}
	c.Used = true
	return nil
}
