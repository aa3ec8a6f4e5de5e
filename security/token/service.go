package token

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fastcore-dev/fastcore/config"
	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/pkg/logger"
)

// Claims is the signed claim set fastcore embeds in every token.
type Claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is the login/refresh response payload.
type Pair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresIn  int64  `json:"access_expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

// Service issues, validates, refreshes and revokes stateful tokens.
type Service struct {
	cfg    config.JWTSettings
	store  Store
	log    *logger.Logger
	method jwt.SigningMethod
	now    func() time.Time
}

// NewService builds a token service over the given record store.
func NewService(cfg config.JWTSettings, store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("token")
	}
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		method = jwt.SigningMethodHS256
	}
	return &Service{cfg: cfg, store: store, log: log, method: method, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) ttlFor(kind Kind) time.Duration {
	if kind == Refresh {
		return s.cfg.RefreshTTL
	}
	return s.cfg.AccessTTL
}

// create signs a token for subject and persists its record.
func (s *Service) create(ctx context.Context, subject string, kind Kind, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.Validation("token subject is required").WithField("subject")
	}
	if ttl <= 0 {
		ttl = s.ttlFor(kind)
	}

	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	id := uuid.NewString()

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}
	if s.cfg.Issuer != "" {
		claims.Issuer = s.cfg.Issuer
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", errors.Internal("sign token", err)
	}

	rec := Record{
		ID:        id,
		Subject:   subject,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
		Audience:  s.cfg.Audience,
		Issuer:    s.cfg.Issuer,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return "", err
	}

	s.log.WithFields(map[string]interface{}{"token_id": id, "subject": subject, "kind": kind}).
		Debugf("token issued")
	return signed, nil
}

// CreateAccessToken issues a signed access token for subject.
func (s *Service) CreateAccessToken(ctx context.Context, subject string) (string, error) {
	return s.create(ctx, subject, Access, 0)
}

// CreateRefreshToken issues a signed refresh token for subject.
func (s *Service) CreateRefreshToken(ctx context.Context, subject string) (string, error) {
	return s.create(ctx, subject, Refresh, 0)
}

// CreatePair issues an access and refresh token for subject.
func (s *Service) CreatePair(ctx context.Context, subject string) (Pair, error) {
	access, err := s.CreateAccessToken(ctx, subject)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.CreateRefreshToken(ctx, subject)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  int64(s.cfg.AccessTTL.Seconds()),
		RefreshExpiresIn: int64(s.cfg.RefreshTTL.Seconds()),
		TokenType:        "bearer",
	}, nil
}

func (s *Service) parserOptions(verifyExpiry bool) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if !verifyExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	return opts
}

func (s *Service) keyFunc(*jwt.Token) (interface{}, error) {
	return []byte(s.cfg.Secret), nil
}

// decode verifies the signature and returns the claims without any stateful
// check. verifyExpiry false skips claim validation entirely (used when
// revoking a token that may already be expired).
func (s *Service) decode(tokenString string, verifyExpiry bool) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc, s.parserOptions(verifyExpiry)...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ExpiredToken()
		}
		return nil, errors.InvalidToken(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.InvalidToken(nil)
	}
	if claims.ID == "" {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "missing jti claim")
	}
	if claims.Subject == "" {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "missing sub claim")
	}
	return claims, nil
}

// Validate verifies signature, registered claims and kind, then checks the
// persisted record: an absent record fails as invalid, a revoked record as
// revoked. Pass an empty kind to accept either.
func (s *Service) Validate(ctx context.Context, tokenString string, kind Kind) (*Claims, error) {
	claims, err := s.decode(tokenString, true)
	if err != nil {
		return nil, err
	}
	if kind != "" && claims.Kind != kind {
		return nil, errors.InvalidToken(nil).
			WithDetails("expected_type", string(kind)).
			WithDetails("actual_type", string(claims.Kind))
	}

	rec, err := s.store.GetByID(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.InvalidToken(nil).WithDetails("token_id", claims.ID)
	}
	if rec.Revoked {
		return nil, errors.RevokedToken().WithDetails("token_id", claims.ID)
	}
	if claims.Kind == Refresh && rec.Expired(s.now().UTC()) {
		return nil, errors.ExpiredToken().WithDetails("token_id", claims.ID)
	}
	return claims, nil
}

// Refresh validates a refresh token and issues a new access token for the
// same subject. The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Validate(ctx, refreshToken, Refresh)
	if err != nil {
		return "", err
	}
	access, err := s.CreateAccessToken(ctx, claims.Subject)
	if err != nil {
		return "", err
	}
	s.log.WithField("subject", claims.Subject).Debugf("access token refreshed")
	return access, nil
}

// Revoke marks the token's record revoked. Signature must verify but an
// already-expired token can still be revoked. Idempotent.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.decode(tokenString, false)
	if err != nil {
		return err
	}

	rec, err := s.store.GetByID(ctx, claims.ID)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.InvalidToken(nil).WithDetails("token_id", claims.ID)
	}
	if rec.Revoked {
		return nil
	}
	if err := s.store.Revoke(ctx, claims.ID); err != nil {
		return err
	}
	s.log.WithFields(map[string]interface{}{"token_id": claims.ID, "subject": claims.Subject}).
		Infof("token revoked")
	return nil
}

// RevokeAllForSubject revokes every outstanding token of a subject.
func (s *Service) RevokeAllForSubject(ctx context.Context, subject string) (int64, error) {
	n, err := s.store.RevokeAllForSubject(ctx, subject, "")
	if err != nil {
		return 0, err
	}
	s.log.WithFields(map[string]interface{}{"subject": subject, "revoked": n}).
		Infof("revoked all tokens for subject")
	return n, nil
}
