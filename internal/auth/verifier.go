// Package auth verifies bearer tokens issued by Supabase Auth. Tokens are
// never minted here; only their HMAC signature and claims are checked.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/wichananm65/zynapse-backend/internal/apperror"
)

const DefaultClockSkew = 5 * time.Minute

const bearerScheme = "bearer"

// Reason identifies why a token was rejected.
type Reason string

const (
	ReasonEmpty            Reason = "empty"
	ReasonMalformed        Reason = "malformed"
	ReasonUnparseable      Reason = "unparseable"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonExpired          Reason = "expired"
	ReasonNotYetValid      Reason = "not_yet_valid"
	ReasonInvalidIssuer    Reason = "invalid_issuer"
	ReasonInvalidAudience  Reason = "invalid_audience"
	ReasonMissingSubject   Reason = "missing_subject"
)

// VerifyError is a structured token rejection. Message is meant for
// operators; clients only ever see "unauthorized".
type VerifyError struct {
	Reason  Reason
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("token %s: %s", e.Reason, e.Message)
}

func (e *VerifyError) Unwrap() error {
	return apperror.Unauthenticated(e.Message)
}

func reject(reason Reason, format string, args ...any) *VerifyError {
	return &VerifyError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}

// Config is built once at startup. Issuer and Audience are only checked when set.
// A nil ClockSkew means DefaultClockSkew; an explicit zero disables the leeway.
type Config struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew *time.Duration
}

// Identity is the per-request outcome of analysing a token.
type Identity struct {
	UserID  string `json:"userId,omitempty"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type Verifier struct {
	cfg    Config
	skew   time.Duration
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Verifier)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(cfg Config, opts ...Option) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: token secret is not configured")
	}
	skew := DefaultClockSkew
	if cfg.ClockSkew != nil {
		if *cfg.ClockSkew < 0 {
			return nil, fmt.Errorf("auth: clock skew must not be negative, got %s", *cfg.ClockSkew)
		}
		skew = *cfg.ClockSkew
	}
	v := &Verifier{
		cfg:    cfg,
		skew:   skew,
		secret: []byte(cfg.Secret),
		now:    time.Now,
		// claims are validated below so that the clock skew applies
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithJSONNumber(),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify validates raw (with or without a "Bearer " prefix) and returns the
// authenticated user id. Failures are always *VerifyError.
func (v *Verifier) Verify(raw string) (string, error) {
	tokenString, verr := normalize(raw)
	if verr != nil {
		return "", verr
	}

	if _, _, err := v.parser.ParseUnverified(tokenString, jwt.MapClaims{}); err != nil {
		return "", reject(ReasonUnparseable, "could not parse token")
	}

	token, err := v.parser.ParseWithClaims(tokenString, jwt.MapClaims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return "", reject(ReasonUnparseable, "could not parse token")
		}
		return "", reject(ReasonInvalidSignature, "invalid or missing signature")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", reject(ReasonUnparseable, "could not parse token")
	}

	now := v.now()
	exp, ok := numericDate(claims, "exp")
	if !ok {
		return "", reject(ReasonExpired, "token has no expiry")
	}
	if now.After(exp.Add(v.skew)) {
		return "", reject(ReasonExpired, "token expired at %s", exp.UTC().Format(time.RFC3339))
	}
	if nbf, ok := numericDate(claims, "nbf"); ok && now.Add(v.skew).Before(nbf) {
		return "", reject(ReasonNotYetValid, "token not valid before %s", nbf.UTC().Format(time.RFC3339))
	}

	if v.cfg.Issuer != "" {
		iss, _ := claims["iss"].(string)
		if iss != v.cfg.Issuer && !strings.HasPrefix(iss, v.cfg.Issuer) {
			return "", reject(ReasonInvalidIssuer, "invalid issuer. Expected: %s, Actual: %s", v.cfg.Issuer, iss)
		}
	}
	if v.cfg.Audience != "" {
		auds := audiences(claims)
		if !contains(auds, v.cfg.Audience) {
			return "", reject(ReasonInvalidAudience, "invalid audience. Expected: %s, Actual: %s", v.cfg.Audience, strings.Join(auds, ","))
		}
	}

	userID, ok := userIDFromClaims(claims)
	if !ok {
		return "", reject(ReasonMissingSubject, "token carries no user id")
	}
	return userID, nil
}

// Analyze never fails; it reports whether raw is valid and, for diagnostics,
// whatever user id the unverified claims carry.
func (v *Verifier) Analyze(raw string) Identity {
	userID, err := v.Verify(raw)
	if err != nil {
		id, _ := ExtractUserID(raw)
		var ve *VerifyError
		errors.As(err, &ve)
		return Identity{UserID: id, Valid: false, Message: ve.Message}
	}
	return Identity{UserID: userID, Valid: true, Message: "Token is valid"}
}

// ExtractUserID reads the user id from a token WITHOUT verifying it. Use it
// for logging only, never for authorization.
func ExtractUserID(raw string) (string, bool) {
	tokenString, verr := normalize(raw)
	if verr != nil {
		return "", false
	}
	claims := jwt.MapClaims{}
	p := jwt.NewParser(jwt.WithJSONNumber())
	if _, _, err := p.ParseUnverified(tokenString, claims); err != nil {
		return "", false
	}
	return userIDFromClaims(claims)
}

// normalize strips a case-insensitive "Bearer" scheme and checks the
// three-segment shape. A scheme with nothing after it is an empty token.
func normalize(raw string) (string, *VerifyError) {
	s := strings.TrimSpace(raw)
	n := len(bearerScheme)
	if len(s) >= n && strings.EqualFold(s[:n], bearerScheme) && (len(s) == n || s[n] == ' ' || s[n] == '\t') {
		s = strings.TrimSpace(s[n:])
	}
	if s == "" {
		return "", reject(ReasonEmpty, "no token provided")
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", reject(ReasonMalformed, "token must have three dot-separated segments")
	}
	return s, nil
}

var userIDClaims = []string{"sub", "user_id", "id"}

func userIDFromClaims(claims jwt.MapClaims) (string, bool) {
	for _, key := range userIDClaims {
		if id := claimString(claims[key]); id != "" {
			return id, true
		}
	}
	return "", false
}

func claimString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func numericDate(claims jwt.MapClaims, key string) (time.Time, bool) {
	switch t := claims[key].(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return secondsToTime(f), true
	case float64:
		return secondsToTime(t), true
	default:
		return time.Time{}, false
	}
}

func secondsToTime(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}

func audiences(claims jwt.MapClaims) []string {
	switch t := claims["aud"].(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, a := range t {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
