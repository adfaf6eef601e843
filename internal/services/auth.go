package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/scripture-study-backend/internal/data/repos"
	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/domain/user"
	"github.com/yungbote/scripture-study-backend/internal/platform/apierr"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/dbctx"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/platform/sendgrid"
	"github.com/yungbote/scripture-study-backend/internal/platform/validate"
)

const (
	nonceTTL        = 10 * time.Minute
	verificationTTL = 24 * time.Hour
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

// Session is what every successful sign-in returns.
type Session struct {
	User         *types.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
}

type NonceGrant struct {
	NonceID   uuid.UUID `json:"nonce_id"`
	Nonce     string    `json:"nonce"`
	ExpiresIn int64     `json:"expires_in"`
}

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	AppName    string
	AppBaseURL string
}

type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	IssueNonce(ctx context.Context, provider string) (*NonceGrant, error)
	LoginWithGoogle(ctx context.Context, idToken string, nonceID uuid.UUID) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context) error
	VerifyEmail(ctx context.Context, token string) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	tokenRepo    repos.UserTokenRepo
	identityRepo repos.UserIdentityRepo
	nonceRepo    repos.OAuthNonceRepo
	verifyRepo   repos.EmailVerificationRepo
	flagRepo     repos.SystemFlagRepo
	avatars      AvatarService
	mailer       sendgrid.Client
	google       IDTokenVerifier
	cfg          AuthConfig
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	tokenRepo repos.UserTokenRepo,
	identityRepo repos.UserIdentityRepo,
	nonceRepo repos.OAuthNonceRepo,
	verifyRepo repos.EmailVerificationRepo,
	flagRepo repos.SystemFlagRepo,
	avatars AvatarService,
	mailer sendgrid.Client,
	google IDTokenVerifier,
	cfg AuthConfig,
) AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	return &authService{
		db:           db,
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		identityRepo: identityRepo,
		nonceRepo:    nonceRepo,
		verifyRepo:   verifyRepo,
		flagRepo:     flagRepo,
		avatars:      avatars,
		mailer:       mailer,
		google:       google,
		cfg:          cfg,
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.cfg.AccessTTL }

func (as *authService) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = normalizeEmail(email)
	if err := validate.Struct(registerInput{Email: email, Password: password}); err != nil {
		return nil, err
	}
	if len(password) > maxPasswordLen {
		return nil, apierr.Invalid("invalid_password", "password must be at most %d bytes", maxPasswordLen)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &types.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		AuthProvider: user.ProviderPassword,
		LastLogin:    &now,
	}
	var (
		session     *Session
		verifyToken string
	)
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		exists, err := as.userRepo.EmailExists(dbc, email)
		if err != nil {
			return err
		}
		if exists {
			return apierr.Conflict("email_taken", "an account already exists for this email")
		}
		if err := as.createUser(dbc, u); err != nil {
			return err
		}
		verifyToken = uuid.NewString()
		if _, err := as.verifyRepo.Create(dbc, []*types.EmailVerification{{
			UserID:    u.ID,
			Token:     verifyToken,
			ExpiresAt: now.Add(verificationTTL),
		}}); err != nil {
			return err
		}
		session, err = as.issueSession(dbc, u)
		return err
	})
	if err != nil {
		return nil, storeErr("register", err)
	}
	as.log.Info("User registered", "user_id", u.ID, "role", u.Role)

	as.afterCreate(ctx, u)
	as.sendVerification(ctx, u, verifyToken)
	return session, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apierr.Invalid("invalid_request", "email and password are required")
	}
	users, err := as.userRepo.GetByEmails(dbctx.Context{Ctx: ctx}, []string{email})
	if err != nil {
		return nil, storeErr("login", err)
	}
	if len(users) == 0 || users[0].PasswordHash == "" {
		return nil, apierr.Unauthorized("invalid_credentials", "invalid email or password")
	}
	u := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apierr.Unauthorized("invalid_credentials", "invalid email or password")
	}

	var session *Session
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		now := time.Now().UTC()
		if err := as.userRepo.UpdateLastLogin(dbc, u.ID, now); err != nil {
			return err
		}
		u.LastLogin = &now
		session, err = as.issueSession(dbc, u)
		return err
	})
	if err != nil {
		return nil, storeErr("login", err)
	}
	return session, nil
}

func (as *authService) IssueNonce(ctx context.Context, provider string) (*NonceGrant, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != user.ProviderGoogle {
		return nil, apierr.Invalid("unsupported_provider", "provider %q is not supported", provider)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("nonce entropy: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	row := &types.OAuthNonce{
		Provider:  provider,
		NonceHash: hashNonce(raw),
		ExpiresAt: time.Now().UTC().Add(nonceTTL),
	}
	if _, err := as.nonceRepo.Create(dbctx.Context{Ctx: ctx}, []*types.OAuthNonce{row}); err != nil {
		return nil, storeErr("issue nonce", err)
	}
	return &NonceGrant{NonceID: row.ID, Nonce: raw, ExpiresIn: int64(nonceTTL.Seconds())}, nil
}

func (as *authService) LoginWithGoogle(ctx context.Context, idToken string, nonceID uuid.UUID) (*Session, error) {
	if as.google == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "google_signin_disabled", errors.New("google sign-in is not configured"))
	}
	ident, err := as.google.Verify(ctx, idToken)
	if err != nil {
		as.log.Warn("Google id_token rejected", "error", err)
		return nil, apierr.Unauthorized("invalid_id_token", "google id_token rejected")
	}

	var (
		session *Session
		created *types.User
	)
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := as.consumeNonce(dbc, nonceID, ident.Nonce); err != nil {
			return err
		}
		u, isNew, err := as.resolveGoogleUser(dbc, ident)
		if err != nil {
			return err
		}
		if isNew {
			created = u
		}
		now := time.Now().UTC()
		if err := as.userRepo.UpdateLastLogin(dbc, u.ID, now); err != nil {
			return err
		}
		u.LastLogin = &now
		session, err = as.issueSession(dbc, u)
		return err
	})
	if err != nil {
		return nil, storeErr("google sign-in", err)
	}
	if created != nil {
		as.afterCreate(ctx, created)
	}
	return session, nil
}

func (as *authService) consumeNonce(dbc dbctx.Context, nonceID uuid.UUID, claim string) error {
	rows, err := as.nonceRepo.GetByIDs(dbc, []uuid.UUID{nonceID})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apierr.Unauthorized("invalid_nonce", "unknown nonce")
	}
	n := rows[0]
	if n.Provider != user.ProviderGoogle || n.UsedAt != nil || time.Now().After(n.ExpiresAt) {
		return apierr.Unauthorized("invalid_nonce", "nonce expired or already used")
	}
	if claim == "" || !nonceMatches(claim, n.NonceHash) {
		return apierr.Unauthorized("invalid_nonce", "nonce mismatch")
	}
	if err := as.nonceRepo.MarkUsed(dbc, n.ID, time.Now()); err != nil {
		if errors.Is(err, repos.ErrNonceUnavailable) {
			return apierr.Unauthorized("invalid_nonce", "nonce already used")
		}
		return err
	}
	return nil
}

// resolveGoogleUser finds the user linked to the Google subject. A verified
// email that matches an existing account is linked to it; otherwise a new
// user is created.
func (as *authService) resolveGoogleUser(dbc dbctx.Context, ident *GoogleIdentity) (*types.User, bool, error) {
	links, err := as.identityRepo.GetByProviderSubs(dbc, user.ProviderGoogle, []string{ident.Subject})
	if err != nil {
		return nil, false, err
	}
	if len(links) > 0 {
		users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{links[0].UserID})
		if err != nil {
			return nil, false, err
		}
		if len(users) > 0 {
			return users[0], false, nil
		}
	}

	email := normalizeEmail(ident.Email)
	if email == "" {
		return nil, false, apierr.Unauthorized("invalid_id_token", "google account has no email")
	}
	var (
		u     *types.User
		isNew bool
	)
	existing, err := as.userRepo.GetByEmails(dbc, []string{email})
	if err != nil {
		return nil, false, err
	}
	switch {
	case len(existing) > 0 && !ident.EmailVerified:
		return nil, false, apierr.Conflict("email_taken", "an account already exists for this email")
	case len(existing) > 0:
		u = existing[0]
	default:
		name := strings.TrimSpace(ident.Name)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		u = &types.User{ID: uuid.New(), Email: email, DisplayName: name, AuthProvider: user.ProviderGoogle}
		if ident.EmailVerified {
			now := time.Now().UTC()
			u.EmailVerifiedAt = &now
		}
		if err := as.createUser(dbc, u); err != nil {
			return nil, false, err
		}
		isNew = true
	}
	if _, err := as.identityRepo.Create(dbc, []*types.UserIdentity{{
		UserID:        u.ID,
		Provider:      user.ProviderGoogle,
		ProviderSub:   ident.Subject,
		Email:         email,
		EmailVerified: ident.EmailVerified,
	}}); err != nil {
		return nil, false, err
	}
	if ident.EmailVerified && u.EmailVerifiedAt == nil {
		now := time.Now().UTC()
		if err := as.userRepo.MarkEmailVerified(dbc, u.ID, now); err != nil {
			return nil, false, err
		}
		u.EmailVerifiedAt = &now
	}
	return u, isNew, nil
}

// createUser inserts u, making it admin only if this transaction claims the admin flag.
func (as *authService) createUser(dbc dbctx.Context, u *types.User) error {
	won, err := as.flagRepo.Claim(dbc, types.FlagAdminExists, u.ID.String())
	if err != nil {
		return fmt.Errorf("claim admin flag: %w", err)
	}
	u.Role = types.RoleUser
	if won {
		u.Role = types.RoleAdmin
	}
	_, err = as.userRepo.Create(dbc, []*types.User{u})
	return err
}

func (as *authService) afterCreate(ctx context.Context, u *types.User) {
	if as.avatars == nil {
		return
	}
	if err := as.avatars.CreateAndUploadUserAvatar(ctx, u); err != nil {
		as.log.Warn("Avatar generation failed", "user_id", u.ID, "error", err)
	}
}

func (as *authService) sendVerification(ctx context.Context, u *types.User, token string) {
	if as.mailer == nil || token == "" {
		return
	}
	link := strings.TrimRight(as.cfg.AppBaseURL, "/") + "/api/verify-email?token=" + token
	appName := as.cfg.AppName
	if appName == "" {
		appName = "Scripture Study"
	}
	_, err := as.mailer.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: u.Email, Name: u.DisplayName}},
		Subject: "Confirm your " + appName + " account",
		Text:    fmt.Sprintf("Welcome, %s.\n\nConfirm your email address by opening:\n%s\n\nThe link expires in 24 hours.", u.DisplayName, link),
		HTML:    fmt.Sprintf(`<p>Welcome, %s.</p><p><a href="%s">Confirm your email address</a>. The link expires in 24 hours.</p>`, html.EscapeString(u.DisplayName), link),
	})
	if err != nil {
		as.log.Warn("Verification mail failed", "user_id", u.ID, "error", err)
	}
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apierr.Unauthorized("invalid_refresh_token", "refresh token required")
	}
	var session *Session
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := as.tokenRepo.GetByRefreshTokens(dbc, []string{refreshToken})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apierr.Unauthorized("invalid_refresh_token", "unknown refresh token")
		}
		existing := rows[0]
		// A concurrent rotation may have consumed the row after the read.
		if err := as.tokenRepo.Consume(dbc, existing.ID); err != nil {
			if errors.Is(err, repos.ErrTokenConsumed) {
				return apierr.Unauthorized("invalid_refresh_token", "refresh token already used")
			}
			return err
		}
		if time.Now().After(existing.ExpiresAt) {
			return errRefreshExpired
		}
		users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{existing.UserID})
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return apierr.Unauthorized("invalid_refresh_token", "user no longer exists")
		}
		session, err = as.issueSession(dbc, users[0])
		return err
	})
	if errors.Is(err, errRefreshExpired) {
		// Drop the dead row even though the rotation failed.
		if _, derr := as.tokenRepo.DeleteExpired(dbctx.Context{Ctx: ctx}, time.Now()); derr != nil {
			as.log.Warn("Expired token cleanup failed", "error", derr)
		}
		return nil, apierr.Unauthorized("refresh_expired", "refresh token expired")
	}
	if err != nil {
		return nil, storeErr("refresh", err)
	}
	return session, nil
}

var errRefreshExpired = errors.New("refresh token expired")

func (as *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.SessionID == uuid.Nil {
		return apierr.Unauthorized("unauthorized", "not authenticated")
	}
	if err := as.tokenRepo.DeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{rd.SessionID}); err != nil {
		return storeErr("logout", err)
	}
	return nil
}

func (as *authService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apierr.Invalid("invalid_verification_token", "token required")
	}
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		row, err := as.verifyRepo.GetByToken(dbc, token)
		if err != nil {
			return err
		}
		if row == nil {
			return apierr.Invalid("invalid_verification_token", "unknown token")
		}
		if row.ConsumedAt != nil {
			return apierr.Conflict("already_verified", "email already verified")
		}
		if time.Now().After(row.ExpiresAt) {
			return apierr.Invalid("verification_expired", "verification link expired")
		}
		now := time.Now().UTC()
		if err := as.verifyRepo.MarkConsumed(dbc, row.ID, now); err != nil {
			if errors.Is(err, repos.ErrVerificationConsumed) {
				return apierr.Conflict("already_verified", "email already verified")
			}
			return err
		}
		return as.userRepo.MarkEmailVerified(dbc, row.UserID, now)
	})
	return storeErr("verify email", err)
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SetContextFromToken validates the JWT, checks that its session row still
// exists and attaches the caller with the role currently stored for them.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, apierr.Unauthorized("unauthorized", "missing token")
	}
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(as.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ctx, apierr.Unauthorized("token_expired", "access token expired")
		}
		return ctx, apierr.Unauthorized("invalid_token", "invalid access token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("invalid_token", "invalid subject")
	}

	dbc := dbctx.Context{Ctx: ctx}
	rows, err := as.tokenRepo.GetByAccessTokens(dbc, []string{tokenString})
	if err != nil {
		return ctx, storeErr("session lookup", err)
	}
	if len(rows) == 0 || rows[0].UserID != userID {
		return ctx, apierr.Unauthorized("session_revoked", "session has ended")
	}
	users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return ctx, storeErr("session lookup", err)
	}
	if len(users) == 0 {
		return ctx, apierr.Unauthorized("session_revoked", "user no longer exists")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString:  tokenString,
		RefreshToken: rows[0].RefreshToken,
		UserID:       userID,
		SessionID:    rows[0].ID,
		Role:         users[0].Role,
	}), nil
}

func (as *authService) issueSession(dbc dbctx.Context, u *types.User) (*Session, error) {
	now := time.Now().UTC()
	claims := accessClaims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.cfg.AccessTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	row := &types.UserToken{
		UserID:       u.ID,
		AccessToken:  access,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    now.Add(as.cfg.RefreshTTL),
	}
	if _, err := as.tokenRepo.Create(dbc, []*types.UserToken{row}); err != nil {
		return nil, err
	}
	return &Session{
		User:         u,
		AccessToken:  access,
		RefreshToken: row.RefreshToken,
		ExpiresIn:    int64(as.cfg.AccessTTL.Seconds()),
	}, nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

type registerInput struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8"`
}
