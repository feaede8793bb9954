package token

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"restaurantfinder/src/respond"
	"restaurantfinder/src/types"
)

const (
	DefaultTTL = 30 * time.Minute

	detailBadLogin       = "Incorrect username or password"
	detailBadCredentials = "Could not validate credentials"
)

type contextKey struct{}

var errBadPassword = errors.New("password does not match")

// dummyHash keeps a login for an unknown user as slow as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("restaurantfinder"), bcrypt.DefaultCost)

// Response is the body returned by a successful login.
type Response struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Auth issues and verifies HS256 bearer tokens for users in a UserStore.
type Auth struct {
	users      types.UserStore
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

func NewAuth(users types.UserStore, signingKey []byte, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Auth{users: users, signingKey: signingKey, ttl: ttl, now: time.Now}
}

// Authenticate returns the user when password matches the stored hash.
func (a *Auth) Authenticate(ctx context.Context, username, password string) (*types.UserInDB, error) {
	user, err := a.users.GetUser(ctx, username)
	if errors.Is(err, types.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, errBadPassword
	}
	return user, nil
}

// Issue signs a token whose subject is username.
func (a *Auth) Issue(username string) (string, error) {
	now := a.now()
	claims := jwt.StandardClaims{
		Subject:   username,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(a.ttl).Unix(),
		Id:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the claims.
func (a *Auth) Parse(tokenString string) (*jwt.StandardClaims, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// GetToken exchanges a form-encoded username and password for a bearer token.
func (a *Auth) GetToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.Detail(w, http.StatusUnprocessableEntity, "Invalid form payload")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		respond.Detail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := a.Authenticate(r.Context(), username, password)
	if errors.Is(err, types.ErrUserNotFound) || errors.Is(err, errBadPassword) {
		log.WithField("username", username).Info("Rejected login")
		respond.Unauthorized(w, detailBadLogin)
		return
	}
	if err != nil {
		log.WithError(err).Error("Looking up user failed")
		respond.Detail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	signed, err := a.Issue(user.Username)
	if err != nil {
		log.WithError(err).Error("Issuing token failed")
		respond.Detail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	respond.JSON(w, http.StatusOK, Response{AccessToken: signed, TokenType: "bearer"})
}

// JwtMiddleware rejects requests without a valid bearer token for a user
// that still exists, and stores that user on the request context.
func (a *Auth) JwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			respond.Unauthorized(w, "Not authenticated")
			return
		}

		claims, err := a.Parse(tokenString)
		if err != nil {
			log.WithError(err).Debug("Rejected bearer token")
			respond.Unauthorized(w, detailBadCredentials)
			return
		}

		user, err := a.users.GetUser(r.Context(), claims.Subject)
		if errors.Is(err, types.ErrUserNotFound) {
			respond.Unauthorized(w, detailBadCredentials)
			return
		}
		if err != nil {
			log.WithError(err).Error("Looking up token subject failed")
			respond.Detail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, user.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, tokenString, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tokenString = strings.TrimSpace(tokenString)
	return tokenString, tokenString != ""
}

// UserFromContext returns the user JwtMiddleware authenticated.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextKey{}).(types.User)
	return user, ok
}
