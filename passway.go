// Package passway implements a token-authenticated user-account service:
// registration, credential verification, profile updates, bearer-token
// issuance and rotation, and email-ownership verification via signed
// links. Storage, HTTP and mail delivery plug in through adapters.
package passway

import (
	"fmt"
	"strings"
	"time"

	"github.com/keralabs/passway/core"
	"github.com/keralabs/passway/pkg/cache"
	"github.com/keralabs/passway/pkg/crypto"
	"github.com/keralabs/passway/services"
)

// interfaces
type (
	Storage      = core.Storage
	UserStorage  = core.UserStorage
	TokenStorage = core.TokenStorage
	Cache        = core.Cache
	Notifier     = core.Notifier

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	User            = core.User
	Token           = core.Token
	UserPage        = core.UserPage
	UserFilter      = core.UserFilter
	ValidationError = core.ValidationError
	CacheConfig     = core.CacheConfig
	CacheStats      = core.CacheStats

	Accounts     = services.Accounts
	Tokens       = services.Tokens
	Verification = services.Verification
	TokenConfig  = services.TokenConfig
	IssueResult  = services.IssueResult

	RegisterInput      = services.RegisterInput
	LoginInput         = services.LoginInput
	UpdateProfileInput = services.UpdateProfileInput
	AdminUpdateInput   = services.AdminUpdateInput
)

const (
	defaultBasePath  = "/auth"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	NewInMemoryCache   = cache.New
	NewArgon2          = crypto.NewArgon2
	DefaultTokenConfig = services.DefaultTokenConfig
)

var (
	ErrUserExists   = core.ErrUserExists
	ErrUserNotFound = core.ErrUserNotFound
	ErrForbidden    = core.ErrForbidden
)

var (
	ErrUnauthenticated   = core.ErrUnauthenticated
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrInvalidAuthHeader = core.ErrInvalidAuthHeader
	ErrInvalidToken      = core.ErrInvalidToken
	ErrTokenNotFound     = core.ErrTokenNotFound
	ErrTokenExpired      = core.ErrTokenExpired
	ErrCacheNotFound     = core.ErrCacheNotFound
)

var (
	ErrInvalidLink     = core.ErrInvalidLink
	ErrAlreadyVerified = core.ErrAlreadyVerified
)

var (
	ErrStorageRequired     = core.ErrStorageRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

// HTTPAdapter registers the HTTP surface for a configured Passway
// instance.
type HTTPAdapter interface {
	RegisterRoutes(p *Passway) error
}

type Config struct {
	// Secret signs email-verification links. Minimum 32 characters.
	Secret string

	Storage core.Storage

	HTTP HTTPAdapter

	// Optional config
	Cache        core.Cache
	DisableCache bool
	Notifier     core.Notifier
	TokenConfig  *services.TokenConfig
	Hasher       crypto.PasswordHandler
	// BasePath prefixes the account endpoints. Defaults to "/auth".
	BasePath string
	// BaseURL is the public origin used when building verification
	// links, e.g. "https://accounts.example.com".
	BaseURL string
}

type Passway struct {
	Accounts     *services.Accounts
	Tokens       *services.Tokens
	Verification *services.Verification
	BasePath     string
}

func New(config Config) (*Passway, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	tokenCache := config.Cache
	if tokenCache == nil && !config.DisableCache {
		tokenCache = cache.New(core.CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 500,
		})
	}

	tokenConfig := config.TokenConfig
	if tokenConfig == nil {
		defaults := services.DefaultTokenConfig()
		tokenConfig = &defaults
	}

	hasher := config.Hasher
	if hasher == nil {
		hasher = crypto.NewArgon2()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	linkBase := strings.TrimSuffix(config.BaseURL, "/") + basePath
	signer := crypto.NewLinkSigner(config.Secret)

	tokens := services.NewTokens(*tokenConfig, config.Storage, tokenCache)
	verification := services.NewVerification(config.Storage, config.Notifier, signer, linkBase)
	accounts := services.NewAccounts(config.Storage, hasher, verification)

	passway := &Passway{
		Accounts:     accounts,
		Tokens:       tokens,
		Verification: verification,
		BasePath:     basePath,
	}

	if err := config.HTTP.RegisterRoutes(passway); err != nil {
		return nil, err
	}

	return passway, nil
}
