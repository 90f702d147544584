package auth

import "github.com/spec-kit/ticketapp/internal/config"

// NewVerifier returns the verifier selected by AUTH_PASSWORD_SCHEME.
func NewVerifier(cfg config.AuthConfig) CredentialVerifier {
	if cfg.PasswordScheme == config.PasswordSchemeBcrypt {
		return BcryptVerifier{Cost: cfg.BcryptCost}
	}
	return PlaintextVerifier{}
}

// NewTokenManager returns the token manager selected by AUTH_TOKEN_FORMAT.
func NewTokenManager(cfg config.AuthConfig) TokenManager {
	if cfg.TokenFormat == config.TokenFormatJWT {
		return NewJWTTokens(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	return OpaqueTokens{}
}
