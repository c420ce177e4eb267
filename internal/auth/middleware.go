package auth

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MessagePrefix starts every signed owner message.
const MessagePrefix = "cryptojulius Auth"

// OwnerGuard only lets requests signed by the watchlist owner through.
type OwnerGuard struct {
	owner       common.Address
	nonceWindow time.Duration
	now         func() time.Time

	nonceMu    sync.Mutex
	nonceStore map[string]time.Time
}

// NewOwnerGuard creates a guard for the given EVM address.
func NewOwnerGuard(owner string) (*OwnerGuard, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address %q", owner)
	}
	return &OwnerGuard{
		owner:       common.HexToAddress(owner),
		nonceWindow: 5 * time.Minute,
		now:         time.Now,
		nonceStore:  make(map[string]time.Time),
	}, nil
}

// Message returns the text the owner signs for a nonce and unix timestamp.
func Message(nonce string, timestamp int64) string {
	return fmt.Sprintf("%s:%s:%d", MessagePrefix, nonce, timestamp)
}

// RequireOwner expects "Authorization: Bearer signature:nonce:timestamp:address".
func (g *OwnerGuard) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"code":  "AUTH_HEADER_MISSING",
			})
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format",
				"code":  "INVALID_AUTH_FORMAT",
			})
			return
		}

		address, err := g.verifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			logrus.WithError(err).Warn("Authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication failed",
				"code":  "AUTH_FAILED",
			})
			return
		}
		if address != g.owner {
			logrus.WithField("address", address.Hex()).Warn("Rejected non-owner request")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Only the owner may change the watchlist",
				"code":  "NOT_OWNER",
			})
			return
		}

		c.Set("owner_address", address.Hex())
		c.Next()
	}
}

func (g *OwnerGuard) verifyToken(token string) (common.Address, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 {
		return common.Address{}, fmt.Errorf("invalid token format")
	}
	signature, nonce, timestampStr, address := parts[0], parts[1], parts[2], parts[3]

	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address format")
	}
	if nonce == "" || len(nonce) > 128 {
		return common.Address{}, fmt.Errorf("invalid nonce length")
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid timestamp")
	}
	now := g.now()
	if now.Unix()-timestamp > 300 || timestamp > now.Unix()+60 {
		return common.Address{}, fmt.Errorf("timestamp out of valid range")
	}

	g.nonceMu.Lock()
	defer g.nonceMu.Unlock()

	g.cleanupExpiredNonces(now)
	if _, used := g.nonceStore[nonce]; used {
		return common.Address{}, fmt.Errorf("nonce already used")
	}

	signer, err := recoverSigner(Message(nonce, timestamp), signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature verification failed: %w", err)
	}
	if signer != common.HexToAddress(address) {
		return common.Address{}, fmt.Errorf("signature verification failed: signature address mismatch")
	}

	g.nonceStore[nonce] = now
	return signer, nil
}

// recoverSigner returns the address that produced an Ethereum personal-message signature.
func recoverSigner(message, signature string) (common.Address, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature encoding")
	}
	if len(sigBytes) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length")
	}
	// wallets produce v as 27/28
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	pubKey, err := crypto.SigToPub(personalMessageHash(message), sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key")
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

func personalMessageHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256Hash([]byte(prefixed)).Bytes()
}

// cleanupExpiredNonces drops nonces older than the window. Callers hold nonceMu.
func (g *OwnerGuard) cleanupExpiredNonces(now time.Time) {
	for nonce, used := range g.nonceStore {
		if now.Sub(used) > g.nonceWindow {
			delete(g.nonceStore, nonce)
		}
	}
}

// SecurityHeaders middleware adds security headers
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// SecureCORS allows the configured origins only
func SecureCORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
