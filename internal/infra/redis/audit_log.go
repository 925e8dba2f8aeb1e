package redis

import (
	"context"
	"time"

	"quiz-arena/internal/app"

	"github.com/redis/go-redis/v9"
)

var _ app.AuditLog = (*AuditLog)(nil)

// AuditLog records issued tokens as hashes:
//
//	HSET auth:token:{tokenID} userId .. issuedAt .. expiresAt ..
//	SADD auth:user:{userID}:tokens {tokenID}
//
// Entries expire with the token they describe.
type AuditLog struct {
	client *redis.Client
}

func NewAuditLog(client *redis.Client) *AuditLog {
	return &AuditLog{client: client}
}

func (l *AuditLog) RecordToken(ctx context.Context, record app.TokenRecord) error {
	tokenKey := tokenKey(record.TokenID)
	userKey := userTokensKey(record.UserID)

	pipe := l.client.TxPipeline()
	pipe.HSet(ctx, tokenKey,
		"userId", record.UserID,
		"issuedAt", record.IssuedAt.UTC().Format(time.RFC3339),
		"expiresAt", record.ExpiresAt.UTC().Format(time.RFC3339),
	)
	pipe.SAdd(ctx, userKey, record.TokenID)
	if !record.ExpiresAt.IsZero() {
		pipe.ExpireAt(ctx, tokenKey, record.ExpiresAt)
		pipe.ExpireAt(ctx, userKey, record.ExpiresAt)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// TokensFor lists the token ids recorded for userID.
func (l *AuditLog) TokensFor(ctx context.Context, userID string) ([]string, error) {
	return l.client.SMembers(ctx, userTokensKey(userID)).Result()
}

func tokenKey(tokenID string) string {
	return "auth:token:" + tokenID
}

func userTokensKey(userID string) string {
	return "auth:user:" + userID + ":tokens"
}
