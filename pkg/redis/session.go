package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// Session 对应 Redis 内的会话结构，core 侧再映射为 auth.Principal。
type Session struct {
	Token   string
	UserID  string
	Name    string
	Email   string
	Contact string
	Role    string
}

// GetSession 查询会话。found=false 表示令牌不存在或已过期。
func GetSession(ctx context.Context, rdb *rd.Client, token string) (Session, bool, error) {
	key := SessionKey(token)
	m, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Session{}, false, err
	}
	if len(m) == 0 {
		return Session{}, false, nil
	}

	return Session{
		Token:   token,
		UserID:  m["user_id"],
		Name:    m["name"],
		Email:   m["email"],
		Contact: m["contact"],
		Role:    m["role"],
	}, true, nil
}

// PutSession 写入会话并刷新 TTL。
func PutSession(ctx context.Context, rdb *rd.Client, s Session, ttl time.Duration) error {
	key := SessionKey(s.Token)
	pipe := rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"user_id", s.UserID,
		"name", s.Name,
		"email", s.Email,
		"contact", s.Contact,
		"role", s.Role,
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteSession 注销会话。
func DeleteSession(ctx context.Context, rdb *rd.Client, token string) error {
	return rdb.Del(ctx, SessionKey(token)).Err()
}
