package config

const (
	redisURLVar         = "REDIS_URL"
	refreshTokenFileVar = "REFRESH_TOKEN_FILE"
)

type StoreVars struct{}

var _ StoreConfig = StoreVars{}

// GetRedisURL returns the Redis connection URL for refresh token storage.
// Empty means the file-backed store is used instead.
func (StoreVars) GetRedisURL() string {
	return GetEnv(redisURLVar, "")
}

// GetRefreshTokenFile returns the path of the file-backed refresh token slot.
func (StoreVars) GetRefreshTokenFile() string {
	return GetEnv(refreshTokenFileVar, "./data/refresh_token.json")
}
