package config

import "strconv"

const (
	authServiceURLVar  = "AUTH_SERVICE_URL"
	httpTimeoutVar     = "AUTH_HTTP_TIMEOUT"
	loginRedirectVar   = "LOGIN_REDIRECT"
	bypassBootstrapVar = "AUTH_BYPASS_BOOTSTRAP"
	loginEmailVar      = "LOGIN_EMAIL"
	loginPasswordVar   = "LOGIN_PASSWORD"
)

type AuthServiceVars struct{}

var _ AuthServiceConfig = AuthServiceVars{}

// GetAuthServiceURL returns the base URL of the remote auth service.
func (AuthServiceVars) GetAuthServiceURL() string {
	return GetEnv(authServiceURLVar, "http://localhost:8088")
}

// GetHTTPTimeout returns the auth service request timeout in seconds.
func (AuthServiceVars) GetHTTPTimeout() int {
	timeout, err := strconv.Atoi(GetEnv(httpTimeoutVar, "10"))
	if err != nil || timeout <= 0 {
		return 10
	}
	return timeout
}

// GetLoginRedirect returns the post-login destination route.
func (AuthServiceVars) GetLoginRedirect() string {
	return GetEnv(loginRedirectVar, "/c/new")
}

// GetBypassBootstrap reports whether startup should skip the session restore
// attempt entirely (test harness flag).
func (AuthServiceVars) GetBypassBootstrap() bool {
	return GetEnv(bypassBootstrapVar, "") == "true"
}

func (AuthServiceVars) GetLoginEmail() string {
	return GetEnv(loginEmailVar, "")
}

func (AuthServiceVars) GetLoginPassword() string {
	return GetEnv(loginPasswordVar, "")
}
