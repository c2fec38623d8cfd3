package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	zlog "github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-manager/authclient"
	"github.com/jrsteele09/go-session-manager/internal/config"
	"github.com/jrsteele09/go-session-manager/redirects"
	"github.com/jrsteele09/go-session-manager/session"
	"github.com/jrsteele09/go-session-manager/tokenstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running session manager: %s\n", err)
	}
	log.Printf("Session manager stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	repo, err := newTokenRepo(c)
	if err != nil {
		return fmt.Errorf("newTokenRepo: %w", err)
	}
	store := tokenstore.New(repo)

	client, err := authclient.New(
		c.GetAuthServiceURL(),
		store,
		authclient.WithHTTPClient(&http.Client{Timeout: time.Duration(c.GetHTTPTimeout()) * time.Second}),
	)
	if err != nil {
		return fmt.Errorf("authclient.New: %w", err)
	}

	coordinator := redirects.NewCoordinator(logNavigator{})

	manager, err := session.NewManager(
		client,
		store,
		coordinator,
		session.WithLoginRedirect(c.GetLoginRedirect()),
		session.WithBypassBootstrap(c.GetBypassBootstrap()),
	)
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}
	defer manager.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := session.NewBridge()
	go manager.ConsumeTokenUpdates(ctx, bridge)

	manager.Bootstrap(ctx)
	logSession("bootstrap complete", manager.Session())

	if !manager.Session().IsAuthenticated && c.GetLoginEmail() != "" {
		manager.Login(ctx, authclient.CredentialsFromEmail(c.GetLoginEmail(), c.GetLoginPassword()))
		logSession("login attempt complete", manager.Session())
	}

	waitForStopSignal()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	manager.Logout(shutdownCtx, "")
	return nil
}

func newTokenRepo(c config.Config) (tokenstore.Repo, error) {
	if redisURL := c.GetRedisURL(); redisURL != "" {
		return tokenstore.NewRedisRepo(redisURL)
	}
	return tokenstore.NewFileRepo(c.GetRefreshTokenFile())
}

func logSession(msg string, s session.Session) {
	event := zlog.Info().
		Bool("authenticated", s.IsAuthenticated).
		Bool("initializing", s.IsInitializing)
	if s.User != nil {
		event = event.Str("user", s.User.Username)
	}
	if s.Error != "" {
		event = event.Str("error", s.Error)
	}
	event.Msg(msg)
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// logNavigator stands in for a real navigation stack: sessionctl has no UI, so
// redirects are reported instead of performed.
type logNavigator struct{}

func (logNavigator) ReplaceRoute(path string) {
	zlog.Info().Str("route", path).Msg("Redirecting")
}

func (logNavigator) OpenURL(url string) {
	zlog.Info().Str("url", url).Msg("Opening external URL")
}
