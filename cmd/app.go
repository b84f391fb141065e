package cmd

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/config"
	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/portal"
	"github.com/jjenkins/recnotify/internal/service"
)

// newPortalClient opens a browsing session named name. The session is not logged in.
func newPortalClient(name string, cfg config.PortalConfig, log *zap.Logger) (*service.PortalClient, error) {
	session, err := portal.NewSession(name, log, portal.Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return service.NewPortalClient(session, cfg, log.With(zap.String("session", name))), nil
}

// lazyLogin is a SubjectSource that logs in on first use, so a registry
// served from the cache never touches the portal
type lazyLogin struct {
	client interface {
		service.SubjectSource
		Login(ctx context.Context) error
	}
	once   sync.Once
	err    error
}

func (l *lazyLogin) login(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.client.Login(ctx)
	})
	return l.err
}

func (l *lazyLogin) FetchSubjectOptions(ctx context.Context) ([]model.SubjectOption, error) {
	if err := l.login(ctx); err != nil {
		return nil, err
	}
	return l.client.FetchSubjectOptions(ctx)
}

func (l *lazyLogin) FetchRecordingAllowed(ctx context.Context, option model.SubjectOption) (bool, error) {
	if err := l.login(ctx); err != nil {
		return false, err
	}
	return l.client.FetchRecordingAllowed(ctx, option)
}

// contactOptions maps configuration to resolver options
func contactOptions(cfg config.ContactsConfig, metrics *service.Metrics) service.ContactResolverOptions {
	return service.ContactResolverOptions{
		Overrides:     cfg.Overrides,
		CacheNegative: cfg.CacheNegative,
		Metrics:       metrics,
	}
}
