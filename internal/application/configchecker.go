package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// ConnectivityProbe checks that GitHub is reachable.
type ConnectivityProbe interface {
	Check(ctx context.Context) error
}

// ValidatingGateway is a gateway that can also check its own credentials.
type ValidatingGateway interface {
	driven.NotificationGateway
	driven.AccessValidator
}

// GatewayFactory builds a gateway for the given token and repository.
type GatewayFactory func(token string, repo model.Repository) (ValidatingGateway, error)

// CheckStep names a configuration check.
type CheckStep string

const (
	StepConnectivity CheckStep = "connectivity"
	StepRemote       CheckStep = "remote"
	StepToken        CheckStep = "token"
	StepAccess       CheckStep = "access"
)

// CheckError reports which configuration check failed.
type CheckError struct {
	Step CheckStep
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("configuration check %s failed: %v", e.Step, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// CheckResult is a validated configuration ready for polling.
type CheckResult struct {
	Repository model.Repository
	Gateway    ValidatingGateway
}

// ConfigChecker validates connectivity, the origin remote and the token
// before polling starts. Every failure raises an error notice offering to
// validate again.
type ConfigChecker struct {
	probe    ConnectivityProbe
	locator  driven.RemoteLocator
	tokens   driven.TokenSource
	factory  GatewayFactory
	notifier driven.Notifier
}

// NewConfigChecker creates a ConfigChecker with all required dependencies.
func NewConfigChecker(
	probe ConnectivityProbe,
	locator driven.RemoteLocator,
	tokens driven.TokenSource,
	factory GatewayFactory,
	notifier driven.Notifier,
) *ConfigChecker {
	return &ConfigChecker{
		probe:    probe,
		locator:  locator,
		tokens:   tokens,
		factory:  factory,
		notifier: notifier,
	}
}

// Check runs every step in order and stops at the first failure.
func (c *ConfigChecker) Check(ctx context.Context) (CheckResult, error) {
	if err := c.probe.Check(ctx); err != nil {
		return CheckResult{}, c.fail(ctx, StepConnectivity, err, "Error checking internet connectivity")
	}

	repo, err := c.locator.Origin(ctx)
	if err != nil {
		return CheckResult{}, c.fail(ctx, StepRemote, err,
			"No github origin remote found for project. Add a github remote to start receiving notifications")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		msg := "Could not read the GitHub token"
		if errors.Is(err, driven.ErrTokenNotFound) {
			msg = "Github token not found. Put GITHUB_TOKEN in ~/.gitnotifyrc, the keyring or GITNOTIFY_GITHUB_TOKEN"
		}
		return CheckResult{}, c.fail(ctx, StepToken, err, msg)
	}

	gateway, err := c.factory(token, repo)
	if err != nil {
		return CheckResult{}, c.fail(ctx, StepAccess, err, "Could not create the GitHub client")
	}

	if err := gateway.ValidateAccess(ctx); err != nil {
		return CheckResult{}, c.fail(ctx, StepAccess, err, "Github token authentication failed. Set a valid token in the rc file")
	}

	slog.Info("configuration validated", "repo", repo.FullName())
	c.notifier.Notify(ctx, model.NewNotice(model.SeverityInfo, "Validation successful"))

	return CheckResult{Repository: repo, Gateway: gateway}, nil
}

func (c *ConfigChecker) fail(ctx context.Context, step CheckStep, err error, body string) error {
	slog.Warn("configuration check failed", "step", step, "error", err)
	c.notifier.Notify(ctx, model.NewNotice(model.SeverityError, body).
		WithAction(model.ActionValidateAgain).
		AsSticky())
	return &CheckError{Step: step, Err: err}
}
