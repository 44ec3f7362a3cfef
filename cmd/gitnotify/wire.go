package main

import (
	"log/slog"

	githubadapter "github.com/ericfisherdev/gitnotify/internal/adapter/driven/github"
	"github.com/ericfisherdev/gitnotify/internal/adapter/driven/credential"
	"github.com/ericfisherdev/gitnotify/internal/adapter/driven/vcs"
	"github.com/ericfisherdev/gitnotify/internal/application"
	"github.com/ericfisherdev/gitnotify/internal/config"
	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// tokenSources returns the token chain: explicit configuration, then the
// keyring, then the rc file. An unavailable keyring is skipped.
func tokenSources(cfg *config.Config) driven.TokenSource {
	resolver := credential.NewResolver().
		Add("config", credential.Static(cfg.GitHubToken))

	if cfg.UseKeyring {
		if ks, err := openKeyringSource(cfg); err != nil {
			slog.Debug("keyring unavailable", "error", err)
		} else {
			resolver.Add("keyring", ks)
		}
	}

	return resolver.Add("rc file", credential.NewRCFile(cfg.RCFile))
}

// remoteLocator uses the configured owner and repo when both are set and
// the project's origin remote otherwise.
func remoteLocator(cfg *config.Config) driven.RemoteLocator {
	if cfg.HasRepositoryOverride() {
		return vcs.Fixed(model.Repository{Owner: cfg.Owner, Name: cfg.Repo})
	}
	return vcs.NewOriginLocator(cfg.ProjectDir)
}

func gatewayFactory(apiURL string) application.GatewayFactory {
	return func(token string, repo model.Repository) (application.ValidatingGateway, error) {
		client, err := githubadapter.NewClient(token, repo, apiURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func newConfigChecker(cfg *config.Config, tokens driven.TokenSource, notifier driven.Notifier) *application.ConfigChecker {
	return application.NewConfigChecker(
		githubadapter.NewReachability(""),
		remoteLocator(cfg),
		tokens,
		gatewayFactory(cfg.APIURL),
		notifier,
	)
}

func pollSettings(cfg *config.Config) application.PollSettings {
	settings := application.DefaultPollSettings()
	settings.BaseDelay = cfg.BaseDelay
	settings.ReferencePollInterval = cfg.ReferencePollInterval
	settings.CleanupInterval = cfg.CleanupInterval
	settings.Backoff.MaxRetries = cfg.MaxRetries
	return settings
}
