package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/delega/delega/internal/audit"
	"github.com/delega/delega/internal/config"
	"github.com/delega/delega/internal/decision"
	"github.com/delega/delega/internal/provider"
	"github.com/delega/delega/internal/reasoner"
)

// newService wires a decision service from the loaded configuration.
// The returned cleanup closes the provider watcher and the audit log.
func newService(ruleBased bool) (*decision.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var p provider.Provider
	switch {
	case cfg.Backend.URL != "":
		p, err = provider.NewHTTPProvider(cfg.Backend.URL, cfg.Backend.Timeout)
		if err != nil {
			return nil, nil, err
		}
	case cfg.Roster.Path != "":
		rp, err := provider.NewRosterProvider(cfg.Roster.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, rp.Close)
		p = rp
	default:
		return nil, nil, fmt.Errorf("no task source configured: set backend.url or roster.path")
	}

	// Missing or malformed credentials with reasoning enabled are a
	// startup error, never a silent fallback to rule-based decisions.
	var r reasoner.Reasoner
	if !ruleBased && !cfg.Pipeline.RuleBased {
		clientCfg := reasoner.ClientConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		}
		if !cfg.Anthropic.UseAWSBedrock {
			key, _, err := config.ResolveAPIKey(cfg)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("reasoning enabled but %w (set ANTHROPIC_API_KEY or pass --rule-based)", err)
			}
			if err := config.ValidateAPIKey(key); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("reasoning enabled but %w", err)
			}
			clientCfg.APIKey = key
		}
		client, err := reasoner.NewClient(clientCfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("configure reasoning client: %w", err)
		}
		r = reasoner.NewAnthropicReasoner(client)
	}

	auditPath := cfg.Audit.Path
	if auditPath == "" {
		auditPath = audit.DefaultPath()
	}
	trail, err := audit.Open(auditPath)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := trail.Migrate(); err != nil {
		trail.Close()
		cleanup()
		return nil, nil, fmt.Errorf("migrate audit log: %w", err)
	}
	closers = append(closers, func() { trail.Close() })

	svc := decision.NewService(p, trail, decision.Config{
		Reasoner:        r,
		ShortlistSize:   cfg.Pipeline.ShortlistSize,
		MaxWorkload:     cfg.Pipeline.MaxWorkload,
		PipelineTimeout: cfg.Pipeline.Timeout,
	})
	return svc, cleanup, nil
}
