package autum

import (
	"context"
	"errors"
	"sync"

	"github.com/Afrawles/autum/internal/github"
	"github.com/Afrawles/autum/internal/jira"
	"github.com/Afrawles/autum/internal/llm"
)

const (
	CheckOK           = "ok"
	CheckUnconfigured = "unconfigured"
	CheckFailed       = "failed"
)

type Check struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type Readiness struct {
	Ready  bool             `json:"ready"`
	Checks map[string]Check `json:"checks"`
}

// connectivityPrompt is sent to the LLM provider by Connectivity.
const connectivityPrompt = "Hello"

// Readiness probes both activity sources and the default LLM provider.
// The LLM leg only checks that credentials are present; Connectivity sends
// a real prompt. Unconfigured dependencies are reported without failing
// readiness.
func (app *Application) Readiness(ctx context.Context) Readiness {
	return app.checkAll(ctx, false)
}

// Connectivity is Readiness with a live LLM call, so a rejected key or a
// wrong endpoint shows up as failed.
func (app *Application) Connectivity(ctx context.Context) Readiness {
	return app.checkAll(ctx, true)
}

func (app *Application) checkAll(ctx context.Context, live bool) Readiness {
	type probe struct {
		name string
		fn   func(context.Context) error
	}
	events := app.Events("")
	probes := []probe{
		{name: app.Issues.Name(), fn: app.Issues.HealthCheck},
		{name: events.Name(), fn: events.HealthCheck},
		{name: "LLM", fn: func(ctx context.Context) error {
			if live {
				_, err := app.Gateway.Generate(ctx, "", connectivityPrompt)
				return err
			}
			_, err := app.Gateway.Client(ctx, "")
			return err
		}},
	}

	result := Readiness{Ready: true, Checks: make(map[string]Check, len(probes))}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := toCheck(p.fn(ctx))
			mu.Lock()
			defer mu.Unlock()
			result.Checks[p.name] = check
			if check.Status == CheckFailed {
				result.Ready = false
			}
		}()
	}
	wg.Wait()

	app.Logger.Debug("readiness evaluated", "ready", result.Ready)
	return result
}

func toCheck(err error) Check {
	var degraded *llm.DegradedError
	var inv *llm.InvocationError
	switch {
	case err == nil:
		return Check{Status: CheckOK}
	case errors.Is(err, jira.ErrNotConfigured), errors.Is(err, github.ErrNoToken), errors.As(err, &degraded):
		return Check{Status: CheckUnconfigured, Detail: err.Error()}
	case errors.As(err, &inv):
		return Check{Status: CheckFailed, Detail: llm.Reason(err)}
	default:
		return Check{Status: CheckFailed, Detail: err.Error()}
	}
}
