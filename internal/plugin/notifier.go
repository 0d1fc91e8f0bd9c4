package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/handsoff/internal/alert"
	"github.com/ayusman/handsoff/internal/proximity"
)

// Binding attaches a plugin action to an alert level.
type Binding struct {
	Plugin string
	Action string
	Config json.RawMessage
}

// Bindings returns the enabled bindings for a level.
type Bindings interface {
	EnabledFor(level proximity.Level) ([]Binding, error)
}

// BindingsFunc adapts a function to Bindings.
type BindingsFunc func(level proximity.Level) ([]Binding, error)

// EnabledFor calls f.
func (f BindingsFunc) EnabledFor(level proximity.Level) ([]Binding, error) {
	return f(level)
}

// Notifier runs the plugin actions bound to an alert's level. It implements
// alert.Notifier.
type Notifier struct {
	manager  *Manager
	executor *Executor
	bindings Bindings
	logger   *zap.Logger
}

var _ alert.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier.
func NewNotifier(manager *Manager, executor *Executor, bindings Bindings, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		manager:  manager,
		executor: executor,
		bindings: bindings,
		logger:   logger,
	}
}

// Notify runs every binding for a.Level in order. A failing binding does not
// stop the others; all failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, a alert.Alert) error {
	bindings, err := n.bindings.EnabledFor(a.Level)
	if err != nil {
		return fmt.Errorf("load notifier bindings: %w", err)
	}

	payload := NewAlertPayload(a)
	var errs []error
	for _, b := range bindings {
		if err := n.run(ctx, b, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", b.Plugin, b.Action, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) run(ctx context.Context, b Binding, payload AlertPayload) error {
	p, err := n.manager.Get(b.Plugin)
	if err != nil {
		return err
	}

	resp, err := n.executor.Execute(ctx, p, &Request{
		Action: b.Action,
		Alert:  payload,
		Config: b.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin reported failure: %s", resp.Error)
	}

	n.logger.Debug("plugin notified",
		zap.String("plugin", b.Plugin),
		zap.String("action", b.Action),
		zap.String("level", payload.Level),
		zap.Int("count", payload.Count))
	return nil
}
