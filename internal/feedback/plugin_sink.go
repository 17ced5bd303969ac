package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/plugin"
)

// PluginSink forwards events to every discovered plugin subscribed to them.
type PluginSink struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	configs  map[string]json.RawMessage
}

// NewPluginSink creates a sink over the plugins known to manager. configs maps
// a plugin name to the config passed verbatim in its requests and may be nil.
func NewPluginSink(manager *plugin.Manager, executor *plugin.Executor, configs map[string]json.RawMessage) *PluginSink {
	return &PluginSink{
		manager:  manager,
		executor: executor,
		configs:  configs,
	}
}

// Notify runs each subscribed plugin in name order. The first failure is
// returned after all plugins have been attempted.
func (s *PluginSink) Notify(ctx context.Context, ev Event) error {
	params, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	var firstErr error
	for _, p := range s.manager.ForEvent(string(ev.Type)) {
		req := &plugin.Request{
			Event:    string(ev.Type),
			Exercise: string(ev.Exercise),
			Config:   s.configs[p.Manifest.Name],
			Params:   params,
		}
		resp, err := s.executor.Execute(ctx, p, req)
		if err == nil && !resp.Success {
			err = fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.WithFields(log.Fields{
			"plugin": p.Manifest.Name,
			"event":  ev.Type,
		}).Debug("plugin notified")
	}
	return firstErr
}
