package cast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/homecast/cast-notifier/internal/domain"
)

// Registry is the single owned map from stable endpoint identifier to
// endpoint handle. It consumes discovery events; the worker and the API get
// read access only (Resolve, List). Non-audio devices are filtered out.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	logger    *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		endpoints: make(map[string]Endpoint),
		logger:    logger,
	}
}

// OnEndpointFound registers a discovered endpoint. A rediscovery of a known
// identifier replaces the old handle, closing it first.
func (r *Registry) OnEndpointFound(ep Endpoint) {
	if !IsAudioModel(ep.Model()) {
		r.logger.Debug("ignoring non-audio endpoint",
			zap.String("name", ep.Name()), zap.String("model", ep.Model()))
		return
	}

	r.mu.Lock()
	old, exists := r.endpoints[ep.ID()]
	r.endpoints[ep.ID()] = ep
	r.mu.Unlock()

	if exists {
		_ = old.Close()
	}
	r.logger.Info("endpoint registered",
		zap.String("id", ep.ID()), zap.String("name", ep.Name()), zap.String("model", ep.Model()))
}

// OnEndpointLost removes and closes an endpoint.
func (r *Registry) OnEndpointLost(id string) {
	r.mu.Lock()
	ep, exists := r.endpoints[id]
	delete(r.endpoints, id)
	r.mu.Unlock()

	if exists {
		_ = ep.Close()
		r.logger.Info("endpoint removed", zap.String("id", id), zap.String("name", ep.Name()))
	}
}

// Resolve finds an endpoint by its stable identifier or friendly name.
func (r *Registry) Resolve(nameOrID string) (Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ep, ok := r.endpoints[nameOrID]; ok {
		return ep, nil
	}
	for _, ep := range r.endpoints {
		if ep.Name() == nameOrID {
			return ep, nil
		}
	}
	return nil, domain.ErrTargetNotFound
}

// EndpointInfo is the read-only device view exposed over the API.
type EndpointInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
	Ready bool   `json:"ready"`
}

func (r *Registry) List() []EndpointInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]EndpointInfo, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		infos = append(infos, EndpointInfo{
			ID:    ep.ID(),
			Name:  ep.Name(),
			Model: ep.Model(),
			Ready: ep.Ready(),
		})
	}
	return infos
}

// CloseAll disconnects every endpoint. Called at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	endpoints := r.endpoints
	r.endpoints = make(map[string]Endpoint)
	r.mu.Unlock()

	for _, ep := range endpoints {
		_ = ep.Close()
	}
}
