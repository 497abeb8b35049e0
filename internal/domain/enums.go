package domain

import "sync"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleUnknown Role = "unknown"
	RoleGuest   Role = "guest"
)

// ModuleType identifies a training module. The set is open: new modules
// join by registration, not by editing a switch.
type ModuleType string

const (
	ModuleDictation ModuleType = "dictation"
	ModuleReading   ModuleType = "reading"
)

type SourceType string

const (
	SourceSentence SourceType = "sentence"
	SourceNumber   SourceType = "number"
)

func (s SourceType) IsValid() bool {
	switch s {
	case SourceSentence, SourceNumber:
		return true
	default:
		return false
	}
}

type ModuleConfig struct {
	ID          ModuleType
	Name        string
	Description string
	Enabled     bool
}

// ModuleRegistry maps module types to their configuration. Lookups against
// unregistered types fail instead of silently indexing a map.
type ModuleRegistry struct {
	mu      sync.RWMutex
	modules map[ModuleType]ModuleConfig
}

func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{modules: make(map[ModuleType]ModuleConfig)}
}

// DefaultRegistry returns a registry with the two built-in training modules.
func DefaultRegistry() *ModuleRegistry {
	r := NewModuleRegistry()
	r.Register(ModuleConfig{ID: ModuleDictation, Name: "Dictation", Description: "listen and type", Enabled: true})
	r.Register(ModuleConfig{ID: ModuleReading, Name: "Reading", Description: "read aloud", Enabled: true})
	return r
}

func (r *ModuleRegistry) Register(cfg ModuleConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[cfg.ID] = cfg
}

func (r *ModuleRegistry) Get(id ModuleType) (ModuleConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.modules[id]
	return cfg, ok
}

func (r *ModuleRegistry) IsRegistered(id ModuleType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.modules[id]
	return ok && cfg.Enabled
}

func (r *ModuleRegistry) Enabled() []ModuleConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ModuleConfig
	for _, cfg := range r.modules {
		if cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}
