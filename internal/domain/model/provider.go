package model

import "time"

// ProviderKey is one configured API key for an external provider. The
// router consults these rows read-only when resolving which provider and
// key should serve a task.
type ProviderKey struct {
	ID                   string
	Provider             string // openai | gemini | noop
	Key                  string
	Models               []string
	Priority             int // higher wins
	Weight               int // weighted pick among equal priority
	MaxRequestsPerMinute int
	Enabled              bool
	CreatedAt            time.Time
}

// Serves reports whether this key can serve the given model. An empty
// Models list means the key serves every model of its provider.
func (k *ProviderKey) Serves(model string) bool {
	if !k.Enabled {
		return false
	}
	if len(k.Models) == 0 {
		return true
	}
	for _, m := range k.Models {
		if m == model {
			return true
		}
	}
	return false
}
