package cfg

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coachloop/backend/libs/golog"
)

type localStore struct {
	defs     map[string]*ValueDef
	values   atomic.Value
	updateMu sync.Mutex
}

// NewLocalStore returns a config store that keeps values in memory. It is safe
// for concurrent access.
func NewLocalStore(defs []*ValueDef) (Store, error) {
	lc := &localStore{
		defs: make(map[string]*ValueDef, len(defs)),
	}
	for _, d := range defs {
		if err := lc.Register(d); err != nil {
			return nil, err
		}
	}
	lc.values.Store(make(map[string]interface{}))
	return lc, nil
}

func (lc *localStore) Close() error {
	return nil
}

func (lc *localStore) Register(def *ValueDef) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("cfg: %+v is not a valid definition: %s", def, err)
	}
	if _, ok := lc.defs[def.Name]; ok {
		return fmt.Errorf("cfg: name %s already registered", def.Name)
	}
	lc.defs[def.Name] = def
	return nil
}

func (lc *localStore) Defs() map[string]*ValueDef {
	return lc.defs
}

func (lc *localStore) Snapshot() Snapshot {
	return Snapshot{
		values: lc.loadValues(),
		defs:   lc.defs,
	}
}

func (lc *localStore) loadValues() map[string]interface{} {
	return lc.values.Load().(map[string]interface{})
}

func (lc *localStore) Update(update map[string]interface{}) error {
	lc.updateMu.Lock()
	defer lc.updateMu.Unlock()
	oldValues := lc.loadValues()
	newValues := make(map[string]interface{}, len(oldValues))
	// Values are immutable types so a shallow copy is enough.
	for n, v := range oldValues {
		newValues[n] = v
	}
	for name, v := range update {
		def, ok := lc.defs[name]
		if !ok {
			golog.Errorf("cfg: no definition registered for '%s'", name)
			newValues[name] = v
			continue
		}
		v, ok = normalizeType(v, def.Type, true)
		if !ok {
			golog.Errorf("cfg: wrong type updating '%s', wanted %s got %T", name, def.Type, v)
			continue
		}
		newValues[name] = v
	}
	lc.values.Store(newValues)
	return nil
}
