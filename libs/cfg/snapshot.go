package cfg

import (
	"time"

	"github.com/coachloop/backend/libs/golog"
)

// Snapshot is a read-only point-in-time view of the values in a config store.
type Snapshot struct {
	values map[string]interface{}
	defs   map[string]*ValueDef
}

// Bool returns the named value if it is a bool, else the registered default.
func (s Snapshot) Bool(name string) bool {
	if v, ok := s.values[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
		golog.Errorf("cfg: expected a bool for '%s' got %T", name, v)
	}
	if d := s.defs[name]; d == nil {
		golog.Errorf("cfg: access of undefined bool '%s'", name)
	} else if d.Default != nil {
		return d.Default.(bool)
	}
	return false
}

// Int returns the named value if it is an integer, else the registered default.
func (s Snapshot) Int(name string) int {
	return int(s.Int64(name))
}

// Int64 returns the named value if it is an integer, else the registered default.
func (s Snapshot) Int64(name string) int64 {
	if v, ok := s.values[name]; ok {
		if i, ok := v.(int64); ok {
			return i
		}
		golog.Errorf("cfg: expected an int64 for '%s' got %T", name, v)
	}
	if d := s.defs[name]; d == nil {
		golog.Errorf("cfg: access of undefined int64 '%s'", name)
	} else if d.Default != nil {
		return d.Default.(int64)
	}
	return 0
}

// Float64 returns the named value if it is a float, else the registered default.
func (s Snapshot) Float64(name string) float64 {
	if v, ok := s.values[name]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
		golog.Errorf("cfg: expected a float64 for '%s' got %T", name, v)
	}
	if d := s.defs[name]; d == nil {
		golog.Errorf("cfg: access of undefined float64 '%s'", name)
	} else if d.Default != nil {
		return d.Default.(float64)
	}
	return 0.0
}

// String returns the named value if it is a string, else the registered default.
func (s Snapshot) String(name string) string {
	if v, ok := s.values[name]; ok {
		if str, ok := v.(string); ok {
			return str
		}
		golog.Errorf("cfg: expected a string for '%s' got %T", name, v)
	}
	if d := s.defs[name]; d == nil {
		golog.Errorf("cfg: access of undefined string '%s'", name)
	} else if d.Default != nil {
		return d.Default.(string)
	}
	return ""
}

// Duration returns the named value if it is a duration (or int64 nanoseconds),
// else the registered default.
func (s Snapshot) Duration(name string) time.Duration {
	if v, ok := s.values[name]; ok {
		switch v2 := v.(type) {
		case int64:
			return time.Duration(v2)
		case time.Duration:
			return v2
		}
		golog.Errorf("cfg: expected an int64 or time.Duration for '%s' got %T", name, v)
	}
	if d := s.defs[name]; d == nil {
		golog.Errorf("cfg: access of undefined duration '%s'", name)
	} else if d.Default != nil {
		return d.Default.(time.Duration)
	}
	return 0
}

// Values returns the underlying map. The returned map is read-only.
func (s Snapshot) Values() map[string]interface{} {
	return s.values
}
