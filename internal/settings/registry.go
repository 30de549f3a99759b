package settings

import (
	"reflect"
	"sort"
	"sync"

	ncerr "lanshare/internal/errors"
	"lanshare/util"
)

// Registry is a process-wide key/value store for configuration.
//
// Values may be present before the matching Setting is registered (for
// example when loaded from a Store or settings file); they are coerced
// to the declared type when the Setting is added.  All methods are safe
// for concurrent use.  Change callbacks run synchronously on the
// goroutine that changed the value, outside the registry lock, in
// subscription order.
type Registry struct {
	mu       sync.RWMutex
	settings map[string]*Setting
	values   map[string]interface{}
	subs     []subscriber
	nextSub  int

	store  Store
	logger *util.Logger
}

type subscriber struct {
	id int
	fn func(changed []string)
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore persists every change to s and preloads its contents.
func WithStore(s Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithLogger sets the logger used for store and coercion warnings.
func WithLogger(l *util.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.  If a Store is configured its
// values are loaded; a load failure is returned along with a usable,
// empty registry.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		settings: make(map[string]*Setting),
		values:   make(map[string]interface{}),
		logger:   util.NewLogger(int(util.LogQuiet)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("settings")

	if r.store != nil {
		stored, err := r.store.Load()
		if err != nil {
			return r, err
		}
		for k, v := range stored {
			r.values[k] = v
		}
	}
	return r, nil
}

// AddSetting registers s.  A value already held under s.Name is coerced
// to s.Type; if that fails the value is discarded so the default
// applies.  No change notification is sent.
func (r *Registry) AddSetting(s *Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.settings[s.Name]; ok {
		return &ncerr.SettingError{Name: s.Name, Value: s.Default, Err: ncerr.ErrDuplicateSetting}
	}
	r.settings[s.Name] = s

	if v, ok := r.values[s.Name]; ok {
		cv, err := coerce(s.Type, v)
		if err != nil {
			r.logger.Warn("discarding stored value %v for %s: %v", v, s.Name, err)
			delete(r.values, s.Name)
		} else {
			r.values[s.Name] = cv
		}
	}
	return nil
}

// RemoveSetting unregisters s.  Its stored value, if any, is kept so a
// later registration sees it again.  Removing a setting that is not
// registered (or a different Setting with the same name) is a no-op.
func (r *Registry) RemoveSetting(s *Setting) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.settings[s.Name]; ok && cur == s {
		delete(r.settings, s.Name)
	}
}

// Setting returns the registered setting called name.
func (r *Registry) Setting(name string) (*Setting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[name]
	return s, ok
}

// Value returns the stored value for name, else the registered default,
// else nil.
func (r *Registry) Value(name string) interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.values[name]; ok {
		return v
	}
	if s, ok := r.settings[name]; ok {
		return s.Default
	}
	return nil
}

// Int returns Value(name) as an int, or 0 when it is unset or not
// convertible.
func (r *Registry) Int(name string) int {
	n, err := toInt(r.Value(name))
	if err != nil {
		return 0
	}
	return n
}

// Set stores v under name.  See [Registry.Update].
func (r *Registry) Set(name string, v interface{}) error {
	return r.Update(map[string]interface{}{name: v})
}

// Update stores every value in values, persists the ones that changed,
// and then notifies subscribers once with the sorted names of the
// changed settings.  Values for registered settings are coerced to the
// declared type; a value that cannot be coerced is skipped and reported
// in the returned error while the rest are still applied.
func (r *Registry) Update(values map[string]interface{}) error {
	var errs []error
	var changed []string

	r.mu.Lock()
	for name, v := range values {
		if s, ok := r.settings[name]; ok {
			cv, err := coerce(s.Type, v)
			if err != nil {
				errs = append(errs, &ncerr.SettingError{Name: name, Value: v, Err: err})
				continue
			}
			v = cv
		}
		if old, ok := r.values[name]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		r.values[name] = v
		changed = append(changed, name)

		if r.store != nil {
			if err := r.store.Save(name, v); err != nil {
				errs = append(errs, &ncerr.SettingError{Name: name, Value: v, Err: err})
			}
		}
	}
	subs := append([]subscriber(nil), r.subs...)
	r.mu.Unlock()

	if len(changed) > 0 {
		sort.Strings(changed)
		for _, s := range subs {
			s.fn(changed)
		}
	}
	return ncerr.Join(errs...)
}

// Subscribe registers fn to be called after every change.  The returned
// function cancels the subscription and is safe to call more than once.
func (r *Registry) Subscribe(fn func(changed []string)) (cancel func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs = append(r.subs, subscriber{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.subs {
			if s.id == id {
				r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
				return
			}
		}
	}
}
