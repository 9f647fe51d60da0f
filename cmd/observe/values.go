package main

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/vango-dev/observe/internal/config"
	"github.com/vango-dev/observe/pkg/observable"
	"github.com/vango-dev/observe/pkg/server"
)

// valueSet builds the configured values and groups and registers them.
// Entries hold an observable.Value of the configured Go type.
type valueSet struct {
	realm  *observable.Realm
	reg    *server.Registry
	logger *slog.Logger

	values map[string]any
	types  map[string]string

	// built lists registered observables in creation order.
	built []observable.Observable

	// cells are the writable values behind read-only views.
	cells []observable.Observable
}

func buildValues(cfg *config.Config, reg *server.Registry, logger *slog.Logger) (*valueSet, error) {
	vs := &valueSet{
		realm:  reg.Realm(),
		reg:    reg,
		logger: logger,
		values: make(map[string]any),
		types:  make(map[string]string),
	}

	for _, vc := range cfg.Values {
		var err error
		switch vc.Type {
		case config.TypeString:
			err = addValue(vs, vc, toString)
		case config.TypeInt:
			err = addValue(vs, vc, toInt)
		case config.TypeFloat:
			err = addValue(vs, vc, toFloat)
		case config.TypeBool:
			err = addValue(vs, vc, toBool)
		default:
			err = fmt.Errorf("value %q: unknown type %q", vc.Name, vc.Type)
		}
		if err != nil {
			return nil, err
		}
		vs.types[vc.Name] = vc.Type
	}

	for _, gc := range cfg.Groups {
		if len(gc.Members) == 0 {
			return nil, fmt.Errorf("group %q: no members", gc.Name)
		}
		t, ok := vs.types[gc.Members[0]]
		if !ok {
			return nil, fmt.Errorf("group %q: unknown member %q", gc.Name, gc.Members[0])
		}

		var err error
		switch t {
		case config.TypeString:
			err = addGroup(vs, gc, toString)
		case config.TypeInt:
			err = addGroup(vs, gc, toInt)
		case config.TypeFloat:
			err = addGroup(vs, gc, toFloat)
		case config.TypeBool:
			err = addGroup(vs, gc, toBool)
		}
		if err != nil {
			return nil, err
		}
		vs.types[gc.Name] = t
	}
	return vs, nil
}

// dispose disposes the built observables in reverse creation order, so
// groups go before the values and groups they span.
func (vs *valueSet) dispose() {
	for i := len(vs.built) - 1; i >= 0; i-- {
		vs.built[i].Dispose()
	}
	for _, c := range vs.cells {
		c.Dispose()
	}
}

func addValue[T any](vs *valueSet, vc config.ValueConfig, convert func(any) (T, bool)) error {
	var initial T
	if vc.Initial != nil {
		v, ok := convert(vc.Initial)
		if !ok {
			return fmt.Errorf("value %q: initial value %v is not a %s", vc.Name, vc.Initial, vc.Type)
		}
		initial = v
	}

	cell := observable.NewWritableValue(initial,
		observable.WithName(vc.Name),
		observable.WithRealm(vs.realm),
	)

	check, err := vetoCheck(vc.Veto)
	if err != nil {
		return fmt.Errorf("value %q: %w", vc.Name, err)
	}
	if check != nil {
		name := vc.Name
		cell.AddValueChangingListener(observable.ValueChangingFunc[T](func(ev *observable.ValueChangingEvent[T]) {
			if reason := check(ev.Diff.NewValue()); reason != "" {
				ev.Veto = true
				vs.logger.Debug("write vetoed", "value", name, "reason", reason)
			}
		}))
	}

	var exposed observable.Value[T] = cell
	if vc.ReadOnly {
		exposed = observable.ReadOnly[T](cell, observable.WithName(vc.Name))
		vs.cells = append(vs.cells, cell)
	}

	if err := server.Register(vs.reg, vc.Name, exposed); err != nil {
		return err
	}
	vs.values[vc.Name] = exposed
	vs.built = append(vs.built, exposed)
	return nil
}

func addGroup[T any](vs *valueSet, gc config.GroupConfig, convert func(any) (T, bool)) error {
	children := make([]observable.Value[T], 0, len(gc.Members))
	for _, m := range gc.Members {
		v, ok := vs.values[m].(observable.Value[T])
		if !ok {
			return fmt.Errorf("group %q: member %q is missing or has another type", gc.Name, m)
		}
		children = append(children, v)
	}

	var empty, multi T
	if gc.Empty != nil {
		v, ok := convert(gc.Empty)
		if !ok {
			return fmt.Errorf("group %q: empty value %v has the wrong type", gc.Name, gc.Empty)
		}
		empty = v
	}
	if gc.Multi != nil {
		v, ok := convert(gc.Multi)
		if !ok {
			return fmt.Errorf("group %q: multi value %v has the wrong type", gc.Name, gc.Multi)
		}
		multi = v
	}

	group := observable.NewDuplexingValueWithDefaults(children, empty, multi,
		observable.WithName(gc.Name),
		observable.WithRealm(vs.realm),
	)
	if err := server.Register[T](vs.reg, gc.Name, group); err != nil {
		return err
	}
	vs.values[gc.Name] = observable.Value[T](group)
	vs.built = append(vs.built, group)
	return nil
}

// vetoCheck compiles rules into a function returning why a value is
// rejected, or "" when it is accepted. It returns nil when no rule is set.
func vetoCheck(rules config.VetoConfig) (func(any) string, error) {
	if rules.Min == nil && rules.Max == nil && len(rules.OneOf) == 0 && rules.Pattern == "" {
		return nil, nil
	}

	var re *regexp.Regexp
	if rules.Pattern != "" {
		var err error
		if re, err = regexp.Compile(rules.Pattern); err != nil {
			return nil, fmt.Errorf("veto pattern: %w", err)
		}
	}

	bounds := func(n float64) string {
		if rules.Min != nil && n < *rules.Min {
			return fmt.Sprintf("%v is below %v", n, *rules.Min)
		}
		if rules.Max != nil && n > *rules.Max {
			return fmt.Sprintf("%v is above %v", n, *rules.Max)
		}
		return ""
	}

	return func(value any) string {
		switch v := value.(type) {
		case int:
			return bounds(float64(v))
		case float64:
			return bounds(v)
		case string:
			if len(rules.OneOf) > 0 && !slices.Contains(rules.OneOf, v) {
				return fmt.Sprintf("%q is not one of %v", v, rules.OneOf)
			}
			if re != nil && !re.MatchString(v) {
				return fmt.Sprintf("%q does not match %s", v, rules.Pattern)
			}
		}
		return ""
	}, nil
}

// Config values arrive as decoded JSON or YAML: JSON numbers are float64,
// YAML integers are int.

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
