// Package mock provides a light expectation-based helper for hand-written
// mocks. A mock embeds *Expector, test code queues expectations with Expect,
// and the mock's methods call Record to match the next expectation and fetch
// canned returns.
package mock

import (
	"reflect"
	"runtime"
	"strings"
	"testing"
)

// Expectation describes one expected call and its canned returns.
type Expectation struct {
	fnName  string
	params  []interface{}
	returns []interface{}
}

// NewExpectation returns an expectation for the provided method value and params.
func NewExpectation(fn interface{}, params ...interface{}) *Expectation {
	return &Expectation{
		fnName:  fnName(fn),
		params:  params,
	}
}

// WithReturns attaches canned return values to the expectation.
func (e *Expectation) WithReturns(returns ...interface{}) *Expectation {
	e.returns = returns
	return e
}

// Expector tracks queued expectations for a mock.
type Expector struct {
	T            *testing.T
	expectations []*Expectation
}

// Expect queues an expectation.
func (e *Expector) Expect(exp *Expectation) {
	e.expectations = append(e.expectations, exp)
}

// Record is called by mock methods with the actual params. It matches the next
// queued expectation for the calling method, asserts the params, and returns
// the canned return values.
func (e *Expector) Record(params ...interface{}) []interface{} {
	if e.T != nil {
		e.T.Helper()
	}
	caller := callerName(2)
	if len(e.expectations) == 0 {
		e.fatalf("unexpected call to %s with params %+v", caller, params)
		return nil
	}
	exp := e.expectations[0]
	e.expectations = e.expectations[1:]
	if exp.fnName != caller {
		e.fatalf("expected call to %s, got call to %s", exp.fnName, caller)
		return exp.returns
	}
	if !reflect.DeepEqual(exp.params, params) && !(len(exp.params) == 0 && len(params) == 0) {
		e.fatalf("unexpected params for %s:\n\texp: %+v\n\tgot: %+v", caller, exp.params, params)
	}
	return exp.returns
}

// Finish asserts that every queued expectation was consumed.
func (e *Expector) Finish() {
	if len(e.expectations) != 0 {
		names := make([]string, len(e.expectations))
		for i, exp := range e.expectations {
			names[i] = exp.fnName
		}
		e.fatalf("unmet expectations: %s", strings.Join(names, ", "))
	}
}

func (e *Expector) fatalf(format string, args ...interface{}) {
	if e.T != nil {
		e.T.Fatalf(format, args...)
		return
	}
	panic("mock: no *testing.T attached to Expector")
}

// SafeError converts a recorded return value to an error, tolerating nil.
func SafeError(v interface{}) error {
	if v == nil {
		return nil
	}
	return v.(error)
}

func fnName(fn interface{}) string {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	// Method values carry a -fm suffix.
	name = strings.TrimSuffix(name, "-fm")
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

func callerName(calldepth int) string {
	pc, _, _, ok := runtime.Caller(calldepth)
	if !ok {
		return "unknown"
	}
	name := runtime.FuncForPC(pc).Name()
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
