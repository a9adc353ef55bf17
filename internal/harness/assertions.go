package harness

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind names an assertion.
type Kind string

const (
	KindEqual Kind = "assert_equal"
	KindTrue  Kind = "assert_true"
	KindIn    Kind = "assert_in"
	KindFail  Kind = "fail_with_message"
	KindInfo  Kind = "info_message"
)

// Outcome is the value returned by every assertion: Evaluated when a live
// context was available, Deferred otherwise.
type Outcome interface {
	outcome()
}

// Evaluated is an assertion that was checked and reported.
type Evaluated struct {
	Kind   Kind
	Passed bool
	Detail string
}

// Deferred is an assertion recorded without a live context.
type Deferred struct {
	Kind Kind
	Args []any
}

func (Evaluated) outcome() {}
func (Deferred) outcome()  {}

// Evaluate runs d inside ec. With an inactive ec, d is returned unchanged.
func (d Deferred) Evaluate(ec *ExecContext) Outcome {
	if !ec.Active() {
		return d
	}
	switch d.Kind {
	case KindEqual:
		return AssertEqual(ec, d.arg(0), d.arg(1))
	case KindTrue:
		cond, _ := d.arg(0).(bool)
		var desc []string
		if s, ok := d.arg(1).(string); ok {
			desc = append(desc, s)
		}
		return AssertTrue(ec, cond, desc...)
	case KindIn:
		return AssertIn(ec, d.arg(0), d.arg(1))
	case KindFail:
		return FailWithMessage(ec, fmt.Sprint(d.arg(0)))
	case KindInfo:
		return InfoMessage(ec, fmt.Sprint(d.arg(0)))
	default:
		return FailWithMessage(ec, fmt.Sprintf("unknown assertion kind %q", d.Kind))
	}
}

func (d Deferred) arg(i int) any {
	if i < len(d.Args) {
		return d.Args[i]
	}
	return nil
}

// AssertEqual checks that actual equals expected. Numbers compare by value
// regardless of their Go type, and slices compare element-wise with the same
// rule.
func AssertEqual(ec *ExecContext, expected, actual any) Outcome {
	if !ec.Active() {
		return Deferred{Kind: KindEqual, Args: []any{expected, actual}}
	}
	if valuesEqual(expected, actual) {
		return pass(ec, KindEqual)
	}
	return fail(ec, KindEqual, fmt.Sprintf("Assertion failed! Expected value = %v, actual value = %v", expected, actual))
}

// AssertTrue checks cond. An optional description is appended to the
// failure message.
func AssertTrue(ec *ExecContext, cond bool, description ...string) Outcome {
	if !ec.Active() {
		args := []any{cond}
		if len(description) > 0 {
			args = append(args, strings.Join(description, " "))
		}
		return Deferred{Kind: KindTrue, Args: args}
	}
	if cond {
		return pass(ec, KindTrue)
	}
	detail := "Assertion failed: condition is not true"
	if len(description) > 0 {
		detail += " (" + strings.Join(description, " ") + ")"
	}
	return fail(ec, KindTrue, detail)
}

// AssertIn checks that item is an element of a slice or array, a key of a
// map, or a substring of a string.
func AssertIn(ec *ExecContext, item, collection any) Outcome {
	if !ec.Active() {
		return Deferred{Kind: KindIn, Args: []any{item, collection}}
	}
	if contains(collection, item) {
		return pass(ec, KindIn)
	}
	return fail(ec, KindIn, fmt.Sprintf("Assertion failed: %v not in %v", item, collection))
}

// FailWithMessage reports an unconditional failure.
func FailWithMessage(ec *ExecContext, message string) Outcome {
	if !ec.Active() {
		return Deferred{Kind: KindFail, Args: []any{message}}
	}
	return fail(ec, KindFail, message)
}

// InfoMessage reports an informational line. It never counts as a result.
func InfoMessage(ec *ExecContext, message string) Outcome {
	if !ec.Active() {
		return Deferred{Kind: KindInfo, Args: []any{message}}
	}
	ec.reportInfo(message)
	return Evaluated{Kind: KindInfo, Passed: true, Detail: message}
}

func pass(ec *ExecContext, kind Kind) Evaluated {
	ec.reportResult(true, "")
	return Evaluated{Kind: kind, Passed: true}
}

func fail(ec *ExecContext, kind Kind, detail string) Evaluated {
	ec.reportResult(false, detail)
	return Evaluated{Kind: kind, Passed: false, Detail: detail}
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x.equal(y)
		}
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isList(va) && isList(vb) {
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !valuesEqual(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// numeric holds a number in its widest exact representation.
type numeric struct {
	kind reflect.Kind
	i    int64
	u    uint64
	f    float64
}

func number(v any) (numeric, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return numeric{kind: reflect.Int64, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return numeric{kind: reflect.Uint64, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return numeric{kind: reflect.Float64, f: rv.Float()}, true
	default:
		return numeric{}, false
	}
}

// equal compares integers exactly and goes through float64 only when one
// side is a float.
func (n numeric) equal(o numeric) bool {
	switch {
	case n.kind == reflect.Float64 || o.kind == reflect.Float64:
		return n.float() == o.float()
	case n.kind == reflect.Int64 && o.kind == reflect.Int64:
		return n.i == o.i
	case n.kind == reflect.Uint64 && o.kind == reflect.Uint64:
		return n.u == o.u
	case n.kind == reflect.Int64:
		return n.i >= 0 && uint64(n.i) == o.u
	default:
		return o.i >= 0 && uint64(o.i) == n.u
	}
}

func (n numeric) float() float64 {
	switch n.kind {
	case reflect.Int64:
		return float64(n.i)
	case reflect.Uint64:
		return float64(n.u)
	default:
		return n.f
	}
}

func isList(v reflect.Value) bool {
	k := v.Kind()
	return k == reflect.Slice || k == reflect.Array
}

func contains(collection, item any) bool {
	if collection == nil {
		return false
	}
	if s, ok := collection.(string); ok {
		sub, ok := item.(string)
		return ok && strings.Contains(s, sub)
	}
	cv := reflect.ValueOf(collection)
	switch {
	case isList(cv):
		for i := 0; i < cv.Len(); i++ {
			if valuesEqual(item, cv.Index(i).Interface()) {
				return true
			}
		}
	case cv.Kind() == reflect.Map:
		iter := cv.MapRange()
		for iter.Next() {
			if valuesEqual(item, iter.Key().Interface()) {
				return true
			}
		}
	}
	return false
}
