// Copyright 2018-2026, the glom authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package glom

import (
	"fmt"
	"iter"
	"reflect"
	"sort"
	"sync"

	"github.com/spf13/cast"

	"github.com/mahmoud/glom/internal/contract"
	"github.com/mahmoud/glom/internal/logging"
)

// OpKind names one of the five behaviors a type can register.
type OpKind string

const (
	OpGet     OpKind = "get"     // read one child by key/index/field
	OpIterate OpKind = "iterate" // produce the element sequence
	OpKeys    OpKind = "keys"    // enumerate keys/indices/field names
	OpAssign  OpKind = "assign"  // write one child
	OpDelete  OpKind = "delete"  // remove one child
)

type (
	// GetFunc reads the child of target named by key.
	GetFunc func(target, key any) (any, error)
	// IterateFunc returns target's element sequence. Maps yield their
	// keys, sequences their elements.
	IterateFunc func(target any) (iter.Seq[any], error)
	// KeysFunc enumerates target's keys, indices, or field names.
	KeysFunc func(target any) ([]any, error)
	// AssignFunc writes value at key within target, in place.
	AssignFunc func(target, key, value any) error
	// DeleteFunc removes the child named by key from target, in place.
	DeleteFunc func(target, key any) error
)

// Ops bundles the operation implementations installed for one type. Nil
// fields fall through to a less specific registration or the built-in
// defaults.
type Ops struct {
	Get     GetFunc
	Iterate IterateFunc
	Keys    KeysFunc
	Assign  AssignFunc
	Delete  DeleteFunc
}

func (o Ops) fn(kind OpKind) any {
	switch kind {
	case OpGet:
		if o.Get != nil {
			return o.Get
		}
	case OpIterate:
		if o.Iterate != nil {
			return o.Iterate
		}
	case OpKeys:
		if o.Keys != nil {
			return o.Keys
		}
	case OpAssign:
		if o.Assign != nil {
			return o.Assign
		}
	case OpDelete:
		if o.Delete != nil {
			return o.Delete
		}
	}
	return nil
}

// TypeOf returns the reflect.Type of T, including interface types that
// cannot be named through a value. Use it to register operations for an
// interface so that every implementation inherits them:
//
//	reg.Register(glom.TypeOf[sort.Interface](), glom.Ops{...})
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type registration struct {
	typ reflect.Type
	ops Ops
}

type cacheKey struct {
	typ reflect.Type
	op  OpKind
}

type cacheEntry struct {
	fn    any
	exact bool // resolved from an exact-type registration
}

// Registry resolves per-type operation implementations. Resolution walks
// from most specific to least: the target's exact dynamic type, then
// registered interface types it implements (most recent registration
// wins), then built-in defaults keyed on reflect.Kind. The first match is
// memoized per (type, op kind).
//
// The package-level default registry is shared, mutable state: treat
// registration on it as configure-once. Concurrent evaluations may share a
// registry freely once registration has settled; NewRegistry gives full
// isolation when it has not.
type Registry struct {
	mu    sync.RWMutex
	exact map[reflect.Type]Ops
	order []registration
	cache map[cacheKey]cacheEntry
}

// NewRegistry returns an empty, independent registry. The built-in
// defaults for maps, sequences, strings and structs still apply as the
// final fallback; an empty registry is fully usable.
func NewRegistry() *Registry {
	return &Registry{
		exact: map[reflect.Type]Ops{},
		cache: map[cacheKey]cacheEntry{},
	}
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry used when no explicit
// registry option is given.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register installs (or overrides) operation implementations on the
// default registry. t may be a sample value or a reflect.Type.
func Register(t any, ops Ops) {
	DefaultRegistry().Register(t, ops)
}

// Register installs (or overrides) operation implementations for a type.
// t may be a sample value or a reflect.Type; interface types make the
// registration apply to every implementation, playing the role an
// ancestor class does in inheritance-based registries.
func (r *Registry) Register(t any, ops Ops) {
	typ, ok := t.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(t)
	}
	contract.Requiref(typ != nil, "t", "cannot register operations for an untyped nil")

	r.mu.Lock()
	defer r.mu.Unlock()
	if typ.Kind() == reflect.Interface {
		r.order = append(r.order, registration{typ: typ, ops: ops})
	} else {
		merged := r.exact[typ]
		mergeOps(&merged, ops)
		r.exact[typ] = merged
	}
	// Memoized resolutions may have fallen through the spot this
	// registration now occupies: drop the exact entries for the type and
	// every fuzzily-resolved entry.
	for k, e := range r.cache {
		if k.typ == typ || !e.exact {
			delete(r.cache, k)
		}
	}
	logging.V(5).Infof("glom: registered %v ops for %v", opsKinds(ops), typ)
}

func mergeOps(dst *Ops, src Ops) {
	if src.Get != nil {
		dst.Get = src.Get
	}
	if src.Iterate != nil {
		dst.Iterate = src.Iterate
	}
	if src.Keys != nil {
		dst.Keys = src.Keys
	}
	if src.Assign != nil {
		dst.Assign = src.Assign
	}
	if src.Delete != nil {
		dst.Delete = src.Delete
	}
}

func opsKinds(ops Ops) []OpKind {
	var kinds []OpKind
	for _, k := range []OpKind{OpGet, OpIterate, OpKeys, OpAssign, OpDelete} {
		if ops.fn(k) != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// handler returns the most specific implementation of kind for value,
// resolving and memoizing as described on Registry. path is carried into
// the error when nothing applies.
func (r *Registry) handler(kind OpKind, value any, path []any) (any, error) {
	typ := reflect.TypeOf(value)
	if typ != nil {
		r.mu.RLock()
		if e, ok := r.cache[cacheKey{typ, kind}]; ok {
			r.mu.RUnlock()
			return e.fn, nil
		}
		r.mu.RUnlock()
	}

	fn, exact := r.resolve(kind, typ)
	if fn == nil {
		return nil, &UnsupportedOpError{Op: kind, Type: typ, Path: path}
	}
	if typ != nil {
		r.mu.Lock()
		r.cache[cacheKey{typ, kind}] = cacheEntry{fn: fn, exact: exact}
		r.mu.Unlock()
	}
	return fn, nil
}

func (r *Registry) resolve(kind OpKind, typ reflect.Type) (fn any, exact bool) {
	r.mu.RLock()
	if typ != nil {
		if ops, ok := r.exact[typ]; ok {
			if f := ops.fn(kind); f != nil {
				r.mu.RUnlock()
				return f, true
			}
		}
		// Interface registrations, newest first so that later ones
		// override earlier ones.
		for i := len(r.order) - 1; i >= 0; i-- {
			reg := r.order[i]
			if typ.Implements(reg.typ) {
				if f := reg.ops.fn(kind); f != nil {
					r.mu.RUnlock()
					return f, false
				}
			}
		}
	}
	r.mu.RUnlock()
	return builtinOp(kind, typ), false
}

// scopePath extracts the accumulated path for operation errors; a nil
// scope means no context.
func scopePath(scope *Scope) []any {
	if scope == nil {
		return nil
	}
	return scope.Path()
}

// getItem resolves one path segment against target through the registry.
func (r *Registry) getItem(target, key any, scope *Scope) (any, error) {
	fn, err := r.handler(OpGet, target, scopePath(scope))
	if err != nil {
		return nil, err
	}
	return fn.(GetFunc)(target, key)
}

func (r *Registry) iterateFunc(target any, scope *Scope) (IterateFunc, error) {
	fn, err := r.handler(OpIterate, target, scopePath(scope))
	if err != nil {
		return nil, err
	}
	return fn.(IterateFunc), nil
}

func (r *Registry) keysFunc(target any, scope *Scope) (KeysFunc, error) {
	fn, err := r.handler(OpKeys, target, scopePath(scope))
	if err != nil {
		return nil, err
	}
	return fn.(KeysFunc), nil
}

func (r *Registry) assignFunc(target any, scope *Scope) (AssignFunc, error) {
	fn, err := r.handler(OpAssign, target, scopePath(scope))
	if err != nil {
		return nil, err
	}
	return fn.(AssignFunc), nil
}

func (r *Registry) deleteFunc(target any, scope *Scope) (DeleteFunc, error) {
	fn, err := r.handler(OpDelete, target, scopePath(scope))
	if err != nil {
		return nil, err
	}
	return fn.(DeleteFunc), nil
}

// builtinOp supplies the catch-all defaults: maps, slices, arrays, strings
// and (pointers to) structs all work without registration.
func builtinOp(kind OpKind, typ reflect.Type) any {
	k := reflect.Invalid
	if typ != nil {
		k = typ.Kind()
		for k == reflect.Pointer {
			typ = typ.Elem()
			k = typ.Kind()
		}
	}
	switch kind {
	case OpGet:
		return GetFunc(defaultGet)
	case OpIterate:
		switch k {
		case reflect.Map, reflect.Slice, reflect.Array:
			return IterateFunc(defaultIterate)
		}
	case OpKeys:
		switch k {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
			return KeysFunc(defaultKeys)
		}
	case OpAssign:
		switch k {
		case reflect.Map, reflect.Slice, reflect.Struct:
			return AssignFunc(defaultAssign)
		}
	case OpDelete:
		switch k {
		case reflect.Map, reflect.Slice, reflect.Struct:
			return DeleteFunc(defaultDelete)
		}
	}
	return nil
}

// deref unwraps interfaces and pointers down to the concrete value.
func deref(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return rv
		}
		rv = rv.Elem()
	}
	return rv
}

func defaultGet(target, key any) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("cannot access %s on nil target", bbrepr(key))
	}
	rv := deref(reflect.ValueOf(target))
	switch rv.Kind() {
	case reflect.Map:
		return mapGet(rv, key)
	case reflect.Slice, reflect.Array, reflect.String:
		return seqGet(rv, key)
	case reflect.Struct:
		return structGet(reflect.ValueOf(target), rv, key)
	default:
		return nil, fmt.Errorf("%T is not accessible by %s", target, bbrepr(key))
	}
}

func mapGet(rv reflect.Value, key any) (any, error) {
	kv, err := coerceMapKey(key, rv.Type().Key())
	if err != nil {
		return nil, err
	}
	out := rv.MapIndex(kv)
	if !out.IsValid() {
		return nil, fmt.Errorf("key %s not found", bbrepr(key))
	}
	return out.Interface(), nil
}

// coerceMapKey adapts key to the map's key type. Textual and numeric keys
// convert loosely (so path segments parsed from text still index
// int-keyed maps), but never through Go's rune-to-string conversion.
func coerceMapKey(key any, kt reflect.Type) (reflect.Value, error) {
	kv := reflect.ValueOf(key)
	if kv.IsValid() && kv.Type().AssignableTo(kt) {
		return kv, nil
	}
	switch kt.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(key)
		if err == nil {
			return reflect.ValueOf(s).Convert(kt), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := cast.ToInt64E(key)
		if err == nil {
			return reflect.ValueOf(i).Convert(kt), nil
		}
	default:
		if kv.IsValid() && kv.Type().ConvertibleTo(kt) {
			return kv.Convert(kt), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("key %s is not usable with map key type %v", bbrepr(key), kt)
}

// seqGet indexes a sequence. Textual segments coerce loosely ("2" works as
// an index), and negative indices count from the end.
func seqGet(rv reflect.Value, key any) (any, error) {
	idx, err := cast.ToIntE(key)
	if err != nil {
		return nil, fmt.Errorf("sequence index must be an integer, not %s", bbrepr(key))
	}
	n := rv.Len()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return nil, fmt.Errorf("index %d out of range for sequence of length %d", idx, n)
	}
	if rv.Kind() == reflect.String {
		return string([]rune(rv.String())[idx]), nil
	}
	return rv.Index(idx).Interface(), nil
}

// structGet reads a field by name, falling back to a method on the value
// or its pointer. orig retains pointer-ness so pointer-receiver methods
// stay reachable.
func structGet(orig, rv reflect.Value, key any) (any, error) {
	name, ok := key.(string)
	if !ok {
		return nil, fmt.Errorf("struct access needs a string name, not %s", bbrepr(key))
	}
	if f := rv.FieldByName(name); f.IsValid() && f.CanInterface() {
		return f.Interface(), nil
	}
	if m := orig.MethodByName(name); m.IsValid() {
		return m.Interface(), nil
	}
	if orig.Kind() != reflect.Pointer && orig.CanAddr() {
		if m := orig.Addr().MethodByName(name); m.IsValid() {
			return m.Interface(), nil
		}
	}
	return nil, fmt.Errorf("no field or method %q on %v", name, rv.Type())
}

// defaultIterate yields map keys (sorted for determinism) or sequence
// elements in order. Strings deliberately have no default iteration:
// iterating characters is almost never what a spec means, so it requires
// an explicit registration.
func defaultIterate(target any) (iter.Seq[any], error) {
	rv := deref(reflect.ValueOf(target))
	switch rv.Kind() {
	case reflect.Map:
		keys, err := defaultKeys(target)
		if err != nil {
			return nil, err
		}
		return func(yield func(any) bool) {
			for _, k := range keys {
				if !yield(k) {
					return
				}
			}
		}, nil
	case reflect.Slice, reflect.Array:
		return func(yield func(any) bool) {
			for i := 0; i < rv.Len(); i++ {
				if !yield(rv.Index(i).Interface()) {
					return
				}
			}
		}, nil
	}
	return nil, fmt.Errorf("%T is not iterable", target)
}

func defaultKeys(target any) ([]any, error) {
	rv := deref(reflect.ValueOf(target))
	switch rv.Kind() {
	case reflect.Map:
		keys := make([]any, 0, rv.Len())
		for _, kv := range rv.MapKeys() {
			keys = append(keys, kv.Interface())
		}
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
		})
		return keys, nil
	case reflect.Slice, reflect.Array:
		keys := make([]any, rv.Len())
		for i := range keys {
			keys[i] = i
		}
		return keys, nil
	case reflect.Struct:
		t := rv.Type()
		keys := make([]any, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				keys = append(keys, t.Field(i).Name)
			}
		}
		return keys, nil
	}
	return nil, fmt.Errorf("%T has no enumerable keys", target)
}

func defaultAssign(target, key, value any) error {
	rv := deref(reflect.ValueOf(target))
	switch rv.Kind() {
	case reflect.Map:
		return mapAssign(rv, key, value)
	case reflect.Slice:
		idx, err := cast.ToIntE(key)
		if err != nil {
			return fmt.Errorf("sequence index must be an integer, not %s", bbrepr(key))
		}
		if idx < 0 {
			idx += rv.Len()
		}
		if idx < 0 || idx >= rv.Len() {
			return fmt.Errorf("index %d out of range for sequence of length %d", idx, rv.Len())
		}
		return setReflect(rv.Index(idx), value)
	case reflect.Struct:
		return structAssign(reflect.ValueOf(target), key, value)
	}
	return fmt.Errorf("cannot assign into %T", target)
}

func mapAssign(rv reflect.Value, key, value any) error {
	kv, err := coerceMapKey(key, rv.Type().Key())
	if err != nil {
		return err
	}
	vv, err := coerceValue(value, rv.Type().Elem())
	if err != nil {
		return err
	}
	rv.SetMapIndex(kv, vv)
	return nil
}

func structAssign(orig reflect.Value, key, value any) error {
	if orig.Kind() != reflect.Pointer {
		return fmt.Errorf("cannot assign to a %v passed by value; pass a pointer", orig.Type())
	}
	name, ok := key.(string)
	if !ok {
		return fmt.Errorf("struct assignment needs a string name, not %s", bbrepr(key))
	}
	rv := deref(orig)
	f := rv.FieldByName(name)
	if !f.IsValid() {
		return fmt.Errorf("no field %q on %v", name, rv.Type())
	}
	if !f.CanSet() {
		return fmt.Errorf("field %q of %v is not settable", name, rv.Type())
	}
	return setReflect(f, value)
}

func setReflect(dst reflect.Value, value any) error {
	vv, err := coerceValue(value, dst.Type())
	if err != nil {
		return err
	}
	if !dst.CanSet() {
		return fmt.Errorf("destination of type %v is not settable", dst.Type())
	}
	dst.Set(vv)
	return nil
}

func coerceValue(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot store nil in %v", t)
	}
	vv := reflect.ValueOf(value)
	if vv.Type().AssignableTo(t) {
		return vv, nil
	}
	if vv.Type().ConvertibleTo(t) {
		return vv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %T is not usable as %v", value, t)
}

// defaultDelete removes a map key, splices an element out of a slice
// (which therefore must be passed by pointer), or zeroes a struct field.
func defaultDelete(target, key any) error {
	ptr := reflect.ValueOf(target)
	rv := deref(ptr)
	switch rv.Kind() {
	case reflect.Map:
		kv, err := coerceMapKey(key, rv.Type().Key())
		if err != nil {
			return err
		}
		if !rv.MapIndex(kv).IsValid() {
			return fmt.Errorf("key %s not found", bbrepr(key))
		}
		rv.SetMapIndex(kv, reflect.Value{})
		return nil
	case reflect.Slice:
		if ptr.Kind() != reflect.Pointer {
			return fmt.Errorf("cannot shrink a %v passed by value; pass a pointer", ptr.Type())
		}
		idx, err := cast.ToIntE(key)
		if err != nil {
			return fmt.Errorf("sequence index must be an integer, not %s", bbrepr(key))
		}
		n := rv.Len()
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return fmt.Errorf("index %d out of range for sequence of length %d", idx, n)
		}
		spliced := reflect.AppendSlice(rv.Slice(0, idx), rv.Slice(idx+1, n))
		ptr.Elem().Set(spliced)
		return nil
	case reflect.Struct:
		if ptr.Kind() != reflect.Pointer {
			return fmt.Errorf("cannot clear a field of a %v passed by value; pass a pointer", ptr.Type())
		}
		name, ok := key.(string)
		if !ok {
			return fmt.Errorf("struct deletion needs a string name, not %s", bbrepr(key))
		}
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanSet() {
			return fmt.Errorf("no settable field %q on %v", name, rv.Type())
		}
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	return fmt.Errorf("cannot delete from %T", target)
}
