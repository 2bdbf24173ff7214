package monkey

import (
	"fmt"
	"math"
	"reflect"

	"github.com/funvibe/monkey/internal/object"
)

// Marshaller handles conversion between Go and Monkey values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

var objectType = reflect.TypeOf((*object.Object)(nil)).Elem()

// ToValue converts a Go value to a Monkey object. Structs become hashes
// keyed by exported field name. Functions are not values; use VM.Bind.
func (m *Marshaller) ToValue(val interface{}) (object.Object, error) {
	if val == nil {
		return object.NULL, nil
	}

	// Check if already an Object
	if obj, ok := val.(object.Object); ok {
		return obj, nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &object.Integer{Value: v.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", u)
		}
		return &object.Integer{Value: int64(u)}, nil
	case reflect.Bool:
		return object.NativeBool(v.Bool()), nil
	case reflect.String:
		return &object.String{Value: v.String()}, nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return object.NULL, nil
		}
		return m.sliceToArray(v)
	case reflect.Map:
		if v.IsNil() {
			return object.NULL, nil
		}
		return m.mapToHash(v)
	case reflect.Struct:
		return m.structToHash(v)
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return object.NULL, nil
		}
		return m.ToValue(v.Elem().Interface())
	}
	return nil, fmt.Errorf("unsupported Go type %s", v.Type())
}

func (m *Marshaller) sliceToArray(v reflect.Value) (*object.Array, error) {
	elements := make([]object.Object, v.Len())
	for i := 0; i < v.Len(); i++ {
		val, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elements[i] = val
	}
	return &object.Array{Elements: elements}, nil
}

func (m *Marshaller) mapToHash(v reflect.Value) (*object.Hash, error) {
	result := object.NewHash(v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := m.ToValue(iter.Key().Interface())
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		hk, ok := key.(object.Hashable)
		if !ok {
			return nil, fmt.Errorf("map key: %s is not hashable", key.Type())
		}
		val, err := m.ToValue(iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("map value: %w", err)
		}
		result.Set(hk, val)
	}
	return result, nil
}

func (m *Marshaller) structToHash(v reflect.Value) (*object.Hash, error) {
	result := object.NewHash(v.NumField())
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" { // Skip unexported fields
			continue
		}
		val, err := m.ToValue(v.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		result.Set(&object.String{Value: field.Name}, val)
	}
	return result, nil
}

// FromValue converts a Monkey object to a Go value: int64, bool, string,
// nil, []interface{} or map[interface{}]interface{}. Functions become their
// printed form.
func (m *Marshaller) FromValue(obj object.Object) (interface{}, error) {
	if obj == nil {
		return nil, nil
	}

	switch o := obj.(type) {
	case *object.Integer:
		return o.Value, nil
	case *object.Boolean:
		return o.Value, nil
	case *object.String:
		return o.Value, nil
	case *object.Null:
		return nil, nil
	case *object.Array:
		out := make([]interface{}, len(o.Elements))
		for i, el := range o.Elements {
			v, err := m.FromValue(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *object.Hash:
		out := make(map[interface{}]interface{}, o.Len())
		for _, key := range o.Keys {
			pair := o.Pairs[key]
			k, err := m.FromValue(pair.Key)
			if err != nil {
				return nil, err
			}
			v, err := m.FromValue(pair.Value)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case *object.Closure, *object.CompiledFunction, *object.Builtin:
		return o.Inspect(), nil
	}
	return nil, fmt.Errorf("unsupported type for conversion: %s", obj.Type())
}

// FromValueAs converts obj to a value assignable to target, for passing
// script values into bound Go functions.
func (m *Marshaller) FromValueAs(obj object.Object, target reflect.Type) (reflect.Value, error) {
	if target == objectType {
		return reflect.ValueOf(&obj).Elem(), nil
	}
	if obj == object.NULL {
		switch target.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use null as %s", target)
	}

	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := obj.(*object.Integer)
		if !ok {
			break
		}
		rv := reflect.New(target).Elem()
		if rv.OverflowInt(i.Value) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", i.Value, target)
		}
		rv.SetInt(i.Value)
		return rv, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, ok := obj.(*object.Integer)
		if !ok {
			break
		}
		rv := reflect.New(target).Elem()
		if i.Value < 0 || rv.OverflowUint(uint64(i.Value)) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", i.Value, target)
		}
		rv.SetUint(uint64(i.Value))
		return rv, nil
	case reflect.Bool:
		if b, ok := obj.(*object.Boolean); ok {
			return reflect.ValueOf(b.Value).Convert(target), nil
		}
	case reflect.String:
		if s, ok := obj.(*object.String); ok {
			return reflect.ValueOf(s.Value).Convert(target), nil
		}
	case reflect.Slice:
		arr, ok := obj.(*object.Array)
		if !ok {
			break
		}
		slice := reflect.MakeSlice(target, len(arr.Elements), len(arr.Elements))
		for i, el := range arr.Elements {
			v, err := m.FromValueAs(el, target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			slice.Index(i).Set(v)
		}
		return slice, nil
	case reflect.Interface:
		v, err := m.FromValue(obj)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(target) {
			break
		}
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", obj.Type(), target)
}
