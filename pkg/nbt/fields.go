package nbt

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
	"github.com/lk2023060901/nbt-go/pkg/util/typeutil"
)

// arrayHint 是结构体标签中的数组提示，要求序列以对应的数组种类编码。
type arrayHint uint8

const (
	hintNone arrayHint = iota
	hintByteArray
	hintIntArray
	hintLongArray
)

func (h arrayHint) String() string {
	switch h {
	case hintByteArray:
		return "bytearray"
	case hintIntArray:
		return "intarray"
	case hintLongArray:
		return "longarray"
	default:
		return ""
	}
}

func (h arrayHint) kind() Kind {
	switch h {
	case hintByteArray:
		return KindByteArray
	case hintIntArray:
		return KindIntArray
	case hintLongArray:
		return KindLongArray
	default:
		return KindEnd
	}
}

type field struct {
	name      string
	index     []int
	typ       reflect.Type
	omitEmpty bool
	hint      arrayHint
}

type structFields struct {
	list   []field
	byName map[string]int
}

var fieldCache sync.Map // map[reflect.Type]*structFields

// cachedFields 返回结构体类型 t 的可编码字段，结果按类型缓存。
func cachedFields(t reflect.Type) (*structFields, error) {
	if f, ok := fieldCache.Load(t); ok {
		return f.(*structFields), nil
	}
	fs, err := typeFields(t)
	if err != nil {
		return nil, err
	}
	f, _ := fieldCache.LoadOrStore(t, fs)
	return f.(*structFields), nil
}

// parseTag 解析 `nbt:"name,omitempty,bytearray"` 形式的标签。
func parseTag(st reflect.StructField) (name string, omitEmpty bool, hint arrayHint, err error) {
	raw := st.Tag.Get("nbt")
	name, rest, _ := strings.Cut(raw, ",")
	for rest != "" {
		var opt string
		opt, rest, _ = strings.Cut(rest, ",")
		switch opt {
		case "omitempty":
			omitEmpty = true
		case "bytearray":
			hint = hintByteArray
		case "intarray":
			hint = hintIntArray
		case "longarray":
			hint = hintLongArray
		case "":
		default:
			return "", false, hintNone, merr.WrapErrInvalidArgument(
				fmt.Sprintf("unknown nbt tag option %q on field %s", opt, st.Name))
		}
	}
	return name, omitEmpty, hint, nil
}

// typeFields 按声明顺序收集字段，匿名结构体字段（没有显式名字时）展开到外层。
func typeFields(t reflect.Type) (*structFields, error) {
	fs := &structFields{byName: make(map[string]int)}
	names := typeutil.NewSet[string]()
	visiting := typeutil.NewSet[reflect.Type]()

	var walk func(t reflect.Type, index []int) error
	walk = func(t reflect.Type, index []int) error {
		if !visiting.TryInsert(t) {
			return merr.WrapErrUnrepresentableValue("", fmt.Sprintf("recursive embedding of %s", t))
		}
		defer visiting.Remove(t)

		for i := 0; i < t.NumField(); i++ {
			st := t.Field(i)
			if st.Tag.Get("nbt") == "-" {
				continue
			}
			name, omitEmpty, hint, err := parseTag(st)
			if err != nil {
				return err
			}
			idx := append(append([]int(nil), index...), i)

			if st.Anonymous && name == "" {
				ft := st.Type
				if ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if ft.Kind() == reflect.Struct {
					if err := walk(ft, idx); err != nil {
						return err
					}
					continue
				}
			}
			if !st.IsExported() {
				continue
			}
			if name == "" {
				name = st.Name
			}
			if !names.TryInsert(name) {
				return merr.WrapErrUnrepresentableValue(name,
					fmt.Sprintf("duplicate field name in %s", t))
			}
			fs.byName[name] = len(fs.list)
			fs.list = append(fs.list, field{
				name:      name,
				index:     idx,
				typ:       st.Type,
				omitEmpty: omitEmpty,
				hint:      hint,
			})
		}
		return nil
	}
	if err := walk(t, nil); err != nil {
		return nil, err
	}
	return fs, nil
}

// fieldByIndex 沿 index 取字段；经过 nil 的嵌入指针时 ok 为 false。
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// fieldByIndexAlloc 沿 index 取字段，遇到 nil 的嵌入指针时分配。
func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, merr.WrapErrInvalidArgument(
						fmt.Sprintf("cannot set embedded pointer to unexported struct %s", v.Type().Elem()))
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
