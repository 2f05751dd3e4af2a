package nbt

import (
	"cmp"
	"encoding"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// Marshaler 由能够把自身转换为 NBT 值树的类型实现。
//
// 携带数据的枚举（和类型）约定编码为只有一个键的 Compound：{变体名: 数据}。
type Marshaler interface {
	MarshalNBT() (Value, error)
}

// Unmarshaler 由能够从 NBT 值树恢复自身的类型实现。
type Unmarshaler interface {
	UnmarshalNBT(v Value) error
}

var (
	valueType           = reflect.TypeFor[Value]()
	marshalerType       = reflect.TypeFor[Marshaler]()
	unmarshalerType     = reflect.TypeFor[Unmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Marshal 将 v 编码为根名为空的文档。
//
// v 必须映射为 Compound：结构体、键为字符串的 map、*Compound，或返回 Compound 的 Marshaler。
// 映射规则见包文档。
func Marshal(v any, opts ...Option) ([]byte, error) {
	return MarshalNamed("", v, opts...)
}

// MarshalNamed 与 Marshal 相同，但使用给定的根名。
func MarshalNamed(name string, v any, opts ...Option) ([]byte, error) {
	w, err := marshalWriter(name, v, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	defer w.Release()
	return slices.Clone(w.Bytes()), nil
}

func marshalWriter(name string, v any, o *options) (*Writer, error) {
	w := newWriter(name, o)
	e := &encodeState{w: w, opts: o}
	if err := e.root(reflect.ValueOf(v)); err != nil {
		w.Release()
		return nil, err
	}
	if err := w.Close(); err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

// Encoder 将 Go 值依次编码为文档写入输出流。
type Encoder struct {
	w    io.Writer
	name string
	opts *options
}

// NewEncoder 创建写入 w 的 Encoder。
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	return &Encoder{w: w, opts: buildOptions(opts)}
}

// SetRootName 设置之后编码的文档使用的根名。
func (enc *Encoder) SetRootName(name string) {
	enc.name = name
}

// Encode 编码 v 并写出一个完整文档。编码失败时不写出任何字节。
func (enc *Encoder) Encode(v any) error {
	w, err := marshalWriter(enc.name, v, enc.opts)
	if err != nil {
		return err
	}
	defer w.Release()
	_, err = w.WriteTo(enc.w)
	return err
}

type encodeState struct {
	w    *Writer
	opts *options
}

func (e *encodeState) unrepresentable(reason string) error {
	return merr.WrapErrUnrepresentableValue(e.w.nextPath().String(), reason)
}

// root 将 v 的内容写入已经打开的根 Compound。
func (e *encodeState) root(v reflect.Value) error {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			break
		}
		if v.Type().Implements(marshalerType) || v.Type().Implements(valueType) {
			break
		}
		v = v.Elem()
	}
	if !v.IsValid() || ((v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil()) {
		return e.unrepresentable("nil root value")
	}

	switch {
	case v.Type().Implements(marshalerType):
		tree, err := v.Interface().(Marshaler).MarshalNBT()
		if err != nil {
			return errors.Wrapf(err, "nbt: MarshalNBT of %s", v.Type())
		}
		return e.rootTree(tree)
	case v.Type().Implements(valueType):
		return e.rootTree(v.Interface().(Value))
	case v.Kind() != reflect.Pointer && reflect.PointerTo(v.Type()).Implements(valueType):
		return e.rootTree(addressable(v).Interface().(Value))
	case v.CanAddr() && reflect.PointerTo(v.Type()).Implements(marshalerType):
		return e.root(v.Addr())
	}

	switch v.Kind() {
	case reflect.Struct:
		return e.fields(v)
	case reflect.Map:
		return e.mapEntries(v)
	default:
		return e.unrepresentable(fmt.Sprintf("root must map to a compound, got %s", v.Type()))
	}
}

// addressable 返回指向 v 的指针；v 不可寻址时指向它的副本。
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}

func (e *encodeState) rootTree(tree Value) error {
	c, ok := tree.(*Compound)
	if !ok || c == nil {
		kind := "nil"
		if tree != nil {
			kind = tree.Kind().String()
		}
		return e.unrepresentable(fmt.Sprintf("root must be a compound, got %s", kind))
	}
	return e.w.Entries(c)
}

// value 写出一个 Go 值，前缀（键或列表计数）由 Writer 负责。
func (e *encodeState) value(v reflect.Value, hint arrayHint) error {
	if !v.IsValid() {
		return e.unrepresentable("nil value")
	}
	t := v.Type()

	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return e.unrepresentable(fmt.Sprintf("nil %s", t))
	}
	if hint == hintNone {
		switch {
		case t.Implements(valueType):
			return e.w.Value(v.Interface().(Value))
		case v.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(valueType):
			return e.w.Value(addressable(v).Interface().(Value))
		case t.Implements(marshalerType):
			return e.marshaler(v)
		case v.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(t).Implements(marshalerType):
			return e.marshaler(v.Addr())
		case t.Implements(textMarshalerType):
			return e.text(v)
		case v.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(t).Implements(textMarshalerType):
			return e.text(v.Addr())
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		return e.w.Byte(int8(Bool(v.Bool())))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		k, x, err := e.integer(v)
		if err != nil {
			return err
		}
		return e.writeInteger(k, x)
	case reflect.Float32:
		return e.w.Float(float32(v.Float()))
	case reflect.Float64:
		return e.w.Double(v.Float())
	case reflect.String:
		return e.w.String(v.String())
	case reflect.Slice, reflect.Array:
		return e.sequence(v, hint)
	case reflect.Map:
		if err := e.w.BeginCompound(); err != nil {
			return err
		}
		if err := e.mapEntries(v); err != nil {
			return err
		}
		return e.w.EndCompound()
	case reflect.Struct:
		if err := e.w.BeginCompound(); err != nil {
			return err
		}
		if err := e.fields(v); err != nil {
			return err
		}
		return e.w.EndCompound()
	case reflect.Pointer, reflect.Interface:
		return e.value(v.Elem(), hint)
	default:
		return e.unrepresentable(fmt.Sprintf("unsupported Go type %s", t))
	}
}

func (e *encodeState) marshaler(v reflect.Value) error {
	tree, err := v.Interface().(Marshaler).MarshalNBT()
	if err != nil {
		return errors.Wrapf(err, "nbt: MarshalNBT of %s at %s", v.Type(), e.w.nextPath())
	}
	if tree == nil {
		return e.unrepresentable(fmt.Sprintf("MarshalNBT of %s returned nil", v.Type()))
	}
	return e.w.Value(tree)
}

func (e *encodeState) text(v reflect.Value) error {
	b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return errors.Wrapf(err, "nbt: MarshalText of %s at %s", v.Type(), e.w.nextPath())
	}
	return e.w.String(string(b))
}

// integerKind 返回 Go 整数类型对应的 NBT 种类与位宽。
func integerKind(k reflect.Kind) (Kind, int) {
	switch k {
	case reflect.Int8, reflect.Uint8:
		return tag.Byte, 8
	case reflect.Int16, reflect.Uint16:
		return tag.Short, 16
	case reflect.Int64, reflect.Uint64:
		return tag.Long, 64
	default:
		return tag.Int, 32
	}
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func signExtend(u uint64, bits int) int64 {
	switch bits {
	case 8:
		return int64(int8(u))
	case 16:
		return int64(int16(u))
	case 32:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

// integer 按无符号策略把整数转换为 NBT 种类及其有符号值。
func (e *encodeState) integer(v reflect.Value) (Kind, int64, error) {
	k, bits := integerKind(v.Kind())
	if !isUnsigned(v.Kind()) {
		x := v.Int()
		if v.Kind() == reflect.Int && (x < math.MinInt32 || x > math.MaxInt32) {
			return k, 0, e.unrepresentable(fmt.Sprintf("int value %d overflows %s", x, k))
		}
		return k, x, nil
	}

	u := v.Uint()
	switch e.opts.unsignedPolicy {
	case UnsignedReinterpret:
		if bits < 64 && u>>bits != 0 {
			return k, 0, e.unrepresentable(fmt.Sprintf("%s value %d does not fit %d bits", v.Type(), u, bits))
		}
		return k, signExtend(u, bits), nil
	default:
		if u > uint64(1)<<(bits-1)-1 {
			return k, 0, e.unrepresentable(fmt.Sprintf("%s value %d overflows %s", v.Type(), u, k))
		}
		return k, int64(u), nil
	}
}

func (e *encodeState) writeInteger(k Kind, x int64) error {
	switch k {
	case tag.Byte:
		return e.w.Byte(int8(x))
	case tag.Short:
		return e.w.Short(int16(x))
	case tag.Int:
		return e.w.Int(int32(x))
	default:
		return e.w.Long(x)
	}
}

// sequence 写出切片或数组：有数组提示或元素为 byte 时写数组种类，否则写 List。
func (e *encodeState) sequence(v reflect.Value, hint arrayHint) error {
	et := v.Type().Elem()
	if hint == hintNone && et.Kind() == reflect.Uint8 && !isSpecialElem(et) {
		hint = hintByteArray
	}
	if hint == hintNone {
		if err := e.w.BeginList(); err != nil {
			return err
		}
		for i := 0; i < v.Len(); i++ {
			if err := e.value(v.Index(i), hintNone); err != nil {
				return err
			}
		}
		return e.w.EndList()
	}

	if !hintAccepts(hint, et.Kind()) {
		return e.unrepresentable(fmt.Sprintf("%s requires %s elements, got %s", hint, hintElemNames(hint), et))
	}
	switch hint {
	case hintByteArray:
		if et.Kind() == reflect.Uint8 {
			raw := make([]byte, v.Len())
			for i := range raw {
				raw[i] = byte(v.Index(i).Uint())
			}
			return e.w.RawByteArray(raw)
		}
		out := make([]int8, v.Len())
		for i := range out {
			out[i] = int8(v.Index(i).Int())
		}
		return e.w.ByteArray(out)
	case hintIntArray:
		out := make([]int32, v.Len())
		for i := range out {
			_, x, err := e.element(v, i)
			if err != nil {
				return err
			}
			out[i] = int32(x)
		}
		return e.w.IntArray(out)
	default:
		out := make([]int64, v.Len())
		for i := range out {
			_, x, err := e.element(v, i)
			if err != nil {
				return err
			}
			out[i] = x
		}
		return e.w.LongArray(out)
	}
}

// element 转换数组提示下的第 i 个整数元素，出错路径指向该元素。
func (e *encodeState) element(v reflect.Value, i int) (Kind, int64, error) {
	k, x, err := e.integer(v.Index(i))
	if err != nil {
		return k, 0, errors.Wrapf(err, "nbt: array element [%d]", i)
	}
	return k, x, nil
}

// isSpecialElem 判断 byte 类型的元素是否有自定义编码，此时按 List 处理。
func isSpecialElem(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(marshalerType) || pt.Implements(marshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType) ||
		t.Implements(valueType)
}

func hintAccepts(hint arrayHint, k reflect.Kind) bool {
	switch hint {
	case hintByteArray:
		return k == reflect.Int8 || k == reflect.Uint8
	case hintIntArray:
		return k == reflect.Int32 || k == reflect.Uint32
	case hintLongArray:
		return k == reflect.Int64 || k == reflect.Uint64
	}
	return false
}

func hintElemNames(hint arrayHint) string {
	switch hint {
	case hintByteArray:
		return "int8 or uint8"
	case hintIntArray:
		return "int32 or uint32"
	default:
		return "int64 or uint64"
	}
}

// fields 写出结构体字段。nil 指针与 nil 接口字段被省略。
func (e *encodeState) fields(v reflect.Value) error {
	fs, err := cachedFields(v.Type())
	if err != nil {
		return err
	}
	for _, f := range fs.list {
		fv, ok := fieldByIndex(v, f.index)
		if !ok {
			continue
		}
		if (fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface) && fv.IsNil() {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if err := e.w.Key(f.name); err != nil {
			return err
		}
		if err := e.value(fv, f.hint); err != nil {
			return err
		}
	}
	return nil
}

// mapEntries 按键排序写出 map，保证相同的 map 总是得到相同的字节。
func (e *encodeState) mapEntries(v reflect.Value) error {
	if v.Type().Key().Kind() != reflect.String {
		return e.unrepresentable(fmt.Sprintf("map key type %s is not a string", v.Type().Key()))
	}
	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return cmp.Compare(a.String(), b.String())
	})
	for _, k := range keys {
		if err := e.w.Key(k.String()); err != nil {
			return err
		}
		if err := e.value(v.MapIndex(k), hintNone); err != nil {
			return err
		}
	}
	return nil
}
