package nbt

import (
	"encoding"
	"fmt"
	"io"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/nbt-go/pkg/nbt/tag"
	"github.com/lk2023060901/nbt-go/pkg/util/merr"
	"github.com/lk2023060901/nbt-go/pkg/util/typeutil"
)

// Unmarshal 将 data 中的文档解码到 v 指向的值，根名被丢弃。
//
// 解码直接从字节流写入目标，不构造中间值树；只有目标为 Value、any 或 Unmarshaler 时才构造子树。
// 线上种类与目标类型期望的种类不一致时返回 ErrTypeMismatch，错误中包含字段路径。
// 目标结构体中不存在的字段会被跳过，但仍然完整校验。
func Unmarshal(data []byte, v any, opts ...Option) error {
	_, err := UnmarshalNamed(data, v, opts...)
	return err
}

// UnmarshalNamed 与 Unmarshal 相同，并返回根名。
func UnmarshalNamed(data []byte, v any, opts ...Option) (string, error) {
	rv, err := target(v)
	if err != nil {
		return "", err
	}
	d := &decodeState{decoder: newDecoder(data, buildOptions(opts))}
	name, err := d.document(rv)
	if err != nil {
		return "", err
	}
	if err := d.finish(); err != nil {
		return "", err
	}
	return name, nil
}

func target(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return rv, merr.WrapErrInvalidArgument("unmarshal target is nil")
	}
	if rv.Kind() != reflect.Pointer {
		return rv, merr.WrapErrInvalidArgument(fmt.Sprintf("unmarshal target must be a pointer, got %s", rv.Type()))
	}
	if rv.IsNil() {
		return rv, merr.WrapErrInvalidArgument(fmt.Sprintf("unmarshal target is a nil %s", rv.Type()))
	}
	return rv.Elem(), nil
}

// Decoder 从输入流中依次解码文档。
//
// NBT 文档自身带有结束标记但没有长度前缀，因此 Decoder 在第一次使用时读取全部输入，
// 之后的 Decode 依次消费其中的文档。
type Decoder struct {
	r      io.Reader
	opts   *options
	data   []byte
	off    int
	loaded bool
	err    error
	name   string
}

// NewDecoder 创建从 r 读取的 Decoder。
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	return &Decoder{r: r, opts: buildOptions(opts)}
}

func (dec *Decoder) load() error {
	if dec.loaded {
		return dec.err
	}
	dec.loaded = true
	data, err := io.ReadAll(dec.r)
	if err != nil {
		dec.err = merr.WrapErrIoFailed("read", err)
		return dec.err
	}
	dec.data = data
	return nil
}

// More 判断输入中是否还有未解码的文档。
func (dec *Decoder) More() bool {
	if err := dec.load(); err != nil {
		return false
	}
	return dec.off < len(dec.data)
}

// RootName 返回最近一次成功解码的文档的根名。
func (dec *Decoder) RootName() string {
	return dec.name
}

// Decode 解码下一个文档到 v。输入耗尽时返回 io.EOF。
func (dec *Decoder) Decode(v any) error {
	if err := dec.load(); err != nil {
		return err
	}
	if dec.off >= len(dec.data) {
		return io.EOF
	}
	rv, err := target(v)
	if err != nil {
		return err
	}
	d := &decodeState{decoder: newDecoder(dec.data[dec.off:], dec.opts)}
	name, err := d.document(rv)
	if err != nil {
		return errors.Wrapf(err, "nbt: document at offset %d", dec.off)
	}
	dec.off += d.r.Offset()
	dec.name = name
	return nil
}

var (
	byteType     = reflect.TypeFor[byte]()
	documentType = reflect.TypeFor[Document]()
)

type decodeState struct {
	*decoder
	path fieldPath
}

func (d *decodeState) pathString() string {
	return d.path.String()
}

func (d *decodeState) push(seg pathSeg) {
	d.path = append(d.path, seg)
}

func (d *decodeState) pop() {
	d.path = d.path[:len(d.path)-1]
}

func (d *decodeState) mismatch(expected, actual Kind, t reflect.Type) error {
	return merr.WrapErrTypeMismatch(d.pathString(), expected, actual, fmt.Sprintf("decoding into %s", t))
}

func (d *decodeState) document(rv reflect.Value) (string, error) {
	if dst, ok := documentTarget(rv); ok {
		doc, err := d.decoder.document()
		if err != nil {
			return "", err
		}
		*dst = *doc
		return doc.Name, nil
	}
	name, empty, err := d.header()
	if err != nil {
		return "", err
	}
	if empty {
		return "", nil
	}
	if err := d.value(tag.Compound, rv, 1, hintNone); err != nil {
		return "", err
	}
	return name, nil
}

// documentTarget 在目标最终指向 Document 时按需分配指针，并返回该 Document。
func documentTarget(rv reflect.Value) (*Document, bool) {
	t := rv.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != documentType {
		return nil, false
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}
	return rv.Addr().Interface().(*Document), true
}

// indirect 沿指针向下，按需分配，直到遇到 Unmarshaler、TextUnmarshaler、Value 类型或非指针值。
func indirect(v reflect.Value) (Unmarshaler, encoding.TextUnmarshaler, reflect.Value) {
	if v.Kind() != reflect.Pointer && v.CanAddr() && !v.Type().Implements(valueType) {
		pv := v.Addr()
		if pv.Type().Implements(unmarshalerType) {
			return pv.Interface().(Unmarshaler), nil, reflect.Value{}
		}
		if pv.Type().Implements(textUnmarshalerType) {
			return nil, pv.Interface().(encoding.TextUnmarshaler), reflect.Value{}
		}
	}
	for v.Kind() == reflect.Pointer {
		if v.Type().Implements(valueType) {
			break
		}
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		if v.Type().Implements(unmarshalerType) {
			return v.Interface().(Unmarshaler), nil, reflect.Value{}
		}
		if v.Type().Implements(textUnmarshalerType) {
			return nil, v.Interface().(encoding.TextUnmarshaler), reflect.Value{}
		}
		v = v.Elem()
	}
	return nil, nil, v
}

// value 将种类为 k 的 body 解码到 v。depth 为该值所在的嵌套深度。
func (d *decodeState) value(k Kind, v reflect.Value, depth int, hint arrayHint) error {
	u, tu, v := indirect(v)
	switch {
	case u != nil:
		tree, err := d.readBody(k, depth)
		if err != nil {
			return err
		}
		if err := u.UnmarshalNBT(tree); err != nil {
			return errors.Wrapf(err, "nbt: UnmarshalNBT at %s", pathOrRoot(d.pathString()))
		}
		return nil
	case tu != nil:
		if k != tag.String {
			return d.mismatch(tag.String, k, reflect.TypeOf(tu))
		}
		s, err := d.r.ReadString()
		if err != nil {
			return err
		}
		if err := tu.UnmarshalText([]byte(s)); err != nil {
			return errors.Wrapf(err, "nbt: UnmarshalText at %s", pathOrRoot(d.pathString()))
		}
		return nil
	}

	t := v.Type()
	if t == valueType || (t.Kind() == reflect.Interface && t.NumMethod() == 0) {
		tree, err := d.readBody(k, depth)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(tree))
		return nil
	}
	if t.Implements(valueType) {
		want := reflect.Zero(t).Interface().(Value).Kind()
		if k != want {
			return d.mismatch(want, k, t)
		}
		tree, err := d.readBody(k, depth)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(tree).Convert(t))
		return nil
	}
	// Compound、List 以指针实现 Value，目标是它们的值本身时整体替换。
	if pt := reflect.PointerTo(t); v.CanAddr() && pt.Implements(valueType) {
		want := reflect.Zero(pt).Interface().(Value).Kind()
		if k != want {
			return d.mismatch(want, k, t)
		}
		tree, err := d.readBody(k, depth)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(tree).Convert(pt).Elem())
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		if k != tag.Byte {
			return d.mismatch(tag.Byte, k, t)
		}
		b, err := d.r.ReadInt8()
		if err != nil {
			return err
		}
		v.SetBool(b != 0)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		want, _ := integerKind(v.Kind())
		if k != want {
			return d.mismatch(want, k, t)
		}
		x, err := d.readInteger(k)
		if err != nil {
			return err
		}
		return d.setInteger(v, x)
	case reflect.Float32:
		if k != tag.Float {
			return d.mismatch(tag.Float, k, t)
		}
		f, err := d.r.ReadFloat32()
		if err != nil {
			return err
		}
		v.SetFloat(float64(f))
		return nil
	case reflect.Float64:
		if k != tag.Double {
			return d.mismatch(tag.Double, k, t)
		}
		f, err := d.r.ReadFloat64()
		if err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	case reflect.String:
		if k != tag.String {
			return d.mismatch(tag.String, k, t)
		}
		s, err := d.r.ReadString()
		if err != nil {
			return err
		}
		v.SetString(s)
		return nil
	case reflect.Slice, reflect.Array:
		return d.sequence(k, v, depth, hint)
	case reflect.Map:
		return d.mapValue(k, v, depth)
	case reflect.Struct:
		return d.structValue(k, v, depth)
	default:
		return merr.WrapErrUnrepresentableValue(d.pathString(), fmt.Sprintf("cannot decode into %s", t))
	}
}

func (d *decodeState) readInteger(k Kind) (int64, error) {
	switch k {
	case tag.Byte:
		x, err := d.r.ReadInt8()
		return int64(x), err
	case tag.Short:
		x, err := d.r.ReadInt16()
		return int64(x), err
	case tag.Int:
		x, err := d.r.ReadInt32()
		return int64(x), err
	default:
		return d.r.ReadInt64()
	}
}

// setInteger 按无符号策略把线上的有符号值写入 v。v 的位宽与 NBT 种类一致。
func (d *decodeState) setInteger(v reflect.Value, x int64) error {
	if !isUnsigned(v.Kind()) {
		v.SetInt(x)
		return nil
	}
	if x >= 0 {
		v.SetUint(uint64(x))
		return nil
	}
	if d.opts.unsignedPolicy != UnsignedReinterpret {
		return merr.WrapErrUnrepresentableValue(d.pathString(),
			fmt.Sprintf("negative value %d for unsigned %s", x, v.Type()))
	}
	_, bits := integerKind(v.Kind())
	u := uint64(x)
	if bits < 64 {
		u &= uint64(1)<<bits - 1
	}
	v.SetUint(u)
	return nil
}

// sequenceArrayKind 返回切片元素类型可以接受的数组种类；没有对应数组种类时为 End。
func sequenceArrayKind(et reflect.Type) Kind {
	if isSpecialElem(et) {
		return tag.End
	}
	switch et.Kind() {
	case reflect.Int8, reflect.Uint8:
		return tag.ByteArray
	case reflect.Int32, reflect.Uint32:
		return tag.IntArray
	case reflect.Int64, reflect.Uint64:
		return tag.LongArray
	}
	return tag.End
}

// sequence 解码切片或数组。元素类型与数组种类匹配时同时接受数组种类与对应元素的 List；
// 有数组提示时只接受该数组种类。
func (d *decodeState) sequence(k Kind, v reflect.Value, depth int, hint arrayHint) error {
	t := v.Type()
	et := t.Elem()
	arrayKind := sequenceArrayKind(et)
	if hint != hintNone {
		if !hintAccepts(hint, et.Kind()) {
			return merr.WrapErrUnrepresentableValue(d.pathString(),
				fmt.Sprintf("%s requires %s elements, got %s", hint, hintElemNames(hint), et))
		}
		if k != hint.kind() {
			return d.mismatch(hint.kind(), k, t)
		}
	}

	switch {
	case k == tag.List:
		if err := d.checkDepth(depth); err != nil {
			return err
		}
		elem, err := d.r.ReadKind()
		if err != nil {
			return err
		}
		n, err := d.r.ReadLength(elem)
		if err != nil {
			return err
		}
		if err := d.prepare(v, n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			d.push(indexSeg(i))
			if err := d.value(elem, v.Index(i), depth+1, hintNone); err != nil {
				return err
			}
			d.pop()
		}
		return nil
	case k == arrayKind && arrayKind != tag.End:
		elem := arrayElem(k)
		n, err := d.r.ReadLength(elem)
		if err != nil {
			return err
		}
		if err := d.prepare(v, n); err != nil {
			return err
		}
		// uint8 元素与编码端一致：按原始字节复制，不经过无符号策略。
		if k == tag.ByteArray && et.Kind() == reflect.Uint8 {
			raw, err := d.r.ReadRaw(n)
			if err != nil {
				return err
			}
			if v.Kind() == reflect.Slice && et == byteType {
				reflect.Copy(v, reflect.ValueOf(raw))
				return nil
			}
			for i, b := range raw {
				v.Index(i).SetUint(uint64(b))
			}
			return nil
		}
		for i := 0; i < n; i++ {
			x, err := d.readInteger(elem)
			if err != nil {
				return err
			}
			d.push(indexSeg(i))
			if err := d.setInteger(v.Index(i), x); err != nil {
				return err
			}
			d.pop()
		}
		return nil
	default:
		want := tag.List
		if arrayKind != tag.End {
			want = arrayKind
		}
		return d.mismatch(want, k, t)
	}
}

// prepare 为 n 个元素准备切片或数组。Go 数组长度不足时返回 ErrUnrepresentableValue，多余的元素置零。
func (d *decodeState) prepare(v reflect.Value, n int) error {
	if v.Kind() == reflect.Slice {
		v.Set(reflect.MakeSlice(v.Type(), n, n))
		return nil
	}
	if n > v.Len() {
		return merr.WrapErrUnrepresentableValue(d.pathString(),
			fmt.Sprintf("%d elements do not fit %s", n, v.Type()))
	}
	for i := n; i < v.Len(); i++ {
		v.Index(i).SetZero()
	}
	return nil
}

// entries 遍历 Compound 的每个条目，fn 负责读取 body。严格模式下拒绝重复键。
func (d *decodeState) entries(depth int, fn func(k Kind, key string) error) error {
	if err := d.checkDepth(depth); err != nil {
		return err
	}
	var seen typeutil.Set[string]
	if d.opts.strictKeys {
		seen = typeutil.NewSet[string]()
	}
	for {
		start := d.r.Offset()
		k, err := d.r.ReadKind()
		if err != nil {
			return err
		}
		if k == tag.End {
			return nil
		}
		key, err := d.r.ReadString()
		if err != nil {
			return err
		}
		if seen != nil && !seen.TryInsert(key) {
			return merr.WrapErrDuplicateKeyAt(start, key)
		}
		d.push(keySeg(key))
		if err := fn(k, key); err != nil {
			return err
		}
		d.pop()
	}
}

func (d *decodeState) mapValue(k Kind, v reflect.Value, depth int) error {
	t := v.Type()
	if t.Key().Kind() != reflect.String {
		return merr.WrapErrUnrepresentableValue(d.pathString(), fmt.Sprintf("map key type %s is not a string", t.Key()))
	}
	if k != tag.Compound {
		return d.mismatch(tag.Compound, k, t)
	}
	if v.IsNil() {
		v.Set(reflect.MakeMap(t))
	}
	return d.entries(depth, func(ek Kind, key string) error {
		elem := reflect.New(t.Elem()).Elem()
		if err := d.value(ek, elem, depth+1, hintNone); err != nil {
			return err
		}
		v.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), elem)
		return nil
	})
}

func (d *decodeState) structValue(k Kind, v reflect.Value, depth int) error {
	t := v.Type()
	if k != tag.Compound {
		return d.mismatch(tag.Compound, k, t)
	}
	fs, err := cachedFields(t)
	if err != nil {
		return err
	}
	return d.entries(depth, func(ek Kind, key string) error {
		i, ok := fs.byName[key]
		if !ok {
			return d.skipBody(ek, depth+1)
		}
		f := fs.list[i]
		fv, err := fieldByIndexAlloc(v, f.index)
		if err != nil {
			return err
		}
		return d.value(ek, fv, depth+1, f.hint)
	})
}

func pathOrRoot(p string) string {
	if p == "" {
		return "<root>"
	}
	return p
}
