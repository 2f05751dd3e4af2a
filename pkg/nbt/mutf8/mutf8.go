// Package mutf8 实现 Java DataOutput 使用的 modified UTF-8（CESU-8 变体）编解码。
//
// 与标准 UTF-8 的差异：
//   - U+0000 编码为两字节 C0 80，而不是单字节 00；
//   - U+FFFF 以上的码点先拆成 UTF-16 代理对，每个代理各自按三字节序列编码，共 6 字节。
package mutf8

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
	lowSurrMin   = 0xDC00
)

// EncodedLen 返回 s 编码后的字节数。s 不是合法 UTF-8 时返回错误。
func EncodedLen(s string) (int, error) {
	n := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c != 0 && c < utf8.RuneSelf {
			n++
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return 0, merr.WrapErrInvalidStringEncoding(i, "source string is not valid UTF-8")
		}
		n += runeLen(r)
		i += size
	}
	return n, nil
}

func runeLen(r rune) int {
	switch {
	case r == 0:
		return 2
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 6
	}
}

// Encode 将 s 编码后追加到 dst 并返回新的切片。
func Encode(dst []byte, s string) ([]byte, error) {
	for i := 0; i < len(s); {
		c := s[i]
		if c != 0 && c < utf8.RuneSelf {
			dst = append(dst, c)
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return dst, merr.WrapErrInvalidStringEncoding(i, "source string is not valid UTF-8")
		}
		i += size
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			dst = appendUnit(dst, hi)
			dst = appendUnit(dst, lo)
			continue
		}
		dst = appendUnit(dst, r)
	}
	return dst, nil
}

// appendUnit 编码单个 UTF-16 码元（含 U+0000 的两字节形式）。
func appendUnit(dst []byte, r rune) []byte {
	switch {
	case r == 0:
		return append(dst, 0xC0, 0x80)
	case r < 0x80:
		return append(dst, byte(r))
	case r < 0x800:
		return append(dst, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
	default:
		return append(dst, 0xE0|byte(r>>12), 0x80|byte((r>>6)&0x3F), 0x80|byte(r&0x3F))
	}
}

// Decode 将 modified UTF-8 字节解码为 Go 字符串。
func Decode(b []byte) (string, error) {
	return DecodeAt(b, 0)
}

// DecodeAt 与 Decode 相同，错误中报告的偏移量会加上 base。
func DecodeAt(b []byte, base int) (string, error) {
	ascii := true
	for _, c := range b {
		if c == 0 || c >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b), nil
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		if c < utf8.RuneSelf {
			// 裸 00 字节与 Java readUTF 一样接受，重新编码时会规范化为 C0 80。
			out = append(out, c)
			i++
			continue
		}

		unit, n, err := decodeUnit(b, i, base)
		if err != nil {
			return "", err
		}
		i += n

		switch {
		case unit >= surrogateMin && unit < lowSurrMin:
			if i >= len(b) || b[i]&0xF0 != 0xE0 {
				return "", merr.WrapErrInvalidStringEncoding(base+i-n, "unpaired high surrogate")
			}
			lo, m, err := decodeUnit(b, i, base)
			if err != nil {
				return "", err
			}
			if lo < lowSurrMin || lo > surrogateMax {
				return "", merr.WrapErrInvalidStringEncoding(base+i-n, "unpaired high surrogate")
			}
			i += m
			out = utf8.AppendRune(out, utf16.DecodeRune(unit, lo))
		case unit >= lowSurrMin && unit <= surrogateMax:
			return "", merr.WrapErrInvalidStringEncoding(base+i-n, "unpaired low surrogate")
		default:
			out = utf8.AppendRune(out, unit)
		}
	}
	return string(out), nil
}

// decodeUnit 解码 b[i:] 处的一个两字节或三字节序列，返回 UTF-16 码元及消耗的字节数。
func decodeUnit(b []byte, i int, base int) (rune, int, error) {
	if i >= len(b) {
		return 0, 0, merr.WrapErrInvalidStringEncoding(base+i, "truncated sequence")
	}
	c := b[i]
	switch {
	case c&0xE0 == 0xC0:
		if i+1 >= len(b) {
			return 0, 0, merr.WrapErrInvalidStringEncoding(base+i, "truncated sequence")
		}
		c2 := b[i+1]
		if c2&0xC0 != 0x80 {
			return 0, 0, merr.WrapErrInvalidStringEncoding(base+i+1, "invalid continuation byte")
		}
		r := rune(c&0x1F)<<6 | rune(c2&0x3F)
		if r != 0 && r < 0x80 {
			return 0, 0, merr.WrapErrInvalidStringEncoding(base+i, "overlong encoding")
		}
		return r, 2, nil
	case c&0xF0 == 0xE0:
		if i+2 >= len(b) {
			return 0, 0, merr.WrapErrInvalidStringEncoding(base+i, "truncated sequence")
		}
		c2, c3 := b[i+1], b[i+2]
		if c2&0xC0 != 0x80 || c3&0xC0 != 0x80 {
			return 0, 0, merr.WrapErrInvalidStringEncoding(base+i+1, "invalid continuation byte")
		}
		r := rune(c&0x0F)<<12 | rune(c2&0x3F)<<6 | rune(c3&0x3F)
		if r < 0x800 {
			return 0, 0, merr.WrapErrInvalidStringEncoding(base+i, "overlong encoding")
		}
		return r, 3, nil
	case c&0xC0 == 0x80:
		return 0, 0, merr.WrapErrInvalidStringEncoding(base+i, "unexpected continuation byte")
	default:
		return 0, 0, merr.WrapErrInvalidStringEncoding(base+i, "four-byte sequences are not allowed")
	}
}

// Valid 判断 b 是否为合法的 modified UTF-8。
func Valid(b []byte) bool {
	_, err := Decode(b)
	return err == nil
}
