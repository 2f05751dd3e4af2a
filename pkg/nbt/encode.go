package nbt

import (
	"io"
	"slices"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// WriteDocument 将 doc 编码后写入 w。编码失败时不会向 w 写入任何字节。
func WriteDocument(w io.Writer, doc *Document, opts ...Option) error {
	_, err := writeDocument(w, doc, buildOptions(opts))
	return err
}

func writeDocument(dst io.Writer, doc *Document, o *options) (int64, error) {
	w, err := encodeDocument(doc, o)
	if err != nil {
		return 0, err
	}
	defer w.Release()
	return w.WriteTo(dst)
}

func encodeDocument(doc *Document, o *options) (*Writer, error) {
	if doc == nil {
		return nil, merr.WrapErrInvalidArgument("nil document")
	}
	w := newWriter(doc.Name, o)
	if err := w.Entries(doc.Root); err != nil {
		w.Release()
		return nil, err
	}
	if err := w.Close(); err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

// MarshalBinary 实现 encoding.BinaryMarshaler。
func (d *Document) MarshalBinary() ([]byte, error) {
	w, err := encodeDocument(d, defaultOptions())
	if err != nil {
		return nil, err
	}
	defer w.Release()
	return slices.Clone(w.Bytes()), nil
}

// UnmarshalBinary 实现 encoding.BinaryUnmarshaler，data 必须恰好是一个文档。
func (d *Document) UnmarshalBinary(data []byte) error {
	doc, err := ReadDocument(data)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// WriteTo 实现 io.WriterTo。
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return writeDocument(w, d, defaultOptions())
}
