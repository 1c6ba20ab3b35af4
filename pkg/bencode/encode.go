package bencode

import (
	"bytes"
	"sort"
	"strconv"
)

// Encode produces the canonical encoding of a value. Dictionary keys are
// emitted in byte-wise sorted order regardless of insertion order, which keeps
// hashes over encoded dictionaries reproducible.
func Encode(v *Value) []byte {
	buf := &bytes.Buffer{}
	encodeAny(buf, v)

	return buf.Bytes()
}

func encodeAny(buf *bytes.Buffer, v *Value) {
	switch v.Kind() {
	case KindInteger:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
		buf.WriteByte('e')
	case KindBytes:
		buf.WriteString(strconv.Itoa(len(v.Bytes())))
		buf.WriteByte(':')
		buf.Write(v.Bytes())
	case KindList:
		buf.WriteByte('l')
		for _, item := range v.List() {
			encodeAny(buf, item)
		}
		buf.WriteByte('e')
	case KindDict:
		keys := v.Keys()
		sort.Strings(keys)

		buf.WriteByte('d')
		for _, key := range keys {
			buf.WriteString(strconv.Itoa(len(key)))
			buf.WriteByte(':')
			buf.WriteString(key)

			val, _ := v.Get(key)
			encodeAny(buf, val)
		}
		buf.WriteByte('e')
	}
}
