package bencode

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrMalformedEncoding = errors.New("could not decode malformed bencode")
)

// Decode parses a complete bencode document. Trailing bytes after the first
// value are treated as malformed input.
func Decode(buf []byte) (*Value, error) {
	v, offset, err := decodeAny(buf, 0)
	if err != nil {
		return nil, err
	}

	if offset != len(buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes after document", ErrMalformedEncoding, len(buf)-offset)
	}

	return v, nil
}

func decodeAny(buf []byte, pos int) (*Value, int, error) {
	if pos >= len(buf) {
		return nil, 0, fmt.Errorf("%w: truncated input at offset %d", ErrMalformedEncoding, pos)
	}

	switch buf[pos] {
	case 'i':
		return decodeInteger(buf, pos)
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return decodeBytes(buf, pos)
	case 'l':
		return decodeList(buf, pos)
	case 'd':
		return decodeDict(buf, pos)
	default:
		return nil, 0, fmt.Errorf("%w: unexpected byte %q at offset %d", ErrMalformedEncoding, buf[pos], pos)
	}
}

func decodeInteger(buf []byte, pos int) (*Value, int, error) {
	start := pos
	i := pos + 1
	for i < len(buf) && buf[i] != 'e' {
		i++
	}
	if i >= len(buf) {
		return nil, 0, fmt.Errorf("%w: unterminated integer at offset %d", ErrMalformedEncoding, start)
	}

	digits := string(buf[pos+1 : i])
	if len(digits) == 0 || digits == "-" {
		return nil, 0, fmt.Errorf("%w: empty integer at offset %d", ErrMalformedEncoding, start)
	}

	// Leading zeroes and negative zero are forbidden so that every integer
	// has exactly one encoding.
	if digits != "0" && (digits[0] == '0' || (digits[0] == '-' && digits[1] == '0')) {
		return nil, 0, fmt.Errorf("%w: non-canonical integer %q at offset %d", ErrMalformedEncoding, digits, start)
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid integer %q at offset %d", ErrMalformedEncoding, digits, start)
	}

	v := NewInteger(n)
	v.raw = buf[start : i+1]

	return v, i + 1, nil
}

func decodeBytes(buf []byte, pos int) (*Value, int, error) {
	start := pos
	i := pos
	for i < len(buf) && buf[i] >= '0' && buf[i] <= '9' {
		i++
	}
	if i >= len(buf) || buf[i] != ':' {
		return nil, 0, fmt.Errorf("%w: invalid string length prefix at offset %d", ErrMalformedEncoding, start)
	}

	length, err := strconv.Atoi(string(buf[start:i]))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid string length prefix at offset %d", ErrMalformedEncoding, start)
	}

	// Bound the length against the remaining input before doing any
	// arithmetic with it; a huge prefix would overflow the end offset.
	if length < 0 || length > len(buf)-i-1 {
		return nil, 0, fmt.Errorf("%w: string of length %d truncated at offset %d", ErrMalformedEncoding, length, start)
	}

	end := i + 1 + length

	v := NewBytes(buf[i+1 : end])
	v.raw = buf[start:end]

	return v, end, nil
}

func decodeList(buf []byte, pos int) (*Value, int, error) {
	start := pos
	v := NewList()

	i := pos + 1
	for {
		if i >= len(buf) {
			return nil, 0, fmt.Errorf("%w: unterminated list at offset %d", ErrMalformedEncoding, start)
		}
		if buf[i] == 'e' {
			break
		}

		item, offset, err := decodeAny(buf, i)
		if err != nil {
			return nil, 0, err
		}
		v.Append(item)
		i = offset
	}

	v.raw = buf[start : i+1]

	return v, i + 1, nil
}

func decodeDict(buf []byte, pos int) (*Value, int, error) {
	start := pos
	v := NewDict()

	i := pos + 1
	for {
		if i >= len(buf) {
			return nil, 0, fmt.Errorf("%w: unterminated dictionary at offset %d", ErrMalformedEncoding, start)
		}
		if buf[i] == 'e' {
			break
		}

		key, offset, err := decodeAny(buf, i)
		if err != nil {
			return nil, 0, err
		}
		if key.Kind() != KindBytes {
			return nil, 0, fmt.Errorf("%w: non-string dictionary key at offset %d", ErrMalformedEncoding, i)
		}
		i = offset

		if i >= len(buf) || buf[i] == 'e' {
			return nil, 0, fmt.Errorf("%w: dictionary key %q without value at offset %d", ErrMalformedEncoding, key.Text(), start)
		}

		val, offset, err := decodeAny(buf, i)
		if err != nil {
			return nil, 0, err
		}
		v.Set(key.Text(), val)
		i = offset
	}

	v.raw = buf[start : i+1]

	return v, i + 1, nil
}
