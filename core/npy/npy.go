// Package npy encodes and decodes NPY v1.0 payloads, the byte contract the
// exported archive's numeric-array loader consumes.
package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jemviewer/plotrec/core/value"
)

var magic = []byte("\x93NUMPY")

const headerAlign = 64

func descrFor(dtype value.Dtype) (string, int, error) {
	switch dtype {
	case value.Float64:
		return "<f8", 8, nil
	case value.Int64:
		return "<i8", 8, nil
	case value.Bool:
		return "|b1", 1, nil
	default:
		return "", 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
}

func shapeTuple(shape []int) string {
	if len(shape) == 1 {
		return fmt.Sprintf("(%d,)", shape[0])
	}
	parts := make([]string, len(shape))
	for i, dim := range shape {
		parts[i] = strconv.Itoa(dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Marshal encodes the array as an NPY v1.0 payload in C (row-major) order.
func Marshal(array value.NDArray) ([]byte, error) {
	if err := array.Validate(); err != nil {
		return nil, fmt.Errorf("invalid array: %w", err)
	}
	descr, itemSize, err := descrFor(array.Dtype)
	if err != nil {
		return nil, err
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeTuple(array.Shape))
	// Magic (6) + version (2) + header length (2) + header, padded so the
	// data section starts on a 64-byte boundary. The header ends in '\n'.
	preludeLen := len(magic) + 2 + 2
	total := preludeLen + len(header) + 1
	if pad := total % headerAlign; pad != 0 {
		header += strings.Repeat(" ", headerAlign-pad)
	}
	header += "\n"

	var buffer bytes.Buffer
	buffer.Write(magic)
	buffer.WriteByte(1)
	buffer.WriteByte(0)
	var headerLen [2]byte
	binary.LittleEndian.PutUint16(headerLen[:], uint16(len(header)))
	buffer.Write(headerLen[:])
	buffer.WriteString(header)

	data := make([]byte, array.Count()*itemSize)
	switch array.Dtype {
	case value.Float64:
		for i, v := range array.Float64s {
			binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
		}
	case value.Int64:
		for i, v := range array.Int64s {
			binary.LittleEndian.PutUint64(data[i*8:], uint64(v))
		}
	case value.Bool:
		for i, v := range array.Bools {
			if v {
				data[i] = 1
			}
		}
	}
	buffer.Write(data)
	return buffer.Bytes(), nil
}

// Unmarshal decodes an NPY v1.0 payload produced by Marshal or by any
// writer following the same contract.
func Unmarshal(payload []byte) (value.NDArray, error) {
	if len(payload) < len(magic)+4 {
		return value.NDArray{}, fmt.Errorf("payload too short for npy header")
	}
	if !bytes.Equal(payload[:len(magic)], magic) {
		return value.NDArray{}, fmt.Errorf("bad npy magic")
	}
	if payload[6] != 1 {
		return value.NDArray{}, fmt.Errorf("unsupported npy version %d.%d", payload[6], payload[7])
	}
	headerLen := int(binary.LittleEndian.Uint16(payload[8:10]))
	headerEnd := 10 + headerLen
	if len(payload) < headerEnd {
		return value.NDArray{}, fmt.Errorf("truncated npy header")
	}
	header := string(payload[10:headerEnd])

	descr, err := headerField(header, "descr")
	if err != nil {
		return value.NDArray{}, err
	}
	fortran, err := headerField(header, "fortran_order")
	if err != nil {
		return value.NDArray{}, err
	}
	if fortran != "False" {
		return value.NDArray{}, fmt.Errorf("fortran order arrays are not supported")
	}
	shapeRaw, err := headerField(header, "shape")
	if err != nil {
		return value.NDArray{}, err
	}
	shape, err := parseShape(shapeRaw)
	if err != nil {
		return value.NDArray{}, err
	}

	array := value.NDArray{Shape: shape}
	count := array.Count()
	data := payload[headerEnd:]
	switch descr {
	case "<f8":
		array.Dtype = value.Float64
		if len(data) < count*8 {
			return value.NDArray{}, fmt.Errorf("truncated float64 data")
		}
		array.Float64s = make([]float64, count)
		for i := range array.Float64s {
			array.Float64s[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
	case "<i8":
		array.Dtype = value.Int64
		if len(data) < count*8 {
			return value.NDArray{}, fmt.Errorf("truncated int64 data")
		}
		array.Int64s = make([]int64, count)
		for i := range array.Int64s {
			array.Int64s[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
		}
	case "|b1":
		array.Dtype = value.Bool
		if len(data) < count {
			return value.NDArray{}, fmt.Errorf("truncated bool data")
		}
		array.Bools = make([]bool, count)
		for i := range array.Bools {
			array.Bools[i] = data[i] != 0
		}
	default:
		return value.NDArray{}, fmt.Errorf("unsupported npy descr %q", descr)
	}
	return array, nil
}

func headerField(header, key string) (string, error) {
	marker := "'" + key + "':"
	idx := strings.Index(header, marker)
	if idx < 0 {
		return "", fmt.Errorf("npy header missing %s", key)
	}
	rest := strings.TrimLeft(header[idx+len(marker):], " ")
	switch {
	case strings.HasPrefix(rest, "'"):
		end := strings.Index(rest[1:], "'")
		if end < 0 {
			return "", fmt.Errorf("npy header has unterminated %s", key)
		}
		return rest[1 : 1+end], nil
	case strings.HasPrefix(rest, "("):
		end := strings.Index(rest, ")")
		if end < 0 {
			return "", fmt.Errorf("npy header has unterminated %s", key)
		}
		return rest[:end+1], nil
	default:
		end := strings.IndexAny(rest, ",}")
		if end < 0 {
			return "", fmt.Errorf("npy header has malformed %s", key)
		}
		return strings.TrimSpace(rest[:end]), nil
	}
}

func parseShape(raw string) ([]int, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(raw, "("), ")")
	parts := strings.Split(trimmed, ",")
	shape := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dim, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad shape element %q: %w", part, err)
		}
		shape = append(shape, dim)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("scalar npy payloads are not supported")
	}
	return shape, nil
}
