// Package serialize converts argument values into portable replay
// expressions. Bulk payloads (arrays, labeled data) are externalized to the
// session blob store and referenced through the loader preamble's
// _load_npy/_load_csv calls; everything else renders as a literal.
package serialize

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jemviewer/plotrec/core/graph"
	"github.com/jemviewer/plotrec/core/npy"
	"github.com/jemviewer/plotrec/core/registry"
	"github.com/jemviewer/plotrec/core/session"
	"github.com/jemviewer/plotrec/core/value"
)

type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomePlaceholder Outcome = "placeholder"
)

// Result carries the rendered expression plus whether the value had to be
// replaced by an inert placeholder.
type Result struct {
	Text    string
	Outcome Outcome
	Reason  string
}

type Serializer struct {
	session  *session.Session
	registry *registry.Registry
	logger   *zap.Logger
}

func New(sess *session.Session, reg *registry.Registry, logger *zap.Logger) *Serializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serializer{session: sess, registry: reg, logger: logger}
}

// Serialize renders one value. It never propagates a failure: any error or
// panic in the dispatch is downgraded to a warning and answered with a
// placeholder naming the value's type.
func (s *Serializer) Serialize(v any) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = s.placeholder(v, fmt.Sprintf("panic: %v", recovered))
		}
	}()
	text, err := s.encode(v)
	if err != nil {
		return s.placeholder(v, err.Error())
	}
	return Result{Text: text, Outcome: OutcomeOK}
}

// Command assembles one replayable invocation: positional arguments first,
// then keyword arguments in call order.
func (s *Serializer) Command(path, op string, args []any, kwargs []graph.Arg) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, arg := range args {
		parts = append(parts, s.Serialize(arg).Text)
	}
	for _, kwarg := range kwargs {
		parts = append(parts, fmt.Sprintf("%s=%s", kwarg.Name, s.Serialize(kwarg.Value).Text))
	}
	return fmt.Sprintf("%s.%s(%s)", path, op, strings.Join(parts, ","))
}

func (s *Serializer) placeholder(v any, reason string) Result {
	typeName := fmt.Sprintf("%T", v)
	s.logger.Warn("value not serializable, substituting placeholder",
		zap.String("type", typeName),
		zap.String("reason", reason))
	return Result{
		Text:    fmt.Sprintf("\"<unserializable object: %s>\"", typeName),
		Outcome: OutcomePlaceholder,
		Reason:  reason,
	}
}

func (s *Serializer) encode(v any) (string, error) {
	// Rule 1: a registered object replays as its path.
	if object, ok := v.(graph.Object); ok {
		if path, registered := s.registry.Lookup(object); registered {
			return path, nil
		}
		return "", fmt.Errorf("object of kind %s is not registered", object.Kind())
	}

	switch typed := v.(type) {
	// Rules 2-3: dense data externalized as npy blobs.
	case value.MaskedArray:
		return s.encodeMasked(typed)
	case value.NDArray:
		key, err := s.storeArray(typed)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("_load_npy(%q)", key), nil

	// Rules 4-7: labeled data externalized as delimited-text blobs.
	case value.Series:
		return s.encodeSeries(typed)
	case value.Frame:
		return s.encodeFrame(typed)
	case value.DatetimeIndex:
		return s.encodeDatetimeIndex(typed)
	case value.Categorical:
		return s.encodeCategorical(typed)

	// Rule 8: primitive scalars.
	case nil:
		return "None", nil
	case bool:
		if typed {
			return "True", nil
		}
		return "False", nil
	case string:
		return strconv.Quote(typed), nil

	// Rule 9: date/time constructors embedding ISO text.
	case time.Time:
		return fmt.Sprintf("datetime.datetime.fromisoformat(%q)", isoDateTime(typed)), nil
	case value.Date:
		return fmt.Sprintf("datetime.date.fromisoformat(%q)", typed.ISO()), nil
	case value.Timestamp:
		return fmt.Sprintf("pd.Timestamp(%q)", isoDateTime(typed.Time)), nil

	// Rule 10: containers, recursing element-wise.
	case value.Tuple:
		return s.encodeTuple(typed)
	case value.Dict:
		return s.encodeDict(typed)
	}

	if text, ok := encodeNumeric(v); ok {
		return text, nil
	}
	if text, handled, err := s.encodeReflected(v); handled {
		return text, err
	}

	// Rule 11 is handled by the caller: unknown types surface as an error
	// here and become a placeholder in Serialize.
	return "", fmt.Errorf("no serialization rule for %T", v)
}

func (s *Serializer) storeArray(array value.NDArray) (string, error) {
	payload, err := npy.Marshal(array)
	if err != nil {
		return "", fmt.Errorf("encode array: %w", err)
	}
	key := s.session.NewBlobKey(".npy")
	if err := s.session.StoreBlob(key, payload); err != nil {
		return "", fmt.Errorf("store array blob: %w", err)
	}
	return key, nil
}

func (s *Serializer) encodeMasked(masked value.MaskedArray) (string, error) {
	if err := masked.Validate(); err != nil {
		return "", fmt.Errorf("invalid masked array: %w", err)
	}
	dataKey, err := s.storeArray(masked.Data)
	if err != nil {
		return "", err
	}
	maskKey, err := s.storeArray(masked.Mask)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("np.ma.MaskedArray(data=_load_npy(%q), mask=_load_npy(%q))", dataKey, maskKey), nil
}

func (s *Serializer) storeCSV(rows [][]string) (string, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)
	if err := writer.WriteAll(rows); err != nil {
		return "", fmt.Errorf("encode csv: %w", err)
	}
	key := s.session.NewBlobKey(".csv")
	if err := s.session.StoreBlob(key, buffer.Bytes()); err != nil {
		return "", fmt.Errorf("store csv blob: %w", err)
	}
	return key, nil
}

func (s *Serializer) encodeSeries(series value.Series) (string, error) {
	if len(series.Index) != len(series.Values) {
		return "", fmt.Errorf("series index/value length mismatch: %d vs %d", len(series.Index), len(series.Values))
	}
	name := series.Name
	if name == "" {
		name = "0"
	}
	rows := [][]string{{series.IndexName, name}}
	for i, label := range series.Index {
		cell, err := s.cellText(series.Values[i])
		if err != nil {
			return "", err
		}
		rows = append(rows, []string{label, cell})
	}
	key, err := s.storeCSV(rows)
	if err != nil {
		return "", err
	}
	switch series.Kind {
	case value.SeriesDatetime:
		return fmt.Sprintf("_load_csv(%q, index_col=0, header=0, parse_dates=['%s']).squeeze(\"columns\")", key, name), nil
	case value.SeriesCategorical:
		return fmt.Sprintf("_load_csv(%q, index_col=0, header=0).squeeze(\"columns\").astype(\"category\")", key), nil
	default:
		return fmt.Sprintf("_load_csv(%q, index_col=0, header=0).squeeze(\"columns\")", key), nil
	}
}

func (s *Serializer) encodeFrame(frame value.Frame) (string, error) {
	if len(frame.Index) != len(frame.Cells) {
		return "", fmt.Errorf("frame index/row count mismatch: %d vs %d", len(frame.Index), len(frame.Cells))
	}
	header := append([]string{frame.IndexName}, frame.Columns...)
	rows := [][]string{header}
	for i, label := range frame.Index {
		if len(frame.Cells[i]) != len(frame.Columns) {
			return "", fmt.Errorf("frame row %d has %d cells, want %d", i, len(frame.Cells[i]), len(frame.Columns))
		}
		row := []string{label}
		for _, cell := range frame.Cells[i] {
			text, err := s.cellText(cell)
			if err != nil {
				return "", err
			}
			row = append(row, text)
		}
		rows = append(rows, row)
	}
	key, err := s.storeCSV(rows)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_load_csv(%q, index_col=0)", key), nil
}

func (s *Serializer) encodeDatetimeIndex(index value.DatetimeIndex) (string, error) {
	rows := make([][]string, 0, len(index.Times))
	for i, ts := range index.Times {
		rows = append(rows, []string{strconv.Itoa(i), isoDateTime(ts)})
	}
	key, err := s.storeCSV(rows)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_load_csv(%q, index_col=0, header=None, parse_dates=True).index", key), nil
}

func (s *Serializer) encodeCategorical(categorical value.Categorical) (string, error) {
	rows := [][]string{{"0"}}
	for _, label := range categorical.Values {
		rows = append(rows, []string{label})
	}
	key, err := s.storeCSV(rows)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_load_csv(%q, header=0).squeeze(\"columns\").astype(\"category\")", key), nil
}

func (s *Serializer) encodeTuple(tuple value.Tuple) (string, error) {
	parts := make([]string, 0, len(tuple))
	for _, item := range tuple {
		text, err := s.encode(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	joined := strings.Join(parts, ", ")
	if len(tuple) == 1 {
		joined += ","
	}
	return "(" + joined + ")", nil
}

func (s *Serializer) encodeDict(dict value.Dict) (string, error) {
	parts := make([]string, 0, len(dict.Pairs))
	for _, pair := range dict.Pairs {
		keyText, err := s.encode(pair.Key)
		if err != nil {
			return "", err
		}
		valueText, err := s.encode(pair.Value)
		if err != nil {
			return "", err
		}
		parts = append(parts, keyText+": "+valueText)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// encodeReflected covers plain slices and string-keyed maps of any element
// type. Map keys render in sorted order: Go maps carry no insertion order,
// so determinism wins; order-sensitive callers pass a value.Dict.
func (s *Serializer) encodeReflected(v any) (string, bool, error) {
	reflected := reflect.ValueOf(v)
	switch reflected.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, reflected.Len())
		for i := 0; i < reflected.Len(); i++ {
			text, err := s.encode(reflected.Index(i).Interface())
			if err != nil {
				return "", true, err
			}
			parts = append(parts, text)
		}
		return "[" + strings.Join(parts, ", ") + "]", true, nil
	case reflect.Map:
		if reflected.Type().Key().Kind() != reflect.String {
			return "", false, nil
		}
		keys := make([]string, 0, reflected.Len())
		for _, key := range reflected.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			text, err := s.encode(reflected.MapIndex(reflect.ValueOf(key)).Interface())
			if err != nil {
				return "", true, err
			}
			parts = append(parts, strconv.Quote(key)+": "+text)
		}
		return "{" + strings.Join(parts, ", ") + "}", true, nil
	default:
		return "", false, nil
	}
}

func (s *Serializer) cellText(v any) (string, error) {
	switch typed := v.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	case bool:
		if typed {
			return "True", nil
		}
		return "False", nil
	case time.Time:
		return isoDateTime(typed), nil
	}
	if text, ok := encodeNumeric(v); ok {
		return text, nil
	}
	return "", fmt.Errorf("unsupported cell value %T", v)
}

func encodeNumeric(v any) (string, bool) {
	switch typed := v.(type) {
	case int:
		return strconv.Itoa(typed), true
	case int8:
		return strconv.FormatInt(int64(typed), 10), true
	case int16:
		return strconv.FormatInt(int64(typed), 10), true
	case int32:
		return strconv.FormatInt(int64(typed), 10), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case uint:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint8:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint16:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint32:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint64:
		return strconv.FormatUint(typed, 10), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64), true
	default:
		return "", false
	}
}

// isoDateTime renders a timestamp as ISO 8601 text. UTC values stay naive;
// any other zone keeps its offset so the replayed value is the same instant.
func isoDateTime(t time.Time) string {
	layout := "2006-01-02T15:04:05"
	if t.Nanosecond() != 0 {
		layout += ".000000"
	}
	if _, offset := t.Zone(); offset != 0 {
		layout += "-07:00"
	}
	return t.Format(layout)
}
