package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	faults "github.com/kshitij1706/fraud-anomaly-detection/internal/errors"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/features"
	"github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"
)

// NumAttributes is the number of anonymized V attributes in a transaction.
const NumAttributes = 28

// Transaction is one card transaction as accepted by the prediction endpoint.
type Transaction struct {
	// Time is the offset in seconds from the first transaction in the dataset.
	Time float64
	// V holds the anonymized attributes V1..V28.
	V [NumAttributes]float64
	// Amount is the transaction amount.
	Amount float64
}

var fieldNames = func() []string {
	names := make([]string, 0, NumAttributes+2)
	names = append(names, features.ColTime)
	for i := 1; i <= NumAttributes; i++ {
		names = append(names, "V"+strconv.Itoa(i))
	}
	return append(names, features.ColAmount)
}()

// FieldNames returns the transaction field names in column order.
func FieldNames() []string {
	out := make([]string, len(fieldNames))
	copy(out, fieldNames)
	return out
}

// Values returns the fields in FieldNames order.
func (t Transaction) Values() []float64 {
	values := make([]float64, 0, len(fieldNames))
	values = append(values, t.Time)
	values = append(values, t.V[:]...)
	return append(values, t.Amount)
}

// ToFrame returns a single-row frame.
func (t Transaction) ToFrame() *frame.Frame {
	f, err := frame.New(fieldNames, [][]float64{t.Values()})
	if err != nil {
		// fieldNames is fixed and unique, Values matches its length.
		panic(err)
	}
	return f
}

// MarshalJSON encodes the transaction as a flat object keyed by field name.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range t.Values() {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:%s", fieldNames[i], strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON requires every field to be present as a number. Other keys,
// such as a Class label left on a dataset row, are ignored.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return faults.NewInvalidInput("transaction must be a JSON object", err)
	}

	values := make([]float64, len(fieldNames))
	for i, name := range fieldNames {
		msg, ok := raw[name]
		if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			return faults.NewInvalidInput(fmt.Sprintf("field %s is required", name), nil).
				WithDetails(map[string]interface{}{"field": name})
		}
		if err := json.Unmarshal(msg, &values[i]); err != nil {
			return faults.NewInvalidInput(fmt.Sprintf("field %s must be a number", name), err).
				WithDetails(map[string]interface{}{"field": name})
		}
	}

	t.Time = values[0]
	copy(t.V[:], values[1:1+NumAttributes])
	t.Amount = values[len(values)-1]
	return nil
}
