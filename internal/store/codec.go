package store

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/kiwari-pos/floor/internal/ledger"
)

// Orders are CBOR-encoded in Redis. Deterministic encoding keeps identical
// orders byte-identical; times keep nanoseconds so Timestamp ordering
// survives a restart.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("store: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeOrder(o ledger.Order) ([]byte, error) {
	return encMode.Marshal(o)
}

func decodeOrder(data []byte) (ledger.Order, error) {
	var o ledger.Order
	err := decMode.Unmarshal(data, &o)
	return o, err
}
