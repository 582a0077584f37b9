package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/tokenauction/core"
)

// Canonical CBOR keeps payload bytes stable for identical values.
var encMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: invalid canonical options: %v", err))
	}
	return mode
}()

func marshalEvent(event core.Event) ([]byte, error) {
	data, err := encMode.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event %d: %w", event.Seq, err)
	}
	return data, nil
}

func unmarshalEvent(data []byte) (core.Event, error) {
	var event core.Event
	if err := cbor.Unmarshal(data, &event); err != nil {
		return core.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}

func marshalCatalog(catalog []core.ItemSpec) ([]byte, error) {
	data, err := encMode.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return data, nil
}

func unmarshalCatalog(data []byte) ([]core.ItemSpec, error) {
	var catalog []core.ItemSpec
	if err := cbor.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return catalog, nil
}
