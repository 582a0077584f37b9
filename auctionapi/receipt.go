package auctionapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/tokenauction/core"
)

// RevealReceipt is a reveal result encoded as gzip-compressed canonical CBOR,
// then URL-safe base64 without padding, so it can travel in URLs and logs.
type RevealReceipt string

// String returns the receipt text.
func (r RevealReceipt) String() string {
	return string(r)
}

var receiptEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: invalid canonical options: %v", err))
	}
	return mode
}()

// EncodeRevealReceipt encodes a reveal result as a receipt.
// Encoding is deterministic: the same result always yields the same receipt.
func EncodeRevealReceipt(result *core.RevealResult) (RevealReceipt, error) {
	if result == nil {
		return "", fmt.Errorf("reveal result is nil")
	}

	raw, err := receiptEncMode.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode reveal result: %w", err)
	}

	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		return "", fmt.Errorf("failed to compress reveal result: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish compression: %w", err)
	}

	return RevealReceipt(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

// Decode reverses EncodeRevealReceipt.
func (r RevealReceipt) Decode() (*core.RevealResult, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(string(r))
	if err != nil {
		return nil, fmt.Errorf("failed to decode receipt base64: %w", err)
	}

	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt gzip stream: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress receipt: %w", err)
	}

	var result core.RevealResult
	if err := cbor.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode reveal result: %w", err)
	}
	return &result, nil
}
