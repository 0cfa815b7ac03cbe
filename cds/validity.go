package cds

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/cdskit/cds/bsp"
	"github.com/joshuapare/cdskit/internal/format"
)

// Validity is the verdict of the signature check.
type Validity int

const (
	Untrustworthy Validity = iota
	Trustworthy
)

func (v Validity) String() string {
	if v == Trustworthy {
		return "trustworthy"
	}
	return "untrustworthy"
}

// CheckValidity reads the begin and end signatures. A store smaller than
// MinStoreSize(cfg) is Untrustworthy whatever it holds. Store failures are
// returned as errors wrapping bsp.ErrIO, never folded into Untrustworthy.
func CheckValidity(bs bsp.ByteStore, cfg Config) (Validity, error) {
	capacity := bs.Capacity()
	if minSize := MinStoreSize(cfg); minSize == 0 || capacity < minSize {
		return Untrustworthy, nil
	}

	begin, err := bs.Read(0, format.SignatureSize)
	if err != nil {
		return Untrustworthy, fmt.Errorf("cds: read begin signature: %w", err)
	}
	end, err := bs.Read(capacity-format.SignatureSize, format.SignatureSize)
	if err != nil {
		return Untrustworthy, fmt.Errorf("cds: read end signature: %w", err)
	}

	if !bytes.Equal(begin, format.SignatureBegin) || !bytes.Equal(end, format.SignatureEnd) {
		return Untrustworthy, nil
	}
	return Trustworthy, nil
}
