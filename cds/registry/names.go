package registry

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/cdskit/internal/format"
)

// FullName joins an owner and resource name with the separator.
func FullName(owner, resource string) string {
	return owner + string(format.NameSeparator) + resource
}

// ValidateName checks an owner/resource pair: both non-empty printable ASCII
// without spaces, no separator inside the owner, and at most MaxFullNameLen
// bytes once joined.
func ValidateName(owner, resource string) error {
	switch {
	case owner == "":
		return fmt.Errorf("%w: empty owner", ErrNameInvalid)
	case resource == "":
		return fmt.Errorf("%w: empty resource name", ErrNameInvalid)
	case strings.IndexByte(owner, format.NameSeparator) >= 0:
		return fmt.Errorf("%w: owner %q contains %q", ErrNameInvalid, owner, format.NameSeparator)
	}
	if n := len(owner) + 1 + len(resource); n > format.MaxFullNameLen {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrNameInvalid, n, format.MaxFullNameLen)
	}
	if i := nonPrintable(owner + resource); i >= 0 {
		return fmt.Errorf("%w: byte 0x%02X not printable ASCII", ErrNameInvalid, (owner + resource)[i])
	}
	return nil
}

// SplitName splits "Owner.Resource" at the first separator and validates it.
func SplitName(full string) (owner, resource string, err error) {
	owner, resource, ok := strings.Cut(full, string(format.NameSeparator))
	if !ok {
		return "", "", fmt.Errorf("%w: %q has no owner prefix", ErrNameInvalid, full)
	}
	if err := ValidateName(owner, resource); err != nil {
		return "", "", err
	}
	return owner, resource, nil
}

func nonPrintable(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return i
		}
	}
	return -1
}

// displayName renders raw stored name bytes for logs and dumps. Corrupted
// names may hold any byte; they are decoded as Windows-1252 so the output
// stays valid UTF-8.
func displayName(raw []byte) string {
	if nonPrintable(string(raw)) < 0 {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return fmt.Sprintf("%q", raw)
	}
	return strings.ToValidUTF8(string(decoded), "?")
}
