package resource

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes the resource namespaces.
type Kind string

const (
	// KindPin is a GPIO line identified by its BCM number.
	KindPin Kind = "pin"

	// KindPort is a device file (serial port, I2C bus, SPI device node).
	KindPort Kind = "port"
)

// ID identifies one physical resource.
// IDs are comparable and used directly as map keys.
type ID struct {
	Kind  Kind
	Value string
}

// Pin returns the ID of GPIO pin n.
func Pin(n int) ID {
	return ID{Kind: KindPin, Value: strconv.Itoa(n)}
}

// Port returns the ID of the device file at path, in canonical form.
func Port(path string) ID {
	return ID{Kind: KindPort, Value: CanonicalPort(path)}
}

// CanonicalPort normalises a device path so that different spellings of the
// same file map to the same ID.
func CanonicalPort(path string) string {
	p := norm.NFC.String(strings.TrimSpace(path))
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// String renders the ID the way operators write it, e.g. "pin 17".
func (id ID) String() string {
	return fmt.Sprintf("%s %s", id.Kind, id.Value)
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.Kind == "" && id.Value == ""
}
