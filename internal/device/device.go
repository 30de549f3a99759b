// Package device describes peers that outbound transports can target.
package device

// Descriptor is a read-only view of a discovered peer.
type Descriptor interface {
	// Addresses returns candidate network addresses in preference order.
	Addresses() []string
	// Port returns the peer's transfer port, 0 if unknown.
	Port() int
}

// Device is a Descriptor built from static values, such as command
// line flags or a discovery announcement.
type Device struct {
	UUID         string
	Name         string
	Addrs        []string
	TransferPort int
}

var _ Descriptor = (*Device)(nil)

// Addresses implements Descriptor.
func (d *Device) Addresses() []string { return d.Addrs }

// Port implements Descriptor.
func (d *Device) Port() int { return d.TransferPort }

// String returns the device name, or its first address when unnamed.
func (d *Device) String() string {
	switch {
	case d.Name != "":
		return d.Name
	case len(d.Addrs) > 0:
		return d.Addrs[0]
	}
	return "<unknown device>"
}
