package unit

// USB vendor/product ids the Unit enumerates under when attached as a
// CDC-ACM serial device.
const (
	VendorID  = 0x1209 // Open source hardware projects
	ProductID = 0x4d69
)
