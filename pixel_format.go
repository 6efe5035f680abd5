package seqplay

// PixelFormat is an enumeration of pixel formats
type PixelFormat int

const (
	// RGB32 is 32-bit RGB format (0xffRRGGBB)
	RGB32 PixelFormat = iota
	// RGB16 is 16-bit RGB format (5-6-5)
	RGB16
)

// GetPixelSize returns the number of bytes per pixel.
func GetPixelSize(pixFormat PixelFormat) int {
	switch pixFormat {
	case RGB16:
		return 2
	default:
		return 4
	}
}

// GetPixelDepth returns the number of significant color bits per pixel.
func GetPixelDepth(pixFormat PixelFormat) int {
	switch pixFormat {
	case RGB16:
		return 16
	default:
		return 24
	}
}
