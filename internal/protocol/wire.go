package protocol

// Start bytes and sizes shared by every pprz-style frame variant.
const (
	STX       byte = 0x99
	STXSecure byte = 0xAA

	// MaxFrameLen bounds every frame; LENGTH is a single byte.
	MaxFrameLen = 255
	// BufferLen sizes payload buffers.
	BufferLen = 256

	// Overhead counts STX, LENGTH and both checksum bytes.
	Overhead = 4
	// MaxPayloadLen is the largest payload a plain frame can carry.
	MaxPayloadLen = MaxFrameLen - Overhead

	// HeaderLen is the routing header at the start of every payload:
	// sender, receiver, class/component, message id.
	HeaderLen = 4
)
