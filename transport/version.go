package transport

// QUIC version numbers the core recognizes (RFC 9000 section 15).
const (
	VersionNegotiation uint32 = 0
	Version1           uint32 = 0x00000001
)

// SupportedVersions lists versions in preference order. A client checks
// it, through versionSupported, when picking a version from a received
// Version Negotiation packet (spec section 4.6, version negotiation); no
// outgoing packet is built from it and an incoming Initial's version is
// not checked against it.
var SupportedVersions = []uint32{Version1}

func versionSupported(v uint32) bool {
	for _, sv := range SupportedVersions {
		if sv == v {
			return true
		}
	}
	return false
}

// negotiateVersion picks a mutually supported version from a peer's
// advertised list, or 0 if none match.
func negotiateVersion(peerVersions []uint32) uint32 {
	for _, want := range SupportedVersions {
		for _, have := range peerVersions {
			if want == have {
				return want
			}
		}
	}
	return 0
}
