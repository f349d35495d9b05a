package call

import "strings"

// Capability attribute lines advertised in every outbound offer. They are
// inserted immediately before the first media section so the remote side
// can read them before any codec lines.
var capabilityAttrs = []string{
	"a=sfu-capable",
	"a=data-channel-capable",
	"a=data-channel-keepalive",
}

// sfuModeAttr marks a remote SDP as selective-forwarding rather than
// peer-to-peer.
const sfuModeAttr = "a=sfu-mode:on"

// AugmentOffer inserts the capability attribute lines immediately before the
// first m= line. Everything else stays byte-identical; when no media section
// exists the input is returned untouched.
func AugmentOffer(sdp string) string {
	idx := mediaSectionIndex(sdp)
	if idx < 0 {
		return sdp
	}
	eol := "\r\n"
	if !strings.Contains(sdp, "\r\n") {
		eol = "\n"
	}
	var b strings.Builder
	b.Grow(len(sdp) + len(capabilityAttrs)*32)
	b.WriteString(sdp[:idx])
	for _, attr := range capabilityAttrs {
		b.WriteString(attr)
		b.WriteString(eol)
	}
	b.WriteString(sdp[idx:])
	return b.String()
}

// DetectSFUMode reports whether a remote SDP carries the SFU mode marker.
func DetectSFUMode(sdp string) bool {
	for _, line := range strings.Split(sdp, "\n") {
		if strings.TrimRight(line, "\r") == sfuModeAttr {
			return true
		}
	}
	return false
}

// mediaSectionIndex returns the byte offset of the first m= line, or -1.
func mediaSectionIndex(sdp string) int {
	if strings.HasPrefix(sdp, "m=") {
		return 0
	}
	if idx := strings.Index(sdp, "\nm="); idx >= 0 {
		return idx + 1
	}
	return -1
}
