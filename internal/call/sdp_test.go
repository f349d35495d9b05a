package call

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const baseOffer = "v=0\r\n" +
	"o=- 4611731400430051336 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"a=rtpmap:96 VP8/90000\r\n"

func TestAugmentOfferInsertsBeforeFirstMediaSection(t *testing.T) {
	got := AugmentOffer(baseOffer)

	idx := strings.Index(got, "m=audio")
	require.Greater(t, idx, 0)

	// Session part is untouched, capability lines sit directly before m=.
	head := got[:idx]
	require.True(t, strings.HasSuffix(head,
		"a=sfu-capable\r\na=data-channel-capable\r\na=data-channel-keepalive\r\n"))
	require.True(t, strings.HasPrefix(head, "v=0\r\no=- 4611731400430051336"))

	// Everything from the first m= on is byte-identical.
	origIdx := strings.Index(baseOffer, "m=audio")
	require.Equal(t, baseOffer[origIdx:], got[idx:])
	require.Equal(t, baseOffer[:origIdx],
		strings.Replace(head, "a=sfu-capable\r\na=data-channel-capable\r\na=data-channel-keepalive\r\n", "", 1))
}

func TestAugmentOfferUnixNewlines(t *testing.T) {
	offer := strings.ReplaceAll(baseOffer, "\r\n", "\n")
	got := AugmentOffer(offer)
	require.Contains(t, got, "a=sfu-capable\na=data-channel-capable\na=data-channel-keepalive\nm=audio")
	require.NotContains(t, got, "\r\n")
}

func TestAugmentOfferWithoutMediaSection(t *testing.T) {
	offer := "v=0\r\ns=-\r\n"
	require.Equal(t, offer, AugmentOffer(offer))
}

func TestAugmentOfferIdempotentInput(t *testing.T) {
	// Augmenting twice duplicates lines; callers augment exactly once. This
	// pins down that the function itself never deduplicates.
	once := AugmentOffer(baseOffer)
	twice := AugmentOffer(once)
	require.Equal(t, strings.Count(twice, "a=sfu-capable"), 2)
}

func TestDetectSFUMode(t *testing.T) {
	require.False(t, DetectSFUMode(baseOffer))
	require.True(t, DetectSFUMode(baseOffer+"a=sfu-mode:on\r\n"))
	require.True(t, DetectSFUMode(strings.ReplaceAll(baseOffer, "\r\n", "\n")+"a=sfu-mode:on\n"))

	// The marker must be a whole line, not a substring.
	require.False(t, DetectSFUMode(baseOffer+"a=sfu-mode:onx\r\n"))
	require.False(t, DetectSFUMode(baseOffer+"xa=sfu-mode:on\r\n"))
}
