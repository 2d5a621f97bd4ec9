package fingerprint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeLinuxUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive(chromeLinuxUA, "en-US", "gzip, deflate, br")
	b := Derive(chromeLinuxUA, "en-US", "gzip, deflate, br")

	assert.Equal(t, a.DeviceID, b.DeviceID)
	assert.Equal(t, a.DeviceInfo, b.DeviceInfo)
	assert.Len(t, a.DeviceID, 64)
}

func TestDeriveDistinguishesClients(t *testing.T) {
	desktop := Derive(chromeLinuxUA, "en-US", "gzip")
	phone := Derive(iphoneUA, "en-US", "gzip")
	otherLang := Derive(chromeLinuxUA, "de-DE", "gzip")

	assert.NotEqual(t, desktop.DeviceID, phone.DeviceID)
	assert.NotEqual(t, desktop.DeviceID, otherLang.DeviceID)
}

func TestDeriveCanonicalFields(t *testing.T) {
	d := Derive(chromeLinuxUA, "en-US", "gzip")

	var got map[string]string
	require.NoError(t, json.Unmarshal(d.DeviceInfo, &got))
	assert.Equal(t, "Chrome", got["browser_family"])
	assert.Equal(t, "Linux", got["os_family"])
	assert.Equal(t, "desktop", got["device"])
	assert.Equal(t, "en-US", got["accept_lang"])
	assert.Equal(t, "gzip", got["accept_encoding"])
	assert.Equal(t, "Chrome on Linux", d.UserAgent)
}

func TestDeriveMobileDevice(t *testing.T) {
	d := Derive(iphoneUA, "", "")

	var got map[string]string
	require.NoError(t, json.Unmarshal(d.DeviceInfo, &got))
	assert.Equal(t, "mobile", got["device"])
}

func TestDeriveEmptyUserAgent(t *testing.T) {
	d := Derive("", "", "")

	var got map[string]string
	require.NoError(t, json.Unmarshal(d.DeviceInfo, &got))
	assert.Equal(t, "unknown", got["browser_family"])
	assert.Equal(t, "unknown", got["os_family"])
	assert.Equal(t, "unknown on unknown", d.UserAgent)
	// Even an empty request fingerprint is stable.
	assert.Equal(t, d.DeviceID, Derive("", "", "").DeviceID)
}
