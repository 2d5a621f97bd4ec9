// Package fingerprint derives a stable device identifier from request
// metadata. The same client always hashes to the same device id, which lets
// the session layer collapse repeated logins from one device into a single
// session row.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mssola/useragent"
)

// DeviceInformation is the derived fingerprint of one client.
type DeviceInformation struct {
	DeviceID   string // SHA-256 hex of the canonical fingerprint JSON
	DeviceInfo []byte // the canonical fingerprint JSON itself
	UserAgent  string // "{browser} on {os}", truncated to 100 chars
}

// canonical is what gets hashed. Field order matters: encoding/json emits
// struct fields in declaration order, which is what keeps the digest stable.
type canonical struct {
	BrowserFamily  string `json:"browser_family"`
	OSFamily       string `json:"os_family"`
	Device         string `json:"device"`
	AcceptLang     string `json:"accept_lang"`
	AcceptEncoding string `json:"accept_encoding"`
}

const maxUserAgentLen = 100

// Derive parses the User-Agent header plus the accept headers and produces
// the device fingerprint. Unknown fields canonicalize to "unknown" so that
// an empty UA still yields a stable, deterministic id.
func Derive(rawUA, acceptLang, acceptEncoding string) DeviceInformation {
	ua := useragent.New(rawUA)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = "unknown"
	}
	device := "desktop"
	if ua.Mobile() {
		device = "mobile"
	}
	if ua.Bot() {
		device = "bot"
	}

	c := canonical{
		BrowserFamily:  browser,
		OSFamily:       os,
		Device:         device,
		AcceptLang:     acceptLang,
		AcceptEncoding: acceptEncoding,
	}
	// Marshal of a plain struct cannot fail.
	info, _ := json.Marshal(c)
	sum := sha256.Sum256(info)

	short := browser + " on " + os
	if len(short) > maxUserAgentLen {
		short = short[:maxUserAgentLen]
	}

	return DeviceInformation{
		DeviceID:   hex.EncodeToString(sum[:]),
		DeviceInfo: info,
		UserAgent:  short,
	}
}
