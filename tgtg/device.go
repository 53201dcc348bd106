package tgtg

import "math/rand/v2"

// The API rejects requests that do not look like they come from the mobile
// app, so every client impersonates one of a small pool of Android builds.
var userAgents = []string{
	"TGTG/21.9.3 Dalvik/2.1.0 (Linux; U; Android 6.0.1; Nexus 5 Build/M4B30Z)",
	"TGTG/21.9.3 Dalvik/2.1.0 (Linux; U; Android 7.0; SM-G935F Build/NRD90M)",
	"TGTG/21.9.3 Dalvik/2.1.0 (Linux; Android 6.0.1; SM-G920V Build/MMB29K)",
}

func randomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}
