// Package request classifies one line of the text protocol into a typed
// request: arithmetic ("5 * 7"), average ("10 20 30"), factorial ("5"),
// reminder ("remind 2 Wake up!") or invalid.
//
// Parse never fails. A malformed line yields a KindInvalid request with a
// human-readable reason and no other field set, so handlers never see a
// partially populated request.
package request
