package testutil

import (
	"net/http"
)

// Storage scope cookie names, mirrored here so tests do not import the
// middleware package.
const (
	TabCookie    = "adega_tab"
	DeviceCookie = "adega_device"
)

// WithStorageScope attaches tab and device cookies to the request, as a
// browser tab that already visited the store would.
func WithStorageScope(req *http.Request, tabID, deviceID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: TabCookie, Value: tabID})
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: deviceID})
	return req
}
