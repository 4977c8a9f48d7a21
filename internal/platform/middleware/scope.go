package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"adega/pkg/requestcontext"
)

// Cookies naming the two storage areas of a browser. The tab cookie is a
// session cookie, so every new tab or browser restart starts a fresh session
// area; the device cookie outlives both and names the legacy area.
const (
	TabCookie    = "adega_tab"
	DeviceCookie = "adega_device"

	deviceCookieMaxAge = 400 * 24 * 60 * 60
)

// StorageScope resolves the tab and device area ids from cookies, issuing new
// ones when absent or malformed, and injects them into the request context.
func StorageScope(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tabID, fresh := scopeID(r, TabCookie)
			if fresh {
				http.SetCookie(w, &http.Cookie{
					Name:     TabCookie,
					Value:    tabID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			deviceID, fresh := scopeID(r, DeviceCookie)
			if fresh {
				http.SetCookie(w, &http.Cookie{
					Name:     DeviceCookie,
					Value:    deviceID,
					Path:     "/",
					MaxAge:   deviceCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := requestcontext.WithTabID(r.Context(), tabID)
			ctx = requestcontext.WithDeviceID(ctx, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func scopeID(r *http.Request, name string) (string, bool) {
	if c, err := r.Cookie(name); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value, false
		}
	}
	return uuid.NewString(), true
}
