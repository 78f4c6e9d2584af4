// Package qrcode builds image URLs for the api.qrserver.com QR code service.
// Nothing is encoded locally.
package qrcode

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const Endpoint = "https://api.qrserver.com/v1/create-qr-code/"

const (
	MinSize = 10
	MaxSize = 1000
)

type Options struct {
	Size       int
	Background string
	Foreground string
	QuietZone  int
}

// DefaultOptions matches the profile card: 128px, dark background, purple modules.
func DefaultOptions() Options {
	return Options{
		Size:       128,
		Background: "1f1f1f",
		Foreground: "A080DD",
		QuietZone:  1,
	}
}

func (o Options) Validate() error {
	if o.Size < MinSize || o.Size > MaxSize {
		return fmt.Errorf("size must be between %d and %d", MinSize, MaxSize)
	}
	if !validHex(o.Background) {
		return fmt.Errorf("background must be a 3 or 6 digit hex color")
	}
	if !validHex(o.Foreground) {
		return fmt.Errorf("foreground must be a 3 or 6 digit hex color")
	}
	if o.QuietZone < 0 || o.QuietZone > 100 {
		return fmt.Errorf("quiet zone must be between 0 and 100")
	}
	return nil
}

// URL returns the image URL that renders data as a QR code.
func URL(data string, o Options) (string, error) {
	if data == "" {
		return "", fmt.Errorf("data required")
	}
	if err := o.Validate(); err != nil {
		return "", err
	}

	size := strconv.Itoa(o.Size)
	q := url.Values{}
	q.Set("size", size+"x"+size)
	q.Set("data", data)
	q.Set("bgcolor", strings.TrimPrefix(o.Background, "#"))
	q.Set("color", strings.TrimPrefix(o.Foreground, "#"))
	q.Set("qzone", strconv.Itoa(o.QuietZone))
	return Endpoint + "?" + q.Encode(), nil
}

// ProfileURL returns the public address of a profile, e.g. https://qonnect.me/janedoe.
func ProfileURL(base, username string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(username)
}

// ProfileQRURL renders the profile address with the default options.
func ProfileQRURL(base, username string) string {
	out, err := URL(ProfileURL(base, username), DefaultOptions())
	if err != nil {
		return ""
	}
	return out
}

func validHex(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 3 && len(s) != 6 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
