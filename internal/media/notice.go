package media

import (
	"strings"

	"github.com/jaevor/go-nanoid"
)

// noticePrefix is the phrase announcing a deferred image. The real payload
// is uploaded separately and referenced by the trailing token until a client
// resolves it.
const noticePrefix = "📷 Image envoyée : "

// FormatNotice builds the placeholder message content for an uploaded image.
func FormatNotice(id string) string {
	return noticePrefix + id
}

// ParseNotice extracts the image id from a deferred image notification.
// The token must be a bare alphanumeric id; anything else is ordinary text.
func ParseNotice(content string) (string, bool) {
	rest, found := strings.CutPrefix(content, noticePrefix)
	if !found {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" || !isToken(rest) {
		return "", false
	}
	return rest, true
}

// ParseImageURL extracts the image id from a stable image URL, the form a
// partially resolved cached message may still hold.
func ParseImageURL(content string) (string, bool) {
	if !strings.HasPrefix(content, "http://") && !strings.HasPrefix(content, "https://") {
		return "", false
	}
	idx := strings.LastIndex(content, "/image/")
	if idx < 0 {
		return "", false
	}
	id := strings.TrimSuffix(content[idx+len("/image/"):], "/")
	if id == "" || !isToken(id) {
		return "", false
	}
	return id, true
}

func isToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// NewUploadID generates an opaque id for an image upload.
func NewUploadID() string {
	gen, err := nanoid.Standard(21)
	if err != nil {
		// Only reachable with an invalid length constant.
		panic(err)
	}
	return gen()
}
