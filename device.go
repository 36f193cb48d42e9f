package hyperate

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidDeviceID is returned by ParseDeviceID for input that holds no usable id.
var ErrInvalidDeviceID = errors.New("invalid device id")

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ParseDeviceID extracts a device id from either a bare id ("ABC123") or a
// share link ("https://app.hyperate.io/ABC123").
func ParseDeviceID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", errors.Wrapf(ErrInvalidDeviceID, "%q: %v", input, err)
		}
		s = path.Base(strings.TrimRight(u.Path, "/"))
	}
	if !deviceIDPattern.MatchString(s) {
		return "", errors.Wrapf(ErrInvalidDeviceID, "%q", input)
	}
	return s, nil
}

// HeartbeatTopic returns the heart-rate channel name for deviceID.
func HeartbeatTopic(deviceID string) string {
	return HeartbeatPrefix + deviceID
}

// ClipsTopic returns the clips channel name for deviceID.
func ClipsTopic(deviceID string) string {
	return ClipsPrefix + deviceID
}
