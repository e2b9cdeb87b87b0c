package wizard

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// FormID returns the stable identifier of step: the MD5 digest of the key,
// read as a UUID.
func FormID(step string) uuid.UUID {
	return uuid.UUID(md5.Sum([]byte(step)))
}
