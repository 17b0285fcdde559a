package post

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// Authorize checks a claimed owner against the stored one. A nil claim is
// accepted: the sync endpoint lets the extension omit it.
func Authorize(claimed *uuid.UUID, p *Post) error {
	if claimed == nil {
		return nil
	}
	if *claimed != p.OwnerID {
		return fmt.Errorf("%w: post does not belong to the requesting account", ErrForbidden)
	}
	return nil
}
