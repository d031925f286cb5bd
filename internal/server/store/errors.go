package store

import (
	"fmt"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, common.ErrorNotFound)
}
