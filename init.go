package rbxproducts

import (
	"os"

	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// Init writes a starter declared file to path. It refuses to replace an
// existing file. A zero universeID writes a placeholder to edit by hand.
func Init(path string, universeID uint64) error {
	if _, err := os.Stat(path); err == nil {
		return errors.WrapIO("create", path, errors.ErrAlreadyExists)
	} else if !os.IsNotExist(err) {
		return errors.WrapIO("stat", path, err)
	}
	return declared.Save(path, declared.Starter(universeID))
}
