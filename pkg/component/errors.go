package component

import "github.com/dpsimgo/corepsim/simerr"

func componentParamError(id, msg string) error {
	return simerr.Parameterf("%s: %s", id, msg).WithComponent(id)
}
