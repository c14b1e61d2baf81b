package osdpatch

import (
	"errors"

	"github.com/BertoldVdb/osdmenu-tools/hook"
	"github.com/BertoldVdb/osdmenu-tools/mips"
)

var (
	ErrSignatureNotFound = errors.New("Signature not found")
	ErrAlreadyPatched    = errors.New("Image has already been patched")
	ErrAddressOutOfRange = mips.ErrAddressOutOfRange
	ErrUnsafeRegion      = hook.ErrorUnsafeRegion

	ErrorUnknownRoutine = errors.New("No routine registered at address")
	ErrorUnknownVariant = errors.New("Image is not a known menu variant")
	ErrorNoMenu         = errors.New("Menu info has not been located")
	ErrorNoExec         = errors.New("No exec collaborator configured")
)
