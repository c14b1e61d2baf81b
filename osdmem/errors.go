package osdmem

import "errors"

var (
	ErrorUnmapped        = errors.New("Address is not mapped")
	ErrorOutOfBounds     = errors.New("Access crosses region boundary")
	ErrorWriteNotAllowed = errors.New("Memory can't be written")
	ErrorAlignment       = errors.New("Address alignment has been violated")
	ErrorOverlap         = errors.New("Region overlaps an existing mapping")
	ErrorResidentFull    = errors.New("Resident memory exhausted")
	ErrorImageLoad       = errors.New("Could not load menu image")
)
