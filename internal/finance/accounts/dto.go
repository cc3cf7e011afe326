package accounts

import "fmt"

// AccountInput carries the fields of a created or updated account. On
// update the type must match the stored one.
type AccountInput struct {
	Number string
	Name   string
	Type   AccountType
}

func (in AccountInput) Validate() error {
	if in.Number == "" {
		return fmt.Errorf("%w: number required", ErrValidation)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", ErrValidation, in.Type)
	}
	return nil
}

// DimensionInput covers cost centers and cost objects, which share a shape.
type DimensionInput struct {
	Number      string
	Name        string
	Description string
}

func (in DimensionInput) Validate() error {
	if in.Number == "" {
		return fmt.Errorf("%w: number required", ErrValidation)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	return nil
}
