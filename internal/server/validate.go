package server

import "github.com/go-playground/validator/v10"

// validate checks request payloads against their struct tags.
var validate = validator.New(validator.WithRequiredStructEnabled())
